package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	ginlogrus "github.com/toorop/gin-logrus"

	"stash/config"
	"stash/db"
	"stash/external"
	"stash/stats_collector"
	"stash/storage"
	"stash/writeback"
)

var store *storage.Store
var statsCollector stats_collector.StatsCollector

func main() {
	var wg sync.WaitGroup
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	wg.Add(1)
	go func() {
		defer wg.Done()
		watchForShutdown(ctx, cancelFn)
	}()

	cfg, err := config.ReadConfig()
	if err != nil {
		panic(err)
	}

	logLevel := log.InfoLevel

	// Both Sentry & Pyroscope are optional and off by default. Read more:
	// https://docs.sentry.io/platforms/go
	// https://pyroscope.io/docs/golang
	external.InitSentry()
	external.InitPyroscope()

	if cfg.Logging.Debug == true {
		logLevel = log.DebugLevel
	}
	SetupLogger(logLevel, cfg.Logging.SaveLogs)

	log.Infof("Stash starting")

	database, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal(err)
		return
	}

	StartStatsLogger(database.Pool)

	// Start the web server.
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// choose the statsCollector we will use.
	statsCollector = stats_collector.GetStatsCollector(cfg, r)

	engine := writeback.NewEngine(writeback.Config{
		FlushInterval: time.Duration(cfg.Cache.FlushIntervalMs) * time.Millisecond,
		Runner:        database,
		Stats:         statsCollector,
	})
	store = storage.NewStore(database, engine, storage.Config{
		ReadTtl:     time.Duration(cfg.Cache.ReadTtlMinutes) * time.Minute,
		LockStripes: cfg.Cache.LockStripes,
	}, statsCollector)
	store.Start()
	store.StartExpiryPurge()

	if cfg.Logging.Debug {
		r.Use(ginlogrus.Logger(log.StandardLogger()))
	} else {
		r.Use(gin.Recovery())
	}

	r.GET("/health", GetHealth)

	apiGroup := r.Group("/api", AuthRequired())
	apiGroup.GET("/status", GetStatus)
	apiGroup.POST("/flush", PostFlush)

	apiGroup.PUT("/store/:name", PutStoreProperty)
	apiGroup.GET("/store/:name", GetStoreProperty)
	apiGroup.DELETE("/store/:name", DeleteStoreProperty)

	apiGroup.PUT("/bucket/:bucket/props/:name", PutBucketProperty)
	apiGroup.GET("/bucket/:bucket/props/:name", GetBucketProperty)
	apiGroup.DELETE("/bucket/:bucket/props/:name", DeleteBucketProperty)

	apiGroup.PUT("/bucket/:bucket/object/:object/:name", PutObjectBlob)
	apiGroup.GET("/bucket/:bucket/object/:object/:name", GetObjectBlob)
	apiGroup.DELETE("/bucket/:bucket/object/:object/:name", DeleteObjectBlob)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	wg.Add(1)
	go func() {
		defer cancelFn()
		defer wg.Done()

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Failed to listen and start http server: %s", err)
		}
	}()

	// wait for shutdown to be signaled in some way. This can be from a
	// failure to start the http server, and/or watchForShutdown() saying
	// it is time to shutdown. (watchForShutdown() on unix waits for a
	// SIGINT or SIGTERM)
	<-ctx.Done()

	log.Info("Starting shutdown...")

	// So now we attempt to shutdown the http server, telling it to wait for open requests to
	// finish for 5 seconds before just pulling the plug.
	shutdownCtx, shutdownCancelFn := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancelFn()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		if err == context.DeadlineExceeded {
			log.Warn("Graceful shutdown timed out, exiting.")
		} else {
			log.Errorf("Error during http server shutdown: %s", err)
		}
	}

	log.Info("http server is shutdown, waiting for other go routines to exit...")
	wg.Wait()

	// Nothing accepts requests any more, so one explicit flush makes
	// every queued write durable. The engine is stopped after; anything
	// that slipped in past this point is dropped on purpose.
	log.Info("go routines have exited, flushing pending writes now...")
	store.Flush()
	engine.Stop()
	store.Close()
	_ = database.Close()

	log.Info("Stash exiting!")
}
