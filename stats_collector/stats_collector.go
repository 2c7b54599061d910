package stats_collector

import (
	"github.com/Depado/ginprom"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"stash/config"
)

type StatsCollector interface {
	IncWritesEnqueued(category string)
	SetPendingWrites(category string, depth float64)
	IncFlushBatches(kind string)
	IncFlushErrors(kind string)
	ObserveFlushBatchSize(kind string, entries float64)
	ObserveFlushTime(kind string, seconds float64)
	IncFlushAndWait(category string)
	IncCacheHit(category string)
	IncCacheMiss(category string)
	IncReads(category, status string)
}

type Config interface {
	GetPrometheus() config.Prometheus
}

func GetStatsCollector(cfg Config, ginEngine *gin.Engine) StatsCollector {
	promSettings := cfg.GetPrometheus()
	if !promSettings.Enabled {
		return NewNoopStatsCollector()
	}
	log.Infof("Prometheus init")
	if ginEngine != nil {
		p := ginprom.New(
			ginprom.Engine(ginEngine),
			ginprom.Subsystem("gin"),
			ginprom.Path("/metrics"),
			ginprom.Token(promSettings.Token),
			ginprom.BucketSize(promSettings.BucketSize),
		)
		ginEngine.Use(p.Instrument())
	}
	return NewPrometheusCollector()
}
