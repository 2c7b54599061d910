package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/jmoiron/sqlx"
	stripedmutex "github.com/nmvalera/striped-mutex"
	"github.com/puzpuzpuz/xsync/v3"

	"stash/db"
	"stash/stats_collector"
	"stash/writeback"
)

const (
	categoryStore  = "store"
	categoryBucket = "bucket"
	categoryObject = "object"
)

var ErrNotFound = errors.New("blob not found")

type Config struct {
	// ReadTtl bounds how long read results stay in the in-memory cache.
	ReadTtl time.Duration
	// LockStripes sizes the striped mutex serialising cache fills.
	LockStripes int
}

// Store is the blob store: writes land in the write-back queues and the
// read cache immediately, reads come from the cache or fall through to
// the database after flushing the key they touch.
type Store struct {
	db     *db.Database
	engine *writeback.Engine
	stats  stats_collector.StatsCollector

	storeQueue  *writeback.Queue[string]
	bucketQueue *writeback.Queue[string]
	objectQueue *writeback.Queue[ObjectKey]

	readCache *ttlcache.Cache[string, []byte]
	fillLocks *stripedmutex.StripedMutex
	buckets   *xsync.MapOf[string, *bucketCounters]
}

type bucketCounters struct {
	reads   *xsync.Counter
	writes  *xsync.Counter
	deletes *xsync.Counter
}

func newBucketCounters() *bucketCounters {
	return &bucketCounters{
		reads:   xsync.NewCounter(),
		writes:  xsync.NewCounter(),
		deletes: xsync.NewCounter(),
	}
}

func NewStore(database *db.Database, engine *writeback.Engine, cfg Config, stats stats_collector.StatsCollector) *Store {
	if cfg.ReadTtl <= 0 {
		cfg.ReadTtl = 60 * time.Minute
	}
	if cfg.LockStripes <= 0 {
		cfg.LockStripes = 128
	}
	return &Store{
		db:          database,
		engine:      engine,
		stats:       stats,
		storeQueue:  writeback.NewQueue[string](engine, categoryStore),
		bucketQueue: writeback.NewQueue[string](engine, categoryBucket),
		objectQueue: writeback.NewQueue[ObjectKey](engine, categoryObject),
		readCache: ttlcache.New[string, []byte](
			ttlcache.WithTTL[string, []byte](cfg.ReadTtl),
		),
		fillLocks: stripedmutex.New(uint(cfg.LockStripes)),
		buckets:   xsync.NewMapOf[string, *bucketCounters](),
	}
}

// Start launches the read cache's expiry loop.
func (s *Store) Start() {
	go s.readCache.Start()
}

func (s *Store) Close() {
	s.readCache.Stop()
}

// Flush forces one synchronous flush of every pending write.
func (s *Store) Flush() {
	s.engine.FlushAll()
}

func storeCacheKey(name string) string { return "s\x00" + name }

func bucketCacheKey(bucket, name string) string { return "b\x00" + bucket + "\x00" + name }

func objectCacheKey(bucket, object, name string) string {
	return "o\x00" + bucket + "\x00" + object + "\x00" + name
}

func (s *Store) bucketStats(bucket string) *bucketCounters {
	c, _ := s.buckets.LoadOrCompute(bucket, newBucketCounters)
	return c
}

// WriteStoreProperty queues an upsert of a store-wide property. The
// value is readable immediately; durability follows with the next
// flush that drains the key.
func (s *Store) WriteStoreProperty(name string, data []byte, ttl time.Duration) {
	now := time.Now()
	rec := storePropertyRecord{
		Name:            name,
		Data:            data,
		ExpireTimestamp: expiryFromTtl(now, ttl),
		UpdatedAt:       now.Unix(),
	}
	s.readCache.Set(storeCacheKey(name), data, ttlcache.DefaultTTL)
	s.storeQueue.Enqueue(name, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExec(upsertStoreProperty, rec)
		return err
	})
}

func (s *Store) ReadStoreProperty(ctx context.Context, name string) ([]byte, error) {
	flush := func() { s.storeQueue.FlushAndWait(ctx, name, s.db) }
	return s.readThrough(ctx, categoryStore, storeCacheKey(name), flush,
		selectStoreProperty, name)
}

func (s *Store) DeleteStoreProperty(name string) {
	s.readCache.Delete(storeCacheKey(name))
	s.storeQueue.Enqueue(name, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(deleteStoreProperty, name)
		return err
	})
}

// WriteBucketProperty queues an upsert of a per-bucket property. All
// properties of one bucket share a queue key, so a read of any of them
// flushes them together.
func (s *Store) WriteBucketProperty(bucket, name string, data []byte, ttl time.Duration) {
	now := time.Now()
	rec := bucketPropertyRecord{
		Bucket:          bucket,
		Name:            name,
		Data:            data,
		ExpireTimestamp: expiryFromTtl(now, ttl),
		UpdatedAt:       now.Unix(),
	}
	s.readCache.Set(bucketCacheKey(bucket, name), data, ttlcache.DefaultTTL)
	s.bucketQueue.Enqueue(bucket, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExec(upsertBucketProperty, rec)
		return err
	})
	s.bucketStats(bucket).writes.Inc()
}

func (s *Store) ReadBucketProperty(ctx context.Context, bucket, name string) ([]byte, error) {
	s.bucketStats(bucket).reads.Inc()
	flush := func() { s.bucketQueue.FlushAndWait(ctx, bucket, s.db) }
	return s.readThrough(ctx, categoryBucket, bucketCacheKey(bucket, name), flush,
		selectBucketProperty, bucket, name)
}

func (s *Store) DeleteBucketProperty(bucket, name string) {
	s.readCache.Delete(bucketCacheKey(bucket, name))
	s.bucketQueue.Enqueue(bucket, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(deleteBucketProperty, bucket, name)
		return err
	})
	s.bucketStats(bucket).deletes.Inc()
}

// WriteObjectBlob queues an upsert of one named blob of an object.
func (s *Store) WriteObjectBlob(bucket, object, name string, data []byte, ttl time.Duration) {
	now := time.Now()
	rec := objectBlobRecord{
		Bucket:          bucket,
		Object:          object,
		Name:            name,
		Data:            data,
		ExpireTimestamp: expiryFromTtl(now, ttl),
		UpdatedAt:       now.Unix(),
	}
	s.readCache.Set(objectCacheKey(bucket, object, name), data, ttlcache.DefaultTTL)
	s.objectQueue.Enqueue(ObjectKey{Bucket: bucket, Object: object}, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExec(upsertObjectBlob, rec)
		return err
	})
	s.bucketStats(bucket).writes.Inc()
}

func (s *Store) ReadObjectBlob(ctx context.Context, bucket, object, name string) ([]byte, error) {
	s.bucketStats(bucket).reads.Inc()
	flush := func() {
		s.objectQueue.FlushAndWait(ctx, ObjectKey{Bucket: bucket, Object: object}, s.db)
	}
	return s.readThrough(ctx, categoryObject, objectCacheKey(bucket, object, name), flush,
		selectObjectBlob, bucket, object, name)
}

func (s *Store) DeleteObjectBlob(bucket, object, name string) {
	s.readCache.Delete(objectCacheKey(bucket, object, name))
	s.objectQueue.Enqueue(ObjectKey{Bucket: bucket, Object: object}, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(deleteObjectBlob, bucket, object, name)
		return err
	})
	s.bucketStats(bucket).deletes.Inc()
}

// readThrough serves a read from the cache, or fills it from the
// database. The fill is striped-locked per cache key so one miss does
// the work; flush runs before the select so the read observes every
// write enqueued for its key beforehand.
func (s *Store) readThrough(ctx context.Context, category, ck string, flush func(), query string, args ...interface{}) ([]byte, error) {
	if item := s.readCache.Get(ck); item != nil {
		s.stats.IncCacheHit(category)
		s.stats.IncReads(category, "hit")
		return item.Value(), nil
	}
	s.stats.IncCacheMiss(category)

	lock, _ := s.fillLocks.GetLock(ck)
	lock.Lock()
	defer lock.Unlock()

	if item := s.readCache.Get(ck); item != nil {
		s.stats.IncReads(category, "hit")
		return item.Value(), nil
	}

	flush()

	var row blobRow
	err := s.db.Pool.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		s.stats.IncReads(category, "miss")
		return nil, ErrNotFound
	}
	if err != nil {
		s.stats.IncReads(category, "error")
		return nil, err
	}
	if row.expired(time.Now()) {
		s.stats.IncReads(category, "miss")
		return nil, ErrNotFound
	}

	s.readCache.Set(ck, row.Data, ttlcache.DefaultTTL)
	s.stats.IncReads(category, "db")
	return row.Data, nil
}

type BucketStatus struct {
	Reads   int64 `json:"reads"`
	Writes  int64 `json:"writes"`
	Deletes int64 `json:"deletes"`
}

type Status struct {
	PendingWrites int                     `json:"pending_writes"`
	CachedEntries int                     `json:"cached_entries"`
	Buckets       map[string]BucketStatus `json:"buckets"`
}

func (s *Store) Status() Status {
	status := Status{
		PendingWrites: s.engine.PendingWrites(),
		CachedEntries: s.readCache.Len(),
		Buckets:       map[string]BucketStatus{},
	}
	s.buckets.Range(func(bucket string, c *bucketCounters) bool {
		status.Buckets[bucket] = BucketStatus{
			Reads:   c.reads.Value(),
			Writes:  c.writes.Value(),
			Deletes: c.deletes.Value(),
		}
		return true
	})
	return status
}
