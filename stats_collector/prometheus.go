package stats_collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	writesEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_writes_enqueued",
			Help: "Total number of write operations enqueued",
		},
		[]string{"category"},
	)
	pendingWrites = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stash_pending_writes",
			Help: "Number of keys with pending write operations",
		},
		[]string{"category"},
	)
	flushBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_flush_batches",
			Help: "Total number of flush transactions committed",
		},
		[]string{"kind"},
	)
	flushErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_flush_errors",
			Help: "Total number of failed flush transactions",
		},
		[]string{"kind"},
	)
	flushBatchSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stash_flush_batch_size",
			Help:    "Write operations per flush transaction",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"kind"},
	)
	flushTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stash_flush_time_seconds",
			Help:    "Duration of flush transactions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	flushAndWait = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_flush_and_wait",
			Help: "Total number of key-scoped flush-and-wait requests",
		},
		[]string{"category"},
	)
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_cache_hits",
			Help: "Total number of read-cache hits",
		},
		[]string{"category"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_cache_misses",
			Help: "Total number of read-cache misses",
		},
		[]string{"category"},
	)
	reads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stash_reads",
			Help: "Total number of read requests served",
		},
		[]string{"category", "status"},
	)
)

var _ StatsCollector = (*promCollector)(nil)

type promCollector struct {
}

func (col *promCollector) IncWritesEnqueued(category string) {
	writesEnqueued.WithLabelValues(category).Inc()
}

func (col *promCollector) SetPendingWrites(category string, depth float64) {
	pendingWrites.WithLabelValues(category).Set(depth)
}

func (col *promCollector) IncFlushBatches(kind string) {
	flushBatches.WithLabelValues(kind).Inc()
}

func (col *promCollector) IncFlushErrors(kind string) {
	flushErrors.WithLabelValues(kind).Inc()
}

func (col *promCollector) ObserveFlushBatchSize(kind string, entries float64) {
	flushBatchSize.WithLabelValues(kind).Observe(entries)
}

func (col *promCollector) ObserveFlushTime(kind string, seconds float64) {
	flushTime.WithLabelValues(kind).Observe(seconds)
}

func (col *promCollector) IncFlushAndWait(category string) {
	flushAndWait.WithLabelValues(category).Inc()
}

func (col *promCollector) IncCacheHit(category string) {
	cacheHits.WithLabelValues(category).Inc()
}

func (col *promCollector) IncCacheMiss(category string) {
	cacheMisses.WithLabelValues(category).Inc()
}

func (col *promCollector) IncReads(category, status string) {
	reads.WithLabelValues(category, status).Inc()
}

func NewPrometheusCollector() StatsCollector {
	prometheus.MustRegister(
		writesEnqueued,
		pendingWrites,
		flushBatches,
		flushErrors,
		flushBatchSize,
		flushTime,
		flushAndWait,
		cacheHits,
		cacheMisses,
		reads,
	)
	return &promCollector{}
}
