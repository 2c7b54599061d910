package stats_collector

var _ StatsCollector = (*noopCollector)(nil)

type noopCollector struct {
}

func (col *noopCollector) IncWritesEnqueued(string)            {}
func (col *noopCollector) SetPendingWrites(string, float64)    {}
func (col *noopCollector) IncFlushBatches(string)              {}
func (col *noopCollector) IncFlushErrors(string)               {}
func (col *noopCollector) ObserveFlushBatchSize(string, float64) {}
func (col *noopCollector) ObserveFlushTime(string, float64)    {}
func (col *noopCollector) IncFlushAndWait(string)              {}
func (col *noopCollector) IncCacheHit(string)                  {}
func (col *noopCollector) IncCacheMiss(string)                 {}
func (col *noopCollector) IncReads(string, string)             {}

func NewNoopStatsCollector() StatsCollector {
	return &noopCollector{}
}
