package writeback

import (
	"context"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"

	"stash/stats_collector"
)

// Op is a single deferred write, applied inside a database transaction.
// An Op is invoked exactly once, by whichever flush drains it.
type Op func(tx *sqlx.Tx) error

// TxRunner executes a function inside one transaction, rolling back if it
// returns an error. db.Database implements it over a pooled *sqlx.DB;
// tests substitute recording doubles.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// drainer lets the engine collect a category queue's pending writes
// during a full flush. Called with the engine lock held.
type drainer interface {
	drainAllLocked(into *[]Op)
	pendingLocked() int
}

// DefaultFlushInterval is the quiescence window between the first enqueue
// after idle and the background flush it schedules.
const DefaultFlushInterval = 500 * time.Millisecond

// Config configures an Engine.
type Config struct {
	// FlushInterval overrides DefaultFlushInterval when > 0.
	FlushInterval time.Duration
	// Runner supplies pooled connections for background flushes.
	Runner TxRunner
	// Stats defaults to the noop collector.
	Stats stats_collector.StatsCollector
}

// Engine coalesces enqueued writes from all registered category queues
// into periodic bulk transactions. A single lock guards every queue's
// pending map, the per-key barrier registries and the scheduled-flush
// timer: the queues and the barriers have to be mutated as one consistent
// unit, and holding the lock across the bulk transaction is what lets
// FlushAndWait observe a state where the drained writes are already
// committed.
type Engine struct {
	mu sync.Mutex

	queues     []drainer
	flushTimer *time.Timer // non-nil iff a background flush is scheduled or starting

	flushInterval time.Duration
	runner        TxRunner
	stats         stats_collector.StatsCollector

	stop     chan struct{}
	stopOnce sync.Once
}

func NewEngine(cfg Config) *Engine {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Stats == nil {
		cfg.Stats = stats_collector.NewNoopStatsCollector()
	}
	return &Engine{
		flushInterval: cfg.FlushInterval,
		runner:        cfg.Runner,
		stats:         cfg.Stats,
		stop:          make(chan struct{}),
	}
}

// Stop raises the shutdown flag. Writes still queued are dropped rather
// than forced out; Enqueue keeps accepting writes but nothing flushes
// them any more. Callers that want the queues drained call FlushAll
// before Stop.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
}

func (e *Engine) stopping() bool {
	select {
	case <-e.stop:
		return true
	default:
		return false
	}
}

func (e *Engine) register(q drainer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queues = append(e.queues, q)
}

// scheduleFlushLocked arms the background flush timer. At most one timer
// is live at any time; once it fires the flush clears the field first, so
// writes arriving during the flush arm a fresh one. Caller must hold e.mu.
func (e *Engine) scheduleFlushLocked() {
	if e.flushTimer != nil || e.stopping() {
		return
	}
	e.flushTimer = time.AfterFunc(e.flushInterval, e.flushAll)
}

// FlushAll drains every registered queue and commits the combined batch
// in a single transaction on the engine's own runner. Per-key enqueue
// order is preserved; ordering across keys is unspecified.
func (e *Engine) FlushAll() {
	e.flushAll()
}

func (e *Engine) flushAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.flushTimer != nil {
		e.flushTimer.Stop()
		e.flushTimer = nil
	}

	if e.stopping() {
		return
	}

	var batch []Op
	for _, q := range e.queues {
		q.drainAllLocked(&batch)
	}
	if len(batch) == 0 {
		return
	}

	// Queues were cleared above, so writes racing in during the
	// transaction below land in the next flush, not this one.
	e.runBatch(context.Background(), e.runner, "background", batch)
}

// runBatch applies a batch of ops inside one transaction on runner.
// Failures are logged and swallowed: the store is a cache, so a lost
// batch costs a recomputation, not correctness. Nothing is retried.
func (e *Engine) runBatch(ctx context.Context, runner TxRunner, kind string, batch []Op) {
	if len(batch) == 0 {
		return
	}
	if e.stopping() {
		return
	}

	start := time.Now()
	err := runner.RunInTransaction(ctx, func(tx *sqlx.Tx) error {
		for _, op := range batch {
			if err := op(tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		e.stats.IncFlushErrors(kind)
		log.Errorf("writeback: %s flush of %d writes failed: %v", kind, len(batch), err)
		return
	}

	e.stats.IncFlushBatches(kind)
	e.stats.ObserveFlushBatchSize(kind, float64(len(batch)))
	e.stats.ObserveFlushTime(kind, time.Since(start).Seconds())
}

// PendingWrites returns the number of writes currently queued across all
// categories.
func (e *Engine) PendingWrites() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, q := range e.queues {
		n += q.pendingLocked()
	}
	return n
}
