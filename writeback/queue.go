package writeback

import (
	"context"
)

// Queue holds one entity category's pending writes: an ordered list of
// ops per key, plus the per-key barrier registry used by FlushAndWait.
// All of it is guarded by the owning engine's lock.
type Queue[K comparable] struct {
	engine   *Engine
	name     string
	pending  map[K][]Op
	barriers map[K]*countdown
}

// NewQueue creates a queue for one entity category and registers it with
// the engine so background flushes drain it.
func NewQueue[K comparable](e *Engine, name string) *Queue[K] {
	q := &Queue[K]{
		engine:   e,
		name:     name,
		pending:  make(map[K][]Op),
		barriers: make(map[K]*countdown),
	}
	e.register(q)
	return q
}

// Name returns the category name.
func (q *Queue[K]) Name() string { return q.name }

// Enqueue appends op to the key's pending writes and arms the background
// flush if none is armed. It never blocks on I/O; the write becomes
// durable with whichever flush drains this key next.
func (q *Queue[K]) Enqueue(key K, op Op) {
	e := q.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	q.pending[key] = append(q.pending[key], op)
	e.scheduleFlushLocked()

	e.stats.IncWritesEnqueued(q.name)
	e.stats.SetPendingWrites(q.name, float64(len(q.pending)))
}

// Size returns the number of keys with pending writes.
func (q *Queue[K]) Size() int {
	q.engine.mu.Lock()
	defer q.engine.mu.Unlock()
	return len(q.pending)
}

// drainAllLocked moves every pending op into the combined batch,
// preserving per-key enqueue order. Caller must hold the engine lock.
func (q *Queue[K]) drainAllLocked(into *[]Op) {
	if len(q.pending) == 0 {
		return
	}
	for key, ops := range q.pending {
		*into = append(*into, ops...)
		delete(q.pending, key)
	}
	q.engine.stats.SetPendingWrites(q.name, 0)
}

func (q *Queue[K]) pendingLocked() int {
	n := 0
	for _, ops := range q.pending {
		n += len(ops)
	}
	return n
}

// takeLocked removes and returns the key's pending writes as a whole;
// a key's list is never drained partially. Caller must hold the engine
// lock.
func (q *Queue[K]) takeLocked(key K) []Op {
	ops := q.pending[key]
	if ops != nil {
		delete(q.pending, key)
		q.engine.stats.SetPendingWrites(q.name, float64(len(q.pending)))
	}
	return ops
}

// FlushAndWait commits every write enqueued for key before this call
// began, using the caller's runner, and returns only once every
// concurrent FlushAndWait for the same key has committed its own batch.
//
// The rendezvous is what makes the guarantee hold under races: a write
// enqueued in the gap between two callers' drains is committed by the
// later caller, so the earlier one must not return before the later one
// has finished. Each caller registers with the key's countdown before
// releasing the lock, signals after its own transaction, then waits for
// the rest.
func (q *Queue[K]) FlushAndWait(ctx context.Context, key K, runner TxRunner) {
	e := q.engine

	e.mu.Lock()
	batch := q.takeLocked(key)
	c := q.barriers[key]
	if c != nil && !c.join() {
		// Finished barrier whose closer has not removed it yet.
		c = nil
	}
	if c == nil {
		c = newCountdown()
		q.barriers[key] = c
	}
	e.mu.Unlock()

	e.runBatch(ctx, runner, "targeted", batch)
	e.stats.IncFlushAndWait(q.name)

	closer := c.signal()
	c.wait()

	if closer {
		e.mu.Lock()
		// A new arrival may have replaced the entry between our signal
		// and re-acquiring the lock; only ever remove our own instance.
		if q.barriers[key] == c && c.finished() {
			delete(q.barriers, key)
		}
		e.mu.Unlock()
	}
}
