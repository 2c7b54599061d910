package writeback

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
)

func TestQueueEnqueue(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEngine(runner)
	q := NewQueue[string](e, "test")

	q.Enqueue("test:1", runner.op(1))

	if q.Size() != 1 {
		t.Errorf("Expected queue size 1, got %d", q.Size())
	}

	// Same key again: one key, two ordered ops.
	q.Enqueue("test:1", runner.op(2))

	if q.Size() != 1 {
		t.Errorf("Expected queue size 1 after second op on same key, got %d", q.Size())
	}
	if got := e.PendingWrites(); got != 2 {
		t.Errorf("Expected 2 pending writes, got %d", got)
	}
}

func TestFlushAndWaitUsesCallersRunner(t *testing.T) {
	engineRunner := &fakeRunner{}
	e := newTestEngine(engineRunner)
	q := NewQueue[string](e, "test")

	targeted := &fakeRunner{}
	q.Enqueue("k", targeted.op(1))
	q.Enqueue("k", targeted.op(2))
	q.Enqueue("other", targeted.op(9))

	q.FlushAndWait(context.Background(), "k", targeted)

	if got := targeted.applied(); !sameOrder(got, []int{1, 2}) {
		t.Errorf("Expected the key's ops committed in order [1 2], got %v", got)
	}
	if got := engineRunner.transactionCount(); got != 0 {
		t.Errorf("Expected the engine's runner untouched, got %d transactions", got)
	}
	if got := e.PendingWrites(); got != 1 {
		t.Errorf("Expected the other key's write to stay queued, got %d pending", got)
	}

	e.mu.Lock()
	barriers := len(q.barriers)
	e.mu.Unlock()
	if barriers != 0 {
		t.Errorf("Expected barrier registry empty after last caller, got %d entries", barriers)
	}
}

func TestFlushAndWaitNothingPending(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEngine(runner)
	q := NewQueue[string](e, "test")

	done := make(chan struct{})
	go func() {
		q.FlushAndWait(context.Background(), "missing", runner)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected FlushAndWait with no pending writes to return promptly")
	}
	if got := runner.transactionCount(); got != 0 {
		t.Errorf("Expected no transaction for an empty batch, got %d", got)
	}
}

func TestFlushAndWaitWaitsForConcurrentPeer(t *testing.T) {
	e := newTestEngine(&fakeRunner{})
	q := NewQueue[string](e, "test")

	slow := &fakeRunner{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	fast := &fakeRunner{}

	q.Enqueue("k", slow.op(1))

	aDone := make(chan struct{})
	go func() {
		q.FlushAndWait(context.Background(), "k", slow)
		close(aDone)
	}()

	// First caller has drained the key and is sitting in its transaction.
	<-slow.entered

	q.Enqueue("k", fast.op(2))

	bDone := make(chan struct{})
	go func() {
		q.FlushAndWait(context.Background(), "k", fast)
		close(bDone)
	}()

	// The second caller commits its own batch but must not return while
	// the first one's transaction is still in flight.
	waitFor(t, "second caller's commit", func() bool { return fast.transactionCount() == 1 })

	select {
	case <-bDone:
		t.Fatal("Expected the second caller to wait for the first")
	case <-time.After(30 * time.Millisecond):
	}
	select {
	case <-aDone:
		t.Fatal("Expected the first caller to still be blocked")
	default:
	}

	close(slow.block)
	<-aDone
	<-bDone

	if got := slow.applied(); !sameOrder(got, []int{1}) {
		t.Errorf("Expected first caller to commit op 1, got %v", got)
	}
	if got := fast.applied(); !sameOrder(got, []int{2}) {
		t.Errorf("Expected second caller to commit op 2, got %v", got)
	}

	e.mu.Lock()
	barriers := len(q.barriers)
	e.mu.Unlock()
	if barriers != 0 {
		t.Errorf("Expected barrier registry empty, got %d entries", barriers)
	}
}

func TestFlushAndWaitAfterStop(t *testing.T) {
	runner := &fakeRunner{}
	e := newTestEngine(runner)
	q := NewQueue[string](e, "test")

	q.Enqueue("k", runner.op(1))
	e.Stop()

	done := make(chan struct{})
	go func() {
		q.FlushAndWait(context.Background(), "k", runner)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected FlushAndWait to return after stop")
	}
	if got := runner.transactionCount(); got != 0 {
		t.Errorf("Expected nothing committed after stop, got %d transactions", got)
	}
}

// countingRunner just runs the batch; ops count themselves.
type countingRunner struct {
	txs atomic.Int64
}

func (r *countingRunner) RunInTransaction(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	r.txs.Add(1)
	return fn(nil)
}

func TestFlushAndWaitStress(t *testing.T) {
	const workers = 8
	const iterations = 50

	runner := &countingRunner{}
	e := newTestEngine(runner)
	q := NewQueue[string](e, "test")

	var applied atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				q.Enqueue("hot", func(tx *sqlx.Tx) error {
					applied.Add(1)
					return nil
				})
				q.FlushAndWait(context.Background(), "hot", runner)
			}
		}()
	}
	wg.Wait()

	// Every op committed exactly once, by whichever caller drained it.
	if got := applied.Load(); got != workers*iterations {
		t.Errorf("Expected %d ops applied, got %d", workers*iterations, got)
	}
	if got := e.PendingWrites(); got != 0 {
		t.Errorf("Expected no pending writes after stress, got %d", got)
	}

	e.mu.Lock()
	barriers := len(q.barriers)
	e.mu.Unlock()
	if barriers != 0 {
		t.Errorf("Expected barrier registry empty after stress, got %d entries", barriers)
	}
}
