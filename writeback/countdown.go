package writeback

import "sync"

// countdown is the rendezvous primitive behind FlushAndWait. Every
// concurrent caller for the same key joins the same countdown; wait
// releases once all of them have signalled. A countdown whose count has
// reached zero is finished for good: join refuses it, and the registry
// replaces it with a fresh instance for the next arrival.
type countdown struct {
	mu    sync.Mutex
	count int
	done  chan struct{}
}

// newCountdown creates a countdown with a single participant, the caller.
func newCountdown() *countdown {
	return &countdown{count: 1, done: make(chan struct{})}
}

// join registers one more participant. It fails on a finished countdown:
// the count hitting zero can race with a new arrival that already holds
// the engine lock, and a finished countdown must never be revived.
func (c *countdown) join() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == 0 {
		return false
	}
	c.count++
	return true
}

// signal marks one participant as done and reports whether this call took
// the count to zero. Exactly one caller sees true and becomes the closer
// responsible for removing the registry entry.
func (c *countdown) signal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count <= 0 {
		panic("writeback: countdown signalled below zero")
	}
	c.count--
	if c.count == 0 {
		close(c.done)
		return true
	}
	return false
}

// wait blocks until every participant has signalled.
func (c *countdown) wait() {
	<-c.done
}

func (c *countdown) finished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count == 0
}
