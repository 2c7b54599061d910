package writeback

import (
	"sync"
	"testing"
)

func TestCountdownSingleParticipant(t *testing.T) {
	c := newCountdown()

	if c.finished() {
		t.Error("Expected fresh countdown to not be finished")
	}
	if !c.signal() {
		t.Error("Expected sole participant's signal to close the countdown")
	}
	c.wait() // must not block

	if !c.finished() {
		t.Error("Expected countdown to be finished after last signal")
	}
}

func TestCountdownJoin(t *testing.T) {
	c := newCountdown()

	if !c.join() {
		t.Fatal("Expected join on a live countdown to succeed")
	}

	if c.signal() {
		t.Error("Expected first of two signals to not close the countdown")
	}
	if !c.signal() {
		t.Error("Expected second signal to close the countdown")
	}
	c.wait()
}

func TestCountdownJoinRefusedAfterFinish(t *testing.T) {
	c := newCountdown()
	c.signal()

	if c.join() {
		t.Error("Expected join on a finished countdown to be refused")
	}
}

func TestCountdownExactlyOneCloser(t *testing.T) {
	const participants = 64

	c := newCountdown()
	for i := 0; i < participants-1; i++ {
		if !c.join() {
			t.Fatal("Expected join to succeed before any signal")
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	closers := 0

	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.signal() {
				mu.Lock()
				closers++
				mu.Unlock()
			}
			c.wait()
		}()
	}
	wg.Wait()

	if closers != 1 {
		t.Errorf("Expected exactly one closer, got %d", closers)
	}
}
