package scheduler

import (
	"sync"
	"sync/atomic"
)

// gate is the pause/resume synchronization primitive: a binary
// mutual-exclusion object used asymmetrically — the worker
// acquires/releases it once per tick; control operations (Pause,
// Stop, Schedule, Restart) acquire it to pause the loop and release it
// to resume. A plain mutex is unsafe here because Lock/Unlock must be
// idempotent from the controller's perspective: calling Pause twice
// must not deadlock on the second Unlock, and Resume on an
// already-running loop must be a no-op. The atomic "locked" flag
// makes both idempotent.
type gate struct {
	mu     sync.Mutex
	locked atomic.Bool
}

// Pause acquires the gate if not already held by this controller.
// Idempotent.
func (g *gate) Pause() {
	if g.locked.CompareAndSwap(false, true) {
		g.mu.Lock()
	}
}

// Resume releases the gate if currently held. Idempotent.
func (g *gate) Resume() {
	if g.locked.CompareAndSwap(true, false) {
		g.mu.Unlock()
	}
}

// tickAcquire is what the worker calls each iteration: block until the
// gate is not paused, then hold mu for the duration of the tick.
func (g *gate) tickAcquire() {
	g.mu.Lock()
}

func (g *gate) tickRelease() {
	g.mu.Unlock()
}
