package rooms

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timers is the set of cancellable handles a room owns: the clock loop that
// drives round and market ticks, the inactivity timer and the rematch timer.
// Methods must be called with the room lock held.
type Timers struct {
	stopLoop context.CancelFunc
	idle     clockwork.Timer
	rematch  clockwork.Timer
}

// SetLoop records the cancel func of a newly started clock loop, stopping
// any previous loop first.
func (t *Timers) SetLoop(cancel context.CancelFunc) {
	t.StopLoop()
	t.stopLoop = cancel
}

func (t *Timers) StopLoop() {
	if t.stopLoop != nil {
		t.stopLoop()
		t.stopLoop = nil
	}
}

func (t *Timers) LoopRunning() bool {
	return t.stopLoop != nil
}

func (t *Timers) SetIdle(timer clockwork.Timer) {
	stop(t.idle)
	t.idle = timer
}

// ResetIdle pushes the inactivity deadline d into the future. It reports
// false when no idle timer is armed.
func (t *Timers) ResetIdle(d time.Duration) bool {
	if t.idle == nil {
		return false
	}
	t.idle.Reset(d)
	return true
}

func (t *Timers) SetRematch(timer clockwork.Timer) {
	stop(t.rematch)
	t.rematch = timer
}

func (t *Timers) StopRematch() {
	stop(t.rematch)
	t.rematch = nil
}

// StopAll cancels every handle. Safe to call more than once.
func (t *Timers) StopAll() {
	t.StopLoop()
	stop(t.idle)
	t.idle = nil
	t.StopRematch()
}

func stop(timer clockwork.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
