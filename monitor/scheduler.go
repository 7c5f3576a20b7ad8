package monitor

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Handle is a pending scheduled callback.
type Handle interface {
	// Cancel prevents the callback from running. It reports whether the
	// call stopped the callback before it fired.
	Cancel() bool
}

// Scheduler runs a callback once after a delay.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
}

// ClockScheduler schedules callbacks on a clockwork.Clock. Use
// clockwork.NewRealClock in production and a fake clock in tests.
type ClockScheduler struct {
	clock clockwork.Clock
}

// NewClockScheduler creates a ClockScheduler backed by clock.
func NewClockScheduler(clock clockwork.Clock) *ClockScheduler {
	return &ClockScheduler{clock: clock}
}

// Schedule implements Scheduler.
func (s *ClockScheduler) Schedule(d time.Duration, fn func()) Handle {
	return timerHandle{timer: s.clock.AfterFunc(d, fn)}
}

type timerHandle struct {
	timer clockwork.Timer
}

func (h timerHandle) Cancel() bool {
	return h.timer.Stop()
}
