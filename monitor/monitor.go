// Package monitor enforces automatic logout after a period without user
// activity.
//
// A Monitor keeps at most one pending expiration. Every activity signal
// cancels it and schedules a fresh one timeoutMinutes later; if the
// expiration fires first, the monitor calls its ExpireFunc exactly once.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pilab-dev/shadow-session/activity"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/pilab-dev/shadow-session/log"
)

const (
	DefaultTimeoutMinutes = 30
)

// Config controls a Monitor.
type Config struct {
	// TimeoutMinutes is the inactivity window. Must be positive.
	TimeoutMinutes int
	// Enabled turns monitoring on. A disabled monitor never expires.
	Enabled bool
}

// DefaultConfig returns a 30 minute, enabled configuration.
func DefaultConfig() Config {
	return Config{TimeoutMinutes: DefaultTimeoutMinutes, Enabled: true}
}

// Timeout is the exact delay between the last activity and expiry.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// AuthState is the read side of the shared session state.
type AuthState interface {
	IsAuthenticated() bool
}

// ExpireFunc is called when the inactivity window elapses.
type ExpireFunc func()

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock used for timestamps and, unless WithScheduler
// is also given, for scheduling.
func WithClock(clock clockwork.Clock) Option {
	return func(m *Monitor) {
		m.clock = clock
	}
}

// WithScheduler overrides the scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Monitor) {
		m.scheduler = s
	}
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(m *Monitor) {
		m.logger = l
	}
}

// Monitor is the inactivity session monitor for one session.
type Monitor struct {
	timeout   time.Duration
	auth      AuthState
	tracker   *activity.Tracker
	onExpire  ExpireFunc
	clock     clockwork.Clock
	scheduler Scheduler
	logger    log.Logger

	mu             sync.Mutex
	enabled        bool
	started        bool
	active         bool
	lastActivityAt time.Time
	pending        Handle
	generation     uint64
}

// New creates a Monitor. It does nothing until Start is called.
func New(cfg Config, auth AuthState, source activity.Source, onExpire ExpireFunc, opts ...Option) (*Monitor, error) {
	if cfg.TimeoutMinutes <= 0 {
		return nil, fmt.Errorf("%w: got %d", serrors.ErrInvalidTimeout, cfg.TimeoutMinutes)
	}

	m := &Monitor{
		timeout:  cfg.Timeout(),
		auth:     auth,
		tracker:  activity.NewTracker(source),
		onExpire: onExpire,
		enabled:  cfg.Enabled,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = clockwork.NewRealClock()
	}
	if m.scheduler == nil {
		m.scheduler = NewClockScheduler(m.clock)
	}
	if m.logger == nil {
		m.logger = log.Nop()
	}

	return m, nil
}

// Start begins monitoring. If monitoring is enabled and the session is
// authenticated it subscribes to activity and arms the timer once.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.auth.IsAuthenticated() {
		return serrors.ErrNotAuthenticated
	}
	m.started = true
	m.activateLocked()

	return nil
}

// Stop releases every activity listener and cancels the pending
// expiration. The monitor never fires after Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false
	m.deactivateLocked()
}

// SetEnabled toggles monitoring. Enabling a started, authenticated
// monitor arms the timer; disabling cancels it.
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = enabled
	if !enabled {
		m.deactivateLocked()
		return
	}
	if m.started && m.auth.IsAuthenticated() {
		m.activateLocked()
	}
}

// AuthLost must be called when the session becomes unauthenticated. It
// tears monitoring down in the caller's goroutine; nothing rearms
// afterwards.
func (m *Monitor) AuthLost() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false
	m.deactivateLocked()
}

// Rearm records activity now and pushes the expiration out by the full
// timeout. It returns false if the monitor is not active.
func (m *Monitor) Rearm() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		return false
	}
	m.rearmLocked()

	return true
}

// Cancel drops the pending expiration, if any.
func (m *Monitor) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancelLocked()
}

// LastActivityAt returns the time of the last rearm.
func (m *Monitor) LastActivityAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivityAt
}

// Deadline returns when the pending expiration fires. ok is false when
// nothing is pending.
func (m *Monitor) Deadline() (deadline time.Time, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return time.Time{}, false
	}
	return m.lastActivityAt.Add(m.timeout), true
}

// Pending reports whether an expiration is scheduled.
func (m *Monitor) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// Active reports whether the monitor is listening for activity.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Timeout returns the configured inactivity window.
func (m *Monitor) Timeout() time.Duration {
	return m.timeout
}

func (m *Monitor) activateLocked() {
	if m.active || !m.enabled {
		return
	}
	m.active = true
	m.tracker.Start(func() { m.Rearm() })
	m.rearmLocked()
}

func (m *Monitor) deactivateLocked() {
	if m.active {
		m.active = false
		// Tracker.Stop only takes the tracker's own lock.
		m.tracker.Stop()
	}
	m.cancelLocked()
}

func (m *Monitor) rearmLocked() {
	m.cancelLocked()

	m.lastActivityAt = m.clock.Now()
	m.generation++
	gen := m.generation
	m.pending = m.scheduler.Schedule(m.timeout, func() { m.fire(gen) })

	m.logger.Debug(context.Background(), "inactivity timer armed", log.Fields{
		"last_activity_at": m.lastActivityAt,
		"timeout":          m.timeout.String(),
	})
}

func (m *Monitor) cancelLocked() {
	if m.pending == nil {
		return
	}
	m.pending.Cancel()
	m.pending = nil
	// Invalidate a callback that may already be running.
	m.generation++
}

func (m *Monitor) fire(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.pending == nil {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.generation++
	lastActivityAt := m.lastActivityAt
	m.mu.Unlock()

	m.logger.Info(context.Background(), "inactivity timeout elapsed", log.Fields{
		"last_activity_at": lastActivityAt,
		"timeout":          m.timeout.String(),
	})
	if m.onExpire != nil {
		m.onExpire()
	}
}
