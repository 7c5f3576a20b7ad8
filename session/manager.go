// Package session hosts inactivity-monitored sessions: it owns the shared
// auth state of each session, wires the monitor to it and performs logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pilab-dev/shadow-session/activity"
	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/pilab-dev/shadow-session/internal/audit"
	"github.com/pilab-dev/shadow-session/internal/metrics"
	"github.com/pilab-dev/shadow-session/log"
	"github.com/pilab-dev/shadow-session/monitor"
	"github.com/pilab-dev/shadow-session/notify"
)

// DefaultRedirectTTL is how long a terminated session's redirect is kept.
const DefaultRedirectTTL = 15 * time.Minute

// Config configures a Manager.
type Config struct {
	Monitor     monitor.Config
	LoginPath   string
	RedirectTTL time.Duration
}

// Deps are the Manager's collaborators. Store is required.
type Deps struct {
	Store    domain.CredentialStore
	Notifier notify.LogoutNotifier
	Recorder domain.SessionRecorder
	Clock    clockwork.Clock
	Logger   log.Logger
}

// OpenRequest carries an already issued credential.
type OpenRequest struct {
	UserID      string
	Credentials domain.Credentials
}

// View is a read-only snapshot of a live session.
type View struct {
	domain.Session
	Monitoring bool       `json:"monitoring"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

type entry struct {
	session    *domain.Session
	state      *State
	bus        *activity.Bus
	monitor    *monitor.Monitor
	terminator *Terminator
}

// Manager runs one monitor per live session.
type Manager struct {
	cfg       Config
	deps      Deps
	navigator *RedirectNavigator

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager validates cfg and creates a Manager.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if cfg.Monitor.TimeoutMinutes <= 0 {
		return nil, fmt.Errorf("%w: got %d", serrors.ErrInvalidTimeout, cfg.Monitor.TimeoutMinutes)
	}
	if deps.Store == nil {
		return nil, errors.New("credential store is required")
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.RedirectTTL <= 0 {
		cfg.RedirectTTL = DefaultRedirectTTL
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.NopNotifier{}
	}
	if deps.Recorder == nil {
		deps.Recorder = domain.NopRecorder{}
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = log.Nop()
	}

	navigator := NewRedirectNavigator(cfg.RedirectTTL)
	navigator.Start()

	return &Manager{
		cfg:       cfg,
		deps:      deps,
		navigator: navigator,
		sessions:  make(map[string]*entry),
	}, nil
}

// Open persists the credentials, marks the session authenticated and
// starts its monitor.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (*View, error) {
	if req.Credentials.Token == "" {
		return nil, errors.New("credential token is required")
	}
	if req.Credentials.UserType != "" && !req.Credentials.UserType.Valid() {
		return nil, fmt.Errorf("unknown user type %q", req.Credentials.UserType)
	}

	sess := &domain.Session{
		ID:              uuid.NewString(),
		UserID:          req.UserID,
		UserType:        req.Credentials.UserType,
		Slug:            req.Credentials.Slug,
		CredentialToken: req.Credentials.Token,
		IsAuthenticated: true,
		CreatedAt:       m.deps.Clock.Now(),
	}
	logger := m.deps.Logger.With(log.Fields{"session_id": sess.ID, "user_id": sess.UserID})

	e := &entry{
		session: sess,
		state:   NewState(true),
		bus:     activity.NewBus(),
	}
	e.terminator = NewTerminator(sess, e.state, TerminatorDeps{
		Notifier:  m.deps.Notifier,
		Store:     m.deps.Store,
		Navigator: m.navigator,
		Recorder:  m.deps.Recorder,
		Clock:     m.deps.Clock,
		Logger:    m.deps.Logger,
		LoginPath: m.cfg.LoginPath,
	})
	e.terminator.onTerminated = func(domain.TerminationReason) { m.remove(sess.ID) }

	mon, err := monitor.New(m.cfg.Monitor, e.state, e.bus, func() {
		_ = e.terminator.Terminate(context.Background(), domain.ReasonExpired)
	}, monitor.WithClock(m.deps.Clock), monitor.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	e.monitor = mon

	// Any loss of authentication stops monitoring at once and logs out.
	// When the terminator itself caused the loss the second Terminate is
	// a no-op.
	e.state.OnAuthLost(func() {
		mon.AuthLost()
		_ = e.terminator.Terminate(context.Background(), domain.ReasonAuthLost)
	})

	// Persist last so a failure above leaves nothing behind.
	if err := m.deps.Store.Save(ctx, sess.ID, &req.Credentials); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}

	m.mu.Lock()
	m.sessions[sess.ID] = e
	m.mu.Unlock()

	if err := mon.Start(); err != nil {
		m.mu.Lock()
		delete(m.sessions, sess.ID)
		m.mu.Unlock()
		if clearErr := m.deps.Store.Clear(context.WithoutCancel(ctx), sess.ID, domain.CredentialKeys()...); clearErr != nil {
			logger.Error(ctx, "Failed to clear credentials of a session that did not start", clearErr)
		}
		return nil, err
	}

	if err := m.deps.Recorder.RecordOpened(ctx, sess); err != nil {
		logger.Warn(ctx, "Failed to record opened session", log.Fields{"error": err.Error()})
	}
	metrics.SessionsOpenedTotal.Inc()
	metrics.ActiveSessionsGauge.Inc()
	audit.Log(sess.CreatedAt, "Open", sess.ID, sess.UserID, "user_type="+string(sess.UserType), true, nil)
	logger.Info(ctx, "Session opened", log.Fields{"timeout": mon.Timeout().String(), "monitoring": mon.Active()})

	return m.view(e), nil
}

// Get returns a snapshot of a live session. For a session that has been
// terminated it returns ErrNotAuthenticated wrapped with the redirect.
func (m *Manager) Get(_ context.Context, sessionID string) (*View, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return m.view(e), nil
}

// Touch delivers an activity signal of the given kind to the session.
func (m *Manager) Touch(_ context.Context, sessionID string, kind activity.Kind) error {
	e, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	e.bus.Publish(kind)
	metrics.ActivitySignalsTotal.WithLabelValues(string(kind)).Inc()

	return nil
}

// Logout terminates the session at the user's request.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	e, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return e.terminator.Terminate(ctx, domain.ReasonExplicit)
}

// RevokeAuth flips the session's shared state to unauthenticated from
// outside the monitor, e.g. when the backend rejects its token.
func (m *Manager) RevokeAuth(_ context.Context, sessionID string) error {
	e, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	e.state.ResetToUnauthenticated()

	return nil
}

// SetMonitoring enables or disables the inactivity monitor of a session.
func (m *Manager) SetMonitoring(_ context.Context, sessionID string, enabled bool) (*View, error) {
	e, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.monitor.SetEnabled(enabled)

	return m.view(e), nil
}

// Redirect returns where a terminated session was sent.
func (m *Manager) Redirect(sessionID string) (string, bool) {
	return m.navigator.Redirect(sessionID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops every monitor without logging anyone out. Like a reload,
// pending timers are simply dropped.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range entries {
		e.monitor.Stop()
		metrics.ActiveSessionsGauge.Dec()
	}
	m.navigator.Stop()
}

// RedirectError reports a request against a terminated session.
type RedirectError struct {
	SessionID  string
	RedirectTo string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("session %s is not authenticated, redirect to %s", e.SessionID, e.RedirectTo)
}

func (e *RedirectError) Unwrap() error {
	return serrors.ErrNotAuthenticated
}

func (m *Manager) lookup(sessionID string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return e, nil
	}
	if to, ok := m.navigator.Redirect(sessionID); ok {
		return nil, &RedirectError{SessionID: sessionID, RedirectTo: to}
	}
	return nil, serrors.ErrSessionNotFound
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if ok {
		metrics.ActiveSessionsGauge.Dec()
	}
}

func (m *Manager) view(e *entry) *View {
	v := &View{
		Session:    *e.session,
		Monitoring: e.monitor.Active(),
	}
	v.IsAuthenticated = e.state.IsAuthenticated()
	v.LastActivityAt = e.monitor.LastActivityAt()
	if deadline, ok := e.monitor.Deadline(); ok {
		v.ExpiresAt = &deadline
	}
	return v
}
