package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/pilab-dev/shadow-session/internal/audit"
	"github.com/pilab-dev/shadow-session/internal/metrics"
	"github.com/pilab-dev/shadow-session/log"
	"github.com/pilab-dev/shadow-session/notify"
	"github.com/pilab-dev/shadow-session/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultLoginPath is where terminated sessions are sent.
const DefaultLoginPath = "/Login"

// TerminatorDeps are the collaborators a Terminator acts on.
type TerminatorDeps struct {
	Notifier  notify.LogoutNotifier
	Store     domain.CredentialStore
	Navigator domain.Navigator
	Recorder  domain.SessionRecorder
	Clock     clockwork.Clock
	Logger    log.Logger
	LoginPath string
}

// Terminator ends one session. Only the first Terminate call has any
// effect.
type Terminator struct {
	session *domain.Session
	state   *State
	deps    TerminatorDeps

	done atomic.Bool

	// onTerminated runs after every step completed.
	onTerminated func(reason domain.TerminationReason)
}

// NewTerminator creates a Terminator for sess.
func NewTerminator(sess *domain.Session, state *State, deps TerminatorDeps) *Terminator {
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
	if deps.LoginPath == "" {
		deps.LoginPath = DefaultLoginPath
	}

	return &Terminator{session: sess, state: state, deps: deps}
}

// Terminated reports whether Terminate has run.
func (t *Terminator) Terminated() bool {
	return t.done.Load()
}

// Terminate logs the session out:
//  1. notify the backend once, ignoring failure
//  2. clear every persisted credential artifact
//  3. reset the shared state to unauthenticated
//  4. navigate to the login path
//
// Steps 2 to 4 run whatever happens in step 1. A second call returns
// ErrAlreadyTerminated and does nothing.
func (t *Terminator) Terminate(ctx context.Context, reason domain.TerminationReason) error {
	if !t.done.CompareAndSwap(false, true) {
		return serrors.ErrAlreadyTerminated
	}

	ctx, span := tracing.Start(ctx, "session.Terminate")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", t.session.ID),
		attribute.String("session.termination_reason", string(reason)),
	)

	// Steps 2 to 4 must outlive a caller that gave up while the backend
	// was still being notified.
	cleanupCtx := context.WithoutCancel(ctx)

	logger := t.deps.Logger.With(log.Fields{
		"session_id": t.session.ID,
		"user_id":    t.session.UserID,
		"reason":     string(reason),
	})

	if err := t.deps.Notifier.NotifyLogout(ctx, t.session.CredentialToken); err != nil {
		logger.Warn(ctx, "Backend logout notification failed, continuing", log.Fields{"error": err.Error()})
		metrics.LogoutNotifyFailuresTotal.Inc()
		span.AddEvent("logout notification failed")
	}

	var clearErr error
	if err := t.deps.Store.Clear(cleanupCtx, t.session.ID, domain.CredentialKeys()...); err != nil {
		clearErr = fmt.Errorf("failed to clear credentials: %w", err)
		logger.Error(cleanupCtx, "Failed to clear persisted credentials", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "credential clear failed")
	}

	t.state.ResetToUnauthenticated()

	if err := t.deps.Navigator.GoTo(cleanupCtx, t.session.ID, t.deps.LoginPath); err != nil {
		logger.Error(cleanupCtx, "Failed to navigate to login", err)
	}

	now := t.deps.Clock.Now()
	if err := t.deps.Recorder.RecordTerminated(cleanupCtx, t.session.ID, reason, now); err != nil {
		logger.Warn(cleanupCtx, "Failed to record session termination", log.Fields{"error": err.Error()})
	}

	metrics.SessionsTerminatedTotal.WithLabelValues(string(reason)).Inc()
	audit.Log(now, "Terminate", t.session.ID, t.session.UserID, "reason="+string(reason), clearErr == nil, clearErr)
	logger.Info(cleanupCtx, "Session terminated", log.Fields{"redirect_to": t.deps.LoginPath})

	if t.onTerminated != nil {
		t.onTerminated(reason)
	}

	return clearErr
}
