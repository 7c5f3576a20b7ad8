package domain

import (
	"context"
	"time"
)

// Navigator moves a client to another destination.
type Navigator interface {
	GoTo(ctx context.Context, sessionID, path string) error
}

// SessionRecorder keeps a durable history of session lifecycles.
type SessionRecorder interface {
	RecordOpened(ctx context.Context, session *Session) error
	RecordTerminated(ctx context.Context, sessionID string, reason TerminationReason, at time.Time) error
}

// NopRecorder discards every record.
type NopRecorder struct{}

func (NopRecorder) RecordOpened(context.Context, *Session) error { return nil }

func (NopRecorder) RecordTerminated(context.Context, string, TerminationReason, time.Time) error {
	return nil
}
