package errors

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrSessionExists       = errors.New("session already exists")
	ErrAlreadyTerminated   = errors.New("session already terminated")
	ErrInvalidTimeout      = errors.New("timeout minutes must be positive")
	ErrUnknownActivityKind = errors.New("unknown activity kind")
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrNotAuthenticated    = errors.New("session is not authenticated")
)
