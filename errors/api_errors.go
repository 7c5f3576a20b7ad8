package errors

import "fmt"

// APIError is the JSON error body returned by the host API.
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RedirectTo  string `json:"redirect_to,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// API error codes
const (
	InvalidRequest  = "invalid_request"
	NotFound        = "not_found"
	Unauthenticated = "unauthenticated"
	Conflict        = "conflict"
	ServerError     = "server_error"
)

func NewInvalidRequest(description string) *APIError {
	return &APIError{
		Code:        InvalidRequest,
		Description: description,
	}
}

func NewNotFound(description string) *APIError {
	return &APIError{
		Code:        NotFound,
		Description: description,
	}
}

func NewConflict(description string) *APIError {
	return &APIError{
		Code:        Conflict,
		Description: description,
	}
}

// NewUnauthenticated tells the client its session is gone and where to go next.
func NewUnauthenticated(description, redirectTo string) *APIError {
	return &APIError{
		Code:        Unauthenticated,
		Description: description,
		RedirectTo:  redirectTo,
	}
}

func NewServerError(description string) *APIError {
	return &APIError{
		Code:        ServerError,
		Description: description,
	}
}
