//nolint:varnamelen
package echo

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pilab-dev/shadow-session/activity"
	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/pilab-dev/shadow-session/session"
	"github.com/rs/zerolog/log"
)

// SessionAPI exposes the session manager over HTTP.
type SessionAPI struct {
	manager *session.Manager
}

// NewSessionAPI initializes the session API.
func NewSessionAPI(manager *session.Manager) *SessionAPI {
	return &SessionAPI{manager: manager}
}

// RegisterRoutes registers the session routes.
func (sa *SessionAPI) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/sessions")
	g.POST("", sa.OpenHandler)
	g.GET("/:id", sa.GetHandler)
	g.POST("/:id/activity", sa.ActivityHandler)
	g.POST("/:id/logout", sa.LogoutHandler)
	g.PUT("/:id/monitoring", sa.MonitoringHandler)

	e.GET("/healthz", sa.HealthHandler)
}

// OpenSessionRequest is the body of POST /api/sessions.
type OpenSessionRequest struct {
	UserID   string          `json:"user_id"`
	Token    string          `json:"token"`
	User     json.RawMessage `json:"user,omitempty"`
	UserType domain.UserType `json:"user_type"`
	Slug     string          `json:"slug"`
}

// ActivityRequest is the body of POST /api/sessions/:id/activity.
type ActivityRequest struct {
	Kind string `json:"kind"`
}

// MonitoringRequest is the body of PUT /api/sessions/:id/monitoring.
type MonitoringRequest struct {
	Enabled *bool `json:"enabled"`
}

// SessionResponse is the JSON view of a session.
type SessionResponse struct {
	*session.View
	RedirectTo string `json:"redirect_to,omitempty"`
}

// OpenHandler opens a monitored session from an already issued credential.
func (sa *SessionAPI) OpenHandler(c echo.Context) error {
	var req OpenSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("Malformed request body"))
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("token is required"))
	}
	if req.UserType != "" && !req.UserType.Valid() {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("Unknown user_type"))
	}

	creds := domain.Credentials{
		Token:    req.Token,
		User:     req.User,
		UserType: req.UserType,
		Slug:     req.Slug,
	}

	view, err := sa.manager.Open(c.Request().Context(), session.OpenRequest{
		UserID:      req.UserID,
		Credentials: creds,
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Msg("Failed to open session")
		return c.JSON(http.StatusInternalServerError, serrors.NewServerError("Failed to open session"))
	}

	return c.JSON(http.StatusCreated, SessionResponse{View: view})
}

// GetHandler returns the current view of a session. A terminated session
// answers with its redirect instead of an error so clients can follow it.
func (sa *SessionAPI) GetHandler(c echo.Context) error {
	id := c.Param("id")

	view, err := sa.manager.Get(c.Request().Context(), id)
	if err != nil {
		var redirect *session.RedirectError
		if errors.As(err, &redirect) {
			return c.JSON(http.StatusOK, map[string]any{
				"id":            id,
				"authenticated": false,
				"redirect_to":   redirect.RedirectTo,
			})
		}
		return sa.writeError(c, err)
	}

	return c.JSON(http.StatusOK, SessionResponse{View: view})
}

// ActivityHandler delivers one activity signal to the session.
func (sa *SessionAPI) ActivityHandler(c echo.Context) error {
	var req ActivityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("Malformed request body"))
	}

	kind, err := activity.ParseKind(req.Kind)
	if err != nil {
		return sa.writeError(c, err)
	}

	if err := sa.manager.Touch(c.Request().Context(), c.Param("id"), kind); err != nil {
		return sa.writeError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// LogoutHandler terminates the session at the user's request.
func (sa *SessionAPI) LogoutHandler(c echo.Context) error {
	id := c.Param("id")

	err := sa.manager.Logout(c.Request().Context(), id)
	to, terminated := sa.manager.Redirect(id)

	var redirect *session.RedirectError
	switch {
	case err == nil:
	case errors.As(err, &redirect), errors.Is(err, serrors.ErrAlreadyTerminated), !terminated:
		return sa.writeError(c, err)
	default:
		// The session is gone either way; the client only needs the redirect.
		log.Error().Err(err).Str("session_id", id).Msg("Logout completed with errors")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"id":            id,
		"authenticated": false,
		"redirect_to":   to,
	})
}

// MonitoringHandler enables or disables inactivity monitoring.
func (sa *SessionAPI) MonitoringHandler(c echo.Context) error {
	var req MonitoringRequest
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest("enabled is required"))
	}

	view, err := sa.manager.SetMonitoring(c.Request().Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		return sa.writeError(c, err)
	}

	return c.JSON(http.StatusOK, SessionResponse{View: view})
}

// HealthHandler reports liveness and the number of live sessions.
func (sa *SessionAPI) HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": sa.manager.Count(),
	})
}

func (sa *SessionAPI) writeError(c echo.Context, err error) error {
	var redirect *session.RedirectError

	switch {
	case errors.As(err, &redirect):
		return c.JSON(http.StatusUnauthorized, serrors.NewUnauthenticated("Session is no longer authenticated", redirect.RedirectTo))
	case errors.Is(err, serrors.ErrUnknownActivityKind):
		return c.JSON(http.StatusBadRequest, serrors.NewInvalidRequest(err.Error()))
	case errors.Is(err, serrors.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, serrors.NewNotFound("Session not found"))
	case errors.Is(err, serrors.ErrAlreadyTerminated):
		return c.JSON(http.StatusConflict, serrors.NewConflict("Session is already terminating"))
	default:
		log.Error().Err(err).Str("session_id", c.Param("id")).Msg("Session request failed")
		return c.JSON(http.StatusInternalServerError, serrors.NewServerError("Internal server error"))
	}
}
