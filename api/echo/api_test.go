package echo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	sessionapi "github.com/pilab-dev/shadow-session/api/echo"
	"github.com/pilab-dev/shadow-session/cache"
	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/pilab-dev/shadow-session/monitor"
	"github.com/pilab-dev/shadow-session/notify"
	"github.com/pilab-dev/shadow-session/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	e       *echo.Echo
	clock   clockwork.FakeClock
	store   *cache.MemoryCredentialStore
	manager *session.Manager
}

// clearFailingStore saves normally but cannot clear.
type clearFailingStore struct {
	*cache.MemoryCredentialStore
}

func (clearFailingStore) Clear(context.Context, string, ...string) error {
	return errors.New("connection reset")
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	return newAPIFixtureWithStore(t, nil)
}

func newAPIFixtureWithStore(t *testing.T, wrap func(*cache.MemoryCredentialStore) domain.CredentialStore) *apiFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	store := cache.NewMemoryCredentialStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	var sessionStore domain.CredentialStore = store
	if wrap != nil {
		sessionStore = wrap(store)
	}

	manager, err := session.NewManager(session.Config{
		Monitor: monitor.Config{TimeoutMinutes: 1, Enabled: true},
	}, session.Deps{
		Store:    sessionStore,
		Notifier: notify.NopNotifier{},
		Clock:    clock,
	})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	e := echo.New()
	sessionapi.NewSessionAPI(manager).RegisterRoutes(e)

	return &apiFixture{e: e, clock: clock, store: store, manager: manager}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	return rec
}

func (f *apiFixture) open(t *testing.T) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/sessions",
		`{"user_id":"u-1","token":"tok","user":{"name":"Ada"},"user_type":"freelancer","slug":"ada"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	id, ok := body["id"].(string)
	require.True(t, ok)

	return id
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) serrors.APIError {
	t.Helper()

	var apiErr serrors.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))

	return apiErr
}

func TestOpenHandler(t *testing.T) {
	f := newAPIFixture(t)

	id := f.open(t)

	creds, err := f.store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.Token)
	assert.Equal(t, "ada", creds.Slug)
	assert.JSONEq(t, `{"name":"Ada"}`, string(creds.User))
	assert.Equal(t, 1, f.manager.Count())
}

func TestOpenHandler_Validation(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sessions", `{"user_id":"u-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, serrors.InvalidRequest, decodeAPIError(t, rec).Code)

	rec = f.do(t, http.MethodPost, "/api/sessions", `{"token":"t","user_type":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHandler(t *testing.T) {
	f := newAPIFixture(t)
	id := f.open(t)

	rec := f.do(t, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, true, body["monitoring"])
	assert.Contains(t, body, "expires_at")
	assert.NotContains(t, body, "redirect_to")

	rec = f.do(t, http.MethodGet, "/api/sessions/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, serrors.NotFound, decodeAPIError(t, rec).Code)
}

func TestActivityHandler(t *testing.T) {
	f := newAPIFixture(t)
	id := f.open(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/activity", `{"kind":"mousemove"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/activity", `{"kind":"focus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, serrors.InvalidRequest, decodeAPIError(t, rec).Code)

	rec = f.do(t, http.MethodPost, "/api/sessions/missing/activity", `{"kind":"click"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogoutHandler(t *testing.T) {
	f := newAPIFixture(t)
	id := f.open(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "/Login", body["redirect_to"])

	_, err := f.store.Load(context.Background(), id)
	assert.ErrorIs(t, err, serrors.ErrCredentialsNotFound)

	rec = f.do(t, http.MethodGet, "/api/sessions/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_to":"/Login"`)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/activity", `{"kind":"click"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, serrors.Unauthenticated, apiErr.Code)
	assert.Equal(t, "/Login", apiErr.RedirectTo)
}

func TestLogoutHandler_ClearFailureStillRedirects(t *testing.T) {
	f := newAPIFixtureWithStore(t, func(s *cache.MemoryCredentialStore) domain.CredentialStore {
		return clearFailingStore{s}
	})
	id := f.open(t)

	rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/logout", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "/Login", body["redirect_to"])
	assert.Zero(t, f.manager.Count())

	rec = f.do(t, http.MethodPost, "/api/sessions/"+id+"/logout", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/Login", decodeAPIError(t, rec).RedirectTo)
}

func TestExpiredSessionRedirects(t *testing.T) {
	f := newAPIFixture(t)
	id := f.open(t)

	f.clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodPost, "/api/sessions/"+id+"/activity", `{"kind":"keydown"}`)
		return rec.Code == http.StatusUnauthorized
	}, time.Second, 5*time.Millisecond)
}

func TestMonitoringHandler(t *testing.T) {
	f := newAPIFixture(t)
	id := f.open(t)

	rec := f.do(t, http.MethodPut, "/api/sessions/"+id+"/monitoring", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["monitoring"])
	assert.NotContains(t, body, "expires_at")

	rec = f.do(t, http.MethodPut, "/api/sessions/"+id+"/monitoring", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.open(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":1}`, rec.Body.String())
}
