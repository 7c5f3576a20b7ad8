package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sessionapi "github.com/pilab-dev/shadow-session/api/echo"
	"github.com/pilab-dev/shadow-session/cache"
	"github.com/pilab-dev/shadow-session/internal/metrics"
	"github.com/pilab-dev/shadow-session/log"
	"github.com/pilab-dev/shadow-session/monitor"
	"github.com/pilab-dev/shadow-session/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, buf *bytes.Buffer) http.Handler {
	t.Helper()

	store := cache.NewMemoryCredentialStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	manager, err := session.NewManager(session.Config{Monitor: monitor.DefaultConfig()}, session.Deps{Store: store})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	return NewRouter(log.NewWithWriter(buf, zerolog.DebugLevel), sessionapi.NewSessionAPI(manager), reg)
}

func TestRouter_Metrics(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(t, &buf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessiond_active_sessions")
}

func TestRouter_LogsRequests(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(t, &buf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Contains(t, buf.String(), `"path":"/healthz"`)
	assert.Contains(t, buf.String(), `"status":200`)
}

func TestRouter_UnknownRoute(t *testing.T) {
	var buf bytes.Buffer
	router := newTestRouter(t, &buf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, buf.String(), "HTTP request failed")
}

func TestNewHTTPServer(t *testing.T) {
	var buf bytes.Buffer
	store := cache.NewMemoryCredentialStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	manager, err := session.NewManager(session.Config{Monitor: monitor.DefaultConfig()}, session.Deps{Store: store})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	srv := NewHTTPServer("127.0.0.1:0", log.NewWithWriter(&buf, zerolog.InfoLevel), sessionapi.NewSessionAPI(manager), nil)

	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.NotNil(t, srv.Handler)
}
