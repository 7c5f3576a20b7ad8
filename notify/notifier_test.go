package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPNotifier_PostsLogoutWithBearer(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/logout", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL+"/api/", nil, time.Second)
	require.NoError(t, n.NotifyLogout(context.Background(), "tok-123"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPNotifier_NonSuccessStatusIsError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewHTTPNotifier(srv.URL, nil, time.Second)
	err := n.NotifyLogout(context.Background(), "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	// Exactly one attempt, no retries.
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPNotifier_UnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	n := NewHTTPNotifier(url, nil, time.Second)
	assert.Error(t, n.NotifyLogout(context.Background(), "tok"))
}
