// Package notify tells the marketplace backend that a session ended.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// LogoutNotifier informs the backend of a logout. Implementations make a
// single attempt and never retry.
type LogoutNotifier interface {
	NotifyLogout(ctx context.Context, token string) error
}

// HTTPNotifier posts to {baseURL}/logout with the session's bearer token.
type HTTPNotifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPNotifier creates an HTTPNotifier. A nil client gets one with the
// given timeout.
func NewHTTPNotifier(baseURL string, client *http.Client, timeout time.Duration) *HTTPNotifier {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &HTTPNotifier{
		endpoint: strings.TrimRight(baseURL, "/") + "/logout",
		client:   client,
	}
}

// NotifyLogout implements LogoutNotifier. The response body is discarded.
func (n *HTTPNotifier) NotifyLogout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build logout request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout request returned status %d", resp.StatusCode)
	}

	return nil
}

// NopNotifier never contacts a backend.
type NopNotifier struct{}

func (NopNotifier) NotifyLogout(context.Context, string) error { return nil }

var (
	_ LogoutNotifier = (*HTTPNotifier)(nil)
	_ LogoutNotifier = NopNotifier{}
)
