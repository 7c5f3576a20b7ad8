package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/shadow-session/domain"
)

// RedirectNavigator remembers where each terminated session must go next.
// The host API hands the destination to the client on its next request.
type RedirectNavigator struct {
	cache   *ttlcache.Cache[string, string]
	running atomic.Bool
}

// NewRedirectNavigator keeps destinations for ttl.
func NewRedirectNavigator(ttl time.Duration) *RedirectNavigator {
	return &RedirectNavigator{
		cache: ttlcache.New(
			ttlcache.WithTTL[string, string](ttl),
			ttlcache.WithDisableTouchOnHit[string, string](),
		),
	}
}

// GoTo implements domain.Navigator.
func (n *RedirectNavigator) GoTo(_ context.Context, sessionID, path string) error {
	n.cache.Set(sessionID, path, ttlcache.DefaultTTL)
	return nil
}

// Redirect returns the pending destination for a session.
func (n *RedirectNavigator) Redirect(sessionID string) (string, bool) {
	item := n.cache.Get(sessionID)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

// Start runs the expiry loop until Stop is called.
func (n *RedirectNavigator) Start() {
	if n.running.CompareAndSwap(false, true) {
		go n.cache.Start()
	}
}

// Stop ends the expiry loop. It is a no-op if Start was never called.
func (n *RedirectNavigator) Stop() {
	if n.running.CompareAndSwap(true, false) {
		n.cache.Stop()
	}
}

var _ domain.Navigator = (*RedirectNavigator)(nil)
