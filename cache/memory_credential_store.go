package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
)

// MemoryCredentialStore implements domain.CredentialStore using ttlcache.
// Every artifact is a separate entry keyed by session and artifact name.
type MemoryCredentialStore struct {
	cache *ttlcache.Cache[string, string]
}

// NewMemoryCredentialStore creates a store whose entries live for ttl.
func NewMemoryCredentialStore(ttl time.Duration) *MemoryCredentialStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	go cache.Start()

	return &MemoryCredentialStore{cache: cache}
}

func artifactKey(sessionID, key string) string {
	return sessionID + ":" + key
}

// Save implements domain.CredentialStore. Empty artifacts are not stored.
func (s *MemoryCredentialStore) Save(_ context.Context, sessionID string, creds *domain.Credentials) error {
	for k, v := range creds.Values() {
		if v == "" {
			continue
		}
		s.cache.Set(artifactKey(sessionID, k), v, ttlcache.DefaultTTL)
	}

	return nil
}

// Load implements domain.CredentialStore.
func (s *MemoryCredentialStore) Load(_ context.Context, sessionID string) (*domain.Credentials, error) {
	values := make(map[string]string, 4)
	for _, k := range domain.CredentialKeys() {
		if item := s.cache.Get(artifactKey(sessionID, k)); item != nil {
			values[k] = item.Value()
		}
	}
	if values[domain.KeyToken] == "" {
		return nil, serrors.ErrCredentialsNotFound
	}

	return domain.CredentialsFromValues(values), nil
}

// Clear implements domain.CredentialStore.
func (s *MemoryCredentialStore) Clear(_ context.Context, sessionID string, keys ...string) error {
	for _, k := range keys {
		s.cache.Delete(artifactKey(sessionID, k))
	}

	return nil
}

// Len returns the number of stored artifacts across all sessions.
func (s *MemoryCredentialStore) Len() int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryCredentialStore) Close() error {
	s.cache.Stop()

	return nil
}

var _ domain.CredentialStore = (*MemoryCredentialStore)(nil)
