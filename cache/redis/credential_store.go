package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/redis/go-redis/v9"
)

// CredentialStore implements domain.CredentialStore with one Redis hash
// per session.
type CredentialStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCredentialStore creates a CredentialStore. A ttl of zero keeps the
// hash until it is cleared.
func NewCredentialStore(client redis.UniversalClient, prefix string, ttl time.Duration) *CredentialStore {
	return &CredentialStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// redisKey returns the hash key for a session.
func (s *CredentialStore) redisKey(sessionID string) string {
	return fmt.Sprintf("%s:credentials:%s", s.prefix, sessionID)
}

// Save implements domain.CredentialStore.
func (s *CredentialStore) Save(ctx context.Context, sessionID string, creds *domain.Credentials) error {
	key := s.redisKey(sessionID)

	fields := make(map[string]interface{}, 4)
	for k, v := range creds.Values() {
		if v != "" {
			fields[k] = v
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store credentials in Redis: %w", err)
	}

	return nil
}

// Load implements domain.CredentialStore.
func (s *CredentialStore) Load(ctx context.Context, sessionID string) (*domain.Credentials, error) {
	res, err := s.client.HGetAll(ctx, s.redisKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials from Redis: %w", err)
	}
	if res[domain.KeyToken] == "" {
		return nil, serrors.ErrCredentialsNotFound
	}

	return domain.CredentialsFromValues(res), nil
}

// Clear implements domain.CredentialStore. Redis drops the hash once its
// last field is gone.
func (s *CredentialStore) Clear(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.redisKey(sessionID), keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear credentials in Redis: %w", err)
	}

	return nil
}

var _ domain.CredentialStore = (*CredentialStore)(nil)
