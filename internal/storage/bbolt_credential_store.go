package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pilab-dev/shadow-session/domain"
	serrors "github.com/pilab-dev/shadow-session/errors"
	"github.com/rs/zerolog/log"
	"go.etcd.io/bbolt"
)

const credentialsBucket = "credentials"

// BBoltCredentialStore persists credentials in a bbolt file, one nested
// bucket per session. It survives process restarts.
type BBoltCredentialStore struct {
	db *bbolt.DB
}

// NewBBoltCredentialStore opens (or creates) the database at dbPath.
func NewBBoltCredentialStore(dbPath string) (*BBoltCredentialStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
	}

	log.Info().Str("path", dbPath).Msg("Opening credential database")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt db at %s: %w", dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(credentialsBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", credentialsBucket, err)
	}

	return &BBoltCredentialStore{db: db}, nil
}

// Save implements domain.CredentialStore.
func (s *BBoltCredentialStore) Save(_ context.Context, sessionID string, creds *domain.Credentials) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket([]byte(credentialsBucket)).CreateBucketIfNotExists([]byte(sessionID))
		if err != nil {
			return fmt.Errorf("failed to create session bucket: %w", err)
		}
		for k, v := range creds.Values() {
			if v == "" {
				continue
			}
			if err := b.Put([]byte(k), []byte(v)); err != nil {
				return fmt.Errorf("failed to put %s: %w", k, err)
			}
		}
		return nil
	})
}

// Load implements domain.CredentialStore.
func (s *BBoltCredentialStore) Load(_ context.Context, sessionID string) (*domain.Credentials, error) {
	values := make(map[string]string, 4)
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(credentialsBucket)).Bucket([]byte(sessionID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			// Values are only valid inside the transaction.
			values[string(k)] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if values[domain.KeyToken] == "" {
		return nil, serrors.ErrCredentialsNotFound
	}

	return domain.CredentialsFromValues(values), nil
}

// Clear implements domain.CredentialStore. The session bucket is dropped
// once it is empty.
func (s *BBoltCredentialStore) Clear(_ context.Context, sessionID string, keys ...string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(credentialsBucket))
		b := root.Bucket([]byte(sessionID))
		if b == nil {
			return nil
		}
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return fmt.Errorf("failed to delete %s: %w", k, err)
			}
		}
		if k, _ := b.Cursor().First(); k == nil {
			return root.DeleteBucket([]byte(sessionID))
		}
		return nil
	})
}

// Sessions returns the IDs of sessions that still have stored artifacts.
func (s *BBoltCredentialStore) Sessions() ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(credentialsBucket)).ForEachBucket(func(k []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Close closes the database.
func (s *BBoltCredentialStore) Close() error {
	return s.db.Close()
}

var _ domain.CredentialStore = (*BBoltCredentialStore)(nil)
