package domain

import (
	"context"
	"encoding/json"
)

// Credential keys persisted for every session. Logout clears all of them.
const (
	KeyToken    = "token"
	KeyUser     = "user"
	KeyUserType = "userType"
	KeySlug     = "slug"
)

// CredentialKeys returns the full set of persisted artifact keys.
func CredentialKeys() []string {
	return []string{KeyToken, KeyUser, KeyUserType, KeySlug}
}

// Credentials are the artifacts a client keeps between requests.
type Credentials struct {
	Token    string          `json:"token"`
	User     json.RawMessage `json:"user,omitempty"`
	UserType UserType        `json:"user_type"`
	Slug     string          `json:"slug,omitempty"`
}

// Values flattens the credentials into the key/value form used by stores.
func (c *Credentials) Values() map[string]string {
	return map[string]string{
		KeyToken:    c.Token,
		KeyUser:     string(c.User),
		KeyUserType: string(c.UserType),
		KeySlug:     c.Slug,
	}
}

// CredentialsFromValues is the inverse of Values. Missing keys stay empty.
func CredentialsFromValues(values map[string]string) *Credentials {
	creds := &Credentials{
		Token:    values[KeyToken],
		UserType: UserType(values[KeyUserType]),
		Slug:     values[KeySlug],
	}
	if u := values[KeyUser]; u != "" {
		creds.User = json.RawMessage(u)
	}
	return creds
}

// CredentialStore persists per-session credential artifacts.
type CredentialStore interface {
	Save(ctx context.Context, sessionID string, creds *Credentials) error
	Load(ctx context.Context, sessionID string) (*Credentials, error)
	// Clear removes the given keys for the session. Clearing a key that is
	// not present is not an error.
	Clear(ctx context.Context, sessionID string, keys ...string) error
}
