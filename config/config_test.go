package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pilab-dev/shadow-session/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no sessiond.yaml is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30, cfg.SessionTimeoutMinutes)
	assert.True(t, cfg.MonitorEnabled)
	assert.Equal(t, "/Login", cfg.LoginPath)
	assert.Equal(t, 15*time.Minute, cfg.RedirectTTL)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
	assert.Equal(t, config.StoreTypeMemory, cfg.CredentialStore)
	assert.Equal(t, 24*time.Hour, cfg.CredentialTTL)
	assert.Empty(t, cfg.MongoURI)

	mc := cfg.Monitor()
	assert.Equal(t, 30*time.Minute, mc.Timeout())
	assert.True(t, mc.Enabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SESSIOND_SESSION_TIMEOUT_MINUTES", "1")
	t.Setenv("SESSIOND_MONITOR_ENABLED", "false")
	t.Setenv("SESSIOND_CREDENTIAL_STORE", "Redis")
	t.Setenv("SESSIOND_NOTIFY_TIMEOUT", "250ms")

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.SessionTimeoutMinutes)
	assert.False(t, cfg.MonitorEnabled)
	assert.Equal(t, config.StoreTypeRedis, cfg.CredentialStore)
	assert.Equal(t, 250*time.Millisecond, cfg.NotifyTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	content := []byte("session_timeout_minutes: 5\ncredential_store: bbolt\nbbolt_path: /tmp/creds.db\nlogin_path: /auth\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.SessionTimeoutMinutes)
	assert.Equal(t, config.StoreTypeBBolt, cfg.CredentialStore)
	assert.Equal(t, "/tmp/creds.db", cfg.BBoltPath)
	assert.Equal(t, "/auth", cfg.LoginPath)
}

func TestLoadConfig_RejectsInvalid(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SESSIOND_SESSION_TIMEOUT_MINUTES", "0")
	_, err := config.LoadConfig("")
	assert.ErrorContains(t, err, "session_timeout_minutes")

	t.Setenv("SESSIOND_SESSION_TIMEOUT_MINUTES", "10")
	t.Setenv("SESSIOND_CREDENTIAL_STORE", "etcd")
	_, err = config.LoadConfig("")
	assert.ErrorContains(t, err, "credential_store")
}
