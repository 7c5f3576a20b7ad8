package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pilab-dev/shadow-session/monitor"
	"github.com/spf13/viper"
)

// StoreType selects where credential artifacts are persisted.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeBBolt  StoreType = "bbolt"
)

// Config holds all configuration for sessiond.
type Config struct {
	HTTPAddr  string `mapstructure:"http_addr"`
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`

	SessionTimeoutMinutes int           `mapstructure:"session_timeout_minutes"`
	MonitorEnabled        bool          `mapstructure:"monitor_enabled"`
	LoginPath             string        `mapstructure:"login_path"`
	RedirectTTL           time.Duration `mapstructure:"redirect_ttl"`

	BackendURL    string        `mapstructure:"backend_url"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`

	CredentialStore StoreType     `mapstructure:"credential_store"`
	CredentialTTL   time.Duration `mapstructure:"credential_ttl"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	RedisPrefix     string        `mapstructure:"redis_prefix"`
	BBoltPath       string        `mapstructure:"bbolt_path"`

	// An empty MongoURI disables the session recorder.
	MongoURI    string `mapstructure:"mongo_uri"`
	MongoDBName string `mapstructure:"mongo_db_name"`

	OtelServiceName string `mapstructure:"otel_service_name"`
	TracingEnabled  bool   `mapstructure:"tracing_enabled"`
}

// Monitor returns the inactivity monitor settings.
func (c *Config) Monitor() monitor.Config {
	return monitor.Config{
		TimeoutMinutes: c.SessionTimeoutMinutes,
		Enabled:        c.MonitorEnabled,
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.SessionTimeoutMinutes <= 0 {
		errs = append(errs, fmt.Errorf("session_timeout_minutes must be positive, got %d", c.SessionTimeoutMinutes))
	}
	switch c.CredentialStore {
	case StoreTypeMemory, StoreTypeRedis, StoreTypeBBolt:
	default:
		errs = append(errs, fmt.Errorf("unknown credential_store %q", c.CredentialStore))
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		errs = append(errs, fmt.Errorf("login_path must be absolute, got %q", c.LoginPath))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", "0.0.0.0:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)

	v.SetDefault("session_timeout_minutes", monitor.DefaultTimeoutMinutes)
	v.SetDefault("monitor_enabled", true)
	v.SetDefault("login_path", "/Login")
	v.SetDefault("redirect_ttl", "15m")

	v.SetDefault("backend_url", "http://localhost:3000/api")
	v.SetDefault("notify_timeout", "5s")

	v.SetDefault("credential_store", string(StoreTypeMemory))
	v.SetDefault("credential_ttl", "24h")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "sessiond")
	v.SetDefault("bbolt_path", "./data/credentials.db")

	v.SetDefault("mongo_uri", "")
	v.SetDefault("mongo_db_name", "sessiond")

	v.SetDefault("otel_service_name", "sessiond")
	v.SetDefault("tracing_enabled", false)
}

// LoadConfig reads configuration from cfgFile (or the default search
// paths when empty), SESSIOND_* environment variables and defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sessiond")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/sessiond/")
		v.AddConfigPath("$HOME/.sessiond")
	}

	v.SetEnvPrefix("SESSIOND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults and env only; anything else is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.CredentialStore = StoreType(strings.ToLower(string(cfg.CredentialStore)))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
