package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	sessionapi "github.com/pilab-dev/shadow-session/api/echo"
	"github.com/pilab-dev/shadow-session/cache"
	rediscache "github.com/pilab-dev/shadow-session/cache/redis"
	"github.com/pilab-dev/shadow-session/config"
	"github.com/pilab-dev/shadow-session/domain"
	"github.com/pilab-dev/shadow-session/internal/metrics"
	"github.com/pilab-dev/shadow-session/internal/server"
	"github.com/pilab-dev/shadow-session/internal/storage"
	"github.com/pilab-dev/shadow-session/log"
	"github.com/pilab-dev/shadow-session/mongodb"
	"github.com/pilab-dev/shadow-session/notify"
	"github.com/pilab-dev/shadow-session/session"
	"github.com/pilab-dev/shadow-session/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the session host service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, cfg, appLogger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, appLogger log.Logger) error {
	appLogger.Info(ctx, "Starting sessiond...", log.Fields{
		"http_addr":        cfg.HTTPAddr,
		"timeout_minutes":  cfg.SessionTimeoutMinutes,
		"monitor_enabled":  cfg.MonitorEnabled,
		"credential_store": string(cfg.CredentialStore),
		"backend_url":      cfg.BackendURL,
		"recorder":         cfg.MongoURI != "",
	})

	var closers []func(context.Context)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i](shutdownCtx)
		}
		appLogger.Info(shutdownCtx, "sessiond stopped.")
	}()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracerProvider(cfg.OtelServiceName)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer provider: %w", err)
		}
		closers = append(closers, func(ctx context.Context) {
			if err := tp.Shutdown(ctx); err != nil {
				appLogger.Error(ctx, "TracerProvider shutdown error", err)
			}
		})
	}

	metrics.Register(prometheus.DefaultRegisterer)

	store, closeStore, err := newCredentialStore(ctx, cfg)
	if err != nil {
		return err
	}
	closers = append(closers, func(ctx context.Context) {
		if err := closeStore.Close(); err != nil {
			appLogger.Error(ctx, "Credential store close error", err)
		}
	})

	var recorder domain.SessionRecorder = domain.NopRecorder{}
	if cfg.MongoURI != "" {
		client, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return err
		}
		closers = append(closers, client.Close)

		repo, err := mongodb.NewSessionRepository(ctx, client.Database())
		if err != nil {
			return err
		}
		recorder = repo
	}

	manager, err := session.NewManager(session.Config{
		Monitor:     cfg.Monitor(),
		LoginPath:   cfg.LoginPath,
		RedirectTTL: cfg.RedirectTTL,
	}, session.Deps{
		Store:    store,
		Notifier: notify.NewHTTPNotifier(cfg.BackendURL, nil, cfg.NotifyTimeout),
		Recorder: recorder,
		Clock:    clockwork.NewRealClock(),
		Logger:   appLogger,
	})
	if err != nil {
		return err
	}
	closers = append(closers, func(context.Context) { manager.Close() })

	srv := server.NewHTTPServer(cfg.HTTPAddr, appLogger, sessionapi.NewSessionAPI(manager), prometheus.DefaultGatherer)

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "HTTP server listening", log.Fields{"addr": cfg.HTTPAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Shutting down HTTP server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}

	return nil
}

func newCredentialStore(ctx context.Context, cfg *config.Config) (domain.CredentialStore, io.Closer, error) {
	switch cfg.CredentialStore {
	case config.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		return rediscache.NewCredentialStore(client, cfg.RedisPrefix, cfg.CredentialTTL), client, nil

	case config.StoreTypeBBolt:
		store, err := storage.NewBBoltCredentialStore(cfg.BBoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	default:
		store := cache.NewMemoryCredentialStore(cfg.CredentialTTL)
		return store, store, nil
	}
}
