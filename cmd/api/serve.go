package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pkordes/itinerary-sync/backend/internal/auth"
	"github.com/pkordes/itinerary-sync/backend/internal/config"
	"github.com/pkordes/itinerary-sync/backend/internal/feed"
	"github.com/pkordes/itinerary-sync/backend/internal/handler"
	"github.com/pkordes/itinerary-sync/backend/internal/middleware"
	"github.com/pkordes/itinerary-sync/backend/internal/repo"
	"github.com/pkordes/itinerary-sync/backend/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	// --- Logger -----------------------------------------------------------
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	// --- Change feed ------------------------------------------------------
	notifier, revocations, closeNotifier, err := newNotifier(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// --- Services ---------------------------------------------------------
	itineraries := repo.NewItineraryRepo(pool)
	owners := repo.NewOwnerRepo(pool)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL,
		auth.WithRevocation(repo.NewRevocationRepo(pool), revocations))

	server := handler.NewServer(handler.Deps{
		Itineraries: service.NewItineraryService(itineraries, notifier, logger),
		Auth:        service.NewAuthService(owners, tokens),
		Tokens:      tokens,
		Profiles:    owners,
		Source:      feed.NewSource(itineraries, notifier, logger),
		Log:         logger,
	})

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout is left at zero: /itineraries/stream is long-lived and ends
	// on client disconnect, token expiry or logout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, logger, server),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give in-flight requests up to 15 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newRouter applies the global middleware in order:
// RequestID → RealIP → SlogLogger → Recoverer → CORS → MaxBodySize.
func newRouter(cfg config.Config, logger *slog.Logger, server *handler.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Mount("/", server.Routes())
	return r
}

// newNotifier picks the transport for itinerary change signals and token
// revocation signals: Redis pub/sub when REDIS_URL is set, otherwise
// in-process hubs.
func newNotifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (changes, revocations feed.Notifier, closeFn func(), err error) {
	if cfg.RedisURL == "" {
		logger.Info("change feed: in-process hub")
		return feed.NewHub(), feed.NewHub(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("change feed: redis", "addr", opts.Addr)
	return feed.NewRedisNotifier(client), feed.NewRedisNotifierOn(client, feed.RevocationChannel),
		func() { _ = client.Close() }, nil
}
