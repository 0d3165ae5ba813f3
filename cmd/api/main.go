// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Edura HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the identity store (PostgreSQL + migrations, or memory).
//  4. Open the reset-token store (Redis, or memory).
//  5. Load signing keys and the role policy.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/edura/internal/api"
	"github.com/taibuivan/edura/internal/platform/access"
	"github.com/taibuivan/edura/internal/platform/config"
	"github.com/taibuivan/edura/internal/platform/constants"
	"github.com/taibuivan/edura/internal/platform/mail"
	"github.com/taibuivan/edura/internal/platform/migration"
	pgstore "github.com/taibuivan/edura/internal/platform/postgres"
	redisstore "github.com/taibuivan/edura/internal/platform/redis"
	"github.com/taibuivan/edura/internal/platform/sec"
	"github.com/taibuivan/edura/internal/users/account"
	"github.com/taibuivan/edura/internal/users/admin"
	"github.com/taibuivan/edura/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
	)

	// Root context for startup. A deadline catches misconfiguration quickly
	// rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	var health api.HealthDependencies

	// ── 3. Identity Store ─────────────────────────────────────────────────
	var (
		userRepository    auth.UserRepository
		sessionRepository auth.SessionRepository
	)

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, pgstore.DefaultPoolOptions, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		userRepository = auth.NewPostgresUserRepository(pool)
		sessionRepository = auth.NewPostgresSessionRepository(pool)
		health.CheckDatabase = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }

	default:
		log.Warn("memory_storage_enabled", slog.String("reason", "identities are lost on restart"))
		store := auth.NewMemoryStore()
		userRepository = store.Users()
		sessionRepository = store.Sessions()
	}

	// ── 4. Reset Token Store ──────────────────────────────────────────────
	var resetRepository auth.ResetTokenRepository

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_error", slog.Any("error", cerr))
			}
		}()

		resetRepository = auth.NewRedisResetTokenRepository(rdb)
		health.CheckCache = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }
	} else {
		resetRepository = auth.NewMemoryResetTokenRepository()
	}

	// ── 5. Keys & Policy ──────────────────────────────────────────────────
	tokenService := newTokenService(log, cfg)

	policy := access.DefaultPolicy()
	if cfg.AccessPolicyPath != "" {
		policy, err = access.LoadPolicy(cfg.AccessPolicyPath)
		must(log, err, "load access policy")
	}
	must(log, policy.Validate(access.Operations()...), "validate access policy")

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	notifier := auth.NewNotifier(newMailer(log, cfg), cfg.AppBaseURL)

	authService := auth.NewService(userRepository, sessionRepository, resetRepository, tokenService, notifier,
		auth.Options{SessionTTL: cfg.SessionTTL, BootstrapAdminEmail: cfg.BootstrapAdminEmail})
	must(log, authService.PromoteBootstrapAdmin(startupCtx), "promote bootstrap admin")
	gate := access.NewGate(authService, policy)

	liveness, readiness := api.NewHealthHandlers(health, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService),
		Account:   account.NewHandler(account.NewService(userRepository, authService, authService, notifier)),
		Admin:     admin.NewHandler(admin.NewService(userRepository, authService)),
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	server := api.NewServer(rootCtx, cfg, log, gate, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger with the global app attribute.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", "edura"))
}

// newTokenService loads the RSA key pair, or generates a throwaway key in development.
func newTokenService(log *slog.Logger, cfg *config.Config) *sec.TokenService {
	if cfg.HasSigningKeys() {
		tokenService, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
		must(log, err, "initialize jwt service")
		return tokenService
	}

	log.Warn("ephemeral_signing_key", slog.String("reason", "sessions do not survive a restart"))
	tokenService, err := sec.NewEphemeralTokenService(constants.AuthIssuer)
	must(log, err, "generate ephemeral signing key")
	return tokenService
}

// newMailer picks SendGrid when a key is configured and the console otherwise.
func newMailer(log *slog.Logger, cfg *config.Config) mail.Mailer {
	if cfg.SendGridAPIKey == "" {
		log.Warn("console_mailer_enabled", slog.String("reason", "SENDGRID_API_KEY is empty"))
		return mail.NewConsoleMailer(log)
	}
	return mail.NewSendGridMailer(cfg.SendGridAPIKey, "Edura", cfg.MailFrom)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
