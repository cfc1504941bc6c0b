package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/fjmerc/fileshare/internal/auth"
	"github.com/fjmerc/fileshare/internal/handlers"
	"github.com/fjmerc/fileshare/internal/metrics"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/utils"
)

// shutdownTimeout bounds how long outstanding requests get to finish.
const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the cleanup worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return err
	}

	slog.Info("starting fileshare",
		"port", cfg.Port,
		"db_type", cfg.DBType,
		"storage_backend", cfg.StorageBackend,
		"max_file_size", cfg.MaxFileSize,
		"default_expiration_hours", cfg.DefaultExpirationHours,
		"require_auth_for_upload", cfg.RequireAuthForUpload,
	)

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		return err
	}
	defer repos.Close()
	slog.Info("database initialized", "type", repos.DatabaseType)

	backend, readBackends, err := openBackends(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		return err
	}
	slog.Info("storage ready", "backend", backend.Kind(), "read_backends", len(readBackends))

	secret, err := jwtSecret(cfg, logger)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenManager(secret, cfg.JWTIssuer, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	if err != nil {
		return err
	}

	manager := newManager(cfg, repos.Files, backend, readBackends, logger)
	authService := auth.NewService(repos.Users, tokens, cfg.BcryptCost, logger)

	if err := prometheus.Register(metrics.NewStoreMetricsCollector(repos.Files)); err != nil {
		slog.Warn("failed to register store metrics collector", "error", err)
	}

	limiter := middleware.NewRateLimiter(time.Hour)
	defer limiter.Stop()

	router, err := handlers.NewRouter(handlers.RouterDeps{
		Config:    cfg,
		Manager:   manager,
		Auth:      authService,
		Files:     repos.Files,
		Backend:   backend,
		Limiter:   limiter,
		StartTime: time.Now(),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.CleanupIntervalMinutes > 0 {
		go utils.StartCleanupWorker(workerCtx, manager, time.Duration(cfg.CleanupIntervalMinutes)*time.Minute)
	} else {
		slog.Info("cleanup worker disabled")
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			return fmt.Errorf("http server: %w", err)
		}
		return nil

	case <-ctx.Done():
		slog.Info("shutdown signal received")
		cancelWorker()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				slog.Error("server close failed", "error", err)
			}
			return err
		}

		slog.Info("server shutdown complete")
		return nil
	}
}
