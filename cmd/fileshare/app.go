package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/database"
	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/repository/postgres"
	"github.com/fjmerc/fileshare/internal/repository/sqlite"
	"github.com/fjmerc/fileshare/internal/storage"
	"github.com/fjmerc/fileshare/internal/storage/filesystem"
	"github.com/fjmerc/fileshare/internal/storage/s3"
)

// setupLogger installs the default slog logger for cfg's level and format.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig reads the configuration and installs the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, setupLogger(cfg), nil
}

// openRepositories opens the record store selected by DB_TYPE.
func openRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		return postgres.NewRepositories(ctx, cfg)
	default:
		db, err := database.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		repos, err := sqlite.NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		repos.Cleanup = func() { db.Close() }
		return repos, nil
	}
}

func s3Config(cfg *config.S3Config) s3.S3Config {
	return s3.S3Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		PathStyle:       cfg.PathStyle,
		KeyPrefix:       cfg.KeyPrefix,
		StorageClass:    cfg.StorageClass,
	}
}

// openBackends returns the active storage backend selected by STORAGE_BACKEND
// and, when the other backend is also configured, that one as a read backend
// so records written before a switch stay downloadable.
func openBackends(ctx context.Context, cfg *config.Config) (storage.Backend, []storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		active, err := s3.NewS3Storage(ctx, s3Config(cfg.S3))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		var read []storage.Backend
		if _, err := os.Stat(cfg.UploadDir); err == nil {
			local, err := filesystem.NewFilesystemStorage(cfg.UploadDir)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to initialize filesystem storage: %w", err)
			}
			read = append(read, local)
		}
		return active, read, nil
	default:
		active, err := filesystem.NewFilesystemStorage(cfg.UploadDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize filesystem storage: %w", err)
		}
		var read []storage.Backend
		if cfg.S3 != nil && cfg.S3.Bucket != "" {
			remote, err := s3.NewS3Storage(ctx, s3Config(cfg.S3))
			if err != nil {
				return nil, nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
			}
			read = append(read, remote)
		}
		return active, read, nil
	}
}

// newManager builds the lifecycle manager from cfg.
func newManager(cfg *config.Config, files repository.FileRepository, backend storage.Backend, read []storage.Backend, logger *slog.Logger) *lifecycle.Manager {
	return lifecycle.NewManager(files, backend, lifecycle.Options{
		MaxFileSize:       cfg.MaxFileSize,
		DefaultExpiration: time.Duration(cfg.DefaultExpirationHours) * time.Hour,
		MaxExpiration:     time.Duration(cfg.MaxExpirationHours) * time.Hour,
		BlockedExtensions: cfg.BlockedExtensions,
		BlockedMimeTypes:  cfg.BlockedMimeTypes,
		BcryptCost:        cfg.BcryptCost,
		BaseURL:           cfg.PublicURL,
		ReadBackends:      read,
		Logger:            logger,
	})
}

// jwtSecret returns JWT_SECRET, or a random secret when it is unset. Tokens
// signed with a random secret do not survive a restart.
func jwtSecret(cfg *config.Config, logger *slog.Logger) (string, error) {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	logger.Warn("JWT_SECRET not set, using a random secret; sessions end on restart")
	return hex.EncodeToString(buf), nil
}
