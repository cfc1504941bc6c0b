package postgres

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/repository"
)

// NewRepositories connects to PostgreSQL and returns repositories backed by
// the pool, migrating the schema first when AutoMigrate is set. Cleanup on
// the result closes the pool.
func NewRepositories(ctx context.Context, cfg *config.Config) (*repository.Repositories, error) {
	if cfg.PostgreSQL == nil {
		return nil, errors.New("PostgreSQL configuration is nil")
	}

	pool, err := NewPool(ctx, cfg.PostgreSQL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL pool: %w", err)
	}

	if cfg.PostgreSQL.AutoMigrate {
		if err := RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run PostgreSQL migrations: %w", err)
		}
	}

	repos, err := NewRepositoriesWithPool(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	repos.Cleanup = pool.Close
	return repos, nil
}

// NewRepositoriesWithPool wraps an open pool. The caller keeps ownership of
// the pool and Cleanup stays nil.
func NewRepositoriesWithPool(pool *Pool) (*repository.Repositories, error) {
	if pool == nil {
		return nil, repository.ErrNilDatabase
	}

	return &repository.Repositories{
		Files:        NewFileRepository(pool),
		Users:        NewUserRepository(pool),
		DatabaseType: repository.DatabaseTypePostgreSQL,
	}, nil
}

// ConnectionString renders cfg as a postgres:// URL. Options are merged into
// the query; sslmode always reflects cfg.SSLMode, defaulting to prefer.
func ConnectionString(cfg *config.PostgreSQLConfig) (string, error) {
	if cfg == nil {
		return "", errors.New("PostgreSQL configuration is nil")
	}

	query, err := url.ParseQuery(cfg.Options)
	if err != nil {
		return "", fmt.Errorf("invalid PostgreSQL options %q: %w", cfg.Options, err)
	}
	query.Set("sslmode", cmp.Or(cfg.SSLMode, "prefer"))

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Database,
		RawQuery: query.Encode(),
	}
	return u.String(), nil
}
