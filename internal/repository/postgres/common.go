// Package postgres stores file and user records in PostgreSQL through pgx.
package postgres

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fjmerc/fileshare/internal/config"
)

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

const (
	defaultMaxConns = 25
	applicationName = "fileshare"
)

// retryDelays are the pauses between attempts of a statement that hit a
// serialization failure or a deadlock. One retry per entry.
var retryDelays = []time.Duration{25 * time.Millisecond, 75 * time.Millisecond, 200 * time.Millisecond}

// Pool is the pgx connection pool shared by the repositories.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to the database described by cfg and pings it. maxConns
// overrides cfg.MaxConnections when positive.
func NewPool(ctx context.Context, cfg *config.PostgreSQLConfig, maxConns int) (*Pool, error) {
	connString, err := ConnectionString(cfg)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolCfg.MaxConns = int32(cmp.Or(max(maxConns, 0), max(cfg.MaxConnections, 0), defaultMaxConns))
	poolCfg.MinConns = min(2, poolCfg.MaxConns)
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute
	if _, ok := poolCfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		poolCfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Pool{Pool: pool}, nil
}

// sqlState returns the SQLSTATE of a server error in err's chain, or "".
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return sqlState(err) == codeForeignKeyViolation
}

// isTransient reports errors that a fresh attempt of the same statement may avoid.
func isTransient(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected:
		return true
	}
	return false
}

// withRetry runs fn until it succeeds, fails with a non-transient error, or
// retryDelays is exhausted.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		result, err := fn()
		if err == nil || !isTransient(err) {
			return result, err
		}
		if attempt == len(retryDelays) {
			return result, fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
		}

		timer := time.NewTimer(retryDelays[attempt])
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
