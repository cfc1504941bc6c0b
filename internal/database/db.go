// Package database opens the SQLite database and applies its schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database (tests, ephemeral runs).
const MemoryPath = ":memory:"

// Pragmas applied to every connection of a file-backed database via the DSN.
var filePragmas = []string{
	"foreign_keys(1)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)", // 5 second busy timeout
	"cache_size(-64000)", // 64MB cache
}

// DSN builds the modernc.org/sqlite connection string for dbPath.
// Transactions begin IMMEDIATE so concurrent writers queue on the busy timeout
// instead of failing on lock upgrade.
func DSN(dbPath string) string {
	params := make([]string, 0, len(filePragmas)+1)
	for _, p := range filePragmas {
		params = append(params, "_pragma="+p)
	}
	params = append(params, "_txlock=immediate")
	return "file:" + dbPath + "?" + strings.Join(params, "&")
}

// Open opens the SQLite database at dbPath and runs pending migrations.
// An in-memory database is limited to a single connection, otherwise every
// pooled connection would see its own empty database.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	memory := dbPath == MemoryPath
	dsn := DSN(dbPath)
	if memory {
		dsn = MemoryPath
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
