// Package repository defines interfaces for data access operations.
// This package provides abstractions for database operations, allowing
// different backend implementations (SQLite, PostgreSQL) to be swapped
// without changing application code.
package repository

import (
	"errors"
)

// Common errors returned by repository operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrExpired is returned when a conditional mutation finds the record past its expiry.
	ErrExpired = errors.New("entity expired")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNilDatabase is returned when a nil database connection is provided.
	ErrNilDatabase = errors.New("nil database connection")
)

// Database types
const (
	DatabaseTypeSQLite     = "sqlite"
	DatabaseTypePostgreSQL = "postgres"
)

// Pagination limits for owner listings
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PaginationOptions provides common pagination parameters.
type PaginationOptions struct {
	Limit  int
	Offset int
}

// DefaultPagination returns default pagination options (limit 20, offset 0).
func DefaultPagination() PaginationOptions {
	return PaginationOptions{
		Limit:  DefaultPageLimit,
		Offset: 0,
	}
}

// PageToOptions converts a 1-based page and a limit into offset pagination.
// A non-positive limit becomes the default; limits above MaxPageLimit are clamped.
// Pages below 1 are treated as page 1.
func PageToOptions(page, limit int) PaginationOptions {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	return PaginationOptions{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// StoreStats contains totals reported by the health endpoint.
type StoreStats struct {
	TotalFiles  int
	StorageUsed int64
}
