package repository

import (
	"context"

	"github.com/fjmerc/fileshare/internal/models"
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	// Create inserts a new user. Returns ErrDuplicateKey if the email is taken.
	Create(ctx context.Context, email, name, passwordHash string) (*models.User, error)

	// GetByID retrieves a user by ID. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail retrieves a user by email (case-insensitive). Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update replaces the name and email of a user and returns the stored
	// record. Returns ErrNotFound if absent and ErrDuplicateKey if the email
	// belongs to another user.
	Update(ctx context.Context, id, name, email string) (*models.User, error)

	// UpdatePassword replaces the password hash of a user. Returns ErrNotFound if absent.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// Delete removes a user. Files the user owned remain, with no owner.
	// Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) error
}
