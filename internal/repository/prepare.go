package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/utils"
)

// FileDefaults controls how PrepareNewFile fills in derived fields.
type FileDefaults struct {
	BcryptCost        int
	DefaultExpiration time.Duration // zero means records never expire unless asked
}

// PrepareNewFile assigns a fresh ID and creation time, hashes a non-empty
// password, and applies the default expiry when none was requested.
// password is the plain-text password; file.PasswordHash is overwritten.
func PrepareNewFile(file *NewFile, password string, defaults FileDefaults, now time.Time) error {
	if file == nil {
		return fmt.Errorf("%w: nil file", ErrInvalidInput)
	}

	file.ID = uuid.NewString()
	file.CreatedAt = now.UTC()

	if file.MimeType == "" {
		file.MimeType = utils.DefaultMimeType
	}

	hash, err := utils.HashPassword(password, defaults.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	file.PasswordHash = hash

	if file.ExpiresAt == nil && defaults.DefaultExpiration > 0 {
		expires := file.CreatedAt.Add(defaults.DefaultExpiration)
		file.ExpiresAt = &expires
	}

	return nil
}

// NewStoredKey returns a unique storage key for a display name: a UUID plus
// the (sanitized) extension of the name.
func NewStoredKey(originalName string) string {
	return uuid.NewString() + utils.StorageExtension(originalName)
}

// VerifyPassword reports whether candidate unlocks the file.
// Files without a password hash accept any candidate.
func VerifyPassword(file *models.File, candidate string) bool {
	if file == nil {
		return false
	}
	return utils.VerifyPassword(file.PasswordHash, candidate)
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
