package utils

import (
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the cost factor used when none is configured
	// Higher = more secure but slower (range: 4-31)
	DefaultBcryptCost = 12
)

// HashPassword hashes a plain text password using bcrypt at the given cost.
// An empty password yields an empty hash, meaning "no password".
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", nil
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword checks if a plain text password matches a bcrypt hash.
// When no hash is stored there is nothing to verify and the result is true.
func VerifyPassword(hashedPassword, password string) bool {
	if hashedPassword == "" {
		return true
	}

	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
