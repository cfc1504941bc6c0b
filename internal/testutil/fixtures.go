package testutil

import (
	"time"

	"github.com/fjmerc/fileshare/internal/models"
)

// SampleUser returns a test user with default values
func SampleUser() *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:        "11111111-1111-1111-1111-111111111111",
		Email:     "test@example.com",
		Name:      "Test User",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SampleFile returns a public test file record owned by SampleUser
func SampleFile() *models.File {
	now := time.Now().UTC()
	expires := now.Add(24 * time.Hour)
	owner := SampleUser().ID

	return &models.File{
		ID:              "22222222-2222-2222-2222-222222222222",
		OriginalName:    "test.txt",
		StoredKey:       "22222222-2222-2222-2222-222222222222.txt",
		MimeType:        "text/plain",
		SizeBytes:       1024,
		OwnerID:         &owner,
		StorageBackend:  models.StorageBackendLocal,
		StorageLocation: "22222222-2222-2222-2222-222222222222.txt",
		IsPublic:        true,
		UploaderIP:      "127.0.0.1",
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       &expires,
	}
}
