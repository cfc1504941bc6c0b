// Package testutil provides shared fixtures, mocks and assertions for tests.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/database"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/repository/sqlite"
)

// TestJWTSecret is a signing secret long enough for auth.NewTokenManager.
const TestJWTSecret = "test-secret-test-secret-test-secret!"

// SetupTestDB creates a migrated in-memory SQLite database for testing
// The database is automatically closed when the test completes
func SetupTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// SetupTestRepos returns SQLite repositories over a fresh in-memory database.
func SetupTestRepos(t testing.TB) *repository.Repositories {
	t.Helper()

	repos, err := sqlite.NewRepositories(SetupTestDB(t))
	if err != nil {
		t.Fatalf("failed to create repositories: %v", err)
	}
	return repos
}

// SetupTestConfig returns a configuration suitable for tests: local storage
// under a temporary directory, in-memory SQLite, a fast bcrypt cost and a
// fixed JWT secret. It does not read the environment.
func SetupTestConfig(t testing.TB) *config.Config {
	t.Helper()

	return &config.Config{
		Port:                   "8080",
		DBType:                 config.DBTypeSQLite,
		DBPath:                 database.MemoryPath,
		PostgreSQL:             &config.PostgreSQLConfig{},
		StorageBackend:         config.StorageLocal,
		UploadDir:              t.TempDir(),
		S3:                     &config.S3Config{},
		MaxFileSize:            10 * 1024 * 1024, // 10MB
		DefaultExpirationHours: 24,
		MaxExpirationHours:     168, // 7 days
		CleanupIntervalMinutes: 60,
		BlockedExtensions:      []string{".exe", ".bat", ".cmd", ".sh", ".ps1"},
		BlockedMimeTypes:       []string{"application/x-msdownload"},
		BcryptCost:             4,
		JWTSecret:              TestJWTSecret,
		JWTExpiryHours:         1,
		JWTIssuer:              "fileshare-test",
		RateLimitUpload:        10,
		RateLimitDownload:      50,
		TrustProxyHeaders:      "auto",
		TrustedProxyIPs:        "127.0.0.1",
		ReadTimeoutSeconds:     120,
		WriteTimeoutSeconds:    120,
		LogLevel:               "info",
		LogFormat:              "text",
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// CreateMultipartForm creates a multipart form with a file upload
// Returns the body buffer and content type for the request
func CreateMultipartForm(t testing.TB, fileContent []byte, filename string, formValues map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if fileContent != nil {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}

		if _, err := io.Copy(part, bytes.NewReader(fileContent)); err != nil {
			t.Fatalf("failed to write file content: %v", err)
		}
	}

	for key, val := range formValues {
		if err := writer.WriteField(key, val); err != nil {
			t.Fatalf("failed to write form field %s: %v", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

// FutureTime returns now plus d, truncated to the second.
func FutureTime(d time.Duration) time.Time {
	return time.Now().Add(d).UTC().Truncate(time.Second)
}

// AssertStatusCode checks that the HTTP response status code matches expected
func AssertStatusCode(t testing.TB, rr *httptest.ResponseRecorder, wantStatus int) {
	t.Helper()

	if rr.Code != wantStatus {
		t.Errorf("status code = %d, want %d\nBody: %s", rr.Code, wantStatus, rr.Body.String())
	}
}

// AssertNoError fails the test if err is not nil
func AssertNoError(t testing.TB, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertContains fails the test if haystack doesn't contain needle
func AssertContains(t testing.TB, haystack, needle string) {
	t.Helper()

	if !bytes.Contains([]byte(haystack), []byte(needle)) {
		t.Errorf("expected %q to contain %q", haystack, needle)
	}
}

// AssertNotContains fails the test if haystack contains needle
func AssertNotContains(t testing.TB, haystack, needle string) {
	t.Helper()

	if bytes.Contains([]byte(haystack), []byte(needle)) {
		t.Errorf("expected %q to not contain %q", haystack, needle)
	}
}
