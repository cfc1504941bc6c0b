package integration

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/testutil"
)

// TestUploadDownloadWorkflow uploads a password-protected file, checks the
// summary an anonymous caller sees, downloads it with the password and
// verifies the counter in the database.
func TestUploadDownloadWorkflow(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	content := []byte("This is a test file for integration testing.")

	rr := s.upload(t, content, "integration_test.txt", map[string]string{
		"password":         "open-sesame",
		"expires_in_hours": "24",
	}, "")
	testutil.AssertStatusCode(t, rr, http.StatusCreated)

	var uploaded models.UploadResponse
	decode(t, rr, &uploaded)
	id := uploaded.File.ID

	if uploaded.ShareableLink != "https://share.example.com/download/"+id {
		t.Errorf("shareable_link = %q", uploaded.ShareableLink)
	}

	onDisk, err := os.ReadFile(filepath.Join(s.cfg.UploadDir, mustRecord(t, s, id).StorageLocation))
	testutil.AssertNoError(t, err)
	if !bytes.Equal(onDisk, content) {
		t.Error("stored bytes differ from upload")
	}

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/info", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertNotContains(t, rr.Body.String(), "mime_type")

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download?password=open-sesame", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if !bytes.Equal(rr.Body.Bytes(), content) {
		t.Errorf("downloaded %q, want %q", rr.Body.Bytes(), content)
	}

	record, err := s.repos.Files.GetByID(ctx, id)
	testutil.AssertNoError(t, err)
	if record.DownloadCount != 1 || record.LastAccessedAt == nil {
		t.Errorf("download_count = %d, last_accessed_at = %v", record.DownloadCount, record.LastAccessedAt)
	}
}

// TestOwnerWorkflow registers a user, uploads a private file and walks it
// through listing, update and deletion.
func TestOwnerWorkflow(t *testing.T) {
	s := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"email":"owner@example.com","password":"Secret1","name":"Owner"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := s.do(req, "")
	testutil.AssertStatusCode(t, rr, http.StatusCreated)

	var session models.AuthResponse
	decode(t, rr, &session)
	token := session.Token

	rr = s.upload(t, []byte("private notes"), "notes.txt", map[string]string{"is_public": "false"}, token)
	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	var uploaded models.UploadResponse
	decode(t, rr, &uploaded)
	id := uploaded.File.ID
	location := mustRecord(t, s, id).StorageLocation

	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil), ""), http.StatusForbidden)
	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil), token), http.StatusOK)

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/my-files", nil), token)
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	var list models.FileListResponse
	decode(t, rr, &list)
	if len(list.Files) != 1 || list.Files[0].ID != id || list.Files[0].DownloadCount != 1 {
		t.Errorf("my-files = %+v", list.Files)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/files/"+id, strings.NewReader(`{"original_name":"renamed.txt","is_public":true}`))
	req.Header.Set("Content-Type", "application/json")
	rr = s.do(req, token)
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/download", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertContains(t, rr.Header().Get("Content-Disposition"), "renamed.txt")

	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil), token), http.StatusOK)

	if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, location)); !os.IsNotExist(err) {
		t.Errorf("stored file should be removed, stat error = %v", err)
	}
	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/info", nil), ""), http.StatusNotFound)
}

// TestExpirySweepWorkflow checks that expired files are refused and then
// removed from disk and database by the sweep.
func TestExpirySweepWorkflow(t *testing.T) {
	s := newStack(t)
	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)

	rr := s.upload(t, []byte("old"), "old.txt", map[string]string{"expires_at": past}, "")
	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	var expired models.UploadResponse
	decode(t, rr, &expired)
	location := mustRecord(t, s, expired.File.ID).StorageLocation

	rr = s.upload(t, []byte("new"), "new.txt", nil, "")
	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	var live models.UploadResponse
	decode(t, rr, &live)

	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+expired.File.ID+"/download", nil), ""), http.StatusGone)

	deleted, err := s.manager.SweepExpired(context.Background())
	testutil.AssertNoError(t, err)
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	if _, err := os.Stat(filepath.Join(s.cfg.UploadDir, location)); !os.IsNotExist(err) {
		t.Errorf("expired bytes should be removed, stat error = %v", err)
	}
	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+expired.File.ID+"/info", nil), ""), http.StatusNotFound)
	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+live.File.ID+"/download", nil), ""), http.StatusOK)
}

// TestConcurrentDownloads verifies that concurrent downloads are all counted.
func TestConcurrentDownloads(t *testing.T) {
	s := newStack(t)

	rr := s.upload(t, []byte("popular"), "popular.txt", nil, "")
	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	var uploaded models.UploadResponse
	decode(t, rr, &uploaded)

	const downloads = 20
	var wg sync.WaitGroup
	codes := make(chan int, downloads)
	for i := 0; i < downloads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+uploaded.File.ID+"/download", nil), "")
			codes <- rr.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Errorf("download status = %d", code)
		}
	}

	if got := mustRecord(t, s, uploaded.File.ID).DownloadCount; got != downloads {
		t.Errorf("download_count = %d, want %d", got, downloads)
	}
}

func mustRecord(tb testing.TB, s *stack, id string) *models.File {
	tb.Helper()

	file, err := s.repos.Files.GetByID(context.Background(), id)
	testutil.AssertNoError(tb, err)
	return file
}
