package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/testutil"
)

var errDiskFull = errors.New("disk full")

func TestFileInfoHandler(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.login(t, "owner@example.com")
	_, otherToken := s.login(t, "other@example.com")

	public := s.env.SetupMockFile(t, []byte("hello"))
	protected := s.env.SetupMockFile(t, []byte("hello"), testutil.WithPassword("pw"))
	private := s.env.SetupMockFile(t, []byte("hello"), testutil.WithOwner(owner.ID), testutil.WithPrivate())
	expired := s.env.SetupMockFile(t, []byte("hello"), testutil.WithExpired())

	get := func(id, query string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/api/files/"+id+"/info"+query, nil)
	}

	t.Run("public file", func(t *testing.T) {
		rr := s.do(get(public.ID, ""), "")
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		resp := decodeBody[models.FileInfoResponse](t, rr)
		if resp.File.ID != public.ID || !resp.CanPreview {
			t.Errorf("unexpected info: %+v", resp)
		}
		if resp.File.SizeFormatted != "5 B" {
			t.Errorf("size_formatted = %q", resp.File.SizeFormatted)
		}
	})

	t.Run("protected without password returns summary", func(t *testing.T) {
		rr := s.do(get(protected.ID, ""), "")
		testutil.AssertStatusCode(t, rr, http.StatusOK)
		testutil.AssertContains(t, rr.Body.String(), `"is_password_protected":true`)
		testutil.AssertNotContains(t, rr.Body.String(), "mime_type")
	})

	t.Run("protected with password in query", func(t *testing.T) {
		rr := s.do(get(protected.ID, "?password=pw"), "")
		testutil.AssertStatusCode(t, rr, http.StatusOK)
		testutil.AssertContains(t, rr.Body.String(), "mime_type")
	})

	t.Run("protected with password in JSON body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/files/"+protected.ID+"/info", strings.NewReader(`{"password":"pw"}`))
		req.Header.Set("Content-Type", "application/json")

		rr := s.do(req, "")
		testutil.AssertStatusCode(t, rr, http.StatusOK)
		testutil.AssertContains(t, rr.Body.String(), "mime_type")
	})

	t.Run("protected with wrong password", func(t *testing.T) {
		rr := s.do(get(protected.ID, "?password=nope"), "")
		testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
		testutil.AssertContains(t, rr.Body.String(), "INVALID_PASSWORD")
	})

	t.Run("private file", func(t *testing.T) {
		testutil.AssertStatusCode(t, s.do(get(private.ID, ""), ""), http.StatusForbidden)
		testutil.AssertStatusCode(t, s.do(get(private.ID, ""), otherToken), http.StatusForbidden)
		testutil.AssertStatusCode(t, s.do(get(private.ID, ""), ownerToken), http.StatusOK)
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		testutil.AssertStatusCode(t, s.do(get(public.ID, ""), "garbage"), http.StatusOK)
		testutil.AssertStatusCode(t, s.do(get(private.ID, ""), "garbage"), http.StatusForbidden)
	})

	t.Run("expired", func(t *testing.T) {
		rr := s.do(get(expired.ID, ""), "")
		testutil.AssertStatusCode(t, rr, http.StatusGone)
		testutil.AssertContains(t, rr.Body.String(), "EXPIRED")
	})

	t.Run("not found", func(t *testing.T) {
		rr := s.do(get("does-not-exist", ""), "")
		testutil.AssertStatusCode(t, rr, http.StatusNotFound)
	})
}

func TestContentHandler_Download(t *testing.T) {
	s := newTestServer(t)
	file := s.env.SetupMockFile(t, []byte("hello world"))

	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+file.ID+"/download", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)

	if rr.Body.String() != "hello world" {
		t.Errorf("body = %q", rr.Body.String())
	}
	if got := rr.Header().Get("Content-Type"); got != "text/plain" {
		t.Errorf("Content-Type = %q, want text/plain", got)
	}
	if got := rr.Header().Get("Content-Length"); got != "11" {
		t.Errorf("Content-Length = %q, want 11", got)
	}
	disposition := rr.Header().Get("Content-Disposition")
	testutil.AssertContains(t, disposition, "attachment")
	testutil.AssertContains(t, disposition, "test-file.txt")

	stored, err := s.env.Mocks.Files.GetByID(context.Background(), file.ID)
	testutil.AssertNoError(t, err)
	if stored.DownloadCount != 1 || stored.LastAccessedAt == nil {
		t.Errorf("download_count = %d, last_accessed_at = %v", stored.DownloadCount, stored.LastAccessedAt)
	}
	if s.env.Storage.OpenReaders() != 0 {
		t.Errorf("open readers = %d, want 0", s.env.Storage.OpenReaders())
	}
}

func TestContentHandler_DownloadPassword(t *testing.T) {
	s := newTestServer(t)
	file := s.env.SetupMockFile(t, []byte("secret"), testutil.WithPassword("pw"))
	path := "/api/files/" + file.ID + "/download"

	rr := s.do(httptest.NewRequest(http.MethodGet, path, nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
	testutil.AssertContains(t, rr.Body.String(), "PASSWORD_REQUIRED")

	rr = s.do(httptest.NewRequest(http.MethodGet, path+"?password=wrong", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
	testutil.AssertContains(t, rr.Body.String(), "INVALID_PASSWORD")

	form := url.Values{"password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = s.do(req, "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if rr.Body.String() != "secret" {
		t.Errorf("body = %q", rr.Body.String())
	}

	stored, _ := s.env.Mocks.Files.GetByID(context.Background(), file.ID)
	if stored.DownloadCount != 1 {
		t.Errorf("download_count = %d, want 1 (failed attempts are not counted)", stored.DownloadCount)
	}
}

func TestContentHandler_Preview(t *testing.T) {
	s := newTestServer(t)
	text := s.env.SetupMockFile(t, []byte("plain"))
	archive := s.env.SetupMockFile(t, []byte("PK"), testutil.WithFilename("a.zip"), testutil.WithMimeType("application/zip"))

	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+text.ID+"/preview", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if got := rr.Header().Get("Content-Disposition"); got != "inline" {
		t.Errorf("Content-Disposition = %q, want inline", got)
	}

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+archive.ID+"/preview", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusUnprocessableEntity)
	testutil.AssertContains(t, rr.Body.String(), "NOT_PREVIEWABLE")

	stored, _ := s.env.Mocks.Files.GetByID(context.Background(), archive.ID)
	if stored.DownloadCount != 0 {
		t.Errorf("rejected preview counted: %d", stored.DownloadCount)
	}
}

func TestContentHandler_StorageErrors(t *testing.T) {
	s := newTestServer(t)
	file := s.env.SetupMockFile(t, []byte("x"))
	s.env.Storage.Reset()

	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+file.ID+"/download", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusNotFound)

	s.env.Storage.AddObject(file.StorageLocation, []byte("x"))
	s.env.Storage.RetrieveError = errDiskFull
	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/"+file.ID+"/download", nil), "")
	testutil.AssertStatusCode(t, rr, http.StatusBadGateway)
}

func TestContentHandler_NotCompressed(t *testing.T) {
	s := newTestServer(t)
	content := bytes.Repeat([]byte(`{"k":"v"}`), 500)
	file := s.env.SetupMockFile(t, content, testutil.WithFilename("data.json"), testutil.WithMimeType("application/json"))

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+file.ID+"/download", nil)
	req.Header.Set("Accept-Encoding", "gzip")

	rr := s.do(req, "")
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if enc := rr.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q, file content must not be compressed", enc)
	}
	if !bytes.Equal(rr.Body.Bytes(), content) {
		t.Error("body differs from stored content")
	}
}

func TestMyFilesHandler(t *testing.T) {
	s := newTestServer(t)
	owner, token := s.login(t, "owner@example.com")

	base := time.Now().UTC()
	for i := 0; i < 12; i++ {
		created := base.Add(time.Duration(i) * time.Minute)
		s.env.SetupMockFile(t, []byte("x"), testutil.WithOwner(owner.ID), func(f *models.File) {
			f.CreatedAt = created
		})
	}
	s.env.SetupMockFile(t, []byte("x"), testutil.WithOwner("someone-else"))

	t.Run("requires auth", func(t *testing.T) {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/my-files", nil), "")
		testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
	})

	t.Run("pages", func(t *testing.T) {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/my-files?page=1&limit=10", nil), token)
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		resp := decodeBody[models.FileListResponse](t, rr)
		if resp.Pagination.Count != 10 || !resp.Pagination.HasMore || resp.Pagination.Page != 1 {
			t.Errorf("pagination = %+v", resp.Pagination)
		}
		if !resp.Files[0].CreatedAt.After(resp.Files[1].CreatedAt) {
			t.Error("files should be newest first")
		}

		rr = s.do(httptest.NewRequest(http.MethodGet, "/api/files/my-files?page=2&limit=10", nil), token)
		resp = decodeBody[models.FileListResponse](t, rr)
		if resp.Pagination.Count != 2 || resp.Pagination.HasMore {
			t.Errorf("page 2 pagination = %+v", resp.Pagination)
		}
	})

	t.Run("empty page is an empty array", func(t *testing.T) {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/my-files?page=9", nil), token)
		testutil.AssertStatusCode(t, rr, http.StatusOK)
		testutil.AssertContains(t, rr.Body.String(), `"files":[]`)
	})

	t.Run("invalid paging", func(t *testing.T) {
		for _, query := range []string{"?page=abc", "?page=0", "?limit=-5"} {
			rr := s.do(httptest.NewRequest(http.MethodGet, "/api/files/my-files"+query, nil), token)
			testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
		}
	})

	t.Run("compressed when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/files/my-files?limit=12", nil)
		req.Header.Set("Accept-Encoding", "gzip")

		rr := s.do(req, token)
		testutil.AssertStatusCode(t, rr, http.StatusOK)
		if enc := rr.Header().Get("Content-Encoding"); enc != "gzip" {
			t.Errorf("Content-Encoding = %q, want gzip", enc)
		}
	})
}

func TestUpdateFileHandler(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.login(t, "owner@example.com")
	_, otherToken := s.login(t, "other@example.com")
	file := s.env.SetupMockFile(t, []byte("x"), testutil.WithOwner(owner.ID))
	path := "/api/files/" + file.ID

	patch := func(method, body, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return s.do(req, token)
	}

	t.Run("owner renames and hides", func(t *testing.T) {
		rr := patch(http.MethodPatch, `{"original_name":"renamed.txt","is_public":false}`, ownerToken)
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		resp := decodeBody[models.FileResponse](t, rr)
		if resp.OriginalName != "renamed.txt" || resp.IsPublic {
			t.Errorf("update not applied: %+v", resp)
		}
	})

	t.Run("put is accepted", func(t *testing.T) {
		expires := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
		rr := patch(http.MethodPut, `{"expires_at":"`+expires+`"}`, ownerToken)
		testutil.AssertStatusCode(t, rr, http.StatusOK)
	})

	t.Run("requires auth", func(t *testing.T) {
		testutil.AssertStatusCode(t, patch(http.MethodPatch, `{"is_public":true}`, ""), http.StatusUnauthorized)
	})

	t.Run("non-owner", func(t *testing.T) {
		rr := patch(http.MethodPatch, `{"is_public":true}`, otherToken)
		testutil.AssertStatusCode(t, rr, http.StatusForbidden)
		testutil.AssertContains(t, rr.Body.String(), "ACCESS_DENIED")
	})

	t.Run("invalid body", func(t *testing.T) {
		testutil.AssertStatusCode(t, patch(http.MethodPatch, `{"size":1}`, ownerToken), http.StatusBadRequest)
		testutil.AssertStatusCode(t, patch(http.MethodPatch, `not json`, ownerToken), http.StatusBadRequest)
	})

	t.Run("no fields", func(t *testing.T) {
		rr := patch(http.MethodPatch, `{}`, ownerToken)
		testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
		testutil.AssertContains(t, rr.Body.String(), "VALIDATION_FAILED")
	})

	t.Run("expiry in the past", func(t *testing.T) {
		rr := patch(http.MethodPatch, `{"expires_at":"2000-01-01T00:00:00Z"}`, ownerToken)
		testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
	})
}

func TestDeleteFileHandler(t *testing.T) {
	s := newTestServer(t)
	owner, ownerToken := s.login(t, "owner@example.com")
	_, otherToken := s.login(t, "other@example.com")
	file := s.env.SetupMockFile(t, []byte("x"), testutil.WithOwner(owner.ID))
	anonymous := s.env.SetupMockFile(t, []byte("x"))

	del := func(id, token string) *httptest.ResponseRecorder {
		return s.do(httptest.NewRequest(http.MethodDelete, "/api/files/"+id, nil), token)
	}

	testutil.AssertStatusCode(t, del(file.ID, ""), http.StatusUnauthorized)
	testutil.AssertStatusCode(t, del(file.ID, otherToken), http.StatusForbidden)
	testutil.AssertStatusCode(t, del(anonymous.ID, ownerToken), http.StatusForbidden)

	t.Run("storage failure keeps the record", func(t *testing.T) {
		s.env.Storage.DeleteError = errDiskFull
		defer func() { s.env.Storage.DeleteError = nil }()

		testutil.AssertStatusCode(t, del(file.ID, ownerToken), http.StatusBadGateway)
		if _, err := s.env.Mocks.Files.GetByID(context.Background(), file.ID); err != nil {
			t.Errorf("record should remain: %v", err)
		}
	})

	rr := del(file.ID, ownerToken)
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertContains(t, rr.Body.String(), file.ID)

	if _, ok := s.env.Storage.Content(file.StorageLocation); ok {
		t.Error("bytes should be removed")
	}
	testutil.AssertStatusCode(t, del(file.ID, ownerToken), http.StatusNotFound)
}
