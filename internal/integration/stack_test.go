// Package integration exercises the full HTTP stack against a real SQLite
// record store and the local filesystem backend.
package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjmerc/fileshare/internal/auth"
	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/handlers"
	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/storage/filesystem"
	"github.com/fjmerc/fileshare/internal/testutil"
)

type stack struct {
	cfg     *config.Config
	repos   *repository.Repositories
	manager *lifecycle.Manager
	handler http.Handler
}

func newStack(tb testing.TB) *stack {
	tb.Helper()

	cfg := testutil.SetupTestConfig(tb)
	cfg.PublicURL = "https://share.example.com"
	repos := testutil.SetupTestRepos(tb)

	backend, err := filesystem.NewFilesystemStorage(cfg.UploadDir)
	testutil.AssertNoError(tb, err)

	logger := testutil.DiscardLogger()
	manager := lifecycle.NewManager(repos.Files, backend, lifecycle.Options{
		MaxFileSize:       cfg.MaxFileSize,
		DefaultExpiration: time.Duration(cfg.DefaultExpirationHours) * time.Hour,
		MaxExpiration:     time.Duration(cfg.MaxExpirationHours) * time.Hour,
		BlockedExtensions: cfg.BlockedExtensions,
		BlockedMimeTypes:  cfg.BlockedMimeTypes,
		BcryptCost:        cfg.BcryptCost,
		BaseURL:           cfg.PublicURL,
		Logger:            logger,
	})

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, time.Hour)
	testutil.AssertNoError(tb, err)

	handler, err := handlers.NewRouter(handlers.RouterDeps{
		Config:    cfg,
		Manager:   manager,
		Auth:      auth.NewService(repos.Users, tokens, cfg.BcryptCost, logger),
		Files:     repos.Files,
		Backend:   backend,
		StartTime: time.Now(),
	})
	testutil.AssertNoError(tb, err)

	return &stack{cfg: cfg, repos: repos, manager: manager, handler: handler}
}

func (s *stack) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *stack) upload(tb testing.TB, content []byte, filename string, fields map[string]string, token string) *httptest.ResponseRecorder {
	tb.Helper()

	body, contentType := testutil.CreateMultipartForm(tb, content, filename, fields)
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	return s.do(req, token)
}

func decode(tb testing.TB, rr *httptest.ResponseRecorder, v any) {
	tb.Helper()

	raw, _ := io.ReadAll(rr.Body)
	if err := json.Unmarshal(raw, v); err != nil {
		tb.Fatalf("failed to decode %q: %v", raw, err)
	}
}
