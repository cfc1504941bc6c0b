package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fjmerc/fileshare/internal/auth"
	"github.com/fjmerc/fileshare/internal/config"
	"github.com/fjmerc/fileshare/internal/lifecycle"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/testutil"
)

type testServer struct {
	env     *testutil.MockTestEnv
	cfg     *config.Config
	manager *lifecycle.Manager
	auth    *auth.Service
	handler http.Handler
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	env := testutil.NewMockTestEnv(t)
	cfg := env.Config
	for _, fn := range mutate {
		fn(cfg)
	}

	logger := testutil.DiscardLogger()
	manager := lifecycle.NewManager(env.Mocks.Files, env.Storage, lifecycle.Options{
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
	testutil.AssertNoError(t, err)
	svc := auth.NewService(env.Mocks.Users, tokens, cfg.BcryptCost, logger)

	limiter := middleware.NewRateLimiter(time.Hour)
	t.Cleanup(limiter.Stop)

	handler, err := NewRouter(RouterDeps{
		Config:    cfg,
		Manager:   manager,
		Auth:      svc,
		Files:     env.Mocks.Files,
		Backend:   env.Storage,
		Limiter:   limiter,
		StartTime: time.Now(),
	})
	testutil.AssertNoError(t, err)

	return &testServer{
		env:     env,
		cfg:     cfg,
		manager: manager,
		auth:    svc,
		handler: handler,
	}
}

// do sends req through the router. A non-empty token is sent as a bearer token.
func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// login creates a user and returns it with a valid token.
func (s *testServer) login(t *testing.T, email string) (*models.User, string) {
	t.Helper()

	user := s.env.SetupMockUser(t, email, "Secret1")
	token, _, err := s.auth.Tokens().Issue(user.ID)
	testutil.AssertNoError(t, err)
	return user, token
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	body, _ := io.ReadAll(rr.Body)
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", body, err)
	}
	return v
}
