package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fjmerc/fileshare/internal/models"
)

type fakeAuthenticator struct {
	users map[string]*models.User
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if user, ok := f.users[token]; ok {
		return user, nil
	}
	return nil, errors.New("invalid token")
}

func newFakeAuth() *fakeAuthenticator {
	return &fakeAuthenticator{users: map[string]*models.User{
		"good-token": {ID: "user-1", Email: "a@example.com"},
	}}
}

func TestUserAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer good-token", http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer bad-token", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLogs(t)
			var gotUser string
			handler := UserAuth(newFakeAuth())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = UserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/files/my-files", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
		})
	}
}

func TestOptionalUserAuth(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantUser string
	}{
		{"valid token", "Bearer good-token", "user-1"},
		{"no token", "", ""},
		{"invalid token continues anonymously", "Bearer bad-token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var gotUser string
			handler := OptionalUserAuth(newFakeAuth())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				gotUser = UserID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("next handler was not called")
			}
			if gotUser != tt.wantUser {
				t.Errorf("user = %q, want %q", gotUser, tt.wantUser)
			}
		})
	}
}

func TestGetUserFromContext_Empty(t *testing.T) {
	if GetUserFromContext(context.Background()) != nil {
		t.Error("expected nil user")
	}
	if UserID(context.Background()) != "" {
		t.Error("expected empty user id")
	}
}
