package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/testutil"
)

func postJSON(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegisterHandler(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(postJSON("/api/auth/register", `{"email":"New@Example.com","password":"Secret1","name":"New"}`), "")
	testutil.AssertStatusCode(t, rr, http.StatusCreated)

	resp := decodeBody[models.AuthResponse](t, rr)
	if resp.User.Email != "new@example.com" || resp.TokenType != "Bearer" || resp.Token == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.ExpiresAt.IsZero() {
		t.Error("expires_at should be set")
	}

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), resp.Token)
	testutil.AssertStatusCode(t, rr, http.StatusOK)
	me := decodeBody[models.UserResponse](t, rr)
	if me.ID != resp.User.ID {
		t.Errorf("me = %+v, want user %s", me, resp.User.ID)
	}
	testutil.AssertNotContains(t, rr.Body.String(), "password")
}

func TestRegisterHandler_Errors(t *testing.T) {
	s := newTestServer(t)
	s.env.SetupMockUser(t, "taken@example.com", "Secret1")

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"duplicate email", `{"email":"TAKEN@example.com","password":"Secret1","name":"x"}`, http.StatusConflict, "EMAIL_TAKEN"},
		{"invalid email", `{"email":"nope","password":"Secret1","name":"x"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"short password", `{"email":"a@example.com","password":"1","name":"x"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"malformed json", `{"email":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown field", `{"email":"a@example.com","password":"Secret1","admin":true}`, http.StatusBadRequest, "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(postJSON("/api/auth/register", tt.body), "")
			testutil.AssertStatusCode(t, rr, tt.status)
			testutil.AssertContains(t, rr.Body.String(), tt.code)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	s := newTestServer(t)
	user := s.env.SetupMockUser(t, "user@example.com", "Secret1")

	t.Run("success", func(t *testing.T) {
		rr := s.do(postJSON("/api/auth/login", `{"email":"USER@example.com","password":"Secret1"}`), "")
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		resp := decodeBody[models.AuthResponse](t, rr)
		if resp.User.ID != user.ID || resp.Token == "" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := s.do(postJSON("/api/auth/login", `{"email":"user@example.com","password":"bad"}`), "")
		unknown := s.do(postJSON("/api/auth/login", `{"email":"ghost@example.com","password":"Secret1"}`), "")

		testutil.AssertStatusCode(t, wrong, http.StatusUnauthorized)
		testutil.AssertStatusCode(t, unknown, http.StatusUnauthorized)
		if wrong.Body.String() != unknown.Body.String() {
			t.Errorf("bodies differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		rr := s.do(postJSON("/api/auth/login", `{"email":"user@example.com"}`), "")
		testutil.AssertStatusCode(t, rr, http.StatusBadRequest)
	})
}

func TestMeHandler_Unauthorized(t *testing.T) {
	s := newTestServer(t)

	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), ""), http.StatusUnauthorized)
	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), "not-a-token"), http.StatusUnauthorized)

	// Token for a user that no longer exists
	user, token := s.login(t, "gone@example.com")
	s.env.Mocks.Users.Delete(t.Context(), user.ID)
	testutil.AssertStatusCode(t, s.do(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), token), http.StatusUnauthorized)

	// Called outside the auth middleware
	rr := httptest.NewRecorder()
	MeHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertStatusCode(t, rr, http.StatusUnauthorized)
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUpdateProfileHandler(t *testing.T) {
	s := newTestServer(t)
	user, token := s.login(t, "ivy@example.com")
	s.env.SetupMockUser(t, "taken@example.com", "Secret1")

	t.Run("patch name", func(t *testing.T) {
		rr := s.do(jsonRequest(http.MethodPatch, "/api/auth/profile", `{"name":"Ivy Q"}`), token)
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		resp := decodeBody[models.UserResponse](t, rr)
		if resp.ID != user.ID || resp.Name != "Ivy Q" || resp.Email != "ivy@example.com" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	t.Run("put email", func(t *testing.T) {
		rr := s.do(jsonRequest(http.MethodPut, "/api/auth/profile", `{"email":"Ivy.Q@Example.com"}`), token)
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		resp := decodeBody[models.UserResponse](t, rr)
		if resp.Email != "ivy.q@example.com" || resp.Name != "Ivy Q" {
			t.Errorf("unexpected response: %+v", resp)
		}
	})

	tests := []struct {
		name   string
		body   string
		token  string
		status int
		code   string
	}{
		{"taken email", `{"email":"TAKEN@example.com"}`, token, http.StatusConflict, "EMAIL_TAKEN"},
		{"empty body", `{}`, token, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad email", `{"email":"nope"}`, token, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown field", `{"password":"x"}`, token, http.StatusBadRequest, "INVALID_REQUEST"},
		{"anonymous", `{"name":"x"}`, "", http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(jsonRequest(http.MethodPatch, "/api/auth/profile", tt.body), tt.token)
			testutil.AssertStatusCode(t, rr, tt.status)
			testutil.AssertContains(t, rr.Body.String(), tt.code)
		})
	}
}

func TestChangePasswordHandler(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "jack@example.com")

	tests := []struct {
		name   string
		body   string
		token  string
		status int
		code   string
	}{
		{"wrong current password", `{"current_password":"Wrong1","new_password":"Better2"}`, token, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"weak new password", `{"current_password":"Secret1","new_password":"weak"}`, token, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"malformed json", `{"current_password":`, token, http.StatusBadRequest, "INVALID_REQUEST"},
		{"anonymous", `{"current_password":"Secret1","new_password":"Better2"}`, "", http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(postJSON("/api/auth/change-password", tt.body), tt.token)
			testutil.AssertStatusCode(t, rr, tt.status)
			testutil.AssertContains(t, rr.Body.String(), tt.code)
		})
	}

	t.Run("success", func(t *testing.T) {
		rr := s.do(postJSON("/api/auth/change-password", `{"current_password":"Secret1","new_password":"Better2"}`), token)
		testutil.AssertStatusCode(t, rr, http.StatusOK)

		old := s.do(postJSON("/api/auth/login", `{"email":"jack@example.com","password":"Secret1"}`), "")
		testutil.AssertStatusCode(t, old, http.StatusUnauthorized)
		fresh := s.do(postJSON("/api/auth/login", `{"email":"jack@example.com","password":"Better2"}`), "")
		testutil.AssertStatusCode(t, fresh, http.StatusOK)
	})
}
