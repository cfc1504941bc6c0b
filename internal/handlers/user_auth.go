package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjmerc/fileshare/internal/auth"
	"github.com/fjmerc/fileshare/internal/middleware"
	"github.com/fjmerc/fileshare/internal/models"
)

func sendSession(w http.ResponseWriter, status int, session *auth.Session) {
	sendJSON(w, status, models.AuthResponse{
		User:      toUserResponse(session.User),
		Token:     session.Token,
		TokenType: "Bearer",
		ExpiresAt: session.ExpiresAt,
	})
}

// RegisterHandler creates an account and returns a session token
func RegisterHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			sendError(w, "Invalid request format", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		session, err := svc.Register(r.Context(), req.Email, req.Password, req.Name)
		if err != nil {
			sendAuthError(w, r, err)
			return
		}

		slog.Info("user registered",
			"user_id", session.User.ID,
			"ip", middleware.GetClientIP(r),
		)
		sendSession(w, http.StatusCreated, session)
	}
}

// LoginHandler exchanges credentials for a session token
func LoginHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := decodeJSON(w, r, &req); err != nil {
			sendError(w, "Invalid request format", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		session, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			slog.Warn("user login failed",
				"ip", middleware.GetClientIP(r),
				"error", err,
			)
			sendAuthError(w, r, err)
			return
		}

		slog.Info("user logged in",
			"user_id", session.User.ID,
			"ip", middleware.GetClientIP(r),
		)
		sendSession(w, http.StatusOK, session)
	}
}

// MeHandler returns the authenticated user
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.GetUserFromContext(r.Context())
		if user == nil {
			sendError(w, "Authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		sendJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// UpdateProfileHandler changes the name and/or email of the authenticated user
func UpdateProfileHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			sendError(w, "Authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		var req models.UpdateProfileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			sendError(w, "Invalid request format", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), userID, req.Name, req.Email)
		if err != nil {
			sendAuthError(w, r, err)
			return
		}

		slog.Info("user profile updated",
			"user_id", userID,
			"ip", middleware.GetClientIP(r),
		)
		sendJSON(w, http.StatusOK, toUserResponse(user))
	}
}

// ChangePasswordHandler replaces the password of the authenticated user
func ChangePasswordHandler(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		if userID == "" {
			sendError(w, "Authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		var req models.ChangePasswordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			sendError(w, "Invalid request format", "INVALID_REQUEST", http.StatusBadRequest)
			return
		}

		err := svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.Warn("password change rejected",
				"user_id", userID,
				"ip", middleware.GetClientIP(r),
			)
			sendError(w, "Current password is incorrect", "INVALID_CREDENTIALS", http.StatusUnauthorized)
			return
		}
		if err != nil {
			sendAuthError(w, r, err)
			return
		}

		slog.Info("user password changed",
			"user_id", userID,
			"ip", middleware.GetClientIP(r),
		)
		sendJSON(w, http.StatusOK, models.MessageResponse{Message: "Password changed successfully"})
	}
}
