package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
	"github.com/fjmerc/fileshare/internal/utils"
)

const (
	// MinPasswordLength is the shortest accepted account password.
	MinPasswordLength = 6

	// MaxNameLength is the longest accepted display name, in characters.
	MaxNameLength = 255

	maxEmailLength = 254
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrValidationFailed   = errors.New("validation failed")
)

// ValidationError lists the rules an account request violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Is reports ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// Session is the result of a successful registration or login.
type Session struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Service manages user accounts.
type Service struct {
	users      repository.UserRepository
	tokens     *TokenManager
	bcryptCost int
	logger     *slog.Logger
}

// NewService creates a Service. A zero bcryptCost uses utils.DefaultBcryptCost.
func NewService(users repository.UserRepository, tokens *TokenManager, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost == 0 {
		bcryptCost = utils.DefaultBcryptCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "auth")),
	}
}

// Tokens returns the token manager used to sign sessions.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register creates an account and signs a token for it.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = repository.NormalizeEmail(email)
	name = strings.TrimSpace(name)

	var violations []string
	if !validEmail(email) {
		violations = append(violations, "valid email is required")
	}
	violations = append(violations, passwordViolations(password)...)
	if n := utf8.RuneCountInString(name); n < 1 || n > MaxNameLength {
		violations = append(violations, fmt.Sprintf("name must be between 1 and %d characters", MaxNameLength))
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, email, name, hash)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return s.session(user)
}

// Login checks the credentials and signs a token. Unknown emails and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = repository.NormalizeEmail(email)
	if !validEmail(email) || password == "" {
		return nil, &ValidationError{Violations: []string{"email and password are required"}}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !utils.VerifyPassword(user.PasswordHash, password) {
		s.logger.Warn("login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	return s.session(user)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.User(ctx, userID)
}

// User returns the account with the given ID.
func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the name and/or email of an account. Nil fields keep
// their current value.
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, email *string) (*models.User, error) {
	if name == nil && email == nil {
		return nil, &ValidationError{Violations: []string{"name or email is required"}}
	}

	user, err := s.User(ctx, userID)
	if err != nil {
		return nil, err
	}

	newName, newEmail := user.Name, user.Email
	var violations []string
	if name != nil {
		newName = strings.TrimSpace(*name)
		if n := utf8.RuneCountInString(newName); n < 1 || n > MaxNameLength {
			violations = append(violations, fmt.Sprintf("name must be between 1 and %d characters", MaxNameLength))
		}
	}
	if email != nil {
		newEmail = repository.NormalizeEmail(*email)
		if !validEmail(newEmail) {
			violations = append(violations, "valid email is required")
		}
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	updated, err := s.users.Update(ctx, userID, newName, newEmail)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateKey):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("profile updated", "user_id", userID, "email_changed", newEmail != user.Email)
	return updated, nil
}

// ChangePassword replaces the account password after checking the current one.
// A wrong current password yields ErrInvalidCredentials.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	var violations []string
	if currentPassword == "" {
		violations = append(violations, "current password is required")
	}
	violations = append(violations, passwordViolations(newPassword)...)
	if currentPassword != "" && currentPassword == newPassword {
		violations = append(violations, "new password must differ from the current password")
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	user, err := s.User(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(user.PasswordHash, currentPassword) {
		s.logger.Warn("password change rejected", "user_id", userID)
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func validEmail(email string) bool {
	if email == "" || len(email) > maxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndexByte(email, '@')
	return strings.Contains(email[at+1:], ".")
}

func passwordViolations(password string) []string {
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	if !upper || !lower || !digit {
		violations = append(violations, "password must contain an uppercase letter, a lowercase letter and a number")
	}
	return violations
}
