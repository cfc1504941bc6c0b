package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fjmerc/fileshare/internal/models"
	"github.com/fjmerc/fileshare/internal/repository"
)

// UserRepository is a mock implementation of repository.UserRepository for testing.
//
// IMPORTANT: Error injection fields should be set BEFORE any concurrent
// operations begin. They are not protected by the mutex.
type UserRepository struct {
	mu sync.RWMutex

	users   map[string]*models.User
	byEmail map[string]string // normalized email -> id

	// Files, when set, has owner_id cleared for a deleted user's files.
	Files *FileRepository

	CreateError         error
	GetByIDError        error
	GetByEmailError     error
	UpdateError         error
	UpdatePasswordError error
	DeleteError         error
}

// NewUserRepository creates a new mock UserRepository with default behavior.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

// Ensure UserRepository implements repository.UserRepository
var _ repository.UserRepository = (*UserRepository)(nil)

// Reset clears all users and errors for a fresh test state.
func (r *UserRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = make(map[string]*models.User)
	r.byEmail = make(map[string]string)

	r.CreateError = nil
	r.GetByIDError = nil
	r.GetByEmailError = nil
	r.UpdateError = nil
	r.UpdatePasswordError = nil
	r.DeleteError = nil
}

func deepCopyUser(src *models.User) *models.User {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}

// AddUser stores a copy of user directly (test helper). An empty ID is assigned.
func (r *UserRepository) AddUser(user *models.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = deepCopyUser(user)
	r.byEmail[repository.NormalizeEmail(user.Email)] = user.ID
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	if r.CreateError != nil {
		return nil, r.CreateError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := repository.NormalizeEmail(email)
	if _, exists := r.byEmail[normalized]; exists {
		return nil, repository.ErrDuplicateKey
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        normalized,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	r.byEmail[normalized] = user.ID

	return deepCopyUser(user), nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.GetByIDError != nil {
		return nil, r.GetByIDError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return deepCopyUser(user), nil
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.GetByEmailError != nil {
		return nil, r.GetByEmailError
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[repository.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return deepCopyUser(r.users[id]), nil
}

// Update replaces the name and email of a user.
func (r *UserRepository) Update(ctx context.Context, id, name, email string) (*models.User, error) {
	if r.UpdateError != nil {
		return nil, r.UpdateError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	normalized := repository.NormalizeEmail(email)
	if owner, exists := r.byEmail[normalized]; exists && owner != id {
		return nil, repository.ErrDuplicateKey
	}

	delete(r.byEmail, repository.NormalizeEmail(user.Email))
	user.Name = name
	user.Email = normalized
	user.UpdatedAt = time.Now().UTC()
	r.byEmail[normalized] = id

	return deepCopyUser(user), nil
}

// UpdatePassword replaces the password hash of a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if r.UpdatePasswordError != nil {
		return r.UpdatePasswordError
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes a user and clears owner_id on their files when Files is set.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if r.DeleteError != nil {
		return r.DeleteError
	}

	r.mu.Lock()
	user, ok := r.users[id]
	if ok {
		delete(r.byEmail, repository.NormalizeEmail(user.Email))
		delete(r.users, id)
	}
	r.mu.Unlock()

	if !ok {
		return repository.ErrNotFound
	}
	if r.Files != nil {
		r.Files.clearOwner(id)
	}
	return nil
}
