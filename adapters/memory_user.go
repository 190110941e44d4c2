package adapters

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicebank/server/domain/entities"
	"github.com/voicebank/server/domain/repositories"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
// It backs single-node deployments that run without Mongo, and tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	users  map[string]*entities.User // id -> user
	emails map[string]*entities.User // lowercased email -> user
}

// NewMemoryUserRepository creates an empty in-memory user repository
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:  make(map[string]*entities.User),
		emails: make(map[string]*entities.User),
	}
}

var _ repositories.UserRepository = (*MemoryUserRepository)(nil)

// Create implements UserRepository
func (m *MemoryUserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := m.emails[email]; exists {
		return errors.New("user with this email already exists")
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	userCopy := *user
	m.users[user.ID] = &userCopy
	m.emails[email] = &userCopy
	return nil
}

// GetByID implements UserRepository
func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	if id == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, nil
	}

	userCopy := *user
	return &userCopy, nil
}

// GetByEmail implements UserRepository
func (m *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.emails[strings.ToLower(email)]
	if !exists {
		return nil, nil
	}

	userCopy := *user
	return &userCopy, nil
}

// Update implements UserRepository
func (m *MemoryUserRepository) Update(ctx context.Context, user *entities.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if err := user.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.users[user.ID]
	if !exists {
		return errors.New("user not found")
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()

	delete(m.emails, strings.ToLower(existing.Email))
	userCopy := *user
	m.users[user.ID] = &userCopy
	m.emails[strings.ToLower(user.Email)] = &userCopy
	return nil
}

// Delete implements UserRepository
func (m *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("user ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, exists := m.users[id]
	if !exists {
		return errors.New("user not found")
	}

	delete(m.emails, strings.ToLower(user.Email))
	delete(m.users, id)
	return nil
}

// Count implements UserRepository
func (m *MemoryUserRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}
