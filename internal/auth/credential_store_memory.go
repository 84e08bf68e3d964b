package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/clipstream/backend/internal/models"
)

// NewInMemoryCredentialStore returns a CredentialStore backed by an in-memory map.
func NewInMemoryCredentialStore() *InMemoryCredentialStore {
	return &InMemoryCredentialStore{users: make(map[string]models.User)}
}

// InMemoryCredentialStore implements CredentialStore for tests and local development.
type InMemoryCredentialStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// Put inserts or replaces a user record keyed by id.
func (s *InMemoryCredentialStore) Put(user models.User) {
	s.mu.Lock()
	s.users[user.ID] = user
	s.mu.Unlock()
}

// FindByIdentifier resolves a user by username or email, case-insensitively.
func (s *InMemoryCredentialStore) FindByIdentifier(_ context.Context, identifier string) (models.User, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.ToLower(user.Username) == identifier || strings.ToLower(user.Email) == identifier {
			return user, nil
		}
	}
	return models.User{}, ErrUserNotFound
}

// FindByID resolves a user by id.
func (s *InMemoryCredentialStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	user, ok := s.users[id]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return user, nil
}

// SetRefreshToken stores the refresh token value unconditionally.
func (s *InMemoryCredentialStore) SetRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.RefreshToken = token
	s.users[userID] = user
	return nil
}

// SwapRefreshToken replaces the stored value only while it still equals expected.
func (s *InMemoryCredentialStore) SwapRefreshToken(_ context.Context, userID, expected, replacement string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	if user.RefreshToken != expected {
		return ErrRefreshReused
	}
	user.RefreshToken = replacement
	s.users[userID] = user
	return nil
}

var _ CredentialStore = (*InMemoryCredentialStore)(nil)
