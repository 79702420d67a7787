// Package memory provides an in-memory UserRepository, used as the default
// backend and as a drop-in substitute in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"authgate/internal/domain"
	"authgate/internal/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Init(_ context.Context) error { return nil }

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return repository.ErrUserExists
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(r.byID[id]), nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (r *UserRepository) SetRefreshToken(_ context.Context, id, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.RefreshToken = token
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *UserRepository) SwapRefreshToken(_ context.Context, id, current, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if user.RefreshToken != current {
		return repository.ErrRefreshTokenMismatch
	}
	user.RefreshToken = next
	user.UpdatedAt = time.Now().UTC()
	return nil
}

func copyUser(user *domain.User) *domain.User {
	clone := *user
	return &clone
}
