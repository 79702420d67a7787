package repository

import (
	"context"
	"errors"

	"authgate/internal/domain"
)

var (
	// ErrUserExists is returned when inserting a user whose email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshTokenMismatch is returned by SwapRefreshToken when the stored
	// refresh token no longer equals the expected value.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)

// UserRepository defines persistence operations for User entities.
//
// SwapRefreshToken must be atomic per user record: when two callers race with
// the same current value, exactly one swap succeeds and the other observes
// ErrRefreshTokenMismatch.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// SetRefreshToken unconditionally overwrites the stored refresh token,
	// implicitly revoking any previously issued one.
	SetRefreshToken(ctx context.Context, id, token string) error
	// SwapRefreshToken replaces the stored refresh token with next only if it
	// currently equals current.
	SwapRefreshToken(ctx context.Context, id, current, next string) error
}
