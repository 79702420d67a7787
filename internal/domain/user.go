package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	// RefreshToken mirrors the most recently issued refresh token. Empty
	// means no active session. Only the stored value is accepted on the
	// refresh path; older tokens are invalidated by overwrite.
	RefreshToken string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUserID returns a fresh unique user identifier.
func NewUserID() string {
	return uuid.NewString()
}
