// Package credential hashes and checks user passwords. The stored hash never
// leaves this boundary in plaintext-comparable form.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor applied to every new hash.
const Cost = 10

var (
	// ErrMismatch indicates the password does not match the stored hash.
	ErrMismatch = errors.New("password does not match")
	// ErrCorruptHash indicates the stored hash is not a valid bcrypt hash.
	ErrCorruptHash = errors.New("corrupt password hash")
)

// Hash applies a salted bcrypt transform to plaintext.
func Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. It returns ErrMismatch for a
// wrong password and ErrCorruptHash when the stored hash is malformed; callers
// treat both as verification failure, never as a crash.
func Verify(plaintext, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrMismatch
	default:
		return fmt.Errorf("%w: %v", ErrCorruptHash, err)
	}
}
