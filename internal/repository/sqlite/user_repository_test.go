package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"authgate/internal/domain"
	"authgate/internal/repository"
)

func newTestRepo(t *testing.T) repository.UserRepository {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func newUser(email string) *domain.User {
	return &domain.User{
		ID:           domain.NewUserID(),
		Email:        email,
		PasswordHash: "hash",
	}
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := newUser("alice@example.com")

	require.NoError(t, repo.Create(ctx, user))

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)
	require.Empty(t, byEmail.RefreshToken)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", byID.Email)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Create(ctx, newUser("bob@example.com")))
	err := repo.Create(ctx, newUser("bob@example.com"))
	require.ErrorIs(t, err, repository.ErrUserExists)
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.GetByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = repo.GetByID(ctx, "no-such-id")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestSetAndSwapRefreshToken(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := newUser("carol@example.com")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.SetRefreshToken(ctx, user.ID, "r1"))
	require.NoError(t, repo.SwapRefreshToken(ctx, user.ID, "r1", "r2"))

	err := repo.SwapRefreshToken(ctx, user.ID, "r1", "r3")
	require.ErrorIs(t, err, repository.ErrRefreshTokenMismatch)

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "r2", stored.RefreshToken)
}

func TestSwapRefreshToken_UnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	err := repo.SwapRefreshToken(ctx, "no-such-id", "r1", "r2")
	require.ErrorIs(t, err, repository.ErrUserNotFound)
}
