// Package redisrepo provides a redis-backed UserRepository. Each user lives in
// a hash at user:{id}, with a user:email:{email} key mapping the lookup email
// to the id. Refresh-token rotation runs as a Lua script so the compare and
// the write execute atomically on the server.
package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"authgate/internal/domain"
	"authgate/internal/repository"
)

const (
	swapStatusNotFound int64 = 0
	swapStatusMismatch int64 = 1
	swapStatusSwapped  int64 = 2
)

const swapRefreshScript = `
local stored = redis.call("HGET", KEYS[1], "refresh_token")
if stored == false then
  return 0
end
if stored ~= ARGV[1] then
  return 1
end
redis.call("HSET", KEYS[1], "refresh_token", ARGV[2], "updated_at", ARGV[3])
return 2
`

var swapRefreshLua = redis.NewScript(swapRefreshScript)

type UserRepository struct {
	rdb *redis.Client
}

func NewUserRepository(rdb *redis.Client) repository.UserRepository {
	return &UserRepository{rdb: rdb}
}

func userKey(id string) string     { return "user:" + id }
func emailKey(email string) string { return "user:email:" + email }

func (r *UserRepository) Init(ctx context.Context) error {
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	ok, err := r.rdb.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	if !ok {
		return repository.ErrUserExists
	}

	if err := r.rdb.HSet(ctx, userKey(user.ID), map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"refresh_token": user.RefreshToken,
		"created_at":    user.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":    user.UpdatedAt.Format(time.RFC3339Nano),
	}).Err(); err != nil {
		// release the reservation so a retry can succeed
		r.rdb.Del(ctx, emailKey(user.Email))
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.rdb.Get(ctx, emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	fields, err := r.rdb.HGetAll(ctx, userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(fields) == 0 {
		return nil, repository.ErrUserNotFound
	}

	user := &domain.User{
		ID:           fields["id"],
		Email:        fields["email"],
		PasswordHash: fields["password_hash"],
		RefreshToken: fields["refresh_token"],
	}
	if user.CreatedAt, err = time.Parse(time.RFC3339Nano, fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if user.UpdatedAt, err = time.Parse(time.RFC3339Nano, fields["updated_at"]); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return user, nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	exists, err := r.rdb.Exists(ctx, userKey(id)).Result()
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if exists == 0 {
		return repository.ErrUserNotFound
	}
	if err := r.rdb.HSet(ctx, userKey(id),
		"refresh_token", token,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err(); err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	return nil
}

func (r *UserRepository) SwapRefreshToken(ctx context.Context, id, current, next string) error {
	status, err := swapRefreshLua.Run(ctx, r.rdb,
		[]string{userKey(id)},
		current, next, time.Now().UTC().Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	switch status {
	case swapStatusNotFound:
		return repository.ErrUserNotFound
	case swapStatusMismatch:
		return repository.ErrRefreshTokenMismatch
	case swapStatusSwapped:
		return nil
	default:
		return fmt.Errorf("swap refresh token: unexpected status %d", status)
	}
}
