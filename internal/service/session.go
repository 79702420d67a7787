package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"authgate/internal/credential"
	"authgate/internal/domain"
	"authgate/internal/repository"
	"authgate/internal/token"
)

var (
	// ErrDuplicateUser is returned when registering an email that is taken.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrUnknownUser is returned when logging in with an unregistered email.
	ErrUnknownUser = errors.New("invalid email")
	// ErrInvalidCredentials is returned when the password check fails.
	ErrInvalidCredentials = errors.New("invalid email/password")
	// ErrUnauthorized is returned when an access token fails verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoSession is the soft refresh failure: no token, an unverifiable
	// token, an unknown subject, or a rotated-out token all collapse into it
	// so the client can silently fall back to the unauthenticated state.
	ErrNoSession = errors.New("no active session")
)

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService orchestrates registration, login and session refresh over
// the user store.
type SessionService interface {
	Register(ctx context.Context, email, password string) error
	Login(ctx context.Context, email, password string) (*TokenPair, *domain.User, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Authorize(ctx context.Context, accessToken string) (string, error)
}

type sessionService struct {
	users    repository.UserRepository
	issuer   *token.Issuer
	verifier *token.Verifier
	logger   *logrus.Logger
}

func NewSessionService(users repository.UserRepository, issuer *token.Issuer, verifier *token.Verifier, logger *logrus.Logger) SessionService {
	return &sessionService{
		users:    users,
		issuer:   issuer,
		verifier: verifier,
		logger:   logger,
	}
}

// Register creates a new user with a hashed password and no active session.
// It never issues tokens; registration does not authenticate.
func (s *sessionService) Register(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errors.New("email is required")
	}
	if password == "" {
		return errors.New("password is required")
	}

	hash, err := credential.Hash(password)
	if err != nil {
		return err
	}

	user := &domain.User{
		ID:           domain.NewUserID(),
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return ErrDuplicateUser
		}
		return err
	}

	s.logger.Infof("registered user %s", user.ID)
	return nil
}

// Login verifies the credentials and issues a fresh token pair. The new
// refresh token overwrites the stored one, revoking any prior session.
func (s *sessionService) Login(ctx context.Context, email, password string) (*TokenPair, *domain.User, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUnknownUser
		}
		return nil, nil, err
	}

	if err := credential.Verify(password, user.PasswordHash); err != nil {
		if errors.Is(err, credential.ErrCorruptHash) {
			s.logger.Warnf("corrupt password hash for user %s: %v", user.ID, err)
		}
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, nil, err
	}

	return pair, sanitizeUser(user), nil
}

// Refresh exchanges a currently valid refresh token for a new pair, rotating
// the stored token. Every failure branch reports ErrNoSession.
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}

	claims, err := s.verifier.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrNoSession
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	pair, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// Rotation check and overwrite in one atomic step: a stale, rotated or
	// stolen token loses here even though its signature still verifies.
	if err := s.users.SwapRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenMismatch) || errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	return pair, nil
}

// Authorize validates an access token and returns the subject user id.
func (s *sessionService) Authorize(_ context.Context, accessToken string) (string, error) {
	claims, err := s.verifier.VerifyAccess(accessToken)
	if err != nil {
		return "", errors.Join(ErrUnauthorized, err)
	}
	return claims.UserID, nil
}

func (s *sessionService) issuePair(userID string) (*TokenPair, error) {
	access, err := s.issuer.IssueAccess(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
