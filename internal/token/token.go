// Package token mints and verifies the signed JWTs that carry a session:
// a short-lived access token and a long-lived refresh token, signed with
// distinct secrets so one category never verifies as the other.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformed indicates the token is not structurally a JWT.
	ErrMalformed = errors.New("malformed token")
	// ErrBadSignature indicates the signature does not verify against the
	// category key.
	ErrBadSignature = errors.New("invalid token signature")
	// ErrExpired indicates the token was valid but its expiry has passed.
	ErrExpired = errors.New("token expired")
)

// Claims is the claim set embedded in every issued token.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Config carries the signing secrets and validity windows for both token
// categories.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer mints access and refresh tokens for an already-authenticated user.
// Callers must never pass an unvalidated user id.
type Issuer struct {
	cfg Config
}

func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg}
}

// IssueAccess signs a short-lived access token for userID.
func (i *Issuer) IssueAccess(userID string) (string, error) {
	return sign(userID, i.cfg.AccessSecret, i.cfg.AccessTTL)
}

// IssueRefresh signs a long-lived refresh token for userID.
func (i *Issuer) IssueRefresh(userID string) (string, error) {
	return sign(userID, i.cfg.RefreshSecret, i.cfg.RefreshTTL)
}

func sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			// unique jti keeps two tokens minted for the same subject in the
			// same second from being byte-identical, which rotation relies on
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier validates presented tokens and extracts their claims.
type Verifier struct {
	cfg Config
}

func NewVerifier(cfg Config) *Verifier {
	return &Verifier{cfg: cfg}
}

// VerifyAccess validates an access token and returns its claims.
func (v *Verifier) VerifyAccess(tokenString string) (*Claims, error) {
	return verify(tokenString, v.cfg.AccessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (v *Verifier) VerifyRefresh(tokenString string) (*Claims, error) {
	return verify(tokenString, v.cfg.RefreshSecret)
}

// verify checks structure, then signature, then expiry; the first failing
// check determines the returned error and no claims are released on any
// failure.
func verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if !tok.Valid {
		return nil, ErrBadSignature
	}
	return claims, nil
}
