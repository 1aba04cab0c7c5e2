// Package auth protects the API with the configured editor account: a login
// endpoint issues JWTs and the middleware accepts either a Bearer token or
// HTTP Basic credentials.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims represents the JWT claims.
type Claims struct {
	jwt.RegisteredClaims
}

// DefaultTokenTTL applies when no lifetime is configured.
const DefaultTokenTTL = 24 * time.Hour

// GenerateAccessToken creates a signed JWT for the given user.
func GenerateAccessToken(username, secret string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// ParseAccessToken validates and parses a JWT, returning the claims.
func ParseAccessToken(tokenStr string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Account is the single editor account. Only the password hash is kept.
type Account struct {
	Username     string
	PasswordHash string
}

// NewAccount hashes password once at startup.
func NewAccount(username, password string) (*Account, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("auth username and password are required")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &Account{Username: username, PasswordHash: hash}, nil
}

// Verify checks a username/password pair against the account.
func (a *Account) Verify(username, password string) bool {
	if a == nil || username != a.Username {
		return false
	}
	return CheckPassword(password, a.PasswordHash)
}
