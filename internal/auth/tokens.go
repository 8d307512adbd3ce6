package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Account registration and login live in the identity service. This package
// only verifies the HS256 tokens it issues, and mints tokens for local tools.

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier resolves a bearer token to a user id
type TokenVerifier interface {
	ValidateToken(tokenString string) (string, error)
}

// TokenService signs and validates HS256 JWTs carrying a user_id claim
type TokenService struct {
	jwtSecret []byte
	now       func() time.Time
}

var _ TokenVerifier = (*TokenService)(nil)

// NewTokenService creates a token service for the shared secret
func NewTokenService(secret []byte) *TokenService {
	return &TokenService{jwtSecret: secret, now: time.Now}
}

// GenerateToken creates a token for userID valid for ttl
func (s *TokenService) GenerateToken(userID string, ttl time.Duration) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("user id is required")
	}

	now := s.now()
	expiresAt := now.Add(ttl)
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns its user id
func (s *TokenService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid claims", ErrInvalidToken)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}

	return userID, nil
}
