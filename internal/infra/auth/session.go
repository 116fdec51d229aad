package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"homeloan-paywall/internal/domain/model"
)

const sessionIssuer = "homeloan-paywall"

// SessionVerifier validates HS256 session tokens issued by the sign-in flow.
type SessionVerifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewSessionVerifier(secret string) (*SessionVerifier, error) {
	if secret == "" {
		return nil, errors.New("session secret empty")
	}
	return &SessionVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
			jwt.WithIssuer(sessionIssuer),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(30*time.Second),
		),
	}, nil
}

func (s *SessionVerifier) Verify(_ context.Context, token string) (*model.Principal, error) {
	claims := &IdentityClaims{}
	tkn, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.principal()
}

// Mint issues a session token for p. Used by the sign-in callback and by tests.
func (s *SessionVerifier) Mint(p model.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Email:         model.NormalizeEmail(p.Email),
		EmailVerified: true,
		Name:          p.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			Subject:   model.NormalizeEmail(p.Email),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
