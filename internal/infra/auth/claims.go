package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"homeloan-paywall/internal/domain/model"
)

var (
	ErrMissingToken    = errors.New("missing token")
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnverifiedEmail = errors.New("token email missing or unverified")
)

// IdentityClaims is the subset of OIDC ID-token claims the paywall relies on.
type IdentityClaims struct {
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"` // bool, or "true" from some providers
	Name          string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func (c *IdentityClaims) principal() (*model.Principal, error) {
	email := model.NormalizeEmail(c.Email)
	if email == "" || !isTrue(c.EmailVerified) {
		return nil, ErrUnverifiedEmail
	}
	return &model.Principal{Email: email, Name: strings.TrimSpace(c.Name)}, nil
}

func isTrue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}
