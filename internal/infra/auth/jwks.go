package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"homeloan-paywall/internal/domain/model"
)

// JWKSVerifier validates identity-provider ID tokens against the provider's published keys.
type JWKSVerifier struct {
	keyfunc keyfunc.Keyfunc
	parser  *jwt.Parser
}

// NewJWKSVerifier fetches the key set once and keeps it refreshed in the background.
// Empty issuer or audience skips that check.
func NewJWKSVerifier(jwksURL, issuer, audience string) (*JWKSVerifier, error) {
	if strings.TrimSpace(jwksURL) == "" {
		return nil, errors.New("jwks url must be set")
	}
	kf, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
	}

	opts := []jwt.ParserOption{
		jwt.WithLeeway(30 * time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name, jwt.SigningMethodRS384.Name, jwt.SigningMethodRS512.Name, jwt.SigningMethodES256.Name}),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWKSVerifier{keyfunc: kf, parser: jwt.NewParser(opts...)}, nil
}

func (v *JWKSVerifier) Verify(_ context.Context, token string) (*model.Principal, error) {
	claims := &IdentityClaims{}
	tkn, err := v.parser.ParseWithClaims(token, claims, v.keyfunc.Keyfunc)
	if err != nil || !tkn.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.principal()
}
