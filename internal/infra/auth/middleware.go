package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/domain/model"
	"homeloan-paywall/internal/infra/logging"
)

// Verifier is the authentication oracle: token in, verified principal out.
type Verifier interface {
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// TokenFromRequest reads "Authorization: Bearer <jwt>" first, then the session cookie.
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		tok, ok := extractBearerToken(hdr)
		if !ok {
			return "", ErrInvalidToken
		}
		return tok, nil
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", ErrMissingToken
}

// Require rejects requests without a verified principal and stores it in the request context.
func Require(v Verifier, cookieName string, log *zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := TokenFromRequest(r, cookieName)
			if err != nil {
				respondUnauthorized(w)
				return
			}
			p, err := v.Verify(r.Context(), tok)
			if err != nil {
				logging.With(r.Context(), log).Info().Err(err).Str("path", r.URL.Path).Msg("auth failure")
				respondUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
