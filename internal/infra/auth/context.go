// Package auth turns bearer tokens and session cookies into verified principals.
package auth

import (
	"context"

	"homeloan-paywall/internal/domain/model"
)

type ctxKey int

const principalKey ctxKey = iota

func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*model.Principal)
	return p, ok && p != nil
}
