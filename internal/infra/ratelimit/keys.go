package ratelimit

import (
	"time"

	"homeloan-paywall/internal/config"
	"homeloan-paywall/internal/domain/ports/adapter"
)

type Policies struct {
	OrderVerify adapter.RateLimitPolicy
	Webhook     adapter.RateLimitPolicy
	Entitlement adapter.RateLimitPolicy
	OrderCreate adapter.RateLimitPolicy
}

func PoliciesFromConfig(cfg config.RateLimitConfig) Policies {
	return Policies{
		OrderVerify: adapter.RateLimitPolicy{Name: "order-verify", Limit: cfg.OrderVerify.Limit, Window: cfg.OrderVerify.Window},
		Webhook:     adapter.RateLimitPolicy{Name: "webhook", Limit: cfg.Webhook.Limit, Window: cfg.Webhook.Window},
		Entitlement: adapter.RateLimitPolicy{Name: "entitlement", Limit: cfg.Entitlement.Limit, Window: cfg.Entitlement.Window},
		OrderCreate: adapter.RateLimitPolicy{Name: "order-create", Limit: cfg.OrderCreate.Limit, Window: cfg.OrderCreate.Window},
	}
}

// DefaultPolicies mirrors the config defaults.
func DefaultPolicies() Policies {
	return Policies{
		OrderVerify: adapter.RateLimitPolicy{Name: "order-verify", Limit: 20, Window: 10 * time.Minute},
		Webhook:     adapter.RateLimitPolicy{Name: "webhook", Limit: 100, Window: 5 * time.Minute},
		Entitlement: adapter.RateLimitPolicy{Name: "entitlement", Limit: 60, Window: time.Minute},
		OrderCreate: adapter.RateLimitPolicy{Name: "order-create", Limit: 10, Window: 10 * time.Minute},
	}
}
