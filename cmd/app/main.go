// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"homeloan-paywall/internal/clock"
	"homeloan-paywall/internal/config"
	"homeloan-paywall/internal/domain/ports/adapter"
	"homeloan-paywall/internal/domain/ports/repository"
	payAdapters "homeloan-paywall/internal/infra/adapters/payment"
	"homeloan-paywall/internal/infra/api"
	"homeloan-paywall/internal/infra/auth"
	"homeloan-paywall/internal/infra/db/memory"
	pg "homeloan-paywall/internal/infra/db/postgres"
	"homeloan-paywall/internal/infra/logging"
	"homeloan-paywall/internal/infra/metrics"
	"homeloan-paywall/internal/infra/ratelimit"
	red "homeloan-paywall/internal/infra/redis"
	"homeloan-paywall/internal/infra/sched"
	"homeloan-paywall/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister(nil)
	metrics.SetBuildInfo(version, commit)
	clk := clock.Real()

	// ---- Storage ----
	var (
		tm        repository.TransactionManager
		payRepo   repository.PaymentRepository
		subRepo   repository.SubscriptionRepository
		poolStats sched.PoolStatsFunc
	)
	switch cfg.Database.Driver {
	case "memory":
		logger.Warn().Msg("using in-memory store; payments are lost on restart")
		store := memory.NewStore()
		tm, payRepo, subRepo = store, store.Payments(), store.Subscriptions()
	default:
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		tm, payRepo, subRepo = pg.NewTxManager(pool), pg.NewPaymentRepo(pool), pg.NewSubscriptionRepo(pool)
		poolStats = func() (int32, int32, int32, int32) {
			s := pool.Stat()
			return s.TotalConns(), s.IdleConns(), s.AcquiredConns(), s.MaxConns()
		}
	}

	// ---- Rate limiting ----
	var (
		limiter adapter.RateLimiter
		local   *ratelimit.Local
	)
	switch cfg.RateLimit.Backend {
	case "redis":
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient, cfg.Redis.KeyPrefix)
	default:
		local = ratelimit.NewLocal(clk)
		limiter = local
	}
	limiter = ratelimit.NewInstrumented(limiter, logger)
	policies := ratelimit.PoliciesFromConfig(cfg.RateLimit)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	switch cfg.Payment.Gateway {
	case "noop":
		logger.Warn().Msg("using noop payment gateway; orders never become PAID on their own")
		gateway = payAdapters.NewNoopPaymentGateway()
	default:
		cf := cfg.Payment.Cashfree
		gateway, err = payAdapters.NewCashfreeGateway(payAdapters.CashfreeOptions{
			ClientID:     cf.ClientID,
			ClientSecret: cf.ClientSecret,
			APIVersion:   cf.APIVersion,
			Sandbox:      cf.Sandbox,
			BaseURL:      cf.BaseURL,
			Timeout:      cfg.Payment.GatewayTimeout,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("cashfree gateway")
		}
	}

	// ---- Authentication ----
	var verifier auth.Verifier
	switch cfg.Auth.Mode {
	case "jwks":
		verifier, err = auth.NewJWKSVerifier(cfg.Auth.JWKSURL, cfg.Auth.Issuer, cfg.Auth.Audience)
	default:
		verifier, err = auth.NewSessionVerifier(cfg.Auth.Secret)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("auth")
	}

	// ---- Use cases ----
	dev := cfg.Runtime.Dev
	orderUC := usecase.NewOrderUseCase(gateway, limiter, policies.OrderCreate, usecase.OrderSettings{
		Amount:        cfg.Payment.Amount(),
		Currency:      cfg.Payment.Currency,
		ReturnURL:     cfg.Payment.ReturnURL,
		NotifyURL:     cfg.Payment.NotifyURL,
		CustomerPhone: cfg.Payment.CustomerPhone,
	}, clk, logger, dev)
	reconcileUC := usecase.NewReconcileUseCase(tm, payRepo, subRepo, gateway, limiter,
		usecase.ReconcilePolicies{OrderVerify: policies.OrderVerify, Webhook: policies.Webhook},
		usecase.ReconcileSettings{
			ExpectedAmount: cfg.Payment.Amount(),
			Currency:       cfg.Payment.Currency,
			WebhookSecret:  cfg.Payment.WebhookSecret,
			ReplayWindow:   cfg.Payment.ReplayWindow,
			GatewayTimeout: cfg.Payment.GatewayTimeout,
		}, clk, logger, dev)
	entitlementUC := usecase.NewEntitlementUseCase(subRepo, cfg.Entitlement.AdminEmails, cfg.Entitlement.Window(),
		limiter, policies.Entitlement, clk, logger, dev)

	// ---- Workers ----
	statsWorker := sched.NewStatsWorker(cfg.Workers.StatsInterval, entitlementUC, poolStats, logger)
	go func() { _ = statsWorker.Run(ctx) }()
	if local != nil {
		sweeper := sched.NewSweepWorker(cfg.Workers.SweepInterval, local, clk, logger)
		go func() { _ = sweeper.Run(ctx) }()
	}

	// ---- HTTP ----
	srv := api.NewServer(orderUC, reconcileUC, entitlementUC, verifier, api.Options{
		CookieName:     cfg.Auth.CookieName,
		Currency:       cfg.Payment.Currency,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	}, logger)
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("gateway", gateway.Name()).
			Str("store", cfg.Database.Driver).
			Str("rate_limit", cfg.RateLimit.Backend).
			Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// ---- Graceful shutdown ----
	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
