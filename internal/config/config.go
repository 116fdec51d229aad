// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. PAYWALL_DATABASE_URL.
const EnvPrefix = "PAYWALL_"

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr           string        `yaml:"addr" env:"ADDR"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

type LogConfig struct {
	Level    string `yaml:"level" env:"LEVEL"`       // trace|debug|info|warn|error
	Format   string `yaml:"format" env:"FORMAT"`     // json|console
	Sampling bool   `yaml:"sampling" env:"SAMPLING"` // enable sampling in prod
}

type DatabaseConfig struct {
	// Driver selects the entitlement store: postgres | memory.
	Driver string `yaml:"driver" env:"DRIVER"`
	URL    string `yaml:"url" env:"URL"`
}

type RedisConfig struct {
	URL       string `yaml:"url" env:"URL"`
	Password  string `yaml:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" env:"KEY_PREFIX"`
}

type CashfreeConfig struct {
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
	APIVersion   string `yaml:"api_version" env:"API_VERSION"`
	Sandbox      bool   `yaml:"sandbox" env:"SANDBOX"`
	BaseURL      string `yaml:"base_url" env:"BASE_URL"` // overrides the sandbox/production default
}

type PaymentConfig struct {
	// Gateway selects the provider adapter: cashfree | noop.
	Gateway        string         `yaml:"gateway" env:"GATEWAY"`
	Price          string         `yaml:"price" env:"PRICE"`
	Currency       string         `yaml:"currency" env:"CURRENCY"`
	ReturnURL      string         `yaml:"return_url" env:"RETURN_URL"` // may contain {order_id}
	NotifyURL      string         `yaml:"notify_url" env:"NOTIFY_URL"`
	WebhookSecret  string         `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	ReplayWindow   time.Duration  `yaml:"replay_window" env:"REPLAY_WINDOW"`
	GatewayTimeout time.Duration  `yaml:"gateway_timeout" env:"GATEWAY_TIMEOUT"`
	CustomerPhone  string         `yaml:"customer_phone" env:"CUSTOMER_PHONE"`
	Cashfree       CashfreeConfig `yaml:"cashfree" envPrefix:"CASHFREE_"`

	price decimal.Decimal
}

// Amount is Price parsed during load.
func (p PaymentConfig) Amount() decimal.Decimal { return p.price }

type EntitlementConfig struct {
	WindowDays  int      `yaml:"window_days" env:"WINDOW_DAYS"`
	AdminEmails []string `yaml:"admin_emails" env:"ADMIN_EMAILS" envSeparator:","`
}

func (e EntitlementConfig) Window() time.Duration {
	return time.Duration(e.WindowDays) * 24 * time.Hour
}

type AuthConfig struct {
	// Mode selects the token verifier: session | jwks.
	Mode       string `yaml:"mode" env:"MODE"`
	Secret     string `yaml:"secret" env:"SECRET"`
	CookieName string `yaml:"cookie_name" env:"COOKIE_NAME"`
	Issuer     string `yaml:"issuer" env:"ISSUER"`
	Audience   string `yaml:"audience" env:"AUDIENCE"`
	JWKSURL    string `yaml:"jwks_url" env:"JWKS_URL"`
}

type LimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	// Backend selects the counter store: local | redis.
	Backend     string      `yaml:"backend" env:"BACKEND"`
	OrderVerify LimitConfig `yaml:"order_verify" envPrefix:"ORDER_VERIFY_"`
	Webhook     LimitConfig `yaml:"webhook" envPrefix:"WEBHOOK_"`
	Entitlement LimitConfig `yaml:"entitlement" envPrefix:"ENTITLEMENT_"`
	OrderCreate LimitConfig `yaml:"order_create" envPrefix:"ORDER_CREATE_"`
}

type WorkersConfig struct {
	StatsInterval time.Duration `yaml:"stats_interval" env:"STATS_INTERVAL"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

type Config struct {
	HTTP        HTTPConfig        `yaml:"http" envPrefix:"HTTP_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
	Database    DatabaseConfig    `yaml:"database" envPrefix:"DATABASE_"`
	Redis       RedisConfig       `yaml:"redis" envPrefix:"REDIS_"`
	Payment     PaymentConfig     `yaml:"payment" envPrefix:"PAYMENT_"`
	Entitlement EntitlementConfig `yaml:"entitlement" envPrefix:"ENTITLEMENT_"`
	Auth        AuthConfig        `yaml:"auth" envPrefix:"AUTH_"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Workers     WorkersConfig     `yaml:"workers" envPrefix:"WORKERS_"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, overlays PAYWALL_* environment variables, then applies
// defaults and validation.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.ReadTimeout = orDuration(cfg.HTTP.ReadTimeout, 10*time.Second)
	cfg.HTTP.WriteTimeout = orDuration(cfg.HTTP.WriteTimeout, 30*time.Second)
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 20*time.Second)
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = 64 << 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "paywall:rl:"
	}

	if cfg.Payment.Gateway == "" {
		cfg.Payment.Gateway = "cashfree"
	}
	if cfg.Payment.Price == "" {
		cfg.Payment.Price = "999.00"
	}
	if cfg.Payment.Currency == "" {
		cfg.Payment.Currency = "INR"
	}
	cfg.Payment.ReplayWindow = orDuration(cfg.Payment.ReplayWindow, 300*time.Second)
	cfg.Payment.GatewayTimeout = orDuration(cfg.Payment.GatewayTimeout, 15*time.Second)
	if cfg.Payment.CustomerPhone == "" {
		cfg.Payment.CustomerPhone = "9999999999"
	}
	if cfg.Payment.Cashfree.APIVersion == "" {
		cfg.Payment.Cashfree.APIVersion = "2023-08-01"
	}

	if cfg.Entitlement.WindowDays <= 0 {
		cfg.Entitlement.WindowDays = 365
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "session"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "session"
	}

	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "local"
	}
	cfg.RateLimit.OrderVerify = orLimit(cfg.RateLimit.OrderVerify, 20, 10*time.Minute)
	cfg.RateLimit.Webhook = orLimit(cfg.RateLimit.Webhook, 100, 5*time.Minute)
	cfg.RateLimit.Entitlement = orLimit(cfg.RateLimit.Entitlement, 60, time.Minute)
	cfg.RateLimit.OrderCreate = orLimit(cfg.RateLimit.OrderCreate, 10, 10*time.Minute)

	cfg.Workers.StatsInterval = orDuration(cfg.Workers.StatsInterval, time.Minute)
	cfg.Workers.SweepInterval = orDuration(cfg.Workers.SweepInterval, time.Minute)
}

func validate(cfg *Config) error {
	price, err := decimal.NewFromString(strings.TrimSpace(cfg.Payment.Price))
	if err != nil || !price.IsPositive() {
		return fmt.Errorf("payment.price must be a positive amount, got %q", cfg.Payment.Price)
	}
	cfg.Payment.price = price.Round(2)

	if cfg.Payment.WebhookSecret == "" {
		return errors.New("payment.webhook_secret is required")
	}
	switch cfg.Payment.Gateway {
	case "cashfree":
		if cfg.Payment.Cashfree.ClientID == "" || cfg.Payment.Cashfree.ClientSecret == "" {
			return errors.New("payment.cashfree.client_id and client_secret are required")
		}
	case "noop":
	default:
		return fmt.Errorf("payment.gateway %q is not supported", cfg.Payment.Gateway)
	}

	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver)
	}

	switch cfg.RateLimit.Backend {
	case "local":
	case "redis":
		if cfg.Redis.URL == "" {
			return errors.New("redis.url is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("rate_limit.backend %q is not supported", cfg.RateLimit.Backend)
	}

	switch cfg.Auth.Mode {
	case "session":
		if cfg.Auth.Secret == "" {
			return errors.New("auth.secret is required in session mode")
		}
	case "jwks":
		if cfg.Auth.JWKSURL == "" {
			return errors.New("auth.jwks_url is required in jwks mode")
		}
	default:
		return fmt.Errorf("auth.mode %q is not supported", cfg.Auth.Mode)
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func orLimit(l LimitConfig, limit int, window time.Duration) LimitConfig {
	if l.Limit <= 0 {
		l.Limit = limit
	}
	l.Window = orDuration(l.Window, window)
	return l
}
