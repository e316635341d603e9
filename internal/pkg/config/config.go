package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/fourseasons/crowdfunding-api/internal/core/domain"
)

const minSecretLength = 32

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	JWT      JWTConfig
	Security SecurityConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Activity ActivityConfig
}

// JWTConfig has no defaults: both values must come from the hosting environment.
type JWTConfig struct {
	Secret       string `env:"JWT_SECRET,        required"`
	ExpirationMs int64  `env:"JWT_EXPIRATION_MS, required"`
}

type SecurityConfig struct {
	MaxFailedLogins int           `env:"LOCKOUT_MAX_FAILURES, default=5"`
	LockoutWindow   time.Duration `env:"LOCKOUT_WINDOW,       default=30m"`
	BcryptCost      int           `env:"BCRYPT_COST,          default=10"`
	IdempotencyTTL  time.Duration `env:"IDEMPOTENCY_TTL,      default=24h"`
	AuthRateLimit   float64       `env:"AUTH_RATE_LIMIT,      default=5"`
	AuthRateBurst   int           `env:"AUTH_RATE_BURST,      default=10"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=crowdfunding"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type ActivityConfig struct {
	Workers int `env:"ACTIVITY_WORKERS, default=4"`
}

// LockoutPolicy returns the configured failed-login lockout policy.
func (c *Config) LockoutPolicy() domain.LockoutPolicy {
	return domain.LockoutPolicy{
		MaxFailures: c.Security.MaxFailedLogins,
		Window:      c.Security.LockoutWindow,
	}
}

// TokenTTL returns the configured token lifetime.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpirationMs) * time.Millisecond
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate rejects configurations that would make tokens insecure or unusable.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.JWT.ExpirationMs <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MS must be positive"))
	}
	if c.Security.MaxFailedLogins <= 0 {
		errs = append(errs, errors.New("LOCKOUT_MAX_FAILURES must be positive"))
	}
	if c.Security.LockoutWindow <= 0 {
		errs = append(errs, errors.New("LOCKOUT_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads and validates configuration from lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
