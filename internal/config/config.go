package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration required by the API process.
// All values come from env (optionally a .env file in local/dev).
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Revocation RevocationConfig
	Directory  DirectoryConfig
}

type AppConfig struct {
	Env  string `envconfig:"APP_ENV"`
	Port int    `envconfig:"APP_PORT" default:"8080"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER"`
	Password string `envconfig:"DB_PASSWORD"`
	Name     string `envconfig:"DB_NAME"`

	MaxOpenConns int `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`

	// SSLMode accepts: disable, require, verify-ca, verify-full
	SSLMode string `envconfig:"DB_SSLMODE"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB"`

	ReadTimeout time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"500ms"`
}

type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
	// JWTKeyID names the active signing key; it is written to the kid header.
	JWTKeyID string `envconfig:"JWT_KEY_ID" default:"k1"`
	// JWTVerifyKeys holds retired keys (kid:secret,...) that still verify
	// outstanding tokens. The active key is always accepted.
	JWTVerifyKeys map[string]string `envconfig:"JWT_VERIFY_KEYS"`

	JWTIssuer   string `envconfig:"JWT_ISSUER"`
	JWTAudience string `envconfig:"JWT_AUDIENCE"`

	AccessTokenTTL  time.Duration `envconfig:"JWT_ACCESS_TTL"`
	RefreshTokenTTL time.Duration `envconfig:"JWT_REFRESH_TTL"`
	// Leeway tolerates clock skew on iat only; expiry is exact.
	Leeway time.Duration `envconfig:"JWT_LEEWAY"`
}

type RevocationConfig struct {
	Backend       string        `envconfig:"REVOCATION_BACKEND" default:"memory"`
	KeyPrefix     string        `envconfig:"REVOCATION_KEY_PREFIX" default:"hr:revoked:"`
	SweepInterval time.Duration `envconfig:"REVOCATION_SWEEP_INTERVAL"`
}

type DirectoryConfig struct {
	Backend              string `envconfig:"DIRECTORY_BACKEND" default:"memory"`
	BootstrapAdminID     string `envconfig:"BOOTSTRAP_ADMIN_ID"`
	BootstrapAdminSecret string `envconfig:"BOOTSTRAP_ADMIN_SECRET"`
}

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

func Load() (Config, error) {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "local" || env == "dev" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("no .env file loaded", "err", err)
		}
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	c.App.Env = strings.TrimSpace(c.App.Env)
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.NeedsPostgres() {
		errs = append(errs, c.validateDB()...)
	}

	if c.Revocation.Backend == BackendRedis {
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required for the redis revocation backend"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	}

	switch c.Revocation.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("REVOCATION_BACKEND must be one of memory, redis, postgres, got %q", c.Revocation.Backend))
	}
	if c.Revocation.SweepInterval <= 0 {
		c.Revocation.SweepInterval = time.Minute
	}

	switch c.Directory.Backend {
	case BackendMemory:
		if c.IsProduction() {
			errs = append(errs, errors.New("DIRECTORY_BACKEND=memory is not allowed in production"))
		}
	case BackendPostgres:
	default:
		errs = append(errs, fmt.Errorf("DIRECTORY_BACKEND must be one of memory, postgres, got %q", c.Directory.Backend))
	}

	errs = append(errs, c.validateAuth()...)

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c *Config) validateAuth() []error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters in production"))
	}
	c.Auth.JWTKeyID = strings.TrimSpace(c.Auth.JWTKeyID)
	if c.Auth.JWTKeyID == "" {
		errs = append(errs, errors.New("JWT_KEY_ID is required"))
	}
	for kid, secret := range c.Auth.JWTVerifyKeys {
		if strings.TrimSpace(kid) == "" || secret == "" {
			errs = append(errs, errors.New("JWT_VERIFY_KEYS entries must be kid:secret"))
			break
		}
		if kid == c.Auth.JWTKeyID && secret != c.Auth.JWTSecret {
			errs = append(errs, fmt.Errorf("JWT_VERIFY_KEYS redefines the active kid %q", kid))
		}
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	if c.Auth.Leeway < 0 || c.Auth.Leeway > 2*time.Minute {
		errs = append(errs, fmt.Errorf("JWT_LEEWAY must be between 0 and 2m, got %s", c.Auth.Leeway))
	} else if c.Auth.Leeway == 0 {
		c.Auth.Leeway = 30 * time.Second
	}
	return errs
}

// NeedsPostgres reports whether any configured backend uses the database.
func (c Config) NeedsPostgres() bool {
	return c.Revocation.Backend == BackendPostgres || c.Directory.Backend == BackendPostgres
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
