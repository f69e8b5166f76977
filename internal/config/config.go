package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	NewRelic NewRelicConfig `koanf:"newrelic"`
	Log      LogConfig      `koanf:"log"`
	Auth     AuthConfig     `koanf:"auth"`
	Session  SessionConfig  `koanf:"session"`
	Matching MatchingConfig `koanf:"matching"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	CORSOrigins  []string      `koanf:"cors_origins"`
	RateLimitRPS float64       `koanf:"rate_limit_rps"` // 0 disables
	RateBurst    int           `koanf:"rate_limit_burst"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`

	// AutoMigrate applies the schema on startup.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string `koanf:"app_name"`
	LicenseKey string `koanf:"license_key"`
	Enabled    bool   `koanf:"enabled"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig holds bearer token settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

// SessionConfig holds trip intent storage settings.
type SessionConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// MatchingConfig tunes the matcher.
type MatchingConfig struct {
	// LookupTimeout bounds every individual store call.
	LookupTimeout time.Duration `koanf:"lookup_timeout"`
	// MaxConcurrency bounds in-flight candidate profile lookups.
	MaxConcurrency int `koanf:"max_concurrency"`
	// DateOverlapBonus enables the optional date-range criterion.
	DateOverlapBonus  bool `koanf:"date_overlap_bonus"`
	DateOverlapWeight int  `koanf:"date_overlap_weight"`
	// MaxBudgetGap drops candidates whose budget differs by more. 0 disables.
	MaxBudgetGap float64 `koanf:"max_budget_gap"`
	// ProfileBatchWait is how long the profile loader collects keys.
	ProfileBatchWait time.Duration `koanf:"profile_batch_wait"`
	ProfileCacheTTL  time.Duration `koanf:"profile_cache_ttl"`

	BreakerTimeout          time.Duration `koanf:"breaker_timeout"`
	BreakerFailureThreshold uint32        `koanf:"breaker_failure_threshold"`
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, errors.New("server.rate_limit_rps must not be negative"))
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateBurst <= 0 {
		errs = append(errs, errors.New("server.rate_limit_burst must be positive when rate limiting is enabled"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.Matching.LookupTimeout <= 0 {
		errs = append(errs, errors.New("matching.lookup_timeout must be positive"))
	}
	if c.Matching.MaxConcurrency <= 0 {
		errs = append(errs, errors.New("matching.max_concurrency must be positive"))
	}
	if c.Matching.DateOverlapWeight < 0 {
		errs = append(errs, errors.New("matching.date_overlap_weight must not be negative"))
	}
	if c.Matching.MaxBudgetGap < 0 {
		errs = append(errs, errors.New("matching.max_budget_gap must not be negative"))
	}
	if c.NewRelic.Enabled && c.NewRelic.LicenseKey == "" {
		errs = append(errs, errors.New("newrelic.license_key is required when newrelic is enabled"))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}

	return errors.Join(errs...)
}
