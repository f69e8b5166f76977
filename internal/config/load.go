package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			CORSOrigins:  []string{"*"},
			RateLimitRPS: 20,
			RateBurst:    40,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			DBName:   "companion",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		NewRelic: NewRelicConfig{
			AppName: "companion-matching",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Session: SessionConfig{
			TTL: 24 * time.Hour,
		},
		Matching: MatchingConfig{
			LookupTimeout:           2 * time.Second,
			MaxConcurrency:          16,
			DateOverlapWeight:       30,
			ProfileBatchWait:        2 * time.Millisecond,
			ProfileCacheTTL:         5 * time.Minute,
			BreakerTimeout:          30 * time.Second,
			BreakerFailureThreshold: 5,
		},
	}
}

// envMappings maps environment variables to koanf paths. Anything not
// listed is ignored.
var envMappings = map[string]string{
	"server_port":          "server.port",
	"server_read_timeout":  "server.read_timeout",
	"server_write_timeout": "server.write_timeout",
	"cors_origins":         "server.cors_origins",
	"rate_limit_rps":       "server.rate_limit_rps",
	"rate_limit_burst":     "server.rate_limit_burst",

	"db_host":         "database.host",
	"db_port":         "database.port",
	"db_user":         "database.user",
	"db_password":     "database.password",
	"db_name":         "database.name",
	"db_sslmode":      "database.sslmode",
	"db_auto_migrate": "database.auto_migrate",

	"redis_addr":     "redis.addr",
	"redis_password": "redis.password",
	"redis_db":       "redis.db",

	"new_relic_app_name":    "newrelic.app_name",
	"new_relic_license_key": "newrelic.license_key",
	"new_relic_enabled":     "newrelic.enabled",

	"log_level":  "log.level",
	"log_format": "log.format",

	"jwt_secret": "auth.jwt_secret",

	"session_ttl": "session.ttl",

	"match_lookup_timeout":            "matching.lookup_timeout",
	"match_max_concurrency":           "matching.max_concurrency",
	"match_date_overlap_bonus":        "matching.date_overlap_bonus",
	"match_date_overlap_weight":       "matching.date_overlap_weight",
	"match_max_budget_gap":            "matching.max_budget_gap",
	"match_profile_batch_wait":        "matching.profile_batch_wait",
	"match_profile_cache_ttl":         "matching.profile_cache_ttl",
	"match_breaker_timeout":           "matching.breaker_timeout",
	"match_breaker_failure_threshold": "matching.breaker_failure_threshold",
}

var sliceConfigPaths = []string{"server.cors_origins"}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
