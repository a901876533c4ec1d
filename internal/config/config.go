package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Cache     CacheConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Scheduler SchedulerConfig
	Render    RenderConfig
	Breaker   BreakerConfig
	Logging   LoggingConfig
	Catalog   CatalogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SourceConfig struct {
	BaseURL        string
	RosterPath     string
	HeroPathSuffix string
}

// Cache backends
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendTiered   = "tiered"
	BackendMemory   = "memory"
)

// Refresh policies
const (
	PolicySingleFlight = "singleflight"
	PolicyDirect       = "direct"
)

type CacheConfig struct {
	Backend           string
	InteractiveStale  time.Duration
	PrewarmStale      time.Duration
	RefreshPolicy     string
	ServeStaleOnError bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type SchedulerConfig struct {
	Enabled     bool
	Interval    time.Duration
	Concurrency int
}

type RenderConfig struct {
	Timeout     time.Duration
	Headless    bool
	ExecPath    string
	UserAgent   string
	WaitVisible string
}

type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

type LoggingConfig struct {
	Level  string
	File   string
	Format string
}

type CatalogConfig struct {
	Heroes []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("HOST", "127.0.0.1"),
			Port:            getEnvInt("PORT", 3000),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Source: SourceConfig{
			BaseURL:        strings.TrimRight(getEnv("SOURCE_BASE_URL", "https://www.heroesprofile.com"), "/"),
			RosterPath:     getEnv("SOURCE_ROSTER_PATH", "/Global/Hero"),
			HeroPathSuffix: getEnv("SOURCE_HERO_PATH", "/Global/Talents?hero="),
		},
		Cache: CacheConfig{
			Backend:           strings.ToLower(getEnv("CACHE_BACKEND", BackendRedis)),
			InteractiveStale:  getEnvDuration("CACHE_STALE_AFTER", 12*time.Hour),
			PrewarmStale:      getEnvDuration("PREWARM_STALE_AFTER", 2*time.Hour),
			RefreshPolicy:     strings.ToLower(getEnv("REFRESH_POLICY", PolicySingleFlight)),
			ServeStaleOnError: getEnvBool("SERVE_STALE_ON_ERROR", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "herobuilds"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "herobuilds"),
		},
		Scheduler: SchedulerConfig{
			Enabled:     getEnvBool("PREWARM_ENABLED", true),
			Interval:    getEnvDuration("PREWARM_INTERVAL", 3*time.Hour),
			Concurrency: getEnvInt("PREWARM_CONCURRENCY", 1),
		},
		Render: RenderConfig{
			Timeout:     getEnvDuration("RENDER_TIMEOUT", 45*time.Second),
			Headless:    getEnvBool("RENDER_HEADLESS", true),
			ExecPath:    getEnv("CHROME_PATH", ""),
			UserAgent:   getEnv("RENDER_USER_AGENT", "Mozilla/5.0 (compatible; HeroBuildsBot/1.0)"),
			WaitVisible: getEnv("RENDER_WAIT_SELECTOR", "body"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			ResetTimeout:     getEnvDuration("BREAKER_RESET_TIMEOUT", 10*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			File:   getEnv("LOG_FILE", ""),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "console")),
		},
		Catalog: CatalogConfig{
			Heroes: parseCommaSeparated(getEnv("HERO_CATALOG", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Source.BaseURL == "" {
		return fmt.Errorf("SOURCE_BASE_URL is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Cache.Backend {
	case BackendRedis, BackendPostgres, BackendTiered, BackendMemory:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of redis, postgres, tiered, memory; got %q", c.Cache.Backend)
	}
	switch c.Cache.RefreshPolicy {
	case PolicySingleFlight, PolicyDirect:
	default:
		return fmt.Errorf("REFRESH_POLICY must be singleflight or direct; got %q", c.Cache.RefreshPolicy)
	}
	if c.Cache.InteractiveStale <= 0 || c.Cache.PrewarmStale <= 0 {
		return fmt.Errorf("freshness windows must be positive")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("PREWARM_INTERVAL must be positive")
	}
	if c.Scheduler.Concurrency < 1 {
		return fmt.Errorf("PREWARM_CONCURRENCY must be at least 1")
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT must be positive")
	}
	return nil
}

// RosterURL is the page listing every hero.
func (s SourceConfig) RosterURL() string {
	return s.BaseURL + s.RosterPath
}

// HeroURL is the detail page of one hero; the name is appended verbatim.
func (s SourceConfig) HeroURL(name string) string {
	return s.BaseURL + s.HeroPathSuffix + name
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
