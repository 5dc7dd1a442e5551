package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds console configuration.
type Config struct {
	Env                    string        `env:"ENV" envDefault:"dev"`
	Port                   string        `env:"PORT" envDefault:"8090"`
	APIBaseURL             string        `env:"API_BASE_URL" envDefault:"http://localhost:8080/api"`
	APITimeout             time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	CacheTTL               time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	CacheBackend           string        `env:"CACHE_BACKEND" envDefault:"memory"`
	RedisAddr              string        `env:"REDIS_ADDR"`
	StateBackend           string        `env:"STATE_BACKEND" envDefault:"file"`
	StateFile              string        `env:"STATE_FILE"`
	DatabaseURL            string        `env:"DATABASE_URL"`
	AWSRegion              string        `env:"AWS_REGION"`
	StateS3Bucket          string        `env:"STATE_S3_BUCKET"`
	StateS3Key             string        `env:"STATE_S3_KEY" envDefault:"scholar/state.json"`
	StateS3KMSKeyID        string        `env:"STATE_S3_KMS_KEY_ID"`
	CVPollInterval         time.Duration `env:"CV_POLL_INTERVAL" envDefault:"2s"`
	GenerationPollInterval time.Duration `env:"GENERATION_POLL_INTERVAL" envDefault:"3s"`
	PollMaxFailures        int           `env:"POLL_MAX_FAILURES" envDefault:"10"`
	RateLimitRPS           float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst         int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSAllowOrigin        []string      `env:"CORS_ALLOW_ORIGIN" envSeparator:","`
}

// Load reads configuration from the environment, after best-effort loading
// of local .env files.
func Load() (Config, error) {
	for _, path := range []string{".env", "cmd/.env"} {
		_ = godotenv.Load(path)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return Normalize(cfg), nil
}

// Normalize fills derived defaults and canonicalizes enum-like fields.
func Normalize(cfg Config) Config {
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.CacheBackend = normalizeCacheBackend(cfg.CacheBackend)
	cfg.StateBackend = normalizeStateBackend(cfg.StateBackend)
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.StateBackend == "file" && strings.TrimSpace(cfg.StateFile) == "" {
		cfg.StateFile = defaultStateFile()
	}
	if cfg.PollMaxFailures <= 0 {
		cfg.PollMaxFailures = 10
	}
	return cfg
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(".scholar", "state.json")
	}
	return filepath.Join(home, ".scholar", "state.json")
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeCacheBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "redis":
		return "redis"
	case "none", "off":
		return "none"
	default:
		return "memory"
	}
}

func normalizeStateBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "s3":
		return "s3"
	case "keyring", "keychain":
		return "keyring"
	case "none", "memory":
		return "none"
	default:
		return "file"
	}
}
