package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Env  string
	Port string

	StoreDriver string
	RedisURL    string
	RedisPass   string
	RedisDB     int
	SQLitePath  string

	OddsFile string

	JWTSecret string
	JWTTTL    time.Duration
	APIKey    string
	BotToken  string

	MaxDeposit        decimal.Decimal
	LedgerMaxAttempts int
	PlayRateLimit     int

	LogLevel string
}

const (
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Load reads the environment. Secrets are checked by the binaries that need them.
func Load() (*Config, error) {
	cfg := &Config{
		Env:         getEnvOrDefault("ENV", "development"),
		Port:        getEnvOrDefault("PORT", "8080"),
		StoreDriver: strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreRedis)),
		RedisURL:    getEnvOrDefault("REDIS_URL", "localhost:6379"),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "rewards.db"),
		OddsFile:    os.Getenv("ODDS_FILE"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		APIKey:      os.Getenv("API_KEY"),
		BotToken:    os.Getenv("BOT_TOKEN"),
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.RedisDB, err = getIntOrDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.LedgerMaxAttempts, err = getIntOrDefault("LEDGER_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.LedgerMaxAttempts < 1 || cfg.LedgerMaxAttempts > 10 {
		return nil, fmt.Errorf("LEDGER_MAX_ATTEMPTS must be between 1 and 10, got %d", cfg.LedgerMaxAttempts)
	}
	if cfg.PlayRateLimit, err = getIntOrDefault("PLAY_RATE_LIMIT", 30); err != nil {
		return nil, err
	}

	ttl := getEnvOrDefault("JWT_TTL", "24h")
	if cfg.JWTTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL %q: %w", ttl, err)
	}

	maxDeposit := getEnvOrDefault("MAX_DEPOSIT", "1000000")
	if cfg.MaxDeposit, err = decimal.NewFromString(maxDeposit); err != nil {
		return nil, fmt.Errorf("invalid MAX_DEPOSIT %q: %w", maxDeposit, err)
	}
	if !cfg.MaxDeposit.IsPositive() {
		return nil, fmt.Errorf("MAX_DEPOSIT must be positive")
	}

	switch cfg.StoreDriver {
	case StoreRedis, StoreSQLite:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// RequireAPI checks the secrets the HTTP API cannot start without.
func (c *Config) RequireAPI() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY environment variable is required")
	}
	return nil
}

func (c *Config) RequireBot() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN environment variable is required")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnvOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
