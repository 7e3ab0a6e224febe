// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env       string // APP_ENV, "dev" enables debug logging
	Port      string // APP_PORT
	DBUser    string
	DBPass    string // may be empty
	DBHost    string
	DBPort    string
	DBName    string
	JWTSecret string

	AccessTTL  time.Duration // ACCESS_TOKEN_TTL_MIN
	BcryptCost int

	AmadeusBaseURL      string
	AmadeusClientID     string
	AmadeusClientSecret string
	AmadeusTimeout      time.Duration

	DefaultCurrency string

	StatusInterval time.Duration // FLIGHT_STATUS_INTERVAL
	StatusBatch    int           // FLIGHT_STATUS_BATCH

	RabbitURL   string
	NotifyQueue string
	MailLogPath string

	CORSOrigins []string // empty allows every origin

	SearchCache SearchCacheConfig
	RateLimit   RateLimitConfig
}

var required = []string{"APP_PORT", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "JWT_SECRET"}

// Load reads .env when present and then the environment.  Every missing or
// malformed required variable is reported in a single error.
func Load() (Config, error) {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	var errs []error
	for _, k := range required {
		if strings.TrimSpace(os.Getenv(k)) == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", k))
		}
	}

	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      os.Getenv("APP_PORT"),
		DBUser:    os.Getenv("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    os.Getenv("DB_HOST"),
		DBPort:    os.Getenv("DB_PORT"),
		DBName:    os.Getenv("DB_NAME"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		AccessTTL:  60 * time.Minute,
		BcryptCost: 10,

		AmadeusBaseURL:      envStr("AMADEUS_BASE_URL", "https://test.api.amadeus.com"),
		AmadeusClientID:     os.Getenv("AMADEUS_CLIENT_ID"),
		AmadeusClientSecret: os.Getenv("AMADEUS_CLIENT_SECRET"),
		AmadeusTimeout:      envDur("AMADEUS_TIMEOUT", 20*time.Second),

		DefaultCurrency: strings.ToUpper(envStr("DEFAULT_CURRENCY", "INR")),

		StatusInterval: envDur("FLIGHT_STATUS_INTERVAL", 10*time.Minute),
		StatusBatch:    envInt("FLIGHT_STATUS_BATCH", 50),

		RabbitURL:   envStr("RABBITMQ_URL", envStr("AMQP_URL", "")),
		NotifyQueue: envStr("NOTIFY_QUEUE", "booking.notifications"),
		MailLogPath: envStr("MAIL_LOG_PATH", "logs/mail.log"),

		CORSOrigins: envList("CORS_ORIGIN"),

		SearchCache: LoadSearchCacheConfig(),
		RateLimit:   LoadRateLimitConfig(),
	}

	if v := os.Getenv("ACCESS_TOKEN_TTL_MIN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("invalid int for ACCESS_TOKEN_TTL_MIN: %q", v))
		} else {
			cfg.AccessTTL = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 4 || n > 31 {
			errs = append(errs, fmt.Errorf("invalid bcrypt cost BCRYPT_COST: %q", v))
		} else {
			cfg.BcryptCost = n
		}
	}
	if cfg.SearchCache.Backend != CacheMemory && cfg.SearchCache.Backend != CacheRedis {
		errs = append(errs, fmt.Errorf("SEARCH_CACHE_BACKEND must be %q or %q, got %q", CacheMemory, CacheRedis, cfg.SearchCache.Backend))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// AmadeusConfigured reports whether upstream credentials are present.
func (c Config) AmadeusConfigured() bool {
	return c.AmadeusClientID != "" && c.AmadeusClientSecret != ""
}
