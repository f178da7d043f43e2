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

// Config holds everything the service reads from the environment. Values are
// loaded once at startup and treated as immutable afterwards.
type Config struct {
	Addr string

	PostgresDSN string
	RedisAddr   string
	RedisDB     int

	KafkaBrokers []string
	KafkaTopic   string

	TokenSecret string
	TokenIssuer string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration

	RateLimitPerSecond int
	RateLimitBurst     int
}

// Load reads configuration from the environment, with a best-effort .env file
// for local development. The token secret is the only hard requirement.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               envOr("NOTEVAULT_ADDR", ":8080"),
		PostgresDSN:        os.Getenv("NOTEVAULT_PG_DSN"),
		RedisAddr:          envOr("NOTEVAULT_REDIS_ADDR", "localhost:6379"),
		KafkaTopic:         envOr("NOTEVAULT_KAFKA_TOPIC", "user_events"),
		TokenSecret:        strings.TrimSpace(os.Getenv("NOTEVAULT_TOKEN_SECRET")),
		TokenIssuer:        envOr("NOTEVAULT_TOKEN_ISSUER", "notevault"),
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         14 * 24 * time.Hour,
		RateLimitPerSecond: 5,
		RateLimitBurst:     10,
	}

	if brokers := strings.TrimSpace(os.Getenv("NOTEVAULT_KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if raw := strings.TrimSpace(os.Getenv("NOTEVAULT_REDIS_DB")); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil || db < 0 {
			return Config{}, fmt.Errorf("invalid NOTEVAULT_REDIS_DB: %q", raw)
		}
		cfg.RedisDB = db
	}

	if raw := os.Getenv("NOTEVAULT_ACCESS_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid NOTEVAULT_ACCESS_TTL: %q", raw)
		}
		cfg.AccessTTL = d
	}
	if raw := os.Getenv("NOTEVAULT_REFRESH_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid NOTEVAULT_REFRESH_TTL: %q", raw)
		}
		cfg.RefreshTTL = d
	}

	if cfg.TokenSecret == "" {
		return Config{}, errors.New("NOTEVAULT_TOKEN_SECRET is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
