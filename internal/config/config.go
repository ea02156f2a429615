package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries all process-wide settings. It is loaded once at startup
// and injected into the components that need it; nothing below reads the
// environment after Load returns.
type Config struct {
	HTTPAddr    string
	DatabaseDSN string

	AuthSecret string
	TokenTTL   time.Duration
	Issuer     string

	EmailDomain string
	BcryptCost  int

	RateBurst  int
	RatePerSec int
	MaxBodyKB  int64
}

func Load() Config {
	return Config{
		HTTPAddr:    getenv("RMIS_ADDR", ":8080"),
		DatabaseDSN: getenv("RMIS_PG_DSN", ""),
		AuthSecret:  getenv("RMIS_AUTH_SECRET", ""),
		TokenTTL:    getenvDuration("RMIS_TOKEN_TTL", 24*time.Hour),
		Issuer:      getenv("RMIS_ISSUER", "rmis-api"),
		EmailDomain: getenv("RMIS_EMAIL_DOMAIN", "udsm.ac.tz"),
		BcryptCost:  getenvInt("RMIS_BCRYPT_COST", 12),
		RateBurst:   getenvInt("RMIS_RATE_BURST", 20),
		RatePerSec:  getenvInt("RMIS_RATE_PER_SEC", 10),
		MaxBodyKB:   int64(getenvInt("RMIS_MAX_BODY_KB", 1024)),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
