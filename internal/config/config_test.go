package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected addr: %s", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Fatalf("unexpected token ttl: %v", cfg.TokenTTL)
	}
	if cfg.EmailDomain != "udsm.ac.tz" {
		t.Fatalf("unexpected email domain: %s", cfg.EmailDomain)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("unexpected bcrypt cost: %d", cfg.BcryptCost)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("RMIS_ADDR", ":9999")
	t.Setenv("RMIS_TOKEN_TTL", "1h30m")
	t.Setenv("RMIS_BCRYPT_COST", "14")
	t.Setenv("RMIS_RATE_PER_SEC", "not-a-number")

	cfg := Load()
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("override ignored: %s", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 90*time.Minute {
		t.Fatalf("duration override ignored: %v", cfg.TokenTTL)
	}
	if cfg.BcryptCost != 14 {
		t.Fatalf("int override ignored: %d", cfg.BcryptCost)
	}
	if cfg.RatePerSec != 10 {
		t.Fatalf("invalid int should fall back, got %d", cfg.RatePerSec)
	}
}
