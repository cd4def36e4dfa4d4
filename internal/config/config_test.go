package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.CryThreshold <= 0 || cfg.CryThreshold >= 1 {
		t.Fatalf("unexpected cry threshold: %v", cfg.CryThreshold)
	}
	if cfg.AudioChunkMs != 3000 {
		t.Fatalf("unexpected chunk duration: %v", cfg.AudioChunkMs)
	}
	if cfg.ResyncInterval != 5*time.Minute {
		t.Fatalf("unexpected resync interval: %v", cfg.ResyncInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("PRIMARY_API_URL", "https://api.example.com")
	t.Setenv("CRY_THRESHOLD", "0.8")
	t.Setenv("RESYNC_INTERVAL", "90s")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.PrimaryAPIURL != "https://api.example.com" {
		t.Fatalf("expected override api url")
	}
	if cfg.CryThreshold != 0.8 {
		t.Fatalf("expected override threshold: %v", cfg.CryThreshold)
	}
	if cfg.ResyncInterval != 90*time.Second {
		t.Fatalf("expected override interval: %v", cfg.ResyncInterval)
	}
}
