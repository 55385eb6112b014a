package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GENERATOR_PROVIDER", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.GeneratorProvider != "gemini" {
		t.Fatalf("expected default generator provider, got %s", cfg.GeneratorProvider)
	}
	if cfg.DedupTTL != 120*time.Second {
		t.Fatalf("expected default dedup ttl, got %s", cfg.DedupTTL)
	}
	if cfg.TrialDays != 7 {
		t.Fatalf("expected default trial days, got %d", cfg.TrialDays)
	}
	if !cfg.EnforceSignup {
		t.Fatalf("expected signup enforcement enabled by default")
	}
	if cfg.ReengageEnabled {
		t.Fatalf("expected re-engagement disabled by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("GENERATOR_PROVIDER", " Bedrock ")
	t.Setenv("DEDUP_TTL", "90s")
	t.Setenv("VIP_DAILY_MAX", "3")
	t.Setenv("VIP_COOLDOWN", "2h")
	t.Setenv("SMS_PART_DELAY", "500ms")
	t.Setenv("REENGAGE_ENABLED", "true")
	t.Setenv("REENGAGE_AFTER", "72h")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.GeneratorProvider != "bedrock" {
		t.Fatalf("expected trimmed lowercase provider, got %q", cfg.GeneratorProvider)
	}
	if cfg.DedupTTL != 90*time.Second {
		t.Fatalf("expected dedup ttl override, got %s", cfg.DedupTTL)
	}
	if cfg.VIPDailyMax != 3 {
		t.Fatalf("expected vip daily max override, got %d", cfg.VIPDailyMax)
	}
	if cfg.VIPCooldown != 2*time.Hour {
		t.Fatalf("expected vip cooldown override, got %s", cfg.VIPCooldown)
	}
	if cfg.SMSPartDelay != 500*time.Millisecond {
		t.Fatalf("expected sms part delay override, got %s", cfg.SMSPartDelay)
	}
	if !cfg.ReengageEnabled {
		t.Fatalf("expected re-engagement enabled")
	}
	if cfg.ReengageAfter != 72*time.Hour {
		t.Fatalf("expected re-engagement window override, got %s", cfg.ReengageAfter)
	}
}
