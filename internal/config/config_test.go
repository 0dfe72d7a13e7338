package config

import (
	"reflect"
	"testing"
	"time"
)

var allKeys = []string{
	"PORT", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "NATS_URL",
	"LOG_LEVEL", "LOG_PRETTY", "MAX_ROUNDS", "ROUND_DURATION", "TICK_INTERVAL",
	"MARKET_INTERVAL", "IDLE_TIMEOUT", "REMATCH_DELAY", "RETENTION", "CLEANUP_INTERVAL",
	"ALLOWED_ORIGINS", "MESSAGE_RATE", "MESSAGE_BURST",
}

func clearEnv(t *testing.T) {
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "")
	}
	if cfg.RoundDuration != 60 {
		t.Errorf("RoundDuration = %d, want %d", cfg.RoundDuration, 60)
	}
	if cfg.MaxRounds != 20 {
		t.Errorf("MaxRounds = %d, want %d", cfg.MaxRounds, 20)
	}
	if cfg.IdleTimeout != 20*time.Minute {
		t.Errorf("IdleTimeout = %v, want %v", cfg.IdleTimeout, 20*time.Minute)
	}
	if cfg.MarketInterval != 5*time.Second {
		t.Errorf("MarketInterval = %v, want %v", cfg.MarketInterval, 5*time.Second)
	}
	if cfg.Retention != 24*time.Hour {
		t.Errorf("Retention = %v, want %v", cfg.Retention, 24*time.Hour)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("AllowedOrigins = %v, want [*]", cfg.AllowedOrigins)
	}
	if cfg.LogLevel != "info" || cfg.LogPretty {
		t.Errorf("log = %q/%v, want info/false", cfg.LogLevel, cfg.LogPretty)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DATABASE_URL", "postgres://localhost/resourcerush")
	t.Setenv("ROUND_DURATION", "30")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("IDLE_TIMEOUT", "5m")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("ALLOWED_ORIGINS", "example.com, *.example.org ,")
	t.Setenv("MESSAGE_RATE", "2.5")

	cfg := Load()

	if cfg.Port != "3000" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3000")
	}
	if cfg.DatabaseURL != "postgres://localhost/resourcerush" {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, "postgres://localhost/resourcerush")
	}
	if cfg.RoundDuration != 30 {
		t.Errorf("RoundDuration = %d, want %d", cfg.RoundDuration, 30)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 2 {
		t.Errorf("redis = %q/%d, want localhost:6379/2", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("IdleTimeout = %v, want %v", cfg.IdleTimeout, 5*time.Minute)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty = false, want true")
	}
	want := []string{"example.com", "*.example.org"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if cfg.MessageRate != 2.5 {
		t.Errorf("MessageRate = %v, want 2.5", cfg.MessageRate)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUND_DURATION", "abc")
	t.Setenv("MAX_ROUNDS", "-3")
	t.Setenv("TICK_INTERVAL", "soon")
	t.Setenv("MESSAGE_RATE", "0")

	cfg := Load()

	if cfg.RoundDuration != 60 {
		t.Errorf("RoundDuration = %d, want %d (fallback)", cfg.RoundDuration, 60)
	}
	if cfg.MaxRounds != 20 {
		t.Errorf("MaxRounds = %d, want %d (fallback)", cfg.MaxRounds, 20)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("TickInterval = %v, want %v (fallback)", cfg.TickInterval, time.Second)
	}
	if cfg.MessageRate != 20 {
		t.Errorf("MessageRate = %v, want 20 (fallback)", cfg.MessageRate)
	}
}
