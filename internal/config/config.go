package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NatsURL string

	LogLevel  string
	LogPretty bool

	MaxRounds       int
	RoundDuration   int // seconds
	TickInterval    time.Duration
	MarketInterval  time.Duration
	IdleTimeout     time.Duration
	RematchDelay    time.Duration
	Retention       time.Duration
	CleanupInterval time.Duration

	AllowedOrigins []string
	MessageRate    float64
	MessageBurst   int
}

func Load() Config {
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		NatsURL:         os.Getenv("NATS_URL"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvBool("LOG_PRETTY", false),
		MaxRounds:       getEnvInt("MAX_ROUNDS", 20),
		RoundDuration:   getEnvInt("ROUND_DURATION", 60),
		TickInterval:    getEnvDuration("TICK_INTERVAL", time.Second),
		MarketInterval:  getEnvDuration("MARKET_INTERVAL", 5*time.Second),
		IdleTimeout:     getEnvDuration("IDLE_TIMEOUT", 20*time.Minute),
		RematchDelay:    getEnvDuration("REMATCH_DELAY", 10*time.Second),
		Retention:       getEnvDuration("RETENTION", 24*time.Hour),
		CleanupInterval: getEnvDuration("CLEANUP_INTERVAL", time.Hour),
		AllowedOrigins:  getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		MessageRate:     getEnvFloat("MESSAGE_RATE", 20),
		MessageBurst:    getEnvInt("MESSAGE_BURST", 40),
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated value, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
