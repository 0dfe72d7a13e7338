package game

import "time"

// Config holds the gameplay constants of every room.
type Config struct {
	MaxPlayers         int
	MinPlayers         int
	MaxRounds          int
	RoundDuration      time.Duration
	TickInterval       time.Duration
	MarketInterval     time.Duration
	IdleTimeout        time.Duration
	RematchDelay       time.Duration
	RecentActionsLimit int
	HistoryLimit       int // actions kept per round
	Retention          time.Duration
	CleanupInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxPlayers:         4,
		MinPlayers:         2,
		MaxRounds:          20,
		RoundDuration:      time.Minute,
		TickInterval:       time.Second,
		MarketInterval:     5 * time.Second,
		IdleTimeout:        20 * time.Minute,
		RematchDelay:       10 * time.Second,
		RecentActionsLimit: 10,
		HistoryLimit:       200,
		Retention:          24 * time.Hour,
		CleanupInterval:    time.Hour,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = d.MaxPlayers
	}
	if c.MinPlayers <= 0 {
		c.MinPlayers = d.MinPlayers
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = d.RoundDuration
	}
	if c.TickInterval <= 0 {
		c.TickInterval = d.TickInterval
	}
	if c.MarketInterval <= 0 {
		c.MarketInterval = d.MarketInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.RematchDelay <= 0 {
		c.RematchDelay = d.RematchDelay
	}
	if c.RecentActionsLimit <= 0 {
		c.RecentActionsLimit = d.RecentActionsLimit
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}
