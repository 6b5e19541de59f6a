package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/sirupsen/logrus"
)

// Config is read from the environment; a .env file in the working
// directory is loaded first by the binaries.
type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	AdminID  int64  `env:"ADMIN_ID"`

	DBPath string `env:"DB_PATH" envDefault:"insightquest.db"`

	HTTPAddr   string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminToken string `env:"ADMIN_TOKEN"`

	MetricsPort int `env:"METRICS_PORT" envDefault:"9090"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LeaderboardSize         int           `env:"LEADERBOARD_SIZE" envDefault:"10"`
	LeaderboardSyncInterval time.Duration `env:"LEADERBOARD_SYNC_INTERVAL" envDefault:"10m"`

	// Calendar days for login streaks are counted in this zone.
	Timezone string `env:"TIMEZONE" envDefault:"UTC"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	location *time.Location
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.BotToken != "" && c.AdminID == 0 {
		return errors.New("ADMIN_ID is required when BOT_TOKEN is set")
	}
	if c.LeaderboardSize < 1 || c.LeaderboardSize > 100 {
		return fmt.Errorf("LEADERBOARD_SIZE must be between 1 and 100, got %d", c.LeaderboardSize)
	}
	if c.LeaderboardSyncInterval <= 0 {
		return fmt.Errorf("LEADERBOARD_SYNC_INTERVAL must be positive, got %s", c.LeaderboardSyncInterval)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) BotEnabled() bool {
	return c.BotToken != ""
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// SetupLogging applies LogLevel to the standard logrus logger.
func (c *Config) SetupLogging() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
