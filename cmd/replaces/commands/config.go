package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"replaces-backend/internal/components/configutil"
	"replaces-backend/internal/components/telemetry"
	"replaces-backend/internal/db"
	"replaces-backend/internal/scrapers/spbkit"
)

const (
	CacheSqlite = "sqlite"
	CacheRedis  = "redis"
)

type CacheConfig struct {
	// Backend is either "sqlite" (the cache table of the database) or "redis".
	Backend     string `json:"backend" default:"sqlite"`
	RedisAddr   string `json:"redis_addr" default:"localhost:6379"`
	RedisPrefix string `json:"redis_prefix" default:"replaces:"`
}

type PollConfig struct {
	// Cron is a standard 5 field cron spec interpreted in Timezone.
	Cron     string `json:"cron" default:"*/10 7-21 * * *"`
	Timezone string `json:"timezone" default:"Europe/Moscow"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// NotifyChats receive the messages produced by poll runs.
	NotifyChats []int64 `json:"notify_chats"`
}

type Config struct {
	Database  db.Config        `json:"database"`
	Cache     CacheConfig      `json:"cache"`
	Site      spbkit.Config    `json:"site"`
	Groups    []int            `json:"groups" default:"[304]"`
	Poll      PollConfig       `json:"poll"`
	Telegram  TelegramConfig   `json:"telegram"`
	Telemetry telemetry.Config `json:"telemetry"`
}

func (c Config) Validate() error {
	if c.Cache.Backend != CacheSqlite && c.Cache.Backend != CacheRedis {
		return fmt.Errorf("unknown cache backend '%s'", c.Cache.Backend)
	}
	_, err := time.LoadLocation(c.Poll.Timezone)
	if err != nil {
		return fmt.Errorf("poll timezone: %w", err)
	}
	return nil
}

// LoadConfig reads the configuration at `path`, a missing file leaves every
// setting at its default.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return config, err
	}
	return config, config.Validate()
}
