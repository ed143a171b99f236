// Package config loads the commission service settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/warp/commission-engine/generic"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Calendar struct {
		TimeZone string   `yaml:"time_zone"`
		RestDays []string `yaml:"rest_days"`
	} `yaml:"calendar"`
	Plan struct {
		ID string `yaml:"id"`
	} `yaml:"plan"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Schedule struct {
		CloseCron string `yaml:"close_cron"`
	} `yaml:"schedule"`
}

// Load reads .env (if present) and the YAML file at path (if present), then
// applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("COMMISSION_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("COMMISSION_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("COMMISSION_DB"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("COMMISSION_TZ"); v != "" {
		cfg.Calendar.TimeZone = v
	}
	if v := os.Getenv("COMMISSION_PLAN"); v != "" {
		cfg.Plan.ID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("CLOSE_CRON"); v != "" {
		cfg.Schedule.CloseCron = v
	}

	// Defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "./data/commission.db"
	}
	if cfg.Calendar.TimeZone == "" {
		cfg.Calendar.TimeZone = "Asia/Jerusalem"
	}
	if len(cfg.Calendar.RestDays) == 0 {
		cfg.Calendar.RestDays = []string{"friday", "saturday"}
	}
	if cfg.Plan.ID == "" {
		cfg.Plan.ID = "plan-2025-affiliate"
	}
	if cfg.Redis.TTL == 0 {
		cfg.Redis.TTL = 10 * time.Minute
	}
	if cfg.Schedule.CloseCron == "" {
		// 00:05 on the first of every month (seconds field first)
		cfg.Schedule.CloseCron = "0 5 0 1 * *"
	}

	return cfg, nil
}

// Validate checks that all settings are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.WorkWeek(); err != nil {
		return err
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Calendar.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("calendar.time_zone %q: %w", c.Calendar.TimeZone, err)
	}
	return loc, nil
}

// WorkWeek resolves the configured rest days. Exactly two are required.
func (c *Config) WorkWeek() (generic.WorkWeek, error) {
	if len(c.Calendar.RestDays) != 2 {
		return generic.WorkWeek{}, fmt.Errorf("calendar.rest_days needs exactly 2 days, got %d", len(c.Calendar.RestDays))
	}
	first, ok := generic.ParseWeekday(c.Calendar.RestDays[0])
	if !ok {
		return generic.WorkWeek{}, fmt.Errorf("calendar.rest_days: unknown day %q", c.Calendar.RestDays[0])
	}
	second, ok := generic.ParseWeekday(c.Calendar.RestDays[1])
	if !ok {
		return generic.WorkWeek{}, fmt.Errorf("calendar.rest_days: unknown day %q", c.Calendar.RestDays[1])
	}
	return generic.NewWorkWeek(first, second), nil
}

// RedisEnabled reports whether a Redis cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}
