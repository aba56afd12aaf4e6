package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"BullionLedger/internal/model"
)

// Config holds all application configuration.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	Timezone string `yaml:"timezone"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	HTTP struct {
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"http"`
	Telegram struct {
		BotToken        string `yaml:"bot_token"`
		ChatID          string `yaml:"chat_id"`
		NotifyOnSuccess bool   `yaml:"notify_on_success"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	// Server hosts the read-only API and /metrics in daemon mode.
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Commodities []model.Commodity `yaml:"commodities"`
	Proxy       string            `yaml:"proxy"`
	RunOnce     bool              `yaml:"run_once"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("TZ_NAME"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("RUN_ONCE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RunOnce = b
		}
	}

	// Defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}
	if cfg.HTTP.TimeoutSeconds == 0 {
		cfg.HTTP.TimeoutSeconds = 10
	}
	if cfg.HTTP.RequestsPerSecond == 0 {
		cfg.HTTP.RequestsPerSecond = 1
	}
	if len(cfg.Commodities) == 0 {
		cfg.Commodities = model.DefaultCommodities()
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	if c.HTTP.TimeoutSeconds < 0 {
		return fmt.Errorf("http.timeout_seconds must not be negative")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	seen := make(map[string]bool)
	for i, com := range c.Commodities {
		switch {
		case com.Name == "":
			return fmt.Errorf("commodities[%d].name is required", i)
		case seen[com.Name]:
			return fmt.Errorf("commodities[%d]: duplicate name %q", i, com.Name)
		case com.URL == "":
			return fmt.Errorf("commodity %s: url is required", com.Name)
		case !com.Unit.Valid():
			return fmt.Errorf("commodity %s: unit must be gram or kg", com.Name)
		case com.Extractor != model.ExtractorGoldTable && com.Extractor != model.ExtractorPriceSpan:
			return fmt.Errorf("commodity %s: unknown extractor %q", com.Name, com.Extractor)
		// gold_table yields one quote per purity; each needs its own key.
		case com.Extractor == model.ExtractorGoldTable && com.SubKeyField == "":
			return fmt.Errorf("commodity %s: extractor gold_table requires sub_key_field", com.Name)
		case com.Extractor == model.ExtractorPriceSpan && com.SubKeyField != "":
			return fmt.Errorf("commodity %s: extractor price_span takes no sub_key_field", com.Name)
		}
		seen[com.Name] = true
	}
	return nil
}

// Location returns the timezone used to decide the invocation date.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Timeout returns the HTTP request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Daemon reports whether the process should keep running on a schedule.
func (c *Config) Daemon() bool {
	return !c.RunOnce && c.Schedule.Cron != ""
}
