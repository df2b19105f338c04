package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Twilio struct {
		AccountSID   string `yaml:"account_sid"`
		AuthToken    string `yaml:"auth_token"`
		WhatsAppFrom string `yaml:"whatsapp_from"`
		WhatsAppTo   string `yaml:"whatsapp_to"`
	} `yaml:"twilio"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Voice struct {
		FallbackNumber        string `yaml:"fallback_number"`
		Language              string `yaml:"language"`
		MenuSize              int    `yaml:"menu_size"`
		SessionTimeoutMinutes int    `yaml:"session_timeout_minutes"`
	} `yaml:"voice"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/ringbook.db"
	}
	if cfg.Voice.MenuSize <= 0 || cfg.Voice.MenuSize > 4 {
		cfg.Voice.MenuSize = 4
	}
	if cfg.Voice.Language == "" {
		cfg.Voice.Language = "en-US"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings that must be present at startup.
func (c *Config) Validate() error {
	if c.Voice.FallbackNumber == "" {
		return fmt.Errorf("voice.fallback_number is required")
	}
	if c.Twilio.AccountSID == "" && c.Telegram.BotToken == "" {
		return fmt.Errorf("at least one notification channel (twilio or telegram) must be configured")
	}
	return nil
}

func (c *Config) SessionTimeout() time.Duration {
	if c.Voice.SessionTimeoutMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Voice.SessionTimeoutMinutes) * time.Minute
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
