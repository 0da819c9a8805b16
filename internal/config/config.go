// Package config loads layered configuration: struct defaults, then an
// optional config.yaml, then METRICA_* environment variables on top.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/mcamposv/metrica/internal/models"
)

const envPrefix = "METRICA_"

var defaultConfigPaths = []string{"config.yaml", "config.yml", "/etc/metrica/config.yaml"}

type Config struct {
	Server ServerConfig `koanf:"server"`
	Email  EmailConfig  `koanf:"email"`
	Sales  SalesConfig  `koanf:"sales"`
	Ads    AdsConfig    `koanf:"ads"`
	Retry  RetryConfig  `koanf:"retry"`
	Cache  CacheConfig  `koanf:"cache"`
	Log    LogConfig    `koanf:"log"`
}

type ServerConfig struct {
	Port        string        `koanf:"port"`
	HTTPTimeout time.Duration `koanf:"http_timeout"`
}

type EmailConfig struct {
	URL               string        `koanf:"url"`
	APIKey            string        `koanf:"api_key"`
	Tag               string        `koanf:"tag"`
	TTL               time.Duration `koanf:"ttl"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

type SalesConfig struct {
	URL string        `koanf:"url"`
	TTL time.Duration `koanf:"ttl"`
}

type AdsConfig struct {
	URL         string        `koanf:"url"`
	AccountID   string        `koanf:"account_id"`
	AccessToken string        `koanf:"access_token"`
	TTL         time.Duration `koanf:"ttl"`
}

type RetryConfig struct {
	MaxRetries  int           `koanf:"max_retries"`
	BaseBackoff time.Duration `koanf:"base_backoff"`
}

type CacheConfig struct {
	// Path is the badger directory; empty keeps the cache in memory.
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			HTTPTimeout: 15 * time.Second,
		},
		Email: EmailConfig{
			TTL:               15 * time.Minute,
			RequestsPerSecond: 5,
		},
		Sales: SalesConfig{TTL: 5 * time.Minute},
		Ads:   AdsConfig{TTL: 5 * time.Minute},
		Retry: RetryConfig{
			MaxRetries:  3,
			BaseBackoff: time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load layers defaults ← config file ← environment.
// METRICA_EMAIL_API_KEY becomes email.api_key, and so on.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		// primer segmento = sección, el resto es la clave
		return strings.Replace(s, "_", ".", 1)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(envPrefix + "CONFIG"); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port must not be empty")
	}
	if c.Retry.MaxRetries <= 0 {
		return fmt.Errorf("retry.max_retries must be positive")
	}
	if c.Retry.BaseBackoff <= 0 {
		return fmt.Errorf("retry.base_backoff must be positive")
	}
	for name, ttl := range c.TTLs() {
		if ttl <= 0 {
			return fmt.Errorf("%s.ttl must be positive", name)
		}
	}
	return nil
}

// TTLs maps source tag → freshness window.
func (c *Config) TTLs() map[string]time.Duration {
	return map[string]time.Duration{
		models.SourceEmail: c.Email.TTL,
		models.SourceSales: c.Sales.TTL,
		models.SourceAds:   c.Ads.TTL,
	}
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
