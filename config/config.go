// Package config loads the monitor configuration from an optional
// config file, a .env file and environment variables, in increasing order
// of precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"crypto-monitor/internal/indicator"
)

// DefaultConfigFile is read when CONFIG_FILE is not set.
const DefaultConfigFile = "config.json"

// MaxTopN is the largest page CoinGecko serves.
const MaxTopN = 250

// Config holds all application configuration.
type Config struct {
	// Telegram delivery
	TelegramToken string `yaml:"TELEGRAM_TOKEN"`
	ChatID        string `yaml:"CHAT_ID"`

	// Market polling
	VsCurrency            string  `yaml:"vs_currency"`
	TopN                  int     `yaml:"top_n"`
	IntervalMinutes       int     `yaml:"interval_minutes"`
	AlertThresholdPercent float64 `yaml:"alert_threshold_percent"`
	ChangeThreshold       float64 `yaml:"change_threshold"`
	FeedURL               string  `yaml:"feed_url"`

	// Indicators
	Indicators  indicator.Params `yaml:",inline"`
	HistorySize int              `yaml:"history_size"`
	WarmupDays  int              `yaml:"warmup_days"`

	// Infrastructure
	HTTPAddr      string `yaml:"http_addr"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisChannel  string `yaml:"redis_channel"`
	WebhookURL    string `yaml:"webhook_url"`
	LogLevel      string `yaml:"log_level"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		VsCurrency:            "brl",
		TopN:                  50,
		IntervalMinutes:       30,
		AlertThresholdPercent: 10,
		ChangeThreshold:       0.5,
		Indicators:            indicator.DefaultParams(),
		HistorySize:           200,
		HTTPAddr:              ":9095",
		RedisChannel:          "crypto-monitor:reports",
		LogLevel:              "info",
	}
}

// Load reads .env (if present), then CONFIG_FILE (default config.json, if
// present), then environment variables, and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := getEnv("CONFIG_FILE", DefaultConfigFile)
	if err := cfg.loadFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) || os.Getenv("CONFIG_FILE") != "" {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads a single config file over the defaults and validates it.
// Environment variables are ignored.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile decodes path over c. YAML 1.2 is a superset of JSON, so
// config.json and config.yaml share one decoder; CHAT_ID may be a number.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

// applyEnv overrides c with any set environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TELEGRAM_TOKEN": &c.TelegramToken,
		"CHAT_ID":        &c.ChatID,
		"VS_CURRENCY":    &c.VsCurrency,
		"FEED_URL":       &c.FeedURL,
		"HTTP_ADDR":      &c.HTTPAddr,
		"REDIS_ADDR":     &c.RedisAddr,
		"REDIS_PASSWORD": &c.RedisPassword,
		"REDIS_CHANNEL":  &c.RedisChannel,
		"WEBHOOK_URL":    &c.WebhookURL,
		"LOG_LEVEL":      &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"TOP_N":            &c.TopN,
		"INTERVAL_MINUTES": &c.IntervalMinutes,
		"HISTORY_SIZE":     &c.HistorySize,
		"WARMUP_DAYS":      &c.WarmupDays,
		"RSI_PERIOD":       &c.Indicators.RSIPeriod,
		"MACD_FAST":        &c.Indicators.MACDFast,
		"MACD_SLOW":        &c.Indicators.MACDSlow,
		"MACD_SIGNAL":      &c.Indicators.MACDSignal,
		"BOLLINGER_PERIOD": &c.Indicators.BollingerPeriod,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(err, "env %s", key)
		}
		*dst = n
	}

	floats := map[string]*float64{
		"ALERT_THRESHOLD_PERCENT": &c.AlertThresholdPercent,
		"CHANGE_THRESHOLD":        &c.ChangeThreshold,
		"BOLLINGER_MULT":          &c.Indicators.BollingerMult,
	}
	for key, dst := range floats {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return errors.Wrapf(err, "env %s", key)
		}
		*dst = f
	}
	return nil
}

// Validate rejects configurations the monitor cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.VsCurrency) == "":
		return errors.New("config: vs_currency is required")
	case c.TopN < 1 || c.TopN > MaxTopN:
		return errors.Errorf("config: top_n must be in [1, %d], got %d", MaxTopN, c.TopN)
	case c.IntervalMinutes < 1:
		return errors.Errorf("config: interval_minutes must be >= 1, got %d", c.IntervalMinutes)
	case c.AlertThresholdPercent <= 0:
		return errors.Errorf("config: alert_threshold_percent must be > 0, got %v", c.AlertThresholdPercent)
	case c.ChangeThreshold < 0:
		return errors.Errorf("config: change_threshold must be >= 0, got %v", c.ChangeThreshold)
	case c.HistorySize < 2:
		return errors.Errorf("config: history_size must be >= 2, got %d", c.HistorySize)
	case c.WarmupDays < 0:
		return errors.Errorf("config: warmup_days must be >= 0, got %d", c.WarmupDays)
	case (c.TelegramToken == "") != (c.ChatID == ""):
		return errors.New("config: TELEGRAM_TOKEN and CHAT_ID must be set together")
	}
	if err := c.Indicators.Validate(); err != nil {
		return errors.Wrap(err, "config")
	}
	return nil
}

// Interval returns the polling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// TelegramEnabled reports whether Telegram delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.ChatID != ""
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}
