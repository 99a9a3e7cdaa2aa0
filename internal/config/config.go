package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Backend struct {
		URL     string
		Timeout time.Duration
	}
	Redis struct {
		URL string
	}
	Slack struct {
		WebhookURL string
	}
	Recommend struct {
		Debounce  time.Duration
		MinLength int
		TopK      int
		CacheTTL  time.Duration
	}
	Alerts struct {
		PollInterval time.Duration
		FadeDelay    time.Duration
	}
	Analytics struct {
		PollInterval    time.Duration
		LowCTRThreshold float64
		MinCoverage     float64
	}
	RateLimit struct {
		PerMinute int
	}
	Log struct {
		Level string
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	return load(v)
}

// LoadFile reads an explicit config file instead of searching ".".
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("backend.url", "http://localhost:8000")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("redis.url", "")
	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("recommend.debounce", "800ms")
	v.SetDefault("recommend.min_length", 5)
	v.SetDefault("recommend.top_k", 1)
	v.SetDefault("recommend.cache_ttl", "5m")
	v.SetDefault("alerts.poll_interval", "30s")
	v.SetDefault("alerts.fade_delay", "400ms")
	v.SetDefault("analytics.poll_interval", "60s")
	v.SetDefault("analytics.low_ctr_threshold", 10.0)
	v.SetDefault("analytics.min_coverage", 70.0)
	v.SetDefault("ratelimit.per_minute", 120)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	config.Server.Port = v.GetString("server.port")
	config.Backend.URL = strings.TrimRight(v.GetString("backend.url"), "/")
	config.Backend.Timeout = v.GetDuration("backend.timeout")
	config.Redis.URL = v.GetString("redis.url")
	config.Slack.WebhookURL = v.GetString("slack.webhook_url")
	config.Recommend.Debounce = v.GetDuration("recommend.debounce")
	config.Recommend.MinLength = v.GetInt("recommend.min_length")
	config.Recommend.TopK = v.GetInt("recommend.top_k")
	config.Recommend.CacheTTL = v.GetDuration("recommend.cache_ttl")
	config.Alerts.PollInterval = v.GetDuration("alerts.poll_interval")
	config.Alerts.FadeDelay = v.GetDuration("alerts.fade_delay")
	config.Analytics.PollInterval = v.GetDuration("analytics.poll_interval")
	config.Analytics.LowCTRThreshold = v.GetFloat64("analytics.low_ctr_threshold")
	config.Analytics.MinCoverage = v.GetFloat64("analytics.min_coverage")
	config.RateLimit.PerMinute = v.GetInt("ratelimit.per_minute")
	config.Log.Level = v.GetString("log.level")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	durations := map[string]time.Duration{
		"backend.timeout":         c.Backend.Timeout,
		"recommend.debounce":      c.Recommend.Debounce,
		"recommend.cache_ttl":     c.Recommend.CacheTTL,
		"alerts.poll_interval":    c.Alerts.PollInterval,
		"alerts.fade_delay":       c.Alerts.FadeDelay,
		"analytics.poll_interval": c.Analytics.PollInterval,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if c.Recommend.MinLength < 0 {
		return fmt.Errorf("recommend.min_length must not be negative")
	}
	if c.Recommend.TopK <= 0 {
		return fmt.Errorf("recommend.top_k must be positive")
	}
	if c.Analytics.LowCTRThreshold <= 0 || c.Analytics.MinCoverage <= 0 {
		return fmt.Errorf("analytics thresholds must be positive")
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("ratelimit.per_minute must be positive")
	}
	return nil
}
