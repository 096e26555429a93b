// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	DB      DBConfig      `mapstructure:"db"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// HTTPConfig configures HTTP client retry behavior.
type HTTPConfig struct {
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	MaxRetries         int    `mapstructure:"max_retries"`
	BackoffBaseSeconds int    `mapstructure:"backoff_base_seconds"`
	UserAgent          string `mapstructure:"user_agent"`
}

// CrawlConfig governs traversal behavior.
type CrawlConfig struct {
	SeedFile           string `mapstructure:"seed_file"`
	PageSize           int    `mapstructure:"page_size"`
	PacingEvery        int    `mapstructure:"pacing_every"`
	PacingDelaySeconds int    `mapstructure:"pacing_delay_seconds"`
}

// MetricsConfig enables the optional Prometheus listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features. Level overrides the
// mode's default minimum level when set ("debug", "info", "warn",
// "error").
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PRACTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_base_seconds", 2)
	v.SetDefault("crawl.seed_file", "urls.txt")
	v.SetDefault("crawl.page_size", 10)
	v.SetDefault("crawl.pacing_every", 5)
	v.SetDefault("crawl.pacing_delay_seconds", 3)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.Crawl.PageSize <= 0 {
		return fmt.Errorf("crawl.page_size must be > 0")
	}
	if c.Crawl.SeedFile == "" {
		return fmt.Errorf("crawl.seed_file must be set")
	}
	return nil
}

// Timeout returns the per-request HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// BackoffBase returns the retry backoff base delay.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.HTTP.BackoffBaseSeconds) * time.Second
}

// PacingDelay returns the inter-page pacing sleep.
func (c Config) PacingDelay() time.Duration {
	return time.Duration(c.Crawl.PacingDelaySeconds) * time.Second
}
