// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by store.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Output  OutputConfig  `mapstructure:"output"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig governs the listing source and pacing.
type ScraperConfig struct {
	ListingURL string `mapstructure:"listing_url"`
	// BaseURL resolves relative detail links; empty means the listing URL.
	BaseURL string        `mapstructure:"base_url"`
	Delay   time.Duration `mapstructure:"delay"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// StoreConfig selects the relational sink.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// OutputConfig controls the JSON document and its optional GCS mirror.
type OutputConfig struct {
	JSONPath  string `mapstructure:"json_path"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSObject string `mapstructure:"gcs_object"`
}

// PubSubConfig holds metadata for the run completion notification.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig points at an optional Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// ServerConfig controls the snapshot viewer.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
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
	v.SetDefault("scraper.listing_url", "https://en.wikipedia.org/wiki/List_of_highest-grossing_films")
	v.SetDefault("scraper.base_url", "")
	v.SetDefault("scraper.delay", "1s")
	v.SetDefault("http.timeout", "15s")
	v.SetDefault("http.user_agent", "film-scraper/1.0")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", "films.db")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("output.json_path", "films.json")
	v.SetDefault("output.gcs_bucket", "")
	v.SetDefault("output.gcs_object", "films.json")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "film_scraper")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Scraper.ListingURL) == "" {
		return fmt.Errorf("scraper.listing_url must be set")
	}
	if _, err := c.ResolveBase(); err != nil {
		return err
	}
	if c.Scraper.Delay < 0 {
		return fmt.Errorf("scraper.delay must be >= 0")
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be > 0")
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			return fmt.Errorf("store.sqlite_path must be set for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Store.PostgresDSN) == "" {
			return fmt.Errorf("store.postgres_dsn must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Output.JSONPath) == "" {
		return fmt.Errorf("output.json_path must be set")
	}
	if c.Output.GCSBucket != "" && strings.TrimSpace(c.Output.GCSObject) == "" {
		return fmt.Errorf("output.gcs_object must be set when output.gcs_bucket is set")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic is set")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// ResolveBase returns the URL detail links are resolved against.
func (c Config) ResolveBase() (*url.URL, error) {
	raw := c.Scraper.BaseURL
	key := "scraper.base_url"
	if strings.TrimSpace(raw) == "" {
		raw = c.Scraper.ListingURL
		key = "scraper.listing_url"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
	}
	return u, nil
}
