// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Portal  PortalConfig  `mapstructure:"portal"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Browser BrowserConfig `mapstructure:"browser"`
	DB      DBConfig      `mapstructure:"db"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the dashboard HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// PortalConfig locates the tender portal.
type PortalConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	ListingPath string `mapstructure:"listing_path"`
}

// ScraperConfig governs pipeline fan-out and retry behavior.
type ScraperConfig struct {
	SubCategories       []string `mapstructure:"sub_categories"`
	MaxRetries          int      `mapstructure:"max_retries"`
	NavigationTimeoutMs int      `mapstructure:"navigation_timeout_ms"`
	ConcurrentSessions  int      `mapstructure:"concurrent_sessions"`
	BatchSize           int      `mapstructure:"batch_size"`
	SettleDelaySeconds  int      `mapstructure:"settle_delay_seconds"`
	SectionWaitSeconds  int      `mapstructure:"section_wait_seconds"`
}

// BrowserConfig configures the headless browser pool.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	SessionTimeoutSec int    `mapstructure:"session_timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN                string `mapstructure:"dsn"`
	MaxConns           int    `mapstructure:"max_conns"`
	MinConns           int    `mapstructure:"min_conns"`
	MaxConnLifetimeMin int    `mapstructure:"max_conn_lifetime_minutes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ETIMAD")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("portal.base_url", "https://tenders.etimad.sa")
	v.SetDefault("portal.listing_path", "/Tender/AllTendersForVisitor")
	v.SetDefault("scraper.sub_categories", []string{
		"حوكمة البيانات",
		"استراتيجية البيانات",
		"ذكاء الأعمال",
	})
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.navigation_timeout_ms", 60000)
	v.SetDefault("scraper.concurrent_sessions", 5)
	v.SetDefault("scraper.batch_size", 20)
	v.SetDefault("scraper.settle_delay_seconds", 2)
	v.SetDefault("scraper.section_wait_seconds", 10)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.session_timeout_seconds", 300)
	// Empty default so AutomaticEnv can surface the env-only key during
	// Unmarshal; Validate still rejects a missing DSN.
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime_minutes", 30)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if _, err := url.ParseRequestURI(c.Portal.BaseURL); err != nil {
		return fmt.Errorf("portal.base_url is not a valid URL: %w", err)
	}
	if len(c.Scraper.SubCategories) == 0 {
		return fmt.Errorf("scraper.sub_categories must not be empty")
	}
	if c.Scraper.MaxRetries <= 0 {
		return fmt.Errorf("scraper.max_retries must be > 0")
	}
	if c.Scraper.ConcurrentSessions <= 0 {
		return fmt.Errorf("scraper.concurrent_sessions must be > 0")
	}
	if c.Scraper.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be > 0")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	return nil
}

// ListingURL joins the portal base with the visitor listing path.
func (c Config) ListingURL() string {
	return strings.TrimRight(c.Portal.BaseURL, "/") + c.Portal.ListingPath
}

// NavigationTimeout converts the millisecond knob into a duration.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Scraper.NavigationTimeoutMs) * time.Millisecond
}

// SettleDelay is the pause after search results render before capture.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Scraper.SettleDelaySeconds) * time.Second
}

// SectionWait bounds how long detail tab content may take to appear.
func (c Config) SectionWait() time.Duration {
	return time.Duration(c.Scraper.SectionWaitSeconds) * time.Second
}

// SessionTimeout bounds the lifetime of one browser tab.
func (c Config) SessionTimeout() time.Duration {
	return time.Duration(c.Browser.SessionTimeoutSec) * time.Second
}

// MaxConnLifetime bounds how long a pooled DB connection may live.
func (c Config) MaxConnLifetime() time.Duration {
	return time.Duration(c.DB.MaxConnLifetimeMin) * time.Minute
}
