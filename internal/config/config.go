// Package config loads and validates lexcrawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Sources SourcesConfig `mapstructure:"sources"`
	DB      DBConfig      `mapstructure:"db"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the query HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs worker fan-out and politeness.
type CrawlerConfig struct {
	Workers        int    `mapstructure:"workers"`
	Parallelism    int    `mapstructure:"parallelism"`
	UserAgent      string `mapstructure:"user_agent"`
	DelayMs        int    `mapstructure:"delay_ms"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SourcesConfig names the listing entry points per document family. Rules
// maps rule-set tags to their listing pages.
type SourcesConfig struct {
	RCWIndex string            `mapstructure:"rcw_index"`
	WACIndex string            `mapstructure:"wac_index"`
	Rules    map[string]string `mapstructure:"rules"`
}

// DBConfig locates the corpus database file.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEXCRAWLER")
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
	v.SetDefault("crawler.workers", 4)
	v.SetDefault("crawler.parallelism", 2)
	v.SetDefault("crawler.user_agent", "lexcrawler/0.1 (corpus mirror; contact admin@openlawwa.org)")
	v.SetDefault("crawler.delay_ms", 1000)
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("sources.rcw_index", "https://app.leg.wa.gov/RCW/default.aspx")
	v.SetDefault("sources.wac_index", "https://app.leg.wa.gov/WAC/default.aspx")
	v.SetDefault("sources.rules", map[string]string{
		"CR":   "https://www.courts.wa.gov/court_rules/?fa=court_rules.list&group=sup&set=CR",
		"ER":   "https://www.courts.wa.gov/court_rules/?fa=court_rules.list&group=ga&set=ER",
		"CRLJ": "https://www.courts.wa.gov/court_rules/?fa=court_rules.list&group=clj&set=CRLJ",
		"RALJ": "https://www.courts.wa.gov/court_rules/?fa=court_rules.list&group=clj&set=RALJ",
	})
	v.SetDefault("db.path", "lexcrawler.db")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if c.Crawler.Parallelism <= 0 {
		return fmt.Errorf("crawler.parallelism must be > 0")
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Crawler.DelayMs < 0 {
		return fmt.Errorf("crawler.delay_ms must be >= 0")
	}
	if c.Crawler.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.DB.Path == "" {
		return fmt.Errorf("db.path must be set")
	}
	return nil
}

// Delay returns the per-host politeness delay as a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Crawler.DelayMs) * time.Millisecond
}

// Timeout returns the per-request timeout as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}
