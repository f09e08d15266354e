// Package config assembles the typed configuration for all components
// from viper. Each component keeps its own Config struct next to its
// implementation; this package only groups them and applies validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/hirewire/jobcrawl/internal/api"
	"github.com/hirewire/jobcrawl/internal/database"
	"github.com/hirewire/jobcrawl/internal/storage"
)

// DefaultUserAgent identifies the crawler in robots.txt checks and HTTP
// requests unless overridden.
const DefaultUserAgent = "JobCrawlBot/1.0"

// AppConfig identifies the running instance.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Development bool     `mapstructure:"development"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// CrawlerConfig holds the crawl behaviour shared by the CLI, the API and
// the scheduler: identity, politeness and the default session shape.
type CrawlerConfig struct {
	UserAgent      string        `mapstructure:"user_agent"`
	UserAgents     []string      `mapstructure:"user_agents"`
	RobotsCacheTTL time.Duration `mapstructure:"robots_cache_ttl"`
	Instance       int           `mapstructure:"instance"`

	Sources     []string `mapstructure:"sources"`
	Companies   []string `mapstructure:"companies"`
	SearchTerms []string `mapstructure:"search_terms"`
	Locations   []string `mapstructure:"locations"`
	MaxJobs     int      `mapstructure:"max_jobs"`
}

// SchedulerConfig holds the recurring crawl settings.
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	CrawlSchedule   string `mapstructure:"crawl_schedule"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
	RetentionDays   int    `mapstructure:"retention_days"`
}

// Config is the full application configuration.
type Config struct {
	App           AppConfig        `mapstructure:"app"`
	Logger        LoggerConfig     `mapstructure:"logger"`
	Server        api.ServerConfig `mapstructure:"server"`
	Elasticsearch storage.Config   `mapstructure:"elasticsearch"`
	Database      database.Config  `mapstructure:"database"`
	Crawler       CrawlerConfig    `mapstructure:"crawler"`
	Scheduler     SchedulerConfig  `mapstructure:"scheduler"`
}

// Load unmarshals the viper state into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = DefaultUserAgent
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if len(c.Elasticsearch.Addresses) == 0 && c.Elasticsearch.CloudID == "" {
		return errors.New("elasticsearch: at least one address or a cloud ID is required")
	}
	if c.Database.Host == "" {
		return errors.New("database: host is required")
	}
	if c.Crawler.MaxJobs < 0 {
		return fmt.Errorf("crawler: max_jobs must not be negative, got %d", c.Crawler.MaxJobs)
	}
	return nil
}
