// Package config provides configuration management for the movie sync jobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrInvalidPopularSize       = errors.New("sync.popular_size must be at least 1")
	ErrInvalidCandidatePool     = errors.New("sync.candidate_pool must be 0 or at least sync.popular_size")
	ErrInvalidReviewWindow      = errors.New("sync.review_window_days must be at least 1")
	ErrInvalidMaxMovies         = errors.New("ingest.max_movies must be non-negative")
	ErrInvalidMaxCastMembers    = errors.New("ingest.max_cast_members must be non-negative")
	ErrMissingCrawlerBaseURL    = errors.New("crawler.base_url is required")
	ErrInvalidMaxReviewPages    = errors.New("crawler.max_review_pages must be at least 1")
	ErrInvalidListingPageSize   = errors.New("crawler.listing_page_size must be at least 1")
	ErrMissingTMDBBaseURL       = errors.New("tmdb.base_url is required")
	ErrInvalidRateLimit         = errors.New("tmdb.requests_per_second must be positive")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("retry.timeout_sec must be at least 1")
	ErrInvalidMongoTimeout      = errors.New("mongo timeouts must be at least 1 second")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidTaskRetries       = errors.New("tasks.retries must be non-negative")
)

// Config represents the complete job configuration.
type Config struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
	TMDB    TMDBConfig    `yaml:"tmdb"`
	Crawler CrawlerConfig `yaml:"crawler"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Tasks   TasksConfig   `yaml:"tasks"`
	Sync    SyncConfig    `yaml:"sync"`
	Ingest  IngestConfig  `yaml:"ingest"`
}

// SyncConfig contains the popular-set synchronization settings.
type SyncConfig struct {
	// PopularSize is K, the bound of the popular set.
	PopularSize int `yaml:"popular_size"`
	// CandidatePool is how many ranked titles are requested per run. 0 means PopularSize.
	CandidatePool    int `yaml:"candidate_pool"`
	ReviewWindowDays int `yaml:"review_window_days"`
}

// IngestConfig contains bulk catalog ingest limits. Zero means unlimited.
type IngestConfig struct {
	MaxMovies      int `yaml:"max_movies"`
	MaxCastMembers int `yaml:"max_cast_members"`
}

// CrawlerConfig contains settings for the review and listing pages.
type CrawlerConfig struct {
	BaseURL         string      `yaml:"base_url"`
	UserAgent       string      `yaml:"user_agent"`
	Retry           RetryPolicy `yaml:"retry"`
	MaxReviewPages  int         `yaml:"max_review_pages"`
	ListingPageSize int         `yaml:"listing_page_size"`
	BufferSizeKb    int         `yaml:"buffer_size_kb"`
}

// TMDBConfig contains settings for the metadata provider.
type TMDBConfig struct {
	BaseURL           string      `yaml:"base_url"`
	Language          string      `yaml:"language"`
	Retry             RetryPolicy `yaml:"retry"`
	RequestsPerSecond float64     `yaml:"requests_per_second"`
	Burst             int         `yaml:"burst"`
}

// MongoConfig contains document store timeouts.
type MongoConfig struct {
	ConnectTimeoutSec   int `yaml:"connect_timeout_sec"`
	OperationTimeoutSec int `yaml:"operation_timeout_sec"`
}

// TasksConfig mirrors the workflow wrapper: each task is retried on failure.
type TasksConfig struct {
	Retry   RetryPolicy `yaml:"retry"`
	Retries int         `yaml:"retries"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMb  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// MetricsConfig defines where run metrics are pushed. An empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// DefaultRetryPolicy returns the retry policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialDelayMs:    500,
		MaxDelayMs:        30000,
		BackoffMultiplier: 2.0,
		TimeoutSec:        30,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			PopularSize:      10,
			ReviewWindowDays: 7,
		},
		Crawler: CrawlerConfig{
			BaseURL:         "https://www.imdb.com",
			Retry:           DefaultRetryPolicy(),
			MaxReviewPages:  20,
			ListingPageSize: 50,
			BufferSizeKb:    4096,
		},
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			Language:          "en-US",
			Retry:             DefaultRetryPolicy(),
			RequestsPerSecond: 20,
			Burst:             5,
		},
		Mongo: MongoConfig{
			ConnectTimeoutSec:   10,
			OperationTimeoutSec: 30,
		},
		Tasks: TasksConfig{
			Retries: 2,
			Retry: RetryPolicy{
				MaxAttempts:       3,
				InitialDelayMs:    5000,
				MaxDelayMs:        60000,
				BackoffMultiplier: 2.0,
				TimeoutSec:        3600,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMb:  100,
			MaxBackups: 7,
			MaxAgeDays: 7,
		},
		Metrics: MetricsConfig{
			Job: "moviesync",
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadConfig(filepath string) (*Config, error) {
	cfg := Default()

	if filepath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Sync.PopularSize < 1 {
		return ErrInvalidPopularSize
	}

	if c.Sync.CandidatePool != 0 && c.Sync.CandidatePool < c.Sync.PopularSize {
		return ErrInvalidCandidatePool
	}

	if c.Sync.ReviewWindowDays < 1 {
		return ErrInvalidReviewWindow
	}

	if c.Ingest.MaxMovies < 0 {
		return ErrInvalidMaxMovies
	}

	if c.Ingest.MaxCastMembers < 0 {
		return ErrInvalidMaxCastMembers
	}

	if c.Crawler.BaseURL == "" {
		return ErrMissingCrawlerBaseURL
	}

	if c.Crawler.MaxReviewPages < 1 {
		return ErrInvalidMaxReviewPages
	}

	if c.Crawler.ListingPageSize < 1 {
		return ErrInvalidListingPageSize
	}

	if c.TMDB.BaseURL == "" {
		return ErrMissingTMDBBaseURL
	}

	if c.TMDB.RequestsPerSecond <= 0 {
		return ErrInvalidRateLimit
	}

	policies := map[string]RetryPolicy{
		"crawler.retry": c.Crawler.Retry,
		"tmdb.retry":    c.TMDB.Retry,
		"tasks.retry":   c.Tasks.Retry,
	}

	for name, policy := range policies {
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.Tasks.Retries < 0 {
		return ErrInvalidTaskRetries
	}

	if c.Mongo.ConnectTimeoutSec < 1 || c.Mongo.OperationTimeoutSec < 1 {
		return ErrInvalidMongoTimeout
	}

	// Validate logging config
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// Validate validates a retry policy.
func (rp *RetryPolicy) Validate() error {
	if rp.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if rp.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if rp.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if rp.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// CandidatePoolSize returns how many ranked titles to request per run.
func (c *Config) CandidatePoolSize() int {
	if c.Sync.CandidatePool == 0 {
		return c.Sync.PopularSize
	}

	return c.Sync.CandidatePool
}

// ReviewWindow returns the "recent" release window.
func (c *Config) ReviewWindow() time.Duration {
	return time.Duration(c.Sync.ReviewWindowDays) * 24 * time.Hour
}

// OperationTimeout returns the per-operation document store timeout.
func (c *Config) OperationTimeout() time.Duration {
	return time.Duration(c.Mongo.OperationTimeoutSec) * time.Second
}

// ConnectTimeout returns the document store connect timeout.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Mongo.ConnectTimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{PopularSize: %d, CandidatePool: %d, WindowDays: %d, Crawler: %s, TMDB: %s}",
		c.Sync.PopularSize,
		c.CandidatePoolSize(),
		c.Sync.ReviewWindowDays,
		strings.TrimSuffix(c.Crawler.BaseURL, "/"),
		strings.TrimSuffix(c.TMDB.BaseURL, "/"),
	)
}
