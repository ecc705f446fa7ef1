package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"

	customerrors "github.com/llamino/UrlShortener/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML/JSON keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port    int    `mapstructure:"port"`     // HTTP server port (default: 8080)
		BaseURL string `mapstructure:"base_url"` // Base URL for generating short links
		// Secret is the server-held key signing every short code. Loaded
		// once at startup and injected into the codec, never read from
		// global state afterwards. Override via SERVER_SECRET in production.
		Secret string `mapstructure:"secret"`
	} `mapstructure:"server"`

	// Database configuration section for SQLite settings
	Database struct {
		Name string `mapstructure:"name"` // SQLite database file name
	} `mapstructure:"database"`

	// Redis configuration for the fast cache (resolution cache, abuse
	// verdicts, click-count accumulator, rate limiting)
	Redis struct {
		Addr     string `mapstructure:"addr"`     // host:port of the Redis server
		Password string `mapstructure:"password"` // Password, empty when auth is disabled
		DB       int    `mapstructure:"db"`       // Logical database number
	} `mapstructure:"redis"`

	// Analytics configuration for the asynchronous click pipeline
	Analytics struct {
		BufferSize               int `mapstructure:"buffer_size"`                // Size of the click event channel buffer
		WorkerCount              int `mapstructure:"worker_count"`               // Number of worker goroutines for processing clicks
		ReconcileIntervalMinutes int `mapstructure:"reconcile_interval_minutes"` // Minutes between click-count reconciliation cycles
	} `mapstructure:"analytics"`

	// Cache lifetimes and warming policy
	Cache struct {
		ResolutionTTLMinutes int  `mapstructure:"resolution_ttl_minutes"` // Lifetime of on-demand resolution entries
		VerdictTTLMinutes    int  `mapstructure:"verdict_ttl_minutes"`    // Lifetime of positive abuse-guard verdicts
		WarmTTLHours         int  `mapstructure:"warm_ttl_hours"`         // Lifetime of warmed popular entries
		PopularThreshold     uint `mapstructure:"popular_threshold"`      // Click count at which a link is considered popular
		WarmIntervalMinutes  int  `mapstructure:"warm_interval_minutes"`  // Minutes between cache warming passes
	} `mapstructure:"cache"`

	// RateLimit configuration for the redirect endpoint
	RateLimit struct {
		RedirectPerMinute int `mapstructure:"redirect_per_minute"` // Allowed redirects per client IP per minute
	} `mapstructure:"ratelimit"`
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and YAML configuration files.
// Returns a populated Config struct or an error if configuration loading fails.
func LoadConfig() (*Config, error) {
	// Enable automatic environment variable binding
	// This allows config values to be overridden via environment variables
	viper.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	// e.g., "server.port" becomes "SERVER_PORT"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Specify the directory path where Viper should look for config files
	viper.AddConfigPath("./configs")

	// Specify the name of the config file (without the extension)
	viper.SetConfigName("config")

	// Specify the type/format of the config file (YAML in this case)
	viper.SetConfigType("yaml")

	// Set default values for all configuration options
	// These will be used if no config file is found or if specific keys are missing
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "http://localhost:8080")
	viper.SetDefault("server.secret", "")
	viper.SetDefault("database.name", "url_shortener.db")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.worker_count", 5)
	viper.SetDefault("analytics.reconcile_interval_minutes", 30)
	viper.SetDefault("cache.resolution_ttl_minutes", 20)
	viper.SetDefault("cache.verdict_ttl_minutes", 15)
	viper.SetDefault("cache.warm_ttl_hours", 24)
	viper.SetDefault("cache.popular_threshold", 30)
	viper.SetDefault("cache.warm_interval_minutes", 30)
	viper.SetDefault("ratelimit.redirect_per_minute", 10)

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		// Check if the error is specifically "config file not found"
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// This is not a fatal error - we'll use default values
			log.Println("Config file not found, using default values")
		} else {
			// Any other error (permissions, malformed YAML, etc.) is fatal
			return nil, customerrors.ErrConfigLoad{Path: "./configs", Reason: err.Error()}
		}
	}

	// Unmarshal the loaded configuration into our Config structure
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// The secret signs every short code; without one, codes would be
	// forgeable by anyone knowing the encoding scheme.
	if cfg.Server.Secret == "" {
		return nil, fmt.Errorf("server.secret is required (set it in configs/config.yaml or via SERVER_SECRET)")
	}

	log.Printf("Configuration loaded: Server Port=%d, DB Name=%s, Redis=%s, Analytics Buffer=%d, Reconcile Interval=%dmin",
		cfg.Server.Port, cfg.Database.Name, cfg.Redis.Addr, cfg.Analytics.BufferSize, cfg.Analytics.ReconcileIntervalMinutes)

	return &cfg, nil
}
