package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	Scrape    ScrapeConfig
	Matching  MatchingConfig
	Suggest   SuggestConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig points at the vendor/solution spreadsheet
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type           string        `mapstructure:"type"` // "sqlite" or "memory"
	Path           string        `mapstructure:"path"`
	FuzzyThreshold int           `mapstructure:"fuzzy_threshold"` // 0-100 key similarity for a hit
	TTL            time.Duration `mapstructure:"ttl"`
	MaxEntries     int           `mapstructure:"max_entries"`
}

// ScrapeConfig holds marketplace scraping configuration
type ScrapeConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`         // per-marketplace budget
	OverallTimeout time.Duration `mapstructure:"overall_timeout"` // whole-query budget
	MaxResults     int           `mapstructure:"max_results"`
	UserAgent      string        `mapstructure:"user_agent"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
}

// MatchingConfig holds scorer and catalog-resolution thresholds
type MatchingConfig struct {
	NoMatchThreshold float64 `mapstructure:"no_match_threshold"` // below this the suggestion fallback fires
	ResolveThreshold float64 `mapstructure:"resolve_threshold"`  // catalog fuzzy-resolution cutoff
	EnableDebugLogging bool  `mapstructure:"enable_debug_logging"`
}

// SuggestConfig holds the LLM suggestion fallback configuration
type SuggestConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	MaxSuggestions int    `mapstructure:"max_suggestions"`
}

// RateLimitConfig holds per-IP API rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cloudmatch/")

	v.SetEnvPrefix("CLOUDMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8501"})

	v.SetDefault("catalog.path", "data/vendors.xlsx")

	v.SetDefault("cache.type", "sqlite")
	v.SetDefault("cache.path", "data/search_cache.db")
	v.SetDefault("cache.fuzzy_threshold", 90)
	v.SetDefault("cache.ttl", "720h") // 30 days
	v.SetDefault("cache.max_entries", 1000)

	v.SetDefault("scrape.timeout", "30s")
	v.SetDefault("scrape.overall_timeout", "90s")
	v.SetDefault("scrape.max_results", 10)
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scrape.rate_per_second", 1.0)

	v.SetDefault("matching.no_match_threshold", 30.0)
	v.SetDefault("matching.resolve_threshold", 50.0)
	v.SetDefault("matching.enable_debug_logging", false)

	v.SetDefault("suggest.enabled", false)
	v.SetDefault("suggest.base_url", "http://localhost:11434/v1")
	v.SetDefault("suggest.model", "llama3")
	v.SetDefault("suggest.max_suggestions", 3)

	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Catalog.Path == "" {
		return fmt.Errorf("catalog path is required (set CLOUDMATCH_CATALOG_PATH)")
	}

	if config.Cache.Type != "sqlite" && config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'sqlite' or 'memory', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "sqlite" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'sqlite'")
	}

	if config.Cache.FuzzyThreshold < 0 || config.Cache.FuzzyThreshold > 100 {
		return fmt.Errorf("cache fuzzy threshold must be 0-100, got: %d", config.Cache.FuzzyThreshold)
	}

	if config.Suggest.Enabled && config.Suggest.Model == "" {
		return fmt.Errorf("suggest model is required when suggestions are enabled")
	}

	return nil
}
