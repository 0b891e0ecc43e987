package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Extraction ExtractionConfig
	Reference  ReferenceConfig
	Dedup      DedupConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ExtractionConfig holds pipeline thresholds
type ExtractionConfig struct {
	MinConfidence        float64 `mapstructure:"min_confidence"`
	ContextRadius        int     `mapstructure:"context_radius"`
	MaxBrandDistance     int     `mapstructure:"max_brand_distance"`
	MaxCandidates        int     `mapstructure:"max_candidates"`
	DescriptionMaxLength int     `mapstructure:"description_max_length"`
	MaxRedFlagDensity    float64 `mapstructure:"max_red_flag_density"`
	MinGreenFlags        int     `mapstructure:"min_green_flags"`
	RequireMixed         bool    `mapstructure:"require_mixed"`
	TopCategories        int     `mapstructure:"top_categories"`
	EnableDebugLogging   bool    `mapstructure:"enable_debug_logging"`
}

// ReferenceConfig points at the reference vocabulary; empty uses the embedded default
type ReferenceConfig struct {
	Path string `mapstructure:"path"`
}

// DedupConfig holds the dedup store and historical artifact locations
type DedupConfig struct {
	DBPath       string `mapstructure:"db_path"` // "" keeps keys in memory only
	ArtifactsDir string `mapstructure:"artifacts_dir"`
	HistoryLog   string `mapstructure:"history_log"`
	LogMarker    string `mapstructure:"log_marker"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/couponlens/")

	// Environment variable settings: extraction.min_confidence -> COUPONLENS_EXTRACTION_MIN_CONFIDENCE
	v.SetEnvPrefix("COUPONLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Extraction defaults
	v.SetDefault("extraction.min_confidence", 0.7)
	v.SetDefault("extraction.context_radius", 150)
	v.SetDefault("extraction.max_brand_distance", 500)
	v.SetDefault("extraction.max_candidates", 10)
	v.SetDefault("extraction.description_max_length", 200)
	v.SetDefault("extraction.max_red_flag_density", 0.05)
	v.SetDefault("extraction.min_green_flags", 2)
	v.SetDefault("extraction.require_mixed", true)
	v.SetDefault("extraction.top_categories", 3)
	v.SetDefault("extraction.enable_debug_logging", false)

	// Reference data defaults
	v.SetDefault("reference.path", "")

	// Dedup defaults
	v.SetDefault("dedup.db_path", "data/coupon_keys.db")
	v.SetDefault("dedup.artifacts_dir", "")
	v.SetDefault("dedup.history_log", "logs/extraction.log")
	v.SetDefault("dedup.log_marker", "Valid coupon extracted:")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.burst", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	e := config.Extraction

	if e.MinConfidence <= 0 || e.MinConfidence > 1 {
		return fmt.Errorf("extraction.min_confidence must be within (0,1], got: %v", e.MinConfidence)
	}

	if e.MaxRedFlagDensity <= 0 || e.MaxRedFlagDensity > 1 {
		return fmt.Errorf("extraction.max_red_flag_density must be within (0,1], got: %v", e.MaxRedFlagDensity)
	}

	if e.ContextRadius <= 0 || e.MaxBrandDistance <= 0 || e.MaxCandidates <= 0 || e.DescriptionMaxLength <= 0 {
		return fmt.Errorf("extraction radius, distance, candidate and description limits must be positive")
	}

	if e.MinGreenFlags < 1 || e.TopCategories <= 0 {
		return fmt.Errorf("extraction.min_green_flags must be >= 1 and extraction.top_categories > 0")
	}

	if config.RateLimit.PerIP <= 0 || config.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.per_ip and ratelimit.burst must be positive")
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got: %s", config.Logging.Format)
	}

	return nil
}

// loadEnvFile exports KEY=VALUE lines from ./.env without overriding variables
// already set in the environment. A missing file is not an error.
func loadEnvFile() error {
	f, err := os.Open(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
