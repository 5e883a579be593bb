// Package config loads the application configuration.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and TRASHINATOR_* environment variables.
//
//	TRASHINATOR_MAX_TRACKING_SPLIT=7
//	TRASHINATOR_STATS_NORMALIZE_WEEKLY=false
//	TRASHINATOR_DATABASE_DSN=postgres://localhost/trash?sslmode=disable
//	TRASHINATOR_AWS_S3_BUCKET=trash-stats
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRASHINATOR"

// DefaultConfigFile is read when TRASHINATOR_CONFIG_FILE is unset.
const DefaultConfigFile = "trashinator.yaml"

// Config represents the complete application configuration.
//
// Environment keys are derived from the field names (split_words), so
// Database.IAMAuth is read from TRASHINATOR_DATABASE_IAM_AUTH. Explicit
// envconfig tags are avoided because envconfig also falls back to the bare
// tag, which would pick up variables such as USER or PORT.
type Config struct {
	// MaxTrackingSplit is the gap window in days: the most days a record may
	// lie from a tracking period and still join it. The sweep closes periods
	// whose latest record is older than the same window.
	MaxTrackingSplit int `yaml:"max_tracking_split" split_words:"true"`

	Stats    StatsConfig    `yaml:"stats" split_words:"true"`
	Database DatabaseConfig `yaml:"database" split_words:"true"`
	AWS      AWSConfig      `yaml:"aws" split_words:"true"`
	Logging  LoggingConfig  `yaml:"logging" split_words:"true"`
}

// StatsConfig tunes the statistics engines.
type StatsConfig struct {
	NormalizeWeekly bool `yaml:"normalize_weekly" split_words:"true"`
}

// DatabaseConfig selects the PostgreSQL database. DSN wins over Endpoint.
// With neither set the in-memory repository is used.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn" split_words:"true"`
	Endpoint string `yaml:"endpoint" split_words:"true"` // e.g. trash.abc123xyz.eu-central-1.rds.amazonaws.com
	Port     int    `yaml:"port" split_words:"true"`
	User     string `yaml:"user" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	Name     string `yaml:"name" split_words:"true"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	IAMAuth  bool   `yaml:"iam_auth" split_words:"true"` // authenticate against RDS with an IAM token
}

// AWSConfig contains the AWS SDK settings and the stats snapshot bucket.
type AWSConfig struct {
	Profile  string `yaml:"profile" split_words:"true"` // Primarily for dev purposes
	Region   string `yaml:"region" split_words:"true"`
	S3Bucket string `yaml:"s3_bucket" split_words:"true"`
	S3Prefix string `yaml:"s3_prefix" split_words:"true"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxTrackingSplit: 7,
		Database: DatabaseConfig{
			Port:    5432,
			SSLMode: "require",
		},
		AWS: AWSConfig{
			S3Prefix: "stats/",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the file named by TRASHINATOR_CONFIG_FILE (or DefaultConfigFile
// when present) and the environment.
func Load() (*Config, error) {
	path := os.Getenv(EnvPrefix + "_CONFIG_FILE")
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile overlays the YAML file onto cfg; keys missing from the file
// keep their current value.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.MaxTrackingSplit < 1 {
		errs = append(errs, fmt.Errorf("max_tracking_split must be at least 1 day, got %d", c.MaxTrackingSplit))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid logging level %q", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid logging format %q", c.Logging.Format))
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid database port %d", c.Database.Port))
	}

	if c.Database.DSN == "" && c.Database.Endpoint != "" {
		if c.Database.User == "" || c.Database.Name == "" {
			errs = append(errs, errors.New("database endpoint requires user and name"))
		}
		if c.Database.IAMAuth && c.AWS.Region == "" {
			errs = append(errs, errors.New("IAM database authentication requires an AWS region"))
		}
	}

	return errors.Join(errs...)
}

// UsesDatabase reports whether a PostgreSQL database is configured.
func (c *Config) UsesDatabase() bool {
	return c.Database.DSN != "" || c.Database.Endpoint != ""
}
