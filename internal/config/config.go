// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Matching MatchingConfig `yaml:"matching" mapstructure:"matching"`
	Rules    RulesConfig    `yaml:"rules" mapstructure:"rules"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int     `yaml:"port" mapstructure:"port"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst      int     `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MatchingConfig carries the tunable thresholds of the matching engine.
// The match formula weights themselves are a fixed contract and are not
// configurable.
type MatchingConfig struct {
	MinMatchScore int `yaml:"min_match_score" mapstructure:"min_match_score"`
	DefaultLimit  int `yaml:"default_limit" mapstructure:"default_limit"`
	SimilarLimit  int `yaml:"similar_limit" mapstructure:"similar_limit"`
	MaxResults    int `yaml:"max_results" mapstructure:"max_results"`
}

// RulesConfig points at an optional service-rule override file.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DefaultMatchingConfig returns the engine thresholds used when no config
// file overrides them.
func DefaultMatchingConfig() MatchingConfig {
	return MatchingConfig{
		MinMatchScore: 60,
		DefaultLimit:  10,
		SimilarLimit:  5,
		MaxResults:    100,
	}
}

// ValidateMatching checks that a MatchingConfig is internally consistent.
func ValidateMatching(c MatchingConfig) error {
	var errs []string

	if c.MinMatchScore < 0 || c.MinMatchScore > 100 {
		errs = append(errs, fmt.Sprintf("min_match_score must be between 0 and 100 (got %d)", c.MinMatchScore))
	}
	if c.DefaultLimit <= 0 {
		errs = append(errs, "default_limit must be > 0")
	}
	if c.SimilarLimit <= 0 {
		errs = append(errs, "similar_limit must be > 0")
	}
	if c.MaxResults > 0 && c.MaxResults < c.DefaultLimit {
		errs = append(errs, "max_results must be >= default_limit")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: matching validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks that the configuration required by a command is present.
func (c *Config) Validate(scope string) error {
	switch scope {
	case "store":
		if c.Store.Driver == "" {
			return eris.New("config: store.driver is required")
		}
		if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
			return eris.Errorf("config: store.driver must be postgres or sqlite (got %q)", c.Store.Driver)
		}
		if c.Store.DatabaseURL == "" {
			return eris.Errorf("config: store.database_url is required for driver %s", c.Store.Driver)
		}
	case "serve":
		if err := c.Validate("store"); err != nil {
			return err
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return eris.Errorf("config: server.port must be a valid port (got %d)", c.Server.Port)
		}
	}
	return ValidateMatching(c.Matching)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RIVALVIEWS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "rivalviews.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_per_second", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("matching.min_match_score", 60)
	v.SetDefault("matching.default_limit", 10)
	v.SetDefault("matching.similar_limit", 5)
	v.SetDefault("matching.max_results", 100)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
