package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"market-screener/src/helpers"
	"market-screener/src/models"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods.
// Once servers are running, the symbol universe is read and replaced only
// through Universe and SetUniverse.
type Config struct {
	*models.MConfig
	mu sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewConfig reads a YAML file, applies env overrides and defaults, then validates.
func NewConfig(configPath string) (*Config, error) {
	var modelConfig models.MConfig
	if err := cleanenv.ReadConfig(configPath, &modelConfig); err != nil {
		return nil, &helpers.ConfigurationError{ScreenerError: helpers.ScreenerError{
			Message: fmt.Sprintf("failed to read config file '%s'", configPath),
			Cause:   err,
		}}
	}

	config := &Config{MConfig: &modelConfig}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// NewDefaultConfig returns the built-in defaults with no file involved.
func NewDefaultConfig() (*Config, error) {
	var modelConfig models.MConfig
	if err := cleanenv.ReadEnv(&modelConfig); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &Config{MConfig: &modelConfig}, nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort <= 1024 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d (must be between 1025 and 65535)", c.GrpcPort)
	}

	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARNING", "WARN", "ERROR", "CRITICAL":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	// Provider
	switch c.Provider.Type {
	case "yahoo", "sqlite", "postgres":
	case "parquet":
		if c.Provider.ParquetDir == "" {
			return fmt.Errorf("parquet_dir cannot be empty for the parquet provider")
		}
	default:
		return fmt.Errorf("unknown provider type %q", c.Provider.Type)
	}

	// Storage
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unknown database type %q", c.Storage.DBType)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}
	if c.Network.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}

	// Screener
	s := c.Screener
	if s.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}
	if s.LookbackDays <= 0 {
		return fmt.Errorf("lookback days must be greater than 0")
	}
	if s.BatchTimeoutSeconds <= 0 {
		return fmt.Errorf("batch timeout must be greater than 0")
	}
	if s.ConcurrentBatches <= 0 {
		return fmt.Errorf("concurrent batches must be greater than 0")
	}
	if s.AbsentBaseline != models.AbsentBaselineZero && s.AbsentBaseline != models.AbsentBaselineSelf {
		return fmt.Errorf("absent_baseline must be %q or %q", models.AbsentBaselineZero, models.AbsentBaselineSelf)
	}
	if s.Market == "" {
		return fmt.Errorf("market cannot be empty")
	}

	for i, sym := range c.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("symbol %d cannot be empty", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.save(configPath)
}

// -----------------------------------------------------------------------------

// Universe returns a copy of the default symbol universe.
func (c *Config) Universe() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.Symbols...)
}

// -----------------------------------------------------------------------------

// SetUniverse replaces the default symbol universe and, when configPath is
// set, persists the config while still holding the lock so concurrent
// updates reach the file in the order they were applied.
func (c *Config) SetUniverse(symbols []string, configPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Symbols = append([]string(nil), symbols...)
	if configPath == "" {
		return nil
	}
	return c.save(configPath)
}

// -----------------------------------------------------------------------------

func (c *Config) save(configPath string) error {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
