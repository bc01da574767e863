package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for hkbridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Broker   BrokerConfig   `yaml:"broker"`
	EventLog EventLogConfig `yaml:"event_log"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// BrokerConfig contains MQTT broker bootstrap defaults.
//
// These values seed the settings store on first run; afterwards the
// persisted broker settings are authoritative and user edits through the
// bridge survive restarts.
type BrokerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// EventLogConfig contains in-memory event log settings.
type EventLogConfig struct {
	// Capacity is the maximum number of retained events. When the log
	// grows beyond this, the oldest entries are evicted.
	Capacity int `yaml:"capacity"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// event-history mirror.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HKBRIDGE_SECTION_KEY
// For example: HKBRIDGE_DATABASE_PATH, HKBRIDGE_BROKER_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default capacity of the in-memory event log.
const defaultEventLogCapacity = 1000

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/hkbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Broker: BrokerConfig{
			Host:        "localhost",
			Port:        1883,
			TopicPrefix: "homekit",
		},
		EventLog: EventLogConfig{
			Capacity: defaultEventLogCapacity,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HKBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HKBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Broker
	if v := os.Getenv("HKBRIDGE_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("HKBRIDGE_BROKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Port = port
		}
	}
	if v := os.Getenv("HKBRIDGE_BROKER_USERNAME"); v != "" {
		cfg.Broker.Username = v
	}
	if v := os.Getenv("HKBRIDGE_BROKER_PASSWORD"); v != "" {
		cfg.Broker.Password = v
	}

	// InfluxDB
	if v := os.Getenv("HKBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Broker validation
	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}
	if c.Broker.TopicPrefix == "" {
		errs = append(errs, "broker.topic_prefix is required")
	}
	if strings.HasSuffix(c.Broker.TopicPrefix, "/") {
		errs = append(errs, "broker.topic_prefix must not end with '/'")
	}

	// Event log validation
	if c.EventLog.Capacity < 1 {
		errs = append(errs, "event_log.capacity must be at least 1")
	}

	// InfluxDB validation (only when enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
