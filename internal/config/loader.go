package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the TOML configuration file structure
type TOMLConfig struct {
	HTTP        TOMLHTTPConfig        `toml:"http"`
	DB          TOMLDBConfig          `toml:"db"`
	Queue       TOMLQueueConfig       `toml:"queue"`
	Scheduler   TOMLSchedulerConfig   `toml:"scheduler"`
	Concurrency TOMLConcurrencyConfig `toml:"concurrency"`
	DataDir     string                `toml:"data_dir"`
	DevMode     bool                  `toml:"dev_mode"`
}

// TOMLHTTPConfig represents HTTP configuration in TOML
type TOMLHTTPConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// TOMLDBConfig represents persistence backend configuration in TOML
type TOMLDBConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
}

// TOMLQueueConfig represents queue configuration in TOML
type TOMLQueueConfig struct {
	Type string         `toml:"type"`
	NATS TOMLNATSConfig `toml:"nats"`
}

// TOMLNATSConfig represents NATS configuration in TOML
type TOMLNATSConfig struct {
	URL     string `toml:"url"`
	DataDir string `toml:"data_dir"`
}

// TOMLSchedulerConfig represents scheduler configuration in TOML
type TOMLSchedulerConfig struct {
	InstanceID        string `toml:"instance_id"`
	PollInterval      string `toml:"poll_interval"`
	BatchSize         int    `toml:"batch_size"`
	BatchTimeWindow   string `toml:"batch_time_window"`
	MaxAcquireRetries int    `toml:"max_acquire_retries"`
	ThreadCount       int    `toml:"thread_count"`
}

// TOMLConcurrencyConfig represents concurrency overrides in TOML
type TOMLConcurrencyConfig struct {
	LimitOverrides map[string]int `toml:"limit_overrides"`
}

// ConfigPaths lists the paths to search for config files
var ConfigPaths = []string{
	"config.toml",
	"application.toml",
	"triggerstore.toml",
	"./config/config.toml",
	"./config/application.toml",
	"/etc/triggerstore/config.toml",
}

// LoadFromFile loads configuration from a TOML file
func LoadFromFile(path string) (*Config, error) {
	var tomlCfg TOMLConfig

	if _, err := toml.DecodeFile(path, &tomlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return tomlConfigToConfig(&tomlCfg)
}

// LoadWithFile loads configuration from file first, then overrides with env vars
func LoadWithFile() (*Config, error) {
	// Start with defaults from environment
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	// Check for explicit config file path
	configPath := os.Getenv("TRIGGERSTORE_CONFIG")
	if configPath == "" {
		// Search for config file in standard locations
		for _, path := range ConfigPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}

	// If no config file found, just use env vars
	if configPath == "" {
		return cfg, nil
	}

	// Load from file
	fileCfg, err := LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	// Merge: file config as base, env vars override
	return mergeConfigs(fileCfg, cfg), nil
}

// tomlConfigToConfig converts TOML config to the internal Config struct
func tomlConfigToConfig(tc *TOMLConfig) (*Config, error) {
	cfg := &Config{
		HTTP: HTTPConfig{
			Port:        tc.HTTP.Port,
			CORSOrigins: tc.HTTP.CORSOrigins,
		},
		DB: DBConfig{
			Driver: tc.DB.Driver,
			DSN:    tc.DB.DSN,
		},
		Queue: QueueConfig{
			Type: tc.Queue.Type,
			NATS: NATSConfig{
				URL:     tc.Queue.NATS.URL,
				DataDir: tc.Queue.NATS.DataDir,
			},
		},
		Scheduler: SchedulerConfig{
			InstanceID:        tc.Scheduler.InstanceID,
			BatchSize:         tc.Scheduler.BatchSize,
			MaxAcquireRetries: tc.Scheduler.MaxAcquireRetries,
			ThreadCount:       tc.Scheduler.ThreadCount,
		},
		Concurrency: ConcurrencyConfig{
			LimitOverrides: tc.Concurrency.LimitOverrides,
		},
		DataDir: tc.DataDir,
		DevMode: tc.DevMode,
	}

	// Parse durations
	if tc.Scheduler.PollInterval != "" {
		if d, err := time.ParseDuration(tc.Scheduler.PollInterval); err == nil {
			cfg.Scheduler.PollInterval = d
		}
	}
	if tc.Scheduler.BatchTimeWindow != "" {
		if d, err := time.ParseDuration(tc.Scheduler.BatchTimeWindow); err == nil {
			cfg.Scheduler.BatchTimeWindow = d
		}
	}

	return cfg, nil
}

// mergeConfigs merges two configs, with override taking precedence for non-zero values
func mergeConfigs(base, override *Config) *Config {
	result := *base

	// HTTP
	if override.HTTP.Port != 0 && override.HTTP.Port != 8080 {
		result.HTTP.Port = override.HTTP.Port
	}
	if len(override.HTTP.CORSOrigins) > 0 {
		result.HTTP.CORSOrigins = override.HTTP.CORSOrigins
	}

	// DB
	if override.DB.Driver != "" && override.DB.Driver != "sqlite" {
		result.DB.Driver = override.DB.Driver
	}
	if override.DB.DSN != "" && override.DB.DSN != "./data/triggerstore.db" {
		result.DB.DSN = override.DB.DSN
	}

	// Queue
	if override.Queue.Type != "" && override.Queue.Type != "embedded" {
		result.Queue.Type = override.Queue.Type
	}
	if override.Queue.NATS.URL != "" {
		result.Queue.NATS.URL = override.Queue.NATS.URL
	}
	if override.Queue.NATS.DataDir != "" {
		result.Queue.NATS.DataDir = override.Queue.NATS.DataDir
	}

	// Scheduler
	if override.Scheduler.InstanceID != "" {
		result.Scheduler.InstanceID = override.Scheduler.InstanceID
	}
	if override.Scheduler.PollInterval != 0 {
		result.Scheduler.PollInterval = override.Scheduler.PollInterval
	}
	if override.Scheduler.BatchSize != 0 {
		result.Scheduler.BatchSize = override.Scheduler.BatchSize
	}

	// Concurrency overrides from env win per-key, merged over file entries.
	if len(override.Concurrency.LimitOverrides) > 0 {
		merged := make(map[string]int, len(result.Concurrency.LimitOverrides)+len(override.Concurrency.LimitOverrides))
		for k, v := range result.Concurrency.LimitOverrides {
			merged[k] = v
		}
		for k, v := range override.Concurrency.LimitOverrides {
			merged[k] = v
		}
		result.Concurrency.LimitOverrides = merged
	}

	// General
	if override.DataDir != "" && override.DataDir != "./data" {
		result.DataDir = override.DataDir
	}
	if override.DevMode {
		result.DevMode = true
	}

	return &result
}

// WriteExampleConfig writes an example configuration file
func WriteExampleConfig(path string) error {
	example := `# TriggerStore Configuration
# Environment variables override these settings

[http]
port = 8080
cors_origins = ["http://localhost:4200"]

[db]
driver = "sqlite"  # sqlite or postgres
dsn = "./data/triggerstore.db"

[queue]
type = "embedded"  # embedded or nats

[queue.nats]
url = "nats://localhost:4222"
data_dir = "./data/nats"

[scheduler]
instance_id = ""
poll_interval = "5s"
batch_size = 25
batch_time_window = "1s"
max_acquire_retries = 3
thread_count = 4

[concurrency]
# limit_overrides.REPORT_EXPORT = 2

data_dir = "./data"
dev_mode = false
`

	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return os.WriteFile(path, []byte(example), 0644)
}
