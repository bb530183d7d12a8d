// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, AdServe, Slot, Kafka, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	AdServe AdServeConfig `yaml:"adserve"`
	Slot    SlotConfig    `yaml:"slot"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RequestTimeout bounds a whole inbound render request. Zero disables it,
	// which leaves a hung ad-network call waiting indefinitely.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// AdServeConfig describes the ad network endpoint.
type AdServeConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	PlacementID string `yaml:"placementId"`
	Size        string `yaml:"size"`
	ClickMacro  string `yaml:"clickMacro"`
}

// SlotConfig controls AdSlot behaviour.
type SlotConfig struct {
	DefaultKeyword string `yaml:"defaultKeyword"`
	// DiscardStale drops ad responses overtaken by a newer fetch for the
	// same slot. Off, the last response to resolve wins.
	DiscardStale bool `yaml:"discardStale"`
	// Sanitize routes ad bodies through the sanitizing markup policy instead
	// of trusting them verbatim.
	Sanitize bool `yaml:"sanitize"`
}

// KafkaConfig holds Kafka broker and topic settings for slot outcome events.
type KafkaConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Brokers    []string `yaml:"brokers"`
	Topic      string   `yaml:"topic"`
	BufferSize int      `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration value that cannot work.
func (c *Config) Validate() error {
	if c.AdServe.BaseURL == "" {
		return fmt.Errorf("adserve.baseUrl is required")
	}
	if c.AdServe.PlacementID == "" {
		return fmt.Errorf("adserve.placementId is required")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		AdServe: AdServeConfig{
			BaseURL:     "https://ads.empowerlocal.co/adserve/",
			PlacementID: "181918",
			Size:        "0x0",
			ClickMacro:  "CLICK_MACRO_PLACEHOLDER",
		},
		Slot: SlotConfig{
			DefaultKeyword: "article",
		},
		Kafka: KafkaConfig{
			Brokers:    []string{"localhost:9092"},
			Topic:      "adslot-outcomes",
			BufferSize: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads ADSLOT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ADSLOT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ADSLOT_ADSERVE_BASE_URL"); v != "" {
		cfg.AdServe.BaseURL = v
	}
	if v := os.Getenv("ADSLOT_ADSERVE_PLACEMENT_ID"); v != "" {
		cfg.AdServe.PlacementID = v
	}
	if v := os.Getenv("ADSLOT_SLOT_DEFAULT_KEYWORD"); v != "" {
		cfg.Slot.DefaultKeyword = v
	}
	if v := os.Getenv("ADSLOT_SLOT_DISCARD_STALE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Slot.DiscardStale = b
		}
	}
	if v := os.Getenv("ADSLOT_SLOT_SANITIZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Slot.Sanitize = b
		}
	}
	if v := os.Getenv("ADSLOT_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("ADSLOT_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ADSLOT_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("ADSLOT_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ADSLOT_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ADSLOT_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
