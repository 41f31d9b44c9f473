package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/natefinch/atomic"
)

// Config holds the settings shared by every command. Values are read from a
// JSON file and can be overridden by MARKOV_* environment variables.
type Config struct {
	ServerAddr   string `json:"server_addr" env:"MARKOV_SERVER_ADDR"`
	LogLevel     string `json:"log_level" env:"MARKOV_LOG_LEVEL"`
	DatabasePath string `json:"database_path" env:"MARKOV_DATABASE_PATH"`
	StateSize    int    `json:"state_size" env:"MARKOV_STATE_SIZE"`
	// MaxLength is the default walk length of the CLI and the ceiling of
	// every walk served over HTTP.
	MaxLength int `json:"max_length" env:"MARKOV_MAX_LENGTH"`
	// MaxWalkCount caps the number of walks served by one API request.
	MaxWalkCount int `json:"max_walk_count" env:"MARKOV_MAX_WALK_COUNT"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		ServerAddr:   ":7279",
		LogLevel:     "info",
		DatabasePath: "./data/markov.db",
		StateSize:    2,
		MaxLength:    200,
		MaxWalkCount: 100,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values. Environment
// variables are applied last.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		var data []byte
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal default config: %w", err)
		}
		if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			// The commands can still run with defaults.
			fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
		}
	} else if err = json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err = env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if config.StateSize < 1 {
		return nil, fmt.Errorf("invalid config: state_size must be positive, got %d", config.StateSize)
	}
	if config.MaxLength < 1 {
		return nil, fmt.Errorf("invalid config: max_length must be positive, got %d", config.MaxLength)
	}
	if config.MaxWalkCount < 1 {
		return nil, fmt.Errorf("invalid config: max_walk_count must be positive, got %d", config.MaxWalkCount)
	}
	return config, nil
}

// parseLogLevel maps a configured level name to a slog.Level, defaulting to
// info for unknown names.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
