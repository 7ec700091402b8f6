package config

import "fmt"

// LoggerConfig holds configuration for structured logging
type LoggerConfig struct {
	Level      string
	Format     string
	LogFile    string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// LoadLoggerConfig loads logger configuration from environment variables
func LoadLoggerConfig(getenv func(string) string) (*LoggerConfig, error) {
	config := &LoggerConfig{
		Level:      getenv("LOG_LEVEL"),
		Format:     getenv("LOG_FORMAT"),
		LogFile:    getenv("LOG_FILE"),
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}

	if config.Level == "" {
		config.Level = "info"
	}
	if config.Format == "" {
		config.Format = "console"
	}
	if config.Format != "console" && config.Format != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be console or json, got %q", config.Format)
	}

	return config, nil
}
