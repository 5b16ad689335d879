package config

import (
	"fmt"
	"strings"
)

// LoggerConfig represents logger configuration, read directly by
// cmd/dbufdb and cmd/dbufserver to build a pkg/logger.Config.
type LoggerConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "zerolog"
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"` // "json", "console"
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	Version     string `yaml:"version" mapstructure:"version"`
}

// Validate validates the logger configuration
func (l *LoggerConfig) Validate() error {
	if l.Type != "zerolog" {
		return fmt.Errorf("invalid logger type: %s, must be zerolog", l.Type)
	}

	if l.Level != "" {
		validLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
			"fatal": true,
		}
		if !validLevels[strings.ToLower(l.Level)] {
			return fmt.Errorf("invalid log level: %s, must be one of: debug, info, warn, error, fatal", l.Level)
		}
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s, must be one of: json, console", l.Format)
	}

	return nil
}
