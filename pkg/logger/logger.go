// Package logger wraps zerolog behind a small Logger interface,
// matching the level/field/context shape the query dispatcher logs
// through on every dispatched operation.
package logger

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// LogLevel represents the severity of a log entry
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return "unknown"
	}
}

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	case "fatal":
		return FatalLevel
	default:
		return InfoLevel
	}
}

// Fields represents structured logging fields
type Fields map[string]any

// Logger defines the interface the dispatcher and cmd/ binaries log
// through.
type Logger interface {
	Info(msg string, fields ...Fields)
	Fatal(msg string, fields ...Fields)

	InfoContext(ctx context.Context, msg string, fields ...Fields)
	ErrorContext(ctx context.Context, msg string, fields ...Fields)

	Close() error
}

// LoggerType represents the type of logger to use. Zerolog is the
// only backend the dispatcher wires; the type remains a string enum
// so Config round-trips cleanly through pkg/config.
type LoggerType string

const (
	ZerologLogger LoggerType = "zerolog"
)

// Config holds configuration for the logger
type Config struct {
	Type        LoggerType
	Level       LogLevel
	Output      io.Writer
	Format      string // "json", "console"
	ServiceName string
	Version     string
}

// LoggerFactory creates logger instances
type LoggerFactory struct{}

// NewLogger creates a new logger based on the configuration
func (f *LoggerFactory) NewLogger(config Config) (Logger, error) {
	switch config.Type {
	case ZerologLogger, "":
		return newZerologLogger(config)
	default:
		return nil, fmt.Errorf("unsupported logger type: %s", config.Type)
	}
}
