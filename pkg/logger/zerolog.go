package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// zerologLogger is the concrete Logger backed by rs/zerolog.
type zerologLogger struct {
	logger zerolog.Logger
}

func newZerologLogger(config Config) (*zerologLogger, error) {
	output := config.Output
	if config.Format == "console" {
		output = zerolog.ConsoleWriter{Out: config.Output, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", config.ServiceName).
		Str("version", config.Version).
		Logger().
		Level(logLevelToZerolog(config.Level))

	return &zerologLogger{logger: logger}, nil
}

func (z *zerologLogger) Info(msg string, fields ...Fields) {
	event := z.logger.Info()
	z.addFields(event, fields...)
	event.Msg(msg)
}

func (z *zerologLogger) Fatal(msg string, fields ...Fields) {
	event := z.logger.Fatal()
	z.addFields(event, fields...)
	event.Msg(msg)
}

func (z *zerologLogger) InfoContext(_ context.Context, msg string, fields ...Fields) {
	event := z.logger.Info()
	z.addFields(event, fields...)
	event.Msg(msg)
}

func (z *zerologLogger) ErrorContext(_ context.Context, msg string, fields ...Fields) {
	event := z.logger.Error()
	z.addFields(event, fields...)
	event.Msg(msg)
}

func (z *zerologLogger) Close() error {
	return nil // zerolog doesn't require explicit closing
}

func (z *zerologLogger) addFields(event *zerolog.Event, fields ...Fields) {
	for _, fieldMap := range fields {
		for k, v := range fieldMap {
			event.Interface(k, v)
		}
	}
}

func logLevelToZerolog(level LogLevel) zerolog.Level {
	switch level {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
