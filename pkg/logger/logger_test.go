package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZerologLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log, err := (&LoggerFactory{}).NewLogger(Config{
		Type:        ZerologLogger,
		Level:       InfoLevel,
		Output:      &buf,
		Format:      "json",
		ServiceName: "dbufdb",
	})
	require.NoError(t, err)

	log.Info("query dispatched", Fields{"op": "select", "rows": 2})
	require.Contains(t, buf.String(), `"op":"select"`)
	require.Contains(t, buf.String(), `"service":"dbufdb"`)

	log.InfoContext(context.Background(), "context path", Fields{"op": "select"})
	log.ErrorContext(context.Background(), "context failure", Fields{"err": "boom"})
	require.Contains(t, buf.String(), "context failure")

	require.NoError(t, log.Close())
}

func TestUnsupportedLoggerTypeFails(t *testing.T) {
	_, err := (&LoggerFactory{}).NewLogger(Config{Type: "bogus"})
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, DebugLevel, ParseLogLevel("debug"))
	require.Equal(t, WarnLevel, ParseLogLevel("warning"))
	require.Equal(t, InfoLevel, ParseLogLevel("bogus"))
}
