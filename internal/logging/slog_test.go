package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/subflow/types"
)

func newBufferedLogger(level slog.Level) (*SlogLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})

	return NewSlog(slog.New(handler)), buf
}

func TestNewSlog(t *testing.T) {
	logger, _ := newBufferedLogger(slog.LevelDebug)

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestNewSlogDefault(t *testing.T) {
	logger := NewSlogDefault()

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestSlogLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(l *SlogLogger)
		want  string
		level string
	}{
		{"debug", func(l *SlogLogger) { l.Debug("subscription created", "sid", 1) }, "sid=1", "level=DEBUG"},
		{"info", func(l *SlogLogger) { l.Info("connection closed", "subscriptions", 3) }, "subscriptions=3", "level=INFO"},
		{"warn", func(l *SlogLogger) { l.Warn("slow consumer detected", "subject", "foo") }, "subject=foo", "level=WARN"},
		{"error", func(l *SlogLogger) { l.Error("message handler failed", "error", "boom") }, "error=boom", "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferedLogger(slog.LevelDebug)
			tt.log(logger)

			output := buf.String()
			assert.Contains(t, output, tt.want)
			assert.Contains(t, output, tt.level)
		})
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(slog.LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")

	logger.Warn("warn message")
	logger.Error("error message")

	output = buf.String()
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestNopLogger(t *testing.T) {
	var logger types.Logger = NewNop()

	require.NotPanics(t, func() {
		logger.Debug("test message", "key", "value")
		logger.Info("test message", "key", "value")
		logger.Warn("test message", "key", "value")
		logger.Error("test message", "key", "value")
		logger.Fatal("test message", "key", "value") // Should NOT exit
	})
}

func BenchmarkNopLogger(b *testing.B) {
	logger := NewNop()

	for b.Loop() {
		logger.Debug("benchmark message", "key1", "value1", "key2", 42)
	}
}
