package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatKeyValues(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want string
	}{
		{"empty", nil, ""},
		{"pairs", []any{"sid", 1, "subject", "foo"}, "sid=1 subject=foo"},
		{"odd", []any{"sid", 1, "dangling"}, "sid=1 dangling=<missing>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, formatKeyValues(tt.in))
		})
	}
}

func TestTestLogger_AfterCleanup(t *testing.T) {
	var logger *TestLogger
	t.Run("inner", func(t *testing.T) {
		logger = NewTest(t)
		logger.Info("inside test", "k", "v")
	})

	// The inner test has completed; logging must be a silent no-op.
	require.NotPanics(t, func() {
		logger.Warn("late message from a dispatcher goroutine")
	})
}
