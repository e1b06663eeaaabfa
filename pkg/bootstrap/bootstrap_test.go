package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_toLevel(t *testing.T) {
	testCases := []struct {
		level string
		want  slog.Level
	}{
		{level: "debug", want: slog.LevelDebug},
		{level: " DEBUG ", want: slog.LevelDebug},
		{level: "info", want: slog.LevelInfo},
		{level: "warn", want: slog.LevelWarn},
		{level: "Warning", want: slog.LevelWarn},
		{level: "error", want: slog.LevelError},
		{level: "", want: slog.LevelInfo},
		{level: "verbose", want: slog.LevelInfo},
	}
	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			assert.Equal(t, tc.want, toLevel(tc.level))
		})
	}
}

func Test_newLogger(t *testing.T) {
	// given
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn")

	// when
	logger.Info("hidden")
	logger.Warn("shown")

	// then
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
