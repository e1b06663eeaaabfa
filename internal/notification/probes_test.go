package notification

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abgdnv/bathifarms/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbes(t *testing.T) {
	// given
	dir := t.TempDir()
	cfg := config.ProbesConfig{
		ReadinessFileName: filepath.Join(dir, "ready"),
		LivenessFileName:  filepath.Join(dir, "live"),
		LivenessInterval:  10 * time.Millisecond,
	}
	probes := NewProbes(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// when
	require.NoError(t, probes.MarkReady())
	go func() { done <- probes.RunLiveness(ctx) }()

	// then
	assert.FileExists(t, cfg.ReadinessFileName)
	assert.Eventually(t, func() bool {
		return fileExists(cfg.LivenessFileName)
	}, time.Second, 5*time.Millisecond)

	// when
	cancel()

	// then
	require.NoError(t, <-done)
	assert.NoFileExists(t, cfg.ReadinessFileName)
	assert.NoFileExists(t, cfg.LivenessFileName)
}

func TestProbes_MarkReadyFails(t *testing.T) {
	cfg := config.ProbesConfig{ReadinessFileName: filepath.Join(t.TempDir(), "missing", "ready")}
	probes := NewProbes(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Error(t, probes.MarkReady())
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
