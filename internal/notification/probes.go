package notification

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/bathifarms/pkg/config"
)

// Probes maintains the files checked by the container exec probes: the
// readiness file exists once the consumer is bound, the liveness file is
// touched every interval while the process is healthy.
type Probes struct {
	cfg    config.ProbesConfig
	logger *slog.Logger
}

func NewProbes(cfg config.ProbesConfig, logger *slog.Logger) *Probes {
	return &Probes{cfg: cfg, logger: logger.With("component", "probes")}
}

// MarkReady creates the readiness file.
func (p *Probes) MarkReady() error {
	if err := touch(p.cfg.ReadinessFileName); err != nil {
		return fmt.Errorf("failed to create readiness file: %w", err)
	}
	p.logger.Info("readiness file created", "path", p.cfg.ReadinessFileName)
	return nil
}

// RunLiveness touches the liveness file until ctx is done, then removes both probe files.
func (p *Probes) RunLiveness(ctx context.Context) error {
	defer p.cleanup()
	if err := touch(p.cfg.LivenessFileName); err != nil {
		return fmt.Errorf("failed to create liveness file: %w", err)
	}
	ticker := time.NewTicker(p.cfg.LivenessInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := touch(p.cfg.LivenessFileName); err != nil {
				p.logger.Error("failed to touch liveness file", "error", err)
			}
		}
	}
}

func (p *Probes) cleanup() {
	for _, name := range []string{p.cfg.ReadinessFileName, p.cfg.LivenessFileName} {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("failed to remove probe file", "path", name, "error", err)
		}
	}
}

func touch(name string) error {
	return os.WriteFile(name, []byte(time.Now().UTC().Format(time.RFC3339)), 0o644)
}
