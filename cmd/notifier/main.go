// Package main runs the order receipt notifier.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/bathifarms/internal/config"
	"github.com/abgdnv/bathifarms/internal/notification"
	"github.com/abgdnv/bathifarms/pkg/bootstrap"
	"github.com/abgdnv/bathifarms/pkg/config/configloader"
	"github.com/abgdnv/bathifarms/pkg/nats"
	"github.com/abgdnv/bathifarms/pkg/server"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const serviceName = "notifier"

func main() {
	configFile := pflag.StringP("config", "c", "", "path to the YAML configuration file")
	envFile := pflag.String("env-file", "", "path to the dotenv file")
	pflag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *envFile); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run initializes the application, starts the NATS subscriber, and optionally starts the pprof server if enabled.
func run(ctx context.Context, configFile, envFile string) error {
	cfg, cfgErr := configloader.Load[*config.NotifierConfig](serviceName,
		configloader.WithConfigFile(configFile), configloader.WithEnvFile(envFile))
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	natsConn, err := nats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create NATS connection: %w", err)
	}
	defer natsConn.Close()
	js, err := nats.NewJetStreamContext(natsConn)
	if err != nil {
		return fmt.Errorf("failed to get JetStream context: %w", err)
	}

	// the stream is owned by the storefront
	consumer, err := notification.NewConsumer(ctx, js, cfg.Subscriber)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	probes := notification.NewProbes(cfg.Probes, logger)
	if err := probes.MarkReady(); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return probes.RunLiveness(gCtx)
	})
	g.Go(func() error {
		logger.Info("NATS subscriber started")
		err := notification.Run(gCtx, consumer, cfg.Subscriber, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("subscriber failed", "error", err)
			return err
		}
		logger.Info("subscriber stopped gracefully.")
		return nil
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr: cfg.PProf.Addr,
		}
		server.Serve(gCtx, g, "pprof", pprofServer, cfg.Shutdown.Timeout, logger)
	}

	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("errgroup encountered an error: %w", err)
		}
	}

	return nil
}
