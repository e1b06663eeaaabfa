// Package main runs the Bathi Farms storefront cart service.
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

	"github.com/abgdnv/bathifarms/internal/app"
	"github.com/abgdnv/bathifarms/internal/config"
	"github.com/abgdnv/bathifarms/internal/payment"
	"github.com/abgdnv/bathifarms/internal/snapshot"
	"github.com/abgdnv/bathifarms/internal/transport/rest"
	"github.com/abgdnv/bathifarms/pkg/bootstrap"
	"github.com/abgdnv/bathifarms/pkg/config/configloader"
	"github.com/abgdnv/bathifarms/pkg/kafka"
	"github.com/abgdnv/bathifarms/pkg/messaging"
	pnats "github.com/abgdnv/bathifarms/pkg/nats"
	"github.com/abgdnv/bathifarms/pkg/server"
	"github.com/abgdnv/bathifarms/pkg/telemetry"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const serviceName = "storefront"

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

// run loads the configuration, connects the configured storage, broker and payment gateway, and starts the HTTP and pprof servers.
func run(ctx context.Context, configFile, envFile string) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName,
		configloader.WithConfigFile(configFile), configloader.WithEnvFile(envFile))
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to create tracer provider: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}
	if cfg.Telemetry.Metrics.Enabled {
		mp, err := telemetry.NewMeterProvider(serviceName)
		if err != nil {
			return fmt.Errorf("failed to create meter provider: %w", err)
		}
		defer func() {
			if err := mp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown meter provider", "error", err)
			}
		}()
	}

	checks := make(map[string]rest.Check)

	var js jetstream.JetStream
	if cfg.Storage.Driver == config.StorageNats || cfg.Events.Driver == config.EventsNats {
		nc, err := pnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logger.Error("Failed to drain NATS connection", "error", err)
			}
		}()
		js, err = pnats.NewJetStreamContext(nc)
		if err != nil {
			return err
		}
		checks["nats"] = func(context.Context) error {
			if status := nc.Status(); status != nats.CONNECTED {
				return fmt.Errorf("nats connection is %s", status)
			}
			return nil
		}
		logger.Info("Successfully connected to NATS!")
	}

	slots, closeSlots, err := newSnapshotStore(ctx, cfg, js, checks)
	if err != nil {
		return err
	}
	defer closeSlots()

	publisher, closePublisher, err := newPublisher(ctx, cfg, js, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	gateway := newGateway(cfg.Payment, logger)
	checks["payment"] = func(context.Context) error {
		if gateway.State() == gobreaker.StateOpen {
			return errors.New("payment gateway circuit is open")
		}
		return nil
	}

	deps, err := app.SetupDependencies(app.Collaborators{
		Slots:   slots,
		Carts:   publisher,
		Orders:  publisher,
		Gateway: gateway,
		Checks:  checks,
	}, cfg, logger)
	if err != nil {
		return err
	}
	httpServer := app.SetupHttpServer(deps, cfg)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return deps.Broker.Run(gCtx)
	})
	g.Go(func() error {
		return deps.Janitor.Run(gCtx)
	})
	server.Serve(gCtx, g, "HTTP", httpServer, cfg.Shutdown.Timeout, logger)
	if cfg.PProf.Enabled {
		pprofServer := &http.Server{
			Addr:              cfg.PProf.Addr,
			ReadHeaderTimeout: cfg.HTTPServer.Timeout.ReadHeader,
		}
		server.Serve(gCtx, g, "pprof", pprofServer, cfg.Shutdown.Timeout, logger)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newSnapshotStore builds the cart snapshot storage selected by storage.driver.
// The returned func releases its resources.
func newSnapshotStore(ctx context.Context, cfg *config.Config, js jetstream.JetStream, checks map[string]rest.Check) (snapshot.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create database connection pool: %w", err)
		}
		store := snapshot.NewPgStore(dbPool)
		checks["postgres"] = store.Ping
		slog.Info("Successfully connected to the database!")
		return store, dbPool.Close, nil
	case config.StorageNats:
		store, err := snapshot.NewKVStore(ctx, js, cfg.Storage.Bucket)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return snapshot.NewInMemoryStore(), func() {}, nil
	}
}

// newPublisher builds the external event publisher selected by events.driver.
// A nil publisher means events stay in process.
func newPublisher(ctx context.Context, cfg *config.Config, js jetstream.JetStream, logger *slog.Logger) (messaging.Publisher, func(), error) {
	switch cfg.Events.Driver {
	case config.EventsNats:
		err := pnats.EnsureStream(ctx, js, cfg.Events.Stream, messaging.CartsChangedSubject, messaging.OrdersConfirmedSubject)
		if err != nil {
			return nil, nil, err
		}
		return pnats.NewNatsPublisher(js), func() {}, nil
	case config.EventsKafka:
		cl, err := kafka.NewClient(cfg.Events.Kafka)
		if err != nil {
			return nil, nil, err
		}
		p := kafka.NewPublisher(cl, logger)
		return p, p.Close, nil
	default:
		return nil, func() {}, nil
	}
}

// newGateway builds the payment gateway selected by payment.driver behind a circuit breaker.
func newGateway(cfg config.PaymentConfig, logger *slog.Logger) *payment.Breaker {
	var gateway payment.Gateway
	switch cfg.Driver {
	case config.PaymentRazorpay:
		client := &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
		gateway = payment.NewRazorpay(cfg, client, logger)
	default:
		gateway = payment.NewSandbox(cfg.KeySecret)
	}
	return payment.NewBreaker(gateway, cfg.Resilience.CircuitBreaker)
}
