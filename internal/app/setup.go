// Package app contains the application setup for the storefront service.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/internal/catalog"
	"github.com/abgdnv/bathifarms/internal/checkout"
	"github.com/abgdnv/bathifarms/internal/config"
	"github.com/abgdnv/bathifarms/internal/payment"
	"github.com/abgdnv/bathifarms/internal/snapshot"
	"github.com/abgdnv/bathifarms/internal/transport/rest"
	"github.com/abgdnv/bathifarms/pkg/messaging"
	"github.com/abgdnv/bathifarms/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const eventsPath = "/cart/events"

type Dependencies struct {
	Carts       *cart.Registry
	Broker      *cart.Broker
	Carousel    catalog.CarouselService
	Checkout    checkout.CheckoutService
	Janitor     *Janitor
	Options     rest.Options
	MetricsPath string
	Logger      *slog.Logger
}

// Collaborators are the external systems the storefront talks to.
type Collaborators struct {
	Slots snapshot.Store
	// Carts receives cart change events. Nil disables forwarding.
	Carts messaging.Publisher
	// Orders receives order confirmed events. Nil discards them.
	Orders  messaging.Publisher
	Gateway payment.Gateway
	Checks  map[string]rest.Check
}

func SetupDependencies(c Collaborators, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	products, err := catalog.New(cfg.Catalog.Products)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	broker := cart.NewBroker(cfg.Cart.SubscriberBuffer, c.Carts, logger)
	registry := cart.NewRegistry(c.Slots, broker, cart.Options{
		KeyPrefix:          cfg.Cart.StorageKey,
		ReloadBeforeMutate: cfg.Cart.ReloadBeforeMutate,
		OnMalformed:        cart.MalformedPolicy(cfg.Cart.OnMalformedSnapshot),
	}, logger)

	carousels := catalog.NewService(products, registry)
	checkoutSvc := checkout.NewService(registry, c.Gateway, c.Orders, cfg.Checkout, logger)

	deps := &Dependencies{
		Carts:    registry,
		Broker:   broker,
		Carousel: carousels,
		Checkout: checkoutSvc,
		Janitor:  NewJanitor(cfg.Cart.SweepInterval, cfg.Cart.IdleTimeout, registry, carousels, checkoutSvc, logger),
		Options: rest.Options{
			LandingURL: cfg.Checkout.LandingURL,
			Heartbeat:  cfg.Cart.Heartbeat,
			Checks:     c.Checks,
		},
		Logger: logger,
	}
	if cfg.Telemetry.Metrics.Enabled {
		deps.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	return deps, nil
}

// SetupHttpHandler initializes the router with all storefront routes and tracing.
// Used by tests to exercise the service end to end.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	// the event stream is long lived and outlives any useful span
	return otelhttp.NewHandler(mux, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !strings.HasSuffix(r.URL.Path, eventsPath)
		}),
	)
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.Carts, deps.Broker, deps.Carousel, deps.Checkout, deps.Options, deps.Logger)
	handler.RegisterRoutes(mux)
	if deps.MetricsPath != "" {
		mux.Handle(deps.MetricsPath, promhttp.Handler())
	}
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, SetupHttpHandler(deps))
}
