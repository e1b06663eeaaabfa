package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/bathifarms/internal/catalog"
	"github.com/abgdnv/bathifarms/internal/config"
	"github.com/abgdnv/bathifarms/internal/payment"
	"github.com/abgdnv/bathifarms/internal/snapshot"
	pkgconfig "github.com/abgdnv/bathifarms/pkg/config"
	"github.com/abgdnv/bathifarms/pkg/web"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const session = "3c8f1f64-2d0b-4c1e-9a57-7f2e0d6b5a44"

func testConfig() *config.Config {
	return &config.Config{
		Telemetry: pkgconfig.TelemetryConfig{
			Metrics: pkgconfig.MetricsConfig{Enabled: true, Path: "/metrics"},
		},
		Cart: config.CartConfig{
			StorageKey:          "bathiFarmsCart",
			ReloadBeforeMutate:  true,
			OnMalformedSnapshot: "reset",
			SubscriberBuffer:    8,
			Heartbeat:           time.Second,
			IdleTimeout:         time.Minute,
			SweepInterval:       time.Second,
		},
		Checkout: config.CheckoutConfig{
			Shipping:     100,
			TaxPercent:   18,
			OrderPrefix:  "BF",
			Currency:     "INR",
			MerchantName: "Bathi Farms",
			LandingURL:       "/",
			PendingTTL:       time.Minute,
			PaymentRetention: time.Hour,
		},
	}
}

func TestSetupHttpHandler(t *testing.T) {
	// given
	slots := snapshot.NewInMemoryStore()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	deps, err := SetupDependencies(Collaborators{Slots: slots, Gateway: payment.NewSandbox("")}, testConfig(), logger)
	require.NoError(t, err)
	handler := SetupHttpHandler(deps)

	testCases := []struct {
		name         string
		method       string
		path         string
		body         string
		session      bool
		expectedCode int
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", expectedCode: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/readyz", expectedCode: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", expectedCode: http.StatusOK},
		{name: "cart requires session", method: http.MethodGet, path: "/api/v1/cart", expectedCode: http.StatusUnauthorized},
		{
			name:         "add to cart",
			method:       http.MethodPost,
			path:         "/api/v1/cart/items",
			body:         `{"id":"milk","name":"Cheap Milk","price":1}`,
			session:      true,
			expectedCode: http.StatusOK,
		},
		{name: "unknown route", method: http.MethodGet, path: "/api/v1/basket", session: true, expectedCode: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			if tc.session {
				req.Header.Set(web.XSessionId, session)
			}
			rr := httptest.NewRecorder()

			// when
			handler.ServeHTTP(rr, req)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code, rr.Body.String())
			assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
		})
	}

	payload, err := slots.Load(context.Background(), "bathiFarmsCart."+session)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"milk","name":"Fresh Milk","price":420,"quantity":1,"image":"/images/milk.jpg"}]`, string(payload))
}

func TestSetupDependencies_InvalidCatalog(t *testing.T) {
	// given
	cfg := testConfig()
	cfg.Catalog.Products = []catalog.Product{{ID: "ghee", Name: "Ghee", Price: -5}}

	// when
	deps, err := SetupDependencies(Collaborators{Slots: snapshot.NewInMemoryStore(), Gateway: payment.NewSandbox("")},
		cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	// then
	require.Error(t, err)
	assert.Nil(t, deps)
}

func TestSetupHttpServer(t *testing.T) {
	cfg := testConfig()
	cfg.HTTPServer.Port = 8080
	cfg.HTTPServer.Timeout.Read = 5 * time.Second
	deps, err := SetupDependencies(Collaborators{Slots: snapshot.NewInMemoryStore(), Gateway: payment.NewSandbox("")},
		cfg, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := SetupHttpServer(deps, cfg)

	assert.Equal(t, ":8080", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadTimeout)
	assert.NotNil(t, srv.Handler)
}
