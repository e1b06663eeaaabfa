package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/abgdnv/bathifarms/internal/cart"
	"github.com/abgdnv/bathifarms/internal/catalog"
	"github.com/abgdnv/bathifarms/pkg/config"
	"github.com/abgdnv/bathifarms/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageNats     = "nats"

	EventsNone  = "none"
	EventsNats  = "nats"
	EventsKafka = "kafka"

	PaymentSandbox  = "sandbox"
	PaymentRazorpay = "razorpay"
)

// Config is the storefront service configuration.
type Config struct {
	HTTPServer config.HTTPConfig      `koanf:"server"`
	Log        config.LogConfig       `koanf:"log"`
	PProf      config.PProfConfig     `koanf:"pprof"`
	Shutdown   config.ShutdownConfig  `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig `koanf:"telemetry"`
	Storage    StorageConfig          `koanf:"storage"`
	Database   config.DatabaseConfig  `koanf:"database"`
	Nats       config.NATSConfig      `koanf:"nats"`
	Events     EventsConfig           `koanf:"events"`
	Cart       CartConfig             `koanf:"cart"`
	Checkout   CheckoutConfig         `koanf:"checkout"`
	Payment    PaymentConfig          `koanf:"payment"`
	Catalog    CatalogConfig          `koanf:"catalog"`
}

type StorageConfig struct {
	Driver string `koanf:"driver"`
	Bucket string `koanf:"bucket"`
}

type EventsConfig struct {
	Driver string             `koanf:"driver"`
	Stream string             `koanf:"stream"`
	Kafka  config.KafkaConfig `koanf:"kafka"`
}

type CartConfig struct {
	StorageKey          string        `koanf:"storagekey"`
	ReloadBeforeMutate  bool          `koanf:"reloadbeforemutate"`
	OnMalformedSnapshot string        `koanf:"onmalformedsnapshot"`
	SubscriberBuffer    int           `koanf:"subscriberbuffer"`
	Heartbeat           time.Duration `koanf:"heartbeat"`
	IdleTimeout         time.Duration `koanf:"idletimeout"`
	SweepInterval       time.Duration `koanf:"sweepinterval"`
}

type CheckoutConfig struct {
	Shipping         int64         `koanf:"shipping"`
	TaxPercent       int64         `koanf:"taxpercent"`
	OrderPrefix      string        `koanf:"orderprefix"`
	Currency         string        `koanf:"currency"`
	MerchantName     string        `koanf:"merchantname"`
	LandingURL       string        `koanf:"landingurl"`
	PendingTTL       time.Duration `koanf:"pendingttl"`
	PaymentRetention time.Duration `koanf:"paymentretention"`
}

type PaymentConfig struct {
	Driver     string                  `koanf:"driver"`
	BaseURL    string                  `koanf:"baseurl"`
	KeyID      string                  `koanf:"keyid"`
	KeySecret  string                  `koanf:"keysecret"`
	Timeout    time.Duration           `koanf:"timeout"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
}

type CatalogConfig struct {
	Products []catalog.Product `koanf:"products"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Telemetry.String())

	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Storage.Driver))
	b.WriteString(fmt.Sprintf("  bucket: %s\n", c.Storage.Bucket))
	if c.Storage.Driver == StoragePostgres {
		b.WriteString(c.Database.String())
	}
	if c.Storage.Driver == StorageNats || c.Events.Driver == EventsNats {
		b.WriteString(c.Nats.String())
	}

	b.WriteString("\n--- Events ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Events.Driver))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Events.Stream))
	if c.Events.Driver == EventsKafka {
		b.WriteString(c.Events.Kafka.String())
	}

	b.WriteString("\n--- Cart ---\n")
	b.WriteString(fmt.Sprintf("  storagekey: %s\n", c.Cart.StorageKey))
	b.WriteString(fmt.Sprintf("  reloadbeforemutate: %t\n", c.Cart.ReloadBeforeMutate))
	b.WriteString(fmt.Sprintf("  onmalformedsnapshot: %s\n", c.Cart.OnMalformedSnapshot))
	b.WriteString(fmt.Sprintf("  subscriberbuffer: %d\n", c.Cart.SubscriberBuffer))
	b.WriteString(fmt.Sprintf("  heartbeat: %s\n", c.Cart.Heartbeat))
	b.WriteString(fmt.Sprintf("  idletimeout: %s\n", c.Cart.IdleTimeout))
	b.WriteString(fmt.Sprintf("  sweepinterval: %s\n", c.Cart.SweepInterval))

	b.WriteString("\n--- Checkout ---\n")
	b.WriteString(fmt.Sprintf("  shipping: %d\n", c.Checkout.Shipping))
	b.WriteString(fmt.Sprintf("  taxpercent: %d\n", c.Checkout.TaxPercent))
	b.WriteString(fmt.Sprintf("  orderprefix: %s\n", c.Checkout.OrderPrefix))
	b.WriteString(fmt.Sprintf("  currency: %s\n", c.Checkout.Currency))
	b.WriteString(fmt.Sprintf("  merchantname: %s\n", c.Checkout.MerchantName))
	b.WriteString(fmt.Sprintf("  landingurl: %s\n", c.Checkout.LandingURL))
	b.WriteString(fmt.Sprintf("  pendingttl: %s\n", c.Checkout.PendingTTL))
	b.WriteString(fmt.Sprintf("  paymentretention: %s\n", c.Checkout.PaymentRetention))

	b.WriteString("\n--- Payment ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Payment.Driver))
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.Payment.BaseURL))
	b.WriteString(fmt.Sprintf("  keyid: %s\n", c.Payment.KeyID))
	b.WriteString(fmt.Sprintf("  keysecret: %s\n", maskSecret(c.Payment.KeySecret)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Payment.Timeout))
	b.WriteString(c.Payment.Resilience.String())

	b.WriteString("\n--- Catalog ---\n")
	b.WriteString(fmt.Sprintf("  products: %d\n", len(c.Catalog.Products)))
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	if err := c.Cart.Validate(); err != nil {
		return err
	}
	if err := c.Checkout.Validate(); err != nil {
		return err
	}
	if err := c.Payment.Validate(); err != nil {
		return err
	}
	return catalog.Validate(c.Catalog.Products)
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case StorageMemory:
		return nil
	case StoragePostgres:
		return c.Database.Validate()
	case StorageNats:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the nats driver")
		}
		return c.Nats.Validate()
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}
}

func (c *Config) validateEvents() error {
	switch c.Events.Driver {
	case EventsNone:
		return nil
	case EventsNats:
		if c.Events.Stream == "" {
			return fmt.Errorf("events stream is required for the nats driver")
		}
		return c.Nats.Validate()
	case EventsKafka:
		return c.Events.Kafka.Validate()
	default:
		return fmt.Errorf("unknown events driver: %q", c.Events.Driver)
	}
}

func (c *CartConfig) Validate() error {
	if c.StorageKey == "" || strings.ContainsAny(c.StorageKey, ": *>") {
		return fmt.Errorf("invalid cart storage key: %q", c.StorageKey)
	}
	switch cart.MalformedPolicy(c.OnMalformedSnapshot) {
	case cart.PolicyReset, cart.PolicyFail:
	default:
		return fmt.Errorf("cart.onmalformedsnapshot must be %q or %q: %q", cart.PolicyReset, cart.PolicyFail, c.OnMalformedSnapshot)
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("cart subscriber buffer must be greater than 0")
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("cart events heartbeat must be greater than 0")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("cart idle timeout must be greater than 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("cart sweep interval must be greater than 0")
	}
	return nil
}

func (c *CheckoutConfig) Validate() error {
	if c.Shipping < 0 {
		return fmt.Errorf("checkout shipping must not be negative")
	}
	if c.TaxPercent < 0 || c.TaxPercent > 100 {
		return fmt.Errorf("checkout tax percent must be between 0 and 100")
	}
	if c.OrderPrefix == "" {
		return fmt.Errorf("checkout order prefix is not configured")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("checkout currency must be an ISO 4217 code: %q", c.Currency)
	}
	if c.MerchantName == "" {
		return fmt.Errorf("checkout merchant name is not configured")
	}
	if _, err := url.Parse(c.LandingURL); err != nil || c.LandingURL == "" {
		return fmt.Errorf("invalid checkout landing URL: %q", c.LandingURL)
	}
	if c.PendingTTL <= 0 {
		return fmt.Errorf("checkout pending payment TTL must be greater than 0")
	}
	if c.PaymentRetention < c.PendingTTL {
		return fmt.Errorf("checkout payment retention must not be shorter than the pending payment TTL")
	}
	return nil
}

func (c *PaymentConfig) Validate() error {
	switch c.Driver {
	case PaymentSandbox:
	case PaymentRazorpay:
		if !strings.HasPrefix(c.BaseURL, "https://") && !strings.HasPrefix(c.BaseURL, "http://") {
			return fmt.Errorf("payment base URL must be http(s): %q", c.BaseURL)
		}
		if c.KeyID == "" || c.KeySecret == "" {
			return fmt.Errorf("payment key id and secret are required for the razorpay driver")
		}
	default:
		return fmt.Errorf("unknown payment driver: %q", c.Driver)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("payment timeout must be greater than 0")
	}
	return c.Resilience.Validate()
}

func maskSecret(secret string) string {
	if secret == "" {
		return "<not configured>"
	}
	return "****"
}
