// Package notification consumes order confirmed events and issues customer receipts.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/abgdnv/bathifarms/pkg/config"
	"github.com/abgdnv/bathifarms/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ackableMsg is the part of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

var tracer = otel.Tracer("notifier")

// NewConsumer creates or updates the durable consumer described by cfg.
func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg config.SubscriberConfig) (jetstream.Consumer, error) {
	consumer, err := js.CreateOrUpdateConsumer(ctx, cfg.Stream, jetstream.ConsumerConfig{
		FilterSubject: cfg.Subject,
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, err
	}
	return consumer, nil
}

// Run starts cfg.Workers goroutines fetching from consumer until ctx is done.
func Run(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, logger *slog.Logger) error {
	g, gCtx := errgroup.WithContext(ctx)
	for range cfg.Workers {
		g.Go(func() error {
			return runWorker(gCtx, consumer, cfg, logger)
		})
	}
	return g.Wait()
}

// runWorker fetches batches of messages and handles them one by one.
func runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
		if err != nil {
			logger.ErrorContext(ctx, "failed to fetch messages", "error", err)
			sleep(ctx, cfg.Interval)
			continue
		}
		for msg := range batch.Messages() {
			handleMessage(ctx, msg, logger)
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) {
			logger.ErrorContext(ctx, "fetch ended with error", "error", err)
			sleep(ctx, cfg.Interval)
		}
	}
}

// handleMessage issues the receipt of one order. A payload that cannot be decoded is terminated
// so it is never redelivered.
func handleMessage(ctx context.Context, msg ackableMsg, logger *slog.Logger) {
	if msg == nil {
		logger.ErrorContext(ctx, "received nil message")
		return
	}
	var event events.OrderConfirmedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		logger.ErrorContext(ctx, "failed to unmarshal message", "error", err)
		if err := msg.Term(); err != nil {
			logger.ErrorContext(ctx, "failed to terminate message", "error", err)
		}
		return
	}
	if event.OrderRef == "" {
		logger.ErrorContext(ctx, "order confirmed event without order reference")
		if err := msg.Term(); err != nil {
			logger.ErrorContext(ctx, "failed to terminate message", "error", err)
		}
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, event.Carrier)
	ctx, span := tracer.Start(ctx, "orders.confirmed process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attribute.String("order_ref", event.OrderRef)))
	defer span.End()

	logger.InfoContext(ctx, "received order confirmed event",
		slog.String("order_ref", event.OrderRef),
		slog.String("email", event.Customer.Email),
		slog.Int64("total", event.Total),
		slog.String("currency", event.Currency),
		slog.String("confirmed_at", event.ConfirmedAt.Format(time.RFC3339)))
	logger.InfoContext(ctx, "receipt issued",
		slog.String("order_ref", event.OrderRef),
		slog.String("receipt", FormatReceipt(event)))

	if err := msg.Ack(); err != nil {
		span.RecordError(err)
		logger.ErrorContext(ctx, "failed to ack message", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
