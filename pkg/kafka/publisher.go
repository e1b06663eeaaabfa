// Package kafka publishes messaging events to Kafka topics named after the event subject.
package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/bathifarms/pkg/config"
	"github.com/abgdnv/bathifarms/pkg/messaging"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ messaging.Publisher = (*Publisher)(nil)

// ProducerClient is the subset of kgo.Client used by Publisher.
type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type Publisher struct {
	cl     ProducerClient
	logger *slog.Logger
}

// NewClient creates a franz-go client for the configured seed brokers.
func NewClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.SeedBrokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.ProduceRequestTimeout(cfg.Timeout),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return cl, nil
}

func NewPublisher(cl ProducerClient, logger *slog.Logger) *Publisher {
	return &Publisher{cl: cl, logger: logger.With("component", "kafka-publisher")}
}

// Publish produces the event synchronously to the topic named by its subject.
func (p *Publisher) Publish(ctx context.Context, event messaging.Event) error {
	data, err := event.Payload()
	if err != nil {
		return fmt.Errorf("failed to get event payload: %w", err)
	}
	record := &kgo.Record{
		Topic: event.Subject(),
		Key:   []byte(event.Key()),
		Value: data,
	}
	if err := p.cl.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce to %s: %w", event.Subject(), err)
	}
	return nil
}

// Close closes the underlying client.
func (p *Publisher) Close() {
	p.logger.Info("closing kafka producer...")
	p.cl.Close()
	p.logger.Info("kafka producer is closed")
}
