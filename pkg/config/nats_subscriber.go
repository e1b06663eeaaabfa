package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

// SubscriberConfig binds a durable JetStream pull consumer to one subject of a stream.
type SubscriberConfig struct {
	Stream   string        `koanf:"stream"`
	Subject  string        `koanf:"subject"`
	Consumer string        `koanf:"consumer"`
	Batch    int           `koanf:"batch"`
	Timeout  time.Duration `koanf:"timeout"`
	Interval time.Duration `koanf:"interval"`
	Workers  int           `koanf:"workers"`
}

const (
	defaultSubscriberBatch    = 10
	defaultSubscriberTimeout  = 5 * time.Second
	defaultSubscriberInterval = time.Second
	defaultSubscriberWorkers  = 1
)

func (c *SubscriberConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS Subscriber ---\n")
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  subject: %s\n", c.Subject))
	b.WriteString(fmt.Sprintf("  consumer: %s\n", c.Consumer))
	b.WriteString(fmt.Sprintf("  batch: %d, timeout: %s, interval: %s, workers: %d\n",
		c.Batch, c.Timeout, c.Interval, c.Workers))
	return b.String()
}

// Validate requires the stream, subject and consumer names and fills in
// defaults for the fetch tuning knobs.
func (c *SubscriberConfig) Validate() error {
	var errs []error
	if c.Stream == "" {
		errs = append(errs, errors.New("subscriber.stream is not configured"))
	}
	if c.Subject == "" {
		errs = append(errs, errors.New("subscriber.subject is not configured"))
	}
	if c.Consumer == "" {
		errs = append(errs, errors.New("subscriber.consumer is not configured"))
	}
	if c.Batch <= 0 {
		log.Println("Using default value for subscriber.batch")
		c.Batch = defaultSubscriberBatch
	}
	if c.Timeout <= 0 {
		log.Println("Using default value for subscriber.timeout")
		c.Timeout = defaultSubscriberTimeout
	}
	if c.Interval <= 0 {
		log.Println("Using default value for subscriber.interval")
		c.Interval = defaultSubscriberInterval
	}
	if c.Workers <= 0 {
		log.Println("Using default value for subscriber.workers")
		c.Workers = defaultSubscriberWorkers
	}
	return errors.Join(errs...)
}
