package config

import (
	"fmt"
	"strings"
	"time"
)

type KafkaConfig struct {
	SeedBrokers []string      `koanf:"seedbrokers"`
	ClientID    string        `koanf:"clientid"`
	Timeout     time.Duration `koanf:"timeout"`
}

// String returns a string representation of the Kafka configuration.
func (c *KafkaConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Kafka ---\n")
	b.WriteString(fmt.Sprintf("  seedbrokers: %s\n", strings.Join(c.SeedBrokers, ",")))
	b.WriteString(fmt.Sprintf("  clientid: %s\n", c.ClientID))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *KafkaConfig) Validate() error {
	if len(c.SeedBrokers) == 0 {
		return fmt.Errorf("kafka seed brokers are not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("kafka produce timeout is not configured")
	}
	return nil
}
