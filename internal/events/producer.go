// Package events publishes best-effort domain events to Kafka. A
// Producer without a configured broker (and a nil *Producer) is valid
// and drops everything, so tests and kafka-less deployments need no
// broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const Topic = "portfolio_events"

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(address string) *Producer {
	if address == "" {
		return &Producer{}
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(address),
			Topic:        Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Enabled reports whether a broker is configured.
func (p *Producer) Enabled() bool {
	return p != nil && p.writer != nil
}

// Publish sends one JSON event keyed for partition affinity. Callers
// log failures and move on; an event never fails the request.
func (p *Producer) Publish(ctx context.Context, key string, event map[string]any) error {
	if !p.Enabled() {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
