// Package kafka ships audit events to a Kafka topic so compliance systems can
// consume the stream independently of the service's own storage.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"aurum/pkg/platform/audit"
)

// Publisher produces audit events as JSON records keyed by actor.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New builds a Kafka-backed audit publisher.
func New(brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Emit produces the event asynchronously. Delivery failures are logged, not
// returned: the audit stream must never block or fail an admitted operation.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Actor),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Error("audit event delivery failed",
				"action", event.Action,
				"event_id", event.ID,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes pending records and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	p.client.Close()
	return nil
}
