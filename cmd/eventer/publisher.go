package main

import (
	"context"
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"

	"github.com/bioetl-io/bioetl/internal/config"
)

// publisher publishes RunCompleted events to the configured Kafka topic.
type publisher struct {
	writer *kafka.Writer
}

func newPublisher(cfg config.EventerSpec) *publisher {
	return &publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

// publish writes one RunCompleted event, keyed by run id so a topic with
// multiple partitions keeps every event for a given run ordered relative
// to itself.
func (p *publisher) publish(ctx context.Context, event RunCompleted) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("eventer: marshal event for run %q: %w", event.RunID, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.RunID),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("eventer: publish event for run %q: %w", event.RunID, err)
	}

	return nil
}

func (p *publisher) Close() error {
	return p.writer.Close()
}
