// Package kafka publishes screensort events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/mitgor/screensort/pkg/eventstream"
)

// Config holds the connection settings for the Kafka publisher.
type Config struct {
	// Brokers is the bootstrap broker list, host:port each.
	Brokers []string

	// Topic receives both result and batch events.
	Topic string
}

// Publisher writes events to Kafka. Result events are keyed by
// screenshot id so per-screenshot ordering survives partitioning; batch
// events are keyed by event id.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Publisher{writer: writer}, nil
}

// PublishResult writes one result event.
func (p *Publisher) PublishResult(ctx context.Context, event *eventstream.ResultRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilResultEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling result event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Result.ScreenshotID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing result event: %w", err)
	}

	return nil
}

// PublishBatch writes one batch event.
func (p *Publisher) PublishBatch(ctx context.Context, event *eventstream.BatchCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilBatchEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling batch event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing batch event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
