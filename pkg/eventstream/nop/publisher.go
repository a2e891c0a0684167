// Package nop provides a Publisher that discards every event. The run and
// watch commands fall back to it when no stream brokers are configured.
package nop

import (
	"context"

	"github.com/mitgor/screensort/pkg/eventstream"
)

type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishResult rejects a nil event and drops everything else.
func (p *Publisher) PublishResult(_ context.Context, event *eventstream.ResultRecordedEvent) error {
	if event == nil {
		return eventstream.ErrNilResultEvent
	}

	return nil
}

// PublishBatch rejects a nil event and drops everything else.
func (p *Publisher) PublishBatch(_ context.Context, event *eventstream.BatchCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilBatchEvent
	}

	return nil
}

func (p *Publisher) Close() error {
	return nil
}
