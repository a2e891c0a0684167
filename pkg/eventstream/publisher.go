package eventstream

import "context"

// Publisher delivers result and batch events to a stream backend. Callers
// that have no brokers configured use the nop implementation instead of a
// nil publisher.
type Publisher interface {
	PublishResult(ctx context.Context, event *ResultRecordedEvent) error
	PublishBatch(ctx context.Context, event *BatchCompletedEvent) error
	Close() error
}
