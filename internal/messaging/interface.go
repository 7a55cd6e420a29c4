package messaging

import "context"

// PublisherInterface is what services depend on, so tests can record
// events in memory.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)
