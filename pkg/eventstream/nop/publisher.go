package nop

import (
	"context"

	"github.com/illumefy/illumefy-server/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used for tests and disabled mode.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishCatalog validates input and otherwise does nothing.
func (p *Publisher) PublishCatalog(_ context.Context, event *eventstream.CatalogEvent) error {
	if event == nil {
		return eventstream.ErrNilCatalogEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
