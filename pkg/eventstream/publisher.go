package eventstream

import "context"

// Publisher publishes catalog events to an event stream backend.
type Publisher interface {
	PublishCatalog(ctx context.Context, event *CatalogEvent) error
	Close() error
}
