package eventstream

import "errors"

// ErrNilCatalogEvent indicates a nil catalog event payload was provided to a publisher.
var ErrNilCatalogEvent = errors.New("nil catalog event")
