package tags

import "errors"

var (
	// ErrEmptyName indicates a tag name was empty or whitespace-only.
	ErrEmptyName = errors.New("tag name is empty")

	// ErrNoResolver indicates a registrar was constructed without a resolver.
	ErrNoResolver = errors.New("resolver is required")
)
