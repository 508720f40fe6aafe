package creators

import "errors"

var (
	// ErrNoTags indicates a search was attempted with no tag criteria.
	ErrNoTags = errors.New("at least one tag is required")

	// ErrInvalidUpdate indicates a creator update with no fields or with a
	// field value that fails validation.
	ErrInvalidUpdate = errors.New("invalid creator update")
)
