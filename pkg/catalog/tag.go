// Package catalog defines the domain types shared by the creator discovery
// services: tags, creators, and the channel metadata the ingestion pipeline
// consumes.
package catalog

import "time"

// Tag is a descriptive label attached to creators. Tags are created once and
// reused; near-duplicate names collapse onto a single tag through the
// embedding-based resolver.
type Tag struct {
	// ID is the unique tag identifier, assigned at creation.
	ID string `json:"id"`

	// Name is the tag label. Unique under the resolver's policy.
	Name string `json:"name"`

	// Description is optional free text. Not considered in similarity.
	Description string `json:"description,omitempty"`

	// Embedding is the vector for Name. Nil for tags created before
	// vectorization existed; the nearest-neighbor index skips those.
	Embedding []float32 `json:"-"`

	// ViewCount is a usage counter incremented when the tag is browsed.
	ViewCount int64 `json:"viewCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
