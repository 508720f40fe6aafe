// Package vector provides interfaces and implementations for vector storage
// and nearest-neighbor lookup over tag embeddings.
package vector

import "context"

// Document represents a stored tag embedding.
type Document struct {
	// ID is the tag ID this embedding belongs to.
	ID string

	// Name is the tag name the embedding was computed from.
	Name string

	// Embedding is the vector representation of the tag name.
	Embedding []float32
}

// Match is a nearest-neighbor result.
type Match struct {
	Document

	// Distance is the cosine distance to the query embedding. Identical
	// vectors score 0.0; the calibrated operative range tops out at 1.0.
	Distance float32
}

// Index handles storage and nearest-neighbor retrieval of tag embeddings.
// Tags that were created without an embedding never enter the index, so
// lookups transparently skip them.
type Index interface {
	// Add stores documents with their embeddings. Existing documents with
	// the same ID are updated.
	Add(ctx context.Context, docs []Document) error

	// Nearest returns the single closest stored document to the given
	// embedding, or nil when the index holds no documents.
	Nearest(ctx context.Context, embedding []float32) (*Match, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the index.
	Close() error
}
