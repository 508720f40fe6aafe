// Package tags implements embedding-based tag resolution and batched
// registration for the creator catalog.
//
// The resolver keeps the tag vocabulary deduplicated: surface variants of
// the same concept ("Minecraft", "minecraft", "マインクラフト") collapse onto
// one canonical tag by nearest-neighbor lookup in embedding space, while
// genuinely new concepts mint new tags.
package tags

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/embeddings"
	"github.com/illumefy/illumefy-server/pkg/eventstream"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/vector"
)

// SimilarityThreshold is the cosine distance at or below which a candidate
// tag name is considered the same concept as an existing tag. Case variants
// sit around 0.12, pluralization around 0.30, and cross-script
// transliterations around 0.63, while unrelated concepts land above it.
const SimilarityThreshold float32 = 0.75

// Resolver maps free-form tag names onto canonical tag IDs.
type Resolver struct {
	store     storage.TagStore
	embedder  embeddings.Embedder
	index     vector.Index
	publisher eventstream.Publisher
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPublisher attaches an eventstream publisher; the resolver emits a
// tag-created event whenever it mints a new tag.
func WithPublisher(p eventstream.Publisher) ResolverOption {
	return func(r *Resolver) {
		r.publisher = p
	}
}

// NewResolver creates a tag resolver.
func NewResolver(store storage.TagStore, embedder embeddings.Embedder, index vector.Index, logger *zap.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		embedder: embedder,
		index:    index,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the canonical tag ID for name, creating a new tag when no
// existing tag is close enough in embedding space. The description is stored
// on creation only; it plays no part in similarity.
//
// The exact-name fast path is case-sensitive and consumes no embedding
// calls. Similarity reuse is inclusive at the threshold: a candidate at
// exactly SimilarityThreshold resolves to the existing tag.
func (r *Resolver) Resolve(ctx context.Context, name, description string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}

	existing, err := r.store.TagByName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("looking up tag by name: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	embedding, err := r.embedder.Embed(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embedding tag name %q: %w", name, err)
	}

	match, err := r.index.Nearest(ctx, embedding)
	if err != nil {
		return "", fmt.Errorf("querying nearest tag: %w", err)
	}
	if match != nil && match.Distance <= SimilarityThreshold {
		r.logger.Debug("resolved tag to existing neighbor",
			zap.String("name", name),
			zap.String("tag_id", match.ID),
			zap.String("canonical_name", match.Name),
			zap.Float32("distance", match.Distance),
		)
		return match.ID, nil
	}

	return r.create(ctx, name, description, embedding)
}

func (r *Resolver) create(ctx context.Context, name, description string, embedding []float32) (string, error) {
	now := r.now()
	tag := &catalog.Tag{
		ID:          r.newID(),
		Name:        name,
		Description: description,
		Embedding:   embedding,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := r.store.InsertTag(ctx, tag); err != nil {
		if errors.Is(err, storage.ErrDuplicateTagName) {
			// Another writer minted this exact name between our lookup and
			// insert; adopt theirs.
			winner, lookupErr := r.store.TagByName(ctx, name)
			if lookupErr != nil {
				return "", fmt.Errorf("re-reading tag after name conflict: %w", lookupErr)
			}
			if winner != nil {
				return winner.ID, nil
			}
		}
		return "", fmt.Errorf("inserting tag %q: %w", name, err)
	}

	doc := vector.Document{
		ID:        tag.ID,
		Name:      tag.Name,
		Embedding: embedding,
	}
	if err := r.index.Add(ctx, []vector.Document{doc}); err != nil {
		// The tag exists and is usable; the vector index catches up on the
		// next reindex run.
		r.logger.Warn("failed to index new tag",
			zap.String("tag_id", tag.ID),
			zap.String("name", tag.Name),
			zap.Error(err),
		)
	}

	r.publishCreated(ctx, tag)

	r.logger.Info("created tag",
		zap.String("tag_id", tag.ID),
		zap.String("name", tag.Name),
	)

	return tag.ID, nil
}

func (r *Resolver) publishCreated(ctx context.Context, tag *catalog.Tag) {
	if r.publisher == nil {
		return
	}

	event := &eventstream.CatalogEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTagCreated,
		EventID:       uuid.NewString(),
		EmittedAt:     r.now(),
		Tag: &eventstream.TagMeta{
			ID:   tag.ID,
			Name: tag.Name,
		},
	}
	if err := r.publisher.PublishCatalog(ctx, event); err != nil {
		r.logger.Warn("failed to publish tag created event",
			zap.String("tag_id", tag.ID),
			zap.Error(err),
		)
	}
}
