package tags

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/embeddings"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/vector"
)

// Reindexer rebuilds the vector index from the tag store. It backfills
// embeddings for tags that are missing one, which happens when an index
// write failed after tag creation or when the embedding model changed.
type Reindexer struct {
	store    storage.TagStore
	embedder embeddings.Embedder
	index    vector.Index
	logger   *zap.Logger
}

// NewReindexer creates a Reindexer.
func NewReindexer(store storage.TagStore, embedder embeddings.Embedder, index vector.Index, logger *zap.Logger) *Reindexer {
	return &Reindexer{
		store:    store,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Reindex walks every stored tag, embeds the ones without a vector, and
// upserts all of them into the index. It returns how many tags were indexed.
func (r *Reindexer) Reindex(ctx context.Context) (int, error) {
	allTags, err := r.store.AllTags(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading tags: %w", err)
	}

	docs := make([]vector.Document, 0, len(allTags))
	for _, tag := range allTags {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		embedding := tag.Embedding
		if embedding == nil {
			embedding, err = r.embedder.Embed(ctx, tag.Name)
			if err != nil {
				r.logger.Warn("skipping tag that failed to embed",
					zap.String("tag_id", tag.ID),
					zap.String("name", tag.Name),
					zap.Error(err),
				)
				continue
			}
			if err := r.store.SetTagEmbedding(ctx, tag.ID, embedding); err != nil {
				return 0, fmt.Errorf("storing backfilled embedding for tag %s: %w", tag.ID, err)
			}
		}

		docs = append(docs, vector.Document{
			ID:        tag.ID,
			Name:      tag.Name,
			Embedding: embedding,
		})
	}

	if len(docs) == 0 {
		return 0, nil
	}

	if err := r.index.Add(ctx, docs); err != nil {
		return 0, fmt.Errorf("indexing tags: %w", err)
	}

	r.logger.Info("reindexed tags", zap.Int("count", len(docs)))

	return len(docs), nil
}
