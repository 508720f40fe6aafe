// Package creators provides creator discovery: multi-tag search, popularity
// listings, and per-user favorites and history.
package creators

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/storage"
)

const (
	// DefaultSearchLimit caps result sets when the caller does not say.
	DefaultSearchLimit = 20

	// DefaultOverfetchMultiplier scales the first-tag fetch window for
	// multi-tag searches.
	DefaultOverfetchMultiplier = 3
)

// SearchEngine answers multi-tag creator searches.
//
// The storage layer only supports a single tag-containment predicate, so
// multi-tag intersection is hybrid: the engine over-fetches candidates for
// the first tag with a bounded window, then applies the remaining tags as
// an in-process filter. The window keeps query cost flat; the trade-off is
// that a multi-tag search may return fewer results than actually exist.
type SearchEngine struct {
	store  storage.CreatorStore
	tags   storage.TagStore
	logger *zap.Logger

	multiplier int
}

// SearchOption configures a SearchEngine.
type SearchOption func(*SearchEngine)

// WithOverfetchMultiplier overrides the first-tag fetch window multiplier.
func WithOverfetchMultiplier(n int) SearchOption {
	return func(e *SearchEngine) {
		if n > 0 {
			e.multiplier = n
		}
	}
}

// NewSearchEngine creates a SearchEngine.
func NewSearchEngine(store storage.CreatorStore, tagStore storage.TagStore, logger *zap.Logger, opts ...SearchOption) *SearchEngine {
	e := &SearchEngine{
		store:      store,
		tags:       tagStore,
		logger:     logger,
		multiplier: DefaultOverfetchMultiplier,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns up to limit creators tagged with every ID in tagIDs,
// ordered by favorite count descending. Duplicate tag IDs are collapsed
// before matching. Every searched tag gets its view counter bumped.
func (e *SearchEngine) Search(ctx context.Context, tagIDs []string, limit int) ([]catalog.Creator, error) {
	tagIDs = dedupe(tagIDs)
	if len(tagIDs) == 0 {
		return nil, ErrNoTags
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	e.recordViews(ctx, tagIDs)

	if len(tagIDs) == 1 {
		results, err := e.store.CreatorsByTag(ctx, tagIDs[0], limit)
		if err != nil {
			return nil, fmt.Errorf("searching by tag: %w", err)
		}
		return results, nil
	}

	candidates, err := e.store.CreatorsByTag(ctx, tagIDs[0], limit*e.multiplier)
	if err != nil {
		return nil, fmt.Errorf("searching by tag: %w", err)
	}

	residual := tagIDs[1:]
	results := make([]catalog.Creator, 0, limit)
	for _, creator := range candidates {
		if hasAllTags(&creator, residual) {
			results = append(results, creator)
			if len(results) == limit {
				break
			}
		}
	}

	return results, nil
}

func (e *SearchEngine) recordViews(ctx context.Context, tagIDs []string) {
	for _, id := range tagIDs {
		if err := e.tags.IncrementTagViews(ctx, id); err != nil {
			if storage.IsNotFound(err) {
				continue
			}
			e.logger.Warn("failed to bump tag views",
				zap.String("tag_id", id),
				zap.Error(err),
			)
		}
	}
}

func hasAllTags(creator *catalog.Creator, tagIDs []string) bool {
	for _, want := range tagIDs {
		found := false
		for _, have := range creator.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
