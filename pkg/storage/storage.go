// Package storage
package storage

import (
	"context"

	"github.com/illumefy/illumefy-server/pkg/catalog"
)

// TagStore persists tag records.
type TagStore interface {
	// TagByID retrieves a tag. Returns NotFoundError when absent.
	TagByID(ctx context.Context, id string) (*catalog.Tag, error)

	// TagByName retrieves a tag by exact, case-sensitive name.
	// Returns (nil, nil) when no tag has that name.
	TagByName(ctx context.Context, name string) (*catalog.Tag, error)

	// TagsByIDs retrieves the tags for the given IDs. Unknown IDs are
	// skipped, not errors.
	TagsByIDs(ctx context.Context, ids []string) ([]catalog.Tag, error)

	// AllTags returns every tag in the store.
	AllTags(ctx context.Context) ([]catalog.Tag, error)

	// PopularTags returns up to limit tags ordered by view count descending.
	PopularTags(ctx context.Context, limit int) ([]catalog.Tag, error)

	// InsertTag stores a new tag. The caller assigns the ID. Returns
	// ErrDuplicateTagName when another tag already holds the exact name.
	InsertTag(ctx context.Context, tag *catalog.Tag) error

	// SetTagEmbedding attaches an embedding to an existing tag.
	SetTagEmbedding(ctx context.Context, id string, embedding []float32) error

	// IncrementTagViews atomically bumps the tag's view counter.
	IncrementTagViews(ctx context.Context, id string) error
}

// CreatorStore persists creator records.
type CreatorStore interface {
	// CreatorByID retrieves a creator. Returns NotFoundError when absent.
	CreatorByID(ctx context.Context, id string) (*catalog.Creator, error)

	// CreatorsByTag returns up to limit creators whose tag set contains
	// tagID, ordered by favorite count descending. This is the single
	// array-membership predicate the storage engine supports per query;
	// multi-tag intersection is layered on top by the search engine.
	CreatorsByTag(ctx context.Context, tagID string, limit int) ([]catalog.Creator, error)

	// PopularCreators returns up to limit creators by favorite count descending.
	PopularCreators(ctx context.Context, limit int) ([]catalog.Creator, error)

	// NewestCreators returns up to limit creators by creation time descending.
	NewestCreators(ctx context.Context, limit int) ([]catalog.Creator, error)

	// InsertCreator stores a new creator. Duplicate tag IDs are removed
	// before persistence.
	InsertCreator(ctx context.Context, creator *catalog.Creator) error

	// UpdateCreator replaces a creator's stored fields.
	UpdateCreator(ctx context.Context, creator *catalog.Creator) error

	// DeleteCreator removes a creator.
	DeleteCreator(ctx context.Context, id string) error

	// AdjustFavoriteCount atomically adds delta to the creator's
	// favorite counter.
	AdjustFavoriteCount(ctx context.Context, id string, delta int64) error

	// AddEditHistory appends an edit record for a creator. The store stamps
	// the edit time.
	AddEditHistory(ctx context.Context, entry *catalog.CreatorEditEntry) error

	// EditHistory returns a creator's most recent edits, newest first.
	// History is kept after the creator is deleted.
	EditHistory(ctx context.Context, creatorID string, limit int) ([]catalog.CreatorEditEntry, error)
}

// UserStore persists per-user favorites and history.
type UserStore interface {
	AddFavorite(ctx context.Context, userID, creatorID string) error
	RemoveFavorite(ctx context.Context, userID, creatorID string) error
	IsFavorite(ctx context.Context, userID, creatorID string) (bool, error)
	Favorites(ctx context.Context, userID string) ([]catalog.FavoriteEntry, error)

	AddViewHistory(ctx context.Context, userID, creatorID string) error
	ViewHistory(ctx context.Context, userID string, limit int) ([]catalog.ViewHistoryEntry, error)

	AddSearchHistory(ctx context.Context, userID, query string) error
	SearchHistory(ctx context.Context, userID string, limit int) ([]catalog.SearchHistoryEntry, error)
}

// Store aggregates all persistence concerns behind one driver.
type Store interface {
	TagStore
	CreatorStore
	UserStore

	// Close closes the store and releases any resources.
	Close() error
}
