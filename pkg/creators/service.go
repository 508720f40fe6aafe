package creators

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/storage"
)

// Service wraps creator browsing and per-user actions over the store.
type Service struct {
	store  storage.Store
	logger *zap.Logger
}

// NewService creates a creator Service.
func NewService(store storage.Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Get returns a creator by ID.
func (s *Service) Get(ctx context.Context, id string) (*catalog.Creator, error) {
	return s.store.CreatorByID(ctx, id)
}

// Popular returns creators ordered by favorite count.
func (s *Service) Popular(ctx context.Context, limit int) ([]catalog.Creator, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.PopularCreators(ctx, limit)
}

// Newest returns the most recently added creators.
func (s *Service) Newest(ctx context.Context, limit int) ([]catalog.Creator, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.NewestCreators(ctx, limit)
}

// Tags expands a creator's tag IDs into full tags, skipping any that no
// longer exist.
func (s *Service) Tags(ctx context.Context, creator *catalog.Creator) ([]catalog.Tag, error) {
	return s.store.TagsByIDs(ctx, creator.Tags)
}

// ToggleFavorite flips the user's favorite state for the creator and keeps
// the creator's aggregate favorite count in step. It returns the new state.
func (s *Service) ToggleFavorite(ctx context.Context, userID, creatorID string) (bool, error) {
	if _, err := s.store.CreatorByID(ctx, creatorID); err != nil {
		return false, err
	}

	favorited, err := s.store.IsFavorite(ctx, userID, creatorID)
	if err != nil {
		return false, fmt.Errorf("checking favorite state: %w", err)
	}

	if favorited {
		if err := s.store.RemoveFavorite(ctx, userID, creatorID); err != nil {
			return false, fmt.Errorf("removing favorite: %w", err)
		}
		if err := s.store.AdjustFavoriteCount(ctx, creatorID, -1); err != nil {
			return false, fmt.Errorf("decrementing favorite count: %w", err)
		}
		return false, nil
	}

	if err := s.store.AddFavorite(ctx, userID, creatorID); err != nil {
		return false, fmt.Errorf("adding favorite: %w", err)
	}
	if err := s.store.AdjustFavoriteCount(ctx, creatorID, 1); err != nil {
		return false, fmt.Errorf("incrementing favorite count: %w", err)
	}
	return true, nil
}

// Favorites returns the user's favorited creators, most recent first.
func (s *Service) Favorites(ctx context.Context, userID string) ([]catalog.Creator, error) {
	entries, err := s.store.Favorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading favorites: %w", err)
	}

	creators := make([]catalog.Creator, 0, len(entries))
	for _, entry := range entries {
		creator, err := s.store.CreatorByID(ctx, entry.CreatorID)
		if err != nil {
			if storage.IsNotFound(err) {
				// The creator was deleted after being favorited.
				continue
			}
			return nil, err
		}
		creators = append(creators, *creator)
	}
	return creators, nil
}

// RecordView logs a profile view in the user's history.
func (s *Service) RecordView(ctx context.Context, userID, creatorID string) error {
	return s.store.AddViewHistory(ctx, userID, creatorID)
}

// ViewHistory returns the user's recent profile views.
func (s *Service) ViewHistory(ctx context.Context, userID string, limit int) ([]catalog.ViewHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.ViewHistory(ctx, userID, limit)
}

// RecordSearch logs a search query in the user's history.
func (s *Service) RecordSearch(ctx context.Context, userID, query string) error {
	return s.store.AddSearchHistory(ctx, userID, query)
}

// SearchHistory returns the user's recent search queries.
func (s *Service) SearchHistory(ctx context.Context, userID string, limit int) ([]catalog.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.SearchHistory(ctx, userID, limit)
}

// CreatorUpdate holds the fields to change on a creator. Nil fields are
// left untouched; a nil Tags slice keeps the current tag set.
type CreatorUpdate struct {
	Name            *string
	Description     *string
	ProfileImageURL *string
	Platforms       *catalog.Platforms
	Tags            []string

	// EditorID identifies who made the edit; it goes into the edit history.
	EditorID string
}

func (u CreatorUpdate) validate() error {
	if u.Name == nil && u.Description == nil && u.ProfileImageURL == nil &&
		u.Platforms == nil && u.Tags == nil {
		return fmt.Errorf("%w: no fields to update", ErrInvalidUpdate)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidUpdate)
	}
	if u.ProfileImageURL != nil {
		parsed, err := url.Parse(*u.ProfileImageURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: profile image URL is not a valid URL", ErrInvalidUpdate)
		}
	}
	return nil
}

// Update applies a partial edit to a creator and records what changed in
// the creator's edit history. It returns the updated creator. When every
// given field matches the stored value, nothing is written and no history
// entry is made.
func (s *Service) Update(ctx context.Context, id string, update CreatorUpdate) (*catalog.Creator, error) {
	if err := update.validate(); err != nil {
		return nil, err
	}

	before, err := s.store.CreatorByID(ctx, id)
	if err != nil {
		return nil, err
	}

	after := *before
	entry := catalog.CreatorEditEntry{
		CreatorID:   id,
		CreatorName: before.Name,
		EditorID:    update.EditorID,
	}

	if update.Name != nil && *update.Name != before.Name {
		entry.Changes = append(entry.Changes, catalog.FieldChange{
			Field: "name", Before: before.Name, After: *update.Name,
		})
		after.Name = *update.Name
	}
	if update.Description != nil && *update.Description != before.Description {
		entry.Changes = append(entry.Changes, catalog.FieldChange{
			Field: "description", Before: before.Description, After: *update.Description,
		})
		after.Description = *update.Description
	}
	if update.ProfileImageURL != nil && *update.ProfileImageURL != before.ProfileImageURL {
		entry.Changes = append(entry.Changes, catalog.FieldChange{
			Field: "profileImageUrl", Before: before.ProfileImageURL, After: *update.ProfileImageURL,
		})
		after.ProfileImageURL = *update.ProfileImageURL
	}
	if update.Platforms != nil && !reflect.DeepEqual(*update.Platforms, before.Platforms) {
		entry.Changes = append(entry.Changes, catalog.FieldChange{Field: "platforms"})
		after.Platforms = *update.Platforms
	}
	if update.Tags != nil {
		entry.TagsAdded, entry.TagsRemoved = diffTags(before.Tags, update.Tags)
		after.Tags = update.Tags
	}

	if len(entry.Changes) == 0 && len(entry.TagsAdded) == 0 && len(entry.TagsRemoved) == 0 {
		return before, nil
	}

	if err := s.store.UpdateCreator(ctx, &after); err != nil {
		return nil, err
	}

	if err := s.store.AddEditHistory(ctx, &entry); err != nil {
		// The update itself stands.
		s.logger.Warn("recording edit history", zap.String("creator_id", id), zap.Error(err))
	}

	s.logger.Info("updated creator", zap.String("creator_id", id))
	return s.store.CreatorByID(ctx, id)
}

// EditHistory returns a creator's recent edits, newest first. History is
// kept after a delete so moderation can review removed profiles.
func (s *Service) EditHistory(ctx context.Context, creatorID string, limit int) ([]catalog.CreatorEditEntry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return s.store.EditHistory(ctx, creatorID, limit)
}

func diffTags(before, after []string) (added, removed []string) {
	beforeSet := make(map[string]bool, len(before))
	for _, t := range before {
		beforeSet[t] = true
	}

	afterSet := make(map[string]bool, len(after))
	for _, t := range after {
		if afterSet[t] {
			continue
		}
		afterSet[t] = true
		if !beforeSet[t] {
			added = append(added, t)
		}
	}

	for _, t := range before {
		if !afterSet[t] {
			removed = append(removed, t)
		}
	}
	return added, removed
}

// Delete removes a creator. Tag rows are left in place; tags are shared
// across creators and reconciled by catalog maintenance, not deletes.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteCreator(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted creator", zap.String("creator_id", id))
	return nil
}
