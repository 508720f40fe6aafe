// Package inmemory provides a map-backed storage driver, useful for tests
// and ephemeral runs.
package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/storage"
)

type favoriteKey struct {
	userID    string
	creatorID string
}

// Store implements storage.Store with in-process maps.
type Store struct {
	mu            sync.RWMutex
	tags          map[string]catalog.Tag
	tagsByName    map[string]string
	creators      map[string]catalog.Creator
	editHistory   map[string][]catalog.CreatorEditEntry
	favorites     map[favoriteKey]catalog.FavoriteEntry
	viewHistory   map[string][]catalog.ViewHistoryEntry
	searchHistory map[string][]catalog.SearchHistoryEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		tags:          make(map[string]catalog.Tag),
		tagsByName:    make(map[string]string),
		creators:      make(map[string]catalog.Creator),
		editHistory:   make(map[string][]catalog.CreatorEditEntry),
		favorites:     make(map[favoriteKey]catalog.FavoriteEntry),
		viewHistory:   make(map[string][]catalog.ViewHistoryEntry),
		searchHistory: make(map[string][]catalog.SearchHistoryEntry),
	}
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// --- tags ---

func (s *Store) TagByID(_ context.Context, id string) (*catalog.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "tag", ID: id}
	}
	return &tag, nil
}

func (s *Store) TagByName(_ context.Context, name string) (*catalog.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tagsByName[name]
	if !ok {
		return nil, nil
	}
	tag := s.tags[id]
	return &tag, nil
}

func (s *Store) TagsByIDs(_ context.Context, ids []string) ([]catalog.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tags []catalog.Tag
	for _, id := range ids {
		if tag, ok := s.tags[id]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

func (s *Store) AllTags(_ context.Context) ([]catalog.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]catalog.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *Store) PopularTags(_ context.Context, limit int) ([]catalog.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tags := make([]catalog.Tag, 0, len(s.tags))
	for _, tag := range s.tags {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		return tags[i].ViewCount > tags[j].ViewCount
	})
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return tags, nil
}

func (s *Store) InsertTag(_ context.Context, tag *catalog.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tagsByName[tag.Name]; exists {
		return storage.ErrDuplicateTagName
	}
	s.tags[tag.ID] = *tag
	s.tagsByName[tag.Name] = tag.ID
	return nil
}

func (s *Store) SetTagEmbedding(_ context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.tags[id]
	if !ok {
		return storage.NotFoundError{Kind: "tag", ID: id}
	}
	tag.Embedding = embedding
	tag.UpdatedAt = time.Now().UTC()
	s.tags[id] = tag
	return nil
}

func (s *Store) IncrementTagViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.tags[id]
	if !ok {
		return storage.NotFoundError{Kind: "tag", ID: id}
	}
	tag.ViewCount++
	tag.UpdatedAt = time.Now().UTC()
	s.tags[id] = tag
	return nil
}

// --- creators ---

func (s *Store) CreatorByID(_ context.Context, id string) (*catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creator, ok := s.creators[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "creator", ID: id}
	}
	return &creator, nil
}

func (s *Store) CreatorsByTag(_ context.Context, tagID string, limit int) ([]catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var creators []catalog.Creator
	for _, creator := range s.creators {
		for _, t := range creator.Tags {
			if t == tagID {
				creators = append(creators, creator)
				break
			}
		}
	}
	sort.Slice(creators, func(i, j int) bool {
		return creators[i].FavoriteCount > creators[j].FavoriteCount
	})
	if len(creators) > limit {
		creators = creators[:limit]
	}
	return creators, nil
}

func (s *Store) PopularCreators(_ context.Context, limit int) ([]catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creators := make([]catalog.Creator, 0, len(s.creators))
	for _, creator := range s.creators {
		creators = append(creators, creator)
	}
	sort.Slice(creators, func(i, j int) bool {
		return creators[i].FavoriteCount > creators[j].FavoriteCount
	})
	if len(creators) > limit {
		creators = creators[:limit]
	}
	return creators, nil
}

func (s *Store) NewestCreators(_ context.Context, limit int) ([]catalog.Creator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creators := make([]catalog.Creator, 0, len(s.creators))
	for _, creator := range s.creators {
		creators = append(creators, creator)
	}
	sort.Slice(creators, func(i, j int) bool {
		return creators[i].CreatedAt.After(creators[j].CreatedAt)
	})
	if len(creators) > limit {
		creators = creators[:limit]
	}
	return creators, nil
}

func (s *Store) InsertCreator(_ context.Context, creator *catalog.Creator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *creator
	stored.Tags = dedupe(creator.Tags)
	s.creators[creator.ID] = stored
	return nil
}

func (s *Store) UpdateCreator(_ context.Context, creator *catalog.Creator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.creators[creator.ID]
	if !ok {
		return storage.NotFoundError{Kind: "creator", ID: creator.ID}
	}

	existing.Name = creator.Name
	existing.Description = creator.Description
	existing.ProfileImageURL = creator.ProfileImageURL
	existing.Platforms = creator.Platforms
	existing.Tags = dedupe(creator.Tags)
	existing.UpdatedAt = time.Now().UTC()
	s.creators[creator.ID] = existing
	return nil
}

func (s *Store) DeleteCreator(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creators[id]; !ok {
		return storage.NotFoundError{Kind: "creator", ID: id}
	}
	delete(s.creators, id)
	return nil
}

func (s *Store) AdjustFavoriteCount(_ context.Context, id string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creator, ok := s.creators[id]
	if !ok {
		return storage.NotFoundError{Kind: "creator", ID: id}
	}
	creator.FavoriteCount += delta
	if creator.FavoriteCount < 0 {
		creator.FavoriteCount = 0
	}
	creator.UpdatedAt = time.Now().UTC()
	s.creators[id] = creator
	return nil
}

func (s *Store) AddEditHistory(_ context.Context, entry *catalog.CreatorEditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *entry
	stored.EditedAt = time.Now().UTC()
	s.editHistory[entry.CreatorID] = append(s.editHistory[entry.CreatorID], stored)
	return nil
}

func (s *Store) EditHistory(_ context.Context, creatorID string, limit int) ([]catalog.CreatorEditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.editHistory[creatorID]
	entries := make([]catalog.CreatorEditEntry, 0, limit)
	for i := len(history) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, history[i])
	}
	return entries, nil
}

// --- users ---

func (s *Store) AddFavorite(_ context.Context, userID, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := favoriteKey{userID: userID, creatorID: creatorID}
	if _, ok := s.favorites[key]; ok {
		return nil
	}
	s.favorites[key] = catalog.FavoriteEntry{
		CreatorID: creatorID,
		AddedAt:   time.Now().UTC(),
	}
	return nil
}

func (s *Store) RemoveFavorite(_ context.Context, userID, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.favorites, favoriteKey{userID: userID, creatorID: creatorID})
	return nil
}

func (s *Store) IsFavorite(_ context.Context, userID, creatorID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.favorites[favoriteKey{userID: userID, creatorID: creatorID}]
	return ok, nil
}

func (s *Store) Favorites(_ context.Context, userID string) ([]catalog.FavoriteEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []catalog.FavoriteEntry
	for key, entry := range s.favorites {
		if key.userID == userID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].AddedAt.After(entries[j].AddedAt)
	})
	return entries, nil
}

func (s *Store) AddViewHistory(_ context.Context, userID, creatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.viewHistory[userID] = append(s.viewHistory[userID], catalog.ViewHistoryEntry{
		CreatorID: creatorID,
		ViewedAt:  time.Now().UTC(),
	})
	return nil
}

func (s *Store) ViewHistory(_ context.Context, userID string, limit int) ([]catalog.ViewHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.viewHistory[userID]
	entries := make([]catalog.ViewHistoryEntry, 0, limit)
	for i := len(history) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, history[i])
	}
	return entries, nil
}

func (s *Store) AddSearchHistory(_ context.Context, userID, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searchHistory[userID] = append(s.searchHistory[userID], catalog.SearchHistoryEntry{
		Query:      query,
		SearchedAt: time.Now().UTC(),
	})
	return nil
}

func (s *Store) SearchHistory(_ context.Context, userID string, limit int) ([]catalog.SearchHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.searchHistory[userID]
	entries := make([]catalog.SearchHistoryEntry, 0, limit)
	for i := len(history) - 1; i >= 0 && len(entries) < limit; i-- {
		entries = append(entries, history[i])
	}
	return entries, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var _ storage.Store = (*Store)(nil)
