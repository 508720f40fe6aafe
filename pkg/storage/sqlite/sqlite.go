// Package sqlite provides a SQLite-backed storage driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/illumefy/illumefy-server/pkg/catalog"
	"github.com/illumefy/illumefy-server/pkg/storage"
)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tags (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		embedding BLOB,
		view_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS creators (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		profile_image_url TEXT NOT NULL DEFAULT '',
		favorite_count INTEGER NOT NULL DEFAULT 0,
		platforms TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS creator_tags (
		creator_id TEXT NOT NULL,
		tag_id TEXT NOT NULL,
		PRIMARY KEY (creator_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_creator_tags_tag ON creator_tags (tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_creators_favorites ON creators (favorite_count DESC)`,
	`CREATE TABLE IF NOT EXISTS creator_edit_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		creator_id TEXT NOT NULL,
		creator_name TEXT NOT NULL,
		editor_id TEXT NOT NULL DEFAULT '',
		changes TEXT NOT NULL DEFAULT '[]',
		tags_added TEXT NOT NULL DEFAULT '[]',
		tags_removed TEXT NOT NULL DEFAULT '[]',
		edited_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_edit_history_creator ON creator_edit_history (creator_id)`,
	`CREATE TABLE IF NOT EXISTS user_favorites (
		user_id TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		added_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, creator_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_view_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		viewed_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_view_history_user ON user_view_history (user_id)`,
	`CREATE TABLE IF NOT EXISTS user_search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		query TEXT NOT NULL,
		searched_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_search_history_user ON user_search_history (user_id)`,
}

// NewStore creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice.
func serializeFloat32(v []float32) []byte {
	if v == nil {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// --- tags ---

const tagColumns = `id, name, description, embedding, view_count, created_at, updated_at`

func scanTag(row interface{ Scan(...any) error }) (*catalog.Tag, error) {
	var t catalog.Tag
	var emb []byte
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &emb, &t.ViewCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Embedding = deserializeFloat32(emb)
	return &t, nil
}

// TagByID retrieves a tag by its ID.
func (s *Store) TagByID(ctx context.Context, id string) (*catalog.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)

	tag, err := scanTag(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.NotFoundError{Kind: "tag", ID: id}
		}
		return nil, fmt.Errorf("querying tag: %w", err)
	}
	return tag, nil
}

// TagByName retrieves a tag by exact name, or nil when absent.
func (s *Store) TagByName(ctx context.Context, name string) (*catalog.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ?`, name)

	tag, err := scanTag(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying tag by name: %w", err)
	}
	return tag, nil
}

// TagsByIDs retrieves tags for the given IDs, skipping unknown ones.
func (s *Store) TagsByIDs(ctx context.Context, ids []string) ([]catalog.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s FROM tags WHERE id IN (%s)`,
		tagColumns, strings.Join(placeholders, ","),
	), args...)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// AllTags returns every tag.
func (s *Store) AllTags(ctx context.Context) ([]catalog.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tagColumns+` FROM tags`)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

// PopularTags returns up to limit tags ordered by view count descending.
func (s *Store) PopularTags(ctx context.Context, limit int) ([]catalog.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags ORDER BY view_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying popular tags: %w", err)
	}
	defer rows.Close()

	return collectTags(rows)
}

func collectTags(rows *sql.Rows) ([]catalog.Tag, error) {
	var tags []catalog.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, *tag)
	}
	return tags, rows.Err()
}

// InsertTag stores a new tag.
func (s *Store) InsertTag(ctx context.Context, tag *catalog.Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, name, description, embedding, view_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tag.ID, tag.Name, tag.Description, serializeFloat32(tag.Embedding),
		tag.ViewCount, tag.CreatedAt, tag.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: tags.name") {
			return storage.ErrDuplicateTagName
		}
		return fmt.Errorf("inserting tag: %w", err)
	}
	return nil
}

// SetTagEmbedding attaches an embedding to an existing tag.
func (s *Store) SetTagEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tags SET embedding = ?, updated_at = ? WHERE id = ?`,
		serializeFloat32(embedding), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating tag embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.NotFoundError{Kind: "tag", ID: id}
	}
	return nil
}

// IncrementTagViews atomically bumps the tag's view counter.
func (s *Store) IncrementTagViews(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tags SET view_count = view_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("incrementing tag views: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.NotFoundError{Kind: "tag", ID: id}
	}
	return nil
}

// --- creators ---

const creatorColumns = `id, name, description, profile_image_url, favorite_count, platforms, created_at, updated_at`

func scanCreator(row interface{ Scan(...any) error }) (*catalog.Creator, error) {
	var c catalog.Creator
	var platforms string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.ProfileImageURL,
		&c.FavoriteCount, &platforms, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(platforms), &c.Platforms); err != nil {
		return nil, fmt.Errorf("decoding platforms: %w", err)
	}
	return &c, nil
}

func (s *Store) loadCreatorTags(ctx context.Context, creators []catalog.Creator) error {
	for i := range creators {
		rows, err := s.db.QueryContext(ctx,
			`SELECT tag_id FROM creator_tags WHERE creator_id = ?`, creators[i].ID)
		if err != nil {
			return fmt.Errorf("querying creator tags: %w", err)
		}

		var tagIDs []string
		for rows.Next() {
			var tagID string
			if err := rows.Scan(&tagID); err != nil {
				rows.Close()
				return fmt.Errorf("scanning creator tag: %w", err)
			}
			tagIDs = append(tagIDs, tagID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		creators[i].Tags = tagIDs
	}
	return nil
}

// CreatorByID retrieves a creator by its ID.
func (s *Store) CreatorByID(ctx context.Context, id string) (*catalog.Creator, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+creatorColumns+` FROM creators WHERE id = ?`, id)

	creator, err := scanCreator(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.NotFoundError{Kind: "creator", ID: id}
		}
		return nil, fmt.Errorf("querying creator: %w", err)
	}

	creators := []catalog.Creator{*creator}
	if err := s.loadCreatorTags(ctx, creators); err != nil {
		return nil, err
	}
	return &creators[0], nil
}

func (s *Store) queryCreators(ctx context.Context, query string, args ...any) ([]catalog.Creator, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying creators: %w", err)
	}
	defer rows.Close()

	var creators []catalog.Creator
	for rows.Next() {
		creator, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning creator: %w", err)
		}
		creators = append(creators, *creator)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadCreatorTags(ctx, creators); err != nil {
		return nil, err
	}
	return creators, nil
}

// CreatorsByTag returns creators whose tag set contains tagID, ordered by
// favorite count descending. The single-predicate containment primitive.
func (s *Store) CreatorsByTag(ctx context.Context, tagID string, limit int) ([]catalog.Creator, error) {
	return s.queryCreators(ctx, `
		SELECT `+creatorColumns+` FROM creators
		WHERE id IN (SELECT creator_id FROM creator_tags WHERE tag_id = ?)
		ORDER BY favorite_count DESC
		LIMIT ?
	`, tagID, limit)
}

// PopularCreators returns creators ordered by favorite count descending.
func (s *Store) PopularCreators(ctx context.Context, limit int) ([]catalog.Creator, error) {
	return s.queryCreators(ctx,
		`SELECT `+creatorColumns+` FROM creators ORDER BY favorite_count DESC LIMIT ?`, limit)
}

// NewestCreators returns creators ordered by creation time descending.
func (s *Store) NewestCreators(ctx context.Context, limit int) ([]catalog.Creator, error) {
	return s.queryCreators(ctx,
		`SELECT `+creatorColumns+` FROM creators ORDER BY created_at DESC LIMIT ?`, limit)
}

// InsertCreator stores a new creator with its tag set.
func (s *Store) InsertCreator(ctx context.Context, creator *catalog.Creator) error {
	platforms, err := json.Marshal(creator.Platforms)
	if err != nil {
		return fmt.Errorf("encoding platforms: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO creators (id, name, description, profile_image_url, favorite_count, platforms, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, creator.ID, creator.Name, creator.Description, creator.ProfileImageURL,
		creator.FavoriteCount, string(platforms), creator.CreatedAt, creator.UpdatedAt); err != nil {
		return fmt.Errorf("inserting creator: %w", err)
	}

	for _, tagID := range dedupe(creator.Tags) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO creator_tags (creator_id, tag_id) VALUES (?, ?)`,
			creator.ID, tagID); err != nil {
			return fmt.Errorf("inserting creator tag: %w", err)
		}
	}

	return tx.Commit()
}

// UpdateCreator replaces a creator's stored fields and tag set.
func (s *Store) UpdateCreator(ctx context.Context, creator *catalog.Creator) error {
	platforms, err := json.Marshal(creator.Platforms)
	if err != nil {
		return fmt.Errorf("encoding platforms: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE creators SET name = ?, description = ?, profile_image_url = ?, platforms = ?, updated_at = ?
		WHERE id = ?
	`, creator.Name, creator.Description, creator.ProfileImageURL,
		string(platforms), time.Now().UTC(), creator.ID)
	if err != nil {
		return fmt.Errorf("updating creator: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.NotFoundError{Kind: "creator", ID: creator.ID}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM creator_tags WHERE creator_id = ?`, creator.ID); err != nil {
		return fmt.Errorf("clearing creator tags: %w", err)
	}
	for _, tagID := range dedupe(creator.Tags) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO creator_tags (creator_id, tag_id) VALUES (?, ?)`,
			creator.ID, tagID); err != nil {
			return fmt.Errorf("inserting creator tag: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteCreator removes a creator and its tag links.
func (s *Store) DeleteCreator(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM creator_tags WHERE creator_id = ?`, id); err != nil {
		return fmt.Errorf("deleting creator tags: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM creators WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting creator: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.NotFoundError{Kind: "creator", ID: id}
	}

	return tx.Commit()
}

// AdjustFavoriteCount atomically adds delta to the creator's favorite counter.
func (s *Store) AdjustFavoriteCount(ctx context.Context, id string, delta int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE creators SET favorite_count = MAX(favorite_count + ?, 0), updated_at = ? WHERE id = ?`,
		delta, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("adjusting favorite count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.NotFoundError{Kind: "creator", ID: id}
	}
	return nil
}

// AddEditHistory appends an edit record for a creator.
func (s *Store) AddEditHistory(ctx context.Context, entry *catalog.CreatorEditEntry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("encoding changes: %w", err)
	}
	added, err := json.Marshal(entry.TagsAdded)
	if err != nil {
		return fmt.Errorf("encoding added tags: %w", err)
	}
	removed, err := json.Marshal(entry.TagsRemoved)
	if err != nil {
		return fmt.Errorf("encoding removed tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO creator_edit_history (creator_id, creator_name, editor_id, changes, tags_added, tags_removed, edited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.CreatorID, entry.CreatorName, entry.EditorID,
		string(changes), string(added), string(removed), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adding edit history: %w", err)
	}
	return nil
}

// EditHistory returns a creator's most recent edits.
func (s *Store) EditHistory(ctx context.Context, creatorID string, limit int) ([]catalog.CreatorEditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT creator_id, creator_name, editor_id, changes, tags_added, tags_removed, edited_at
		FROM creator_edit_history
		WHERE creator_id = ?
		ORDER BY edited_at DESC, id DESC
		LIMIT ?
	`, creatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying edit history: %w", err)
	}
	defer rows.Close()

	var entries []catalog.CreatorEditEntry
	for rows.Next() {
		var e catalog.CreatorEditEntry
		var changes, added, removed string
		if err := rows.Scan(&e.CreatorID, &e.CreatorName, &e.EditorID,
			&changes, &added, &removed, &e.EditedAt); err != nil {
			return nil, fmt.Errorf("scanning edit history: %w", err)
		}
		if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
			return nil, fmt.Errorf("decoding changes: %w", err)
		}
		if err := json.Unmarshal([]byte(added), &e.TagsAdded); err != nil {
			return nil, fmt.Errorf("decoding added tags: %w", err)
		}
		if err := json.Unmarshal([]byte(removed), &e.TagsRemoved); err != nil {
			return nil, fmt.Errorf("decoding removed tags: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- users ---

// AddFavorite records a user's favorite. Idempotent.
func (s *Store) AddFavorite(ctx context.Context, userID, creatorID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_favorites (user_id, creator_id, added_at) VALUES (?, ?, ?)`,
		userID, creatorID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}
	return nil
}

// RemoveFavorite removes a user's favorite.
func (s *Store) RemoveFavorite(ctx context.Context, userID, creatorID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND creator_id = ?`,
		userID, creatorID)
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}

// IsFavorite reports whether the user has favorited the creator.
func (s *Store) IsFavorite(ctx context.Context, userID, creatorID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM user_favorites WHERE user_id = ? AND creator_id = ?`,
		userID, creatorID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying favorite: %w", err)
	}
	return true, nil
}

// Favorites returns the user's favorites, most recent first.
func (s *Store) Favorites(ctx context.Context, userID string) ([]catalog.FavoriteEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT creator_id, added_at FROM user_favorites WHERE user_id = ? ORDER BY added_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying favorites: %w", err)
	}
	defer rows.Close()

	var entries []catalog.FavoriteEntry
	for rows.Next() {
		var e catalog.FavoriteEntry
		if err := rows.Scan(&e.CreatorID, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning favorite: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddViewHistory appends a profile view to the user's history.
func (s *Store) AddViewHistory(ctx context.Context, userID, creatorID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_view_history (user_id, creator_id, viewed_at) VALUES (?, ?, ?)`,
		userID, creatorID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adding view history: %w", err)
	}
	return nil
}

// ViewHistory returns the user's most recent profile views.
func (s *Store) ViewHistory(ctx context.Context, userID string, limit int) ([]catalog.ViewHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT creator_id, viewed_at FROM user_view_history WHERE user_id = ? ORDER BY viewed_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying view history: %w", err)
	}
	defer rows.Close()

	var entries []catalog.ViewHistoryEntry
	for rows.Next() {
		var e catalog.ViewHistoryEntry
		if err := rows.Scan(&e.CreatorID, &e.ViewedAt); err != nil {
			return nil, fmt.Errorf("scanning view history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddSearchHistory appends a search query to the user's history.
func (s *Store) AddSearchHistory(ctx context.Context, userID, query string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_search_history (user_id, query, searched_at) VALUES (?, ?, ?)`,
		userID, query, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("adding search history: %w", err)
	}
	return nil
}

// SearchHistory returns the user's most recent searches.
func (s *Store) SearchHistory(ctx context.Context, userID string, limit int) ([]catalog.SearchHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, searched_at FROM user_search_history WHERE user_id = ? ORDER BY searched_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying search history: %w", err)
	}
	defer rows.Close()

	var entries []catalog.SearchHistoryEntry
	for rows.Next() {
		var e catalog.SearchHistoryEntry
		if err := rows.Scan(&e.Query, &e.SearchedAt); err != nil {
			return nil, fmt.Errorf("scanning search history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
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
