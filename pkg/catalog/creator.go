package catalog

import "time"

// Creator is a content producer listed in the discovery catalog.
type Creator struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`

	// FavoriteCount is the denormalized number of users who favorited this
	// creator. It is the ranking key for popularity and search.
	FavoriteCount int64 `json:"favoriteCount"`

	// Platforms holds per-platform presence. YouTube carries full channel
	// statistics; the others are plain profile links.
	Platforms Platforms `json:"platforms"`

	// Tags is the set of tag IDs attached to this creator. Duplicates are
	// removed before persistence. Referential integrity with the tag store
	// is cooperative, not enforced.
	Tags []string `json:"tags"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Platforms groups the per-platform creator presence.
type Platforms struct {
	YouTube   *YouTubePlatform `json:"youtube,omitempty"`
	Twitch    *SocialLink      `json:"twitch,omitempty"`
	TikTok    *SocialLink      `json:"tiktok,omitempty"`
	Instagram *SocialLink      `json:"instagram,omitempty"`
	NicoNico  *SocialLink      `json:"niconico,omitempty"`
}

// YouTubePlatform holds YouTube channel details.
type YouTubePlatform struct {
	Username        string `json:"username"`
	ChannelID       string `json:"channelId"`
	SubscriberCount int64  `json:"subscriberCount"`
	ViewCount       int64  `json:"viewCount,omitempty"`
}

// SocialLink is a plain profile URL on a platform.
type SocialLink struct {
	SocialLink string `json:"socialLink"`
}

// YouTubeChannel is the metadata fetched for a channel during ingestion.
type YouTubeChannel struct {
	ID              string
	Name            string
	Description     string
	SubscriberCount int64
	TotalViewCount  int64
	ProfileImageURL string
}

// FieldChange records one field's before and after values in a creator edit.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// CreatorEditEntry records one edit applied to a creator. The creator name
// is denormalized so the history stays readable after the creator is
// deleted.
type CreatorEditEntry struct {
	CreatorID   string        `json:"creatorId"`
	CreatorName string        `json:"creatorName"`
	EditorID    string        `json:"editorId,omitempty"`
	Changes     []FieldChange `json:"changes,omitempty"`
	TagsAdded   []string      `json:"tagsAdded,omitempty"`
	TagsRemoved []string      `json:"tagsRemoved,omitempty"`
	EditedAt    time.Time     `json:"editedAt"`
}

// FavoriteEntry records one user's favorite of a creator.
type FavoriteEntry struct {
	CreatorID string    `json:"creatorId"`
	AddedAt   time.Time `json:"addedAt"`
}

// ViewHistoryEntry records a creator profile view by a user.
type ViewHistoryEntry struct {
	CreatorID string    `json:"creatorId"`
	ViewedAt  time.Time `json:"viewedAt"`
}

// SearchHistoryEntry records a search a user performed.
type SearchHistoryEntry struct {
	Query      string    `json:"query"`
	SearchedAt time.Time `json:"searchedAt"`
}
