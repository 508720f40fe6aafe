package eventstream

import (
	"time"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTagCreated is emitted after the resolver mints a new tag.
	EventTypeTagCreated = "illumefy.tag.created"

	// EventTypeCreatorPersisted is emitted after a creator profile is stored.
	EventTypeCreatorPersisted = "illumefy.creator.persisted"
)

// CatalogEvent is a transport-neutral event payload for a catalog change.
type CatalogEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Tag           *TagMeta     `json:"tag,omitempty"`
	Creator       *CreatorMeta `json:"creator,omitempty"`
}

// TagMeta identifies the tag a catalog event refers to.
type TagMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreatorMeta identifies the creator a catalog event refers to.
type CreatorMeta struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	TagIDs []string `json:"tag_ids,omitempty"`
}
