package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent illumefy configuration stored as
// config.toml in the .illumefy/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Search      SearchConfig      `toml:"search"`
	Tags        TagsConfig        `toml:"tags"`
	Events      EventsConfig      `toml:"events"`
	Synthesis   SynthesisConfig   `toml:"synthesis"`
}

// StorageConfig holds catalog storage settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// VectorStoreConfig holds vector index settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// SearchConfig holds creator search settings.
type SearchConfig struct {
	// OverfetchMultiplier scales the first-tag fetch window for multi-tag
	// searches.
	OverfetchMultiplier int `toml:"overfetch_multiplier,omitempty"`
}

// TagsConfig holds tag registration settings.
type TagsConfig struct {
	BatchSize    int `toml:"batch_size,omitempty"`
	BatchPauseMs int `toml:"batch_pause_ms,omitempty"`
}

// EventsConfig holds catalog event publishing settings. Provider "nop"
// disables publishing; "kafka" streams events to the configured brokers.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"` // comma-separated
	Topic    string `toml:"topic,omitempty"`
}

// SynthesisConfig holds tag synthesis model settings.
type SynthesisConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"vector_store.provider": {
		get: func(c *Config) string { return c.VectorStore.Provider },
		set: func(c *Config, v string) error { c.VectorStore.Provider = v; return nil },
	},
	"vector_store.target": {
		get: func(c *Config) string { return c.VectorStore.Target },
		set: func(c *Config, v string) error { c.VectorStore.Target = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"search.overfetch_multiplier": {
		get: func(c *Config) string {
			if c.Search.OverfetchMultiplier == 0 {
				return ""
			}
			return strconv.Itoa(c.Search.OverfetchMultiplier)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid value for search.overfetch_multiplier: %q", v)
			}
			c.Search.OverfetchMultiplier = n
			return nil
		},
	},
	"tags.batch_size": {
		get: func(c *Config) string {
			if c.Tags.BatchSize == 0 {
				return ""
			}
			return strconv.Itoa(c.Tags.BatchSize)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid value for tags.batch_size: %q", v)
			}
			c.Tags.BatchSize = n
			return nil
		},
	},
	"tags.batch_pause_ms": {
		get: func(c *Config) string { return strconv.Itoa(c.Tags.BatchPauseMs) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for tags.batch_pause_ms: %q", v)
			}
			c.Tags.BatchPauseMs = n
			return nil
		},
	},
	"events.provider": {
		get: func(c *Config) string { return c.Events.Provider },
		set: func(c *Config, v string) error { c.Events.Provider = v; return nil },
	},
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
	"synthesis.provider": {
		get: func(c *Config) string { return c.Synthesis.Provider },
		set: func(c *Config, v string) error { c.Synthesis.Provider = v; return nil },
	},
	"synthesis.model": {
		get: func(c *Config) string { return c.Synthesis.Model },
		set: func(c *Config, v string) error { c.Synthesis.Model = v; return nil },
	},
}
