package config

const (
	defaultAPIListen = ":8080"

	defaultVectorProvider = "sqlite"

	defaultEmbeddingProvider   = "openai"
	defaultEmbeddingTarget     = "https://api.openai.com"
	defaultEmbeddingModel      = "text-embedding-3-small"
	defaultEmbeddingDimensions = 1536

	defaultOverfetchMultiplier = 3

	defaultTagBatchSize    = 5
	defaultTagBatchPauseMs = 200

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "illumefy.catalog"

	defaultSynthesisProvider = "anthropic"
	defaultSynthesisModel    = "claude-haiku-4-5-20251001"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		Search: SearchConfig{
			OverfetchMultiplier: defaultOverfetchMultiplier,
		},
		Tags: TagsConfig{
			BatchSize:    defaultTagBatchSize,
			BatchPauseMs: defaultTagBatchPauseMs,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Synthesis: SynthesisConfig{
			Provider: defaultSynthesisProvider,
			Model:    defaultSynthesisModel,
		},
	}
}
