// Package servecmder provides the serve command for running the illumefy API server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/api"
	"github.com/illumefy/illumefy-server/pkg/config"
	"github.com/illumefy/illumefy-server/pkg/creators"
	embeddingutils "github.com/illumefy/illumefy-server/pkg/embeddings/utils"
	"github.com/illumefy/illumefy-server/pkg/eventstream"
	"github.com/illumefy/illumefy-server/pkg/eventstream/kafka"
	"github.com/illumefy/illumefy-server/pkg/eventstream/nop"
	"github.com/illumefy/illumefy-server/pkg/ingest"
	"github.com/illumefy/illumefy-server/pkg/logger"
	"github.com/illumefy/illumefy-server/pkg/storage"
	"github.com/illumefy/illumefy-server/pkg/storage/inmemory"
	"github.com/illumefy/illumefy-server/pkg/storage/sqlite"
	"github.com/illumefy/illumefy-server/pkg/tags"
	"github.com/illumefy/illumefy-server/pkg/tagsynth"
	"github.com/illumefy/illumefy-server/pkg/vector"
	"github.com/illumefy/illumefy-server/pkg/vector/sqlitevec"
	"github.com/illumefy/illumefy-server/pkg/websearch"
	"github.com/illumefy/illumefy-server/pkg/youtube"
)

// serveFlags is the flag registry for the serve command. Every flag binds to
// a viper key so the precedence chain is flag > env > config file > default.
var serveFlags = config.FlagSet{
	config.FlagAPIListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the API server to listen on",
	},
	config.FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the catalog SQLite database (default: in-memory)",
	},
	config.FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Vector index provider (sqlitevec)",
	},
	config.FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Path to the vector index SQLite database (default: in-memory)",
	},
	config.FlagEmbeddingProv: {
		Name:        "embedding-provider",
		ViperKey:    "embedding.provider",
		Description: "Embedding provider (openai, ollama)",
	},
	config.FlagEmbeddingTgt: {
		Name:        "embedding-target",
		ViperKey:    "embedding.target",
		Description: "Base URL of the embedding provider",
	},
	config.FlagEmbeddingModel: {
		Name:        "embedding-model",
		ViperKey:    "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagEmbeddingDims: {
		Name:        "embedding-dimensions",
		ViperKey:    "embedding.dimensions",
		Description: "Dimensionality of the embedding vectors",
	},
	config.FlagOverfetch: {
		Name:        "overfetch-multiplier",
		ViperKey:    "search.overfetch_multiplier",
		Description: "Over-fetch multiplier for multi-tag searches",
	},
	config.FlagBatchSize: {
		Name:        "batch-size",
		ViperKey:    "tags.batch_size",
		Description: "Number of tag names resolved concurrently per batch",
	},
	config.FlagBatchPauseMs: {
		Name:        "batch-pause-ms",
		ViperKey:    "tags.batch_pause_ms",
		Description: "Pause between tag registration batches in milliseconds",
	},
	config.FlagEventsProvider: {
		Name:        "events-provider",
		ViperKey:    "events.provider",
		Description: "Catalog event publisher (nop, kafka)",
	},
	config.FlagEventsBrokers: {
		Name:        "events-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma-separated Kafka broker addresses",
	},
	config.FlagEventsTopic: {
		Name:        "events-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for catalog events",
	},
	config.FlagSynthProvider: {
		Name:        "synthesis-provider",
		ViperKey:    "synthesis.provider",
		Description: "Tag synthesis LLM provider (openai, anthropic, ollama)",
	},
	config.FlagSynthModel: {
		Name:        "synthesis-model",
		ViperKey:    "synthesis.model",
		Description: "Tag synthesis model name",
	},
}

// serveFlagKeys lists every registry key the serve command registers.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagOverfetch,
	config.FlagBatchSize,
	config.FlagBatchPauseMs,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
	config.FlagSynthProvider,
	config.FlagSynthModel,
}

type serveCommander struct {
	listen         string
	sqlitePath     string
	vectorProv     string
	vectorTarget   string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	overfetch      uint
	batchSize      uint
	batchPauseMs   uint
	eventsProvider string
	eventsBrokers  string
	eventsTopic    string
	synthProvider  string
	synthModel     string
	debug          bool
	viper          *viper.Viper
	logger         *zap.Logger
}

const serveLongDesc string = `Run the illumefy API server.

The server exposes the creator catalog over HTTP: tag registration,
multi-tag creator search, favorites, view history, and optional YouTube
channel ingestion when YOUTUBE_API_KEY is set.

Settings come from flags, ILLUMEFY_* environment variables, and
config.toml in the .illumefy/ directory, in that order of precedence.`

const serveShortDesc string = "Run the illumefy API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, serveFlags, serveFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cmder.applyViper()
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddUintFlag(cmd, serveFlags, config.FlagOverfetch, &cmder.overfetch)
	config.AddUintFlag(cmd, serveFlags, config.FlagBatchSize, &cmder.batchSize)
	config.AddUintFlag(cmd, serveFlags, config.FlagBatchPauseMs, &cmder.batchPauseMs)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)
	config.AddStringFlag(cmd, serveFlags, config.FlagSynthProvider, &cmder.synthProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagSynthModel, &cmder.synthModel)

	return cmd
}

// applyViper reads the final merged settings out of viper. Flags that were
// explicitly set on the command line win via BindRegisteredFlags.
func (c *serveCommander) applyViper() {
	v := c.viper

	c.listen = v.GetString("api.listen")
	c.sqlitePath = v.GetString("storage.sqlite_path")
	c.vectorProv = v.GetString("vector_store.provider")
	c.vectorTarget = v.GetString("vector_store.target")
	c.embeddingProv = v.GetString("embedding.provider")
	c.embeddingTgt = v.GetString("embedding.target")
	c.embeddingModel = v.GetString("embedding.model")
	c.embeddingDims = v.GetUint("embedding.dimensions")
	c.overfetch = v.GetUint("search.overfetch_multiplier")
	c.batchSize = v.GetUint("tags.batch_size")
	c.batchPauseMs = v.GetUint("tags.batch_pause_ms")
	c.eventsProvider = v.GetString("events.provider")
	c.eventsBrokers = v.GetString("events.brokers")
	c.eventsTopic = v.GetString("events.topic")
	c.synthProvider = v.GetString("synthesis.provider")
	c.synthModel = v.GetString("synthesis.model")
}

func (c *serveCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	store, err := c.newStore()
	if err != nil {
		return err
	}
	defer store.Close()

	index, err := c.newVectorIndex()
	if err != nil {
		return err
	}
	defer index.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.embeddingProv,
		TargetURL:    c.embeddingTgt,
		Model:        c.embeddingModel,
		APIKey:       os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	resolver := tags.NewResolver(store, embedder, index, c.logger,
		tags.WithPublisher(publisher),
	)

	registrar, err := tags.NewRegistrar(resolver, c.logger,
		tags.WithBatchSize(int(c.batchSize)),
		tags.WithBatchPause(time.Duration(c.batchPauseMs)*time.Millisecond),
	)
	if err != nil {
		return fmt.Errorf("creating registrar: %w", err)
	}

	service := creators.NewService(store, c.logger)
	search := creators.NewSearchEngine(store, store, c.logger,
		creators.WithOverfetchMultiplier(int(c.overfetch)),
	)

	opts := []api.ServerOption{}
	pipeline, err := c.newIngestPipeline(store, registrar, publisher)
	if err != nil {
		return err
	}
	if pipeline != nil {
		opts = append(opts, api.WithPipeline(pipeline))
	}

	server := api.NewServer(api.Config{ListenAddr: c.listen}, store, service, search, registrar, c.logger, opts...)

	c.logger.Info("starting API server",
		zap.String("listen", c.listen),
		zap.String("embedding_provider", c.embeddingProv),
		zap.String("embedding_model", c.embeddingModel),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

func (c *serveCommander) newStore() (storage.Store, error) {
	if c.sqlitePath != "" {
		store, err := sqlite.NewStore(c.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", c.sqlitePath))
		return store, nil
	}

	c.logger.Info("using in-memory storage")
	return inmemory.NewStore(), nil
}

func (c *serveCommander) newVectorIndex() (vector.Index, error) {
	switch c.vectorProv {
	case "sqlitevec", "":
		target := c.vectorTarget
		if target == "" {
			target = ":memory:"
		}

		index, err := sqlitevec.NewIndex(sqlitevec.Config{
			DBPath:     target,
			Dimensions: c.embeddingDims,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating vector index: %w", err)
		}

		c.logger.Info("using sqlite-vec vector index", zap.String("target", target))
		return index, nil

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", c.vectorProv)
	}
}

func (c *serveCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.eventsProvider {
	case "kafka":
		brokers := []string{}
		for _, b := range strings.Split(c.eventsBrokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}

		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   c.eventsTopic,
		}, c.logger)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}

		c.logger.Info("publishing catalog events to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", c.eventsTopic),
		)
		return pub, nil

	case "nop", "":
		return nop.NewPublisher(), nil

	default:
		return nil, fmt.Errorf("unsupported events provider: %s", c.eventsProvider)
	}
}

// newIngestPipeline builds the YouTube ingestion pipeline if YOUTUBE_API_KEY
// is set. Without a key the server runs fine, the ingest endpoint just
// returns 503.
func (c *serveCommander) newIngestPipeline(store storage.Store, registrar *tags.Registrar, publisher eventstream.Publisher) (*ingest.Pipeline, error) {
	ytKey := os.Getenv("YOUTUBE_API_KEY")
	if ytKey == "" {
		c.logger.Info("YOUTUBE_API_KEY not set, channel ingestion disabled")
		return nil, nil
	}

	fetcher, err := youtube.NewClient(ytKey)
	if err != nil {
		return nil, fmt.Errorf("creating youtube client: %w", err)
	}

	call, err := tagsynth.NewCaller(tagsynth.CallerConfig{
		Provider: c.synthProvider,
		Model:    c.synthModel,
		APIKey:   synthAPIKey(c.synthProvider),
	})
	if err != nil {
		return nil, fmt.Errorf("creating tag synthesis caller: %w", err)
	}
	synth := tagsynth.NewSynthesizer(call, c.logger)

	opts := []ingest.PipelineOption{ingest.WithPublisher(publisher)}

	if braveKey := os.Getenv("BRAVE_API_KEY"); braveKey != "" {
		searcher, err := websearch.NewClient(braveKey)
		if err != nil {
			return nil, fmt.Errorf("creating web search client: %w", err)
		}
		opts = append(opts, ingest.WithSearcher(searcher))
	} else {
		c.logger.Info("BRAVE_API_KEY not set, ingesting without web search context")
	}

	c.logger.Info("channel ingestion enabled",
		zap.String("synthesis_provider", c.synthProvider),
		zap.String("synthesis_model", c.synthModel),
	)

	return ingest.NewPipeline(fetcher, synth, registrar, store, c.logger, opts...), nil
}

// synthAPIKey picks the API key env var matching the synthesis provider.
func synthAPIKey(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}
