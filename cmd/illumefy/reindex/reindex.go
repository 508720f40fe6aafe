// Package reindexcmder provides the reindex command for rebuilding the tag
// vector index from the catalog.
package reindexcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/illumefy/illumefy-server/pkg/config"
	embeddingutils "github.com/illumefy/illumefy-server/pkg/embeddings/utils"
	"github.com/illumefy/illumefy-server/pkg/logger"
	"github.com/illumefy/illumefy-server/pkg/storage/sqlite"
	"github.com/illumefy/illumefy-server/pkg/tags"
	"github.com/illumefy/illumefy-server/pkg/vector/sqlitevec"
)

var reindexFlags = config.FlagSet{
	config.FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to the catalog SQLite database",
	},
	config.FlagVectorStoreProv: {
		Name:        "vector-store-provider",
		ViperKey:    "vector_store.provider",
		Description: "Vector index provider (sqlitevec)",
	},
	config.FlagVectorStoreTgt: {
		Name:        "vector-store-target",
		ViperKey:    "vector_store.target",
		Description: "Path to the vector index SQLite database",
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
}

var reindexFlagKeys = []string{
	config.FlagSQLite,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
}

type reindexCommander struct {
	sqlitePath     string
	vectorProv     string
	vectorTarget   string
	embeddingProv  string
	embeddingTgt   string
	embeddingModel string
	embeddingDims  uint
	debug          bool
	viper          *viper.Viper
	logger         *zap.Logger
}

const reindexLongDesc string = `Rebuild the tag vector index from the catalog.

Walks every tag in the catalog, re-embeds any tag whose embedding is
missing, and upserts all tag vectors into the index. Use this after an
index file is lost or after tags were created while the index was
unavailable.

Examples:
  illumefy reindex --sqlite catalog.db --vector-store-target vectors.db`

const reindexShortDesc string = "Rebuild the tag vector index"

func NewReindexCmd() *cobra.Command {
	cmder := &reindexCommander{}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: reindexShortDesc,
		Long:  reindexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("initializing config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, reindexFlags, reindexFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			cmder.sqlitePath = cmder.viper.GetString("storage.sqlite_path")
			cmder.vectorProv = cmder.viper.GetString("vector_store.provider")
			cmder.vectorTarget = cmder.viper.GetString("vector_store.target")
			cmder.embeddingProv = cmder.viper.GetString("embedding.provider")
			cmder.embeddingTgt = cmder.viper.GetString("embedding.target")
			cmder.embeddingModel = cmder.viper.GetString("embedding.model")
			cmder.embeddingDims = cmder.viper.GetUint("embedding.dimensions")

			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, reindexFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, reindexFlags, config.FlagVectorStoreProv, &cmder.vectorProv)
	config.AddStringFlag(cmd, reindexFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, reindexFlags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, reindexFlags, config.FlagEmbeddingTgt, &cmder.embeddingTgt)
	config.AddStringFlag(cmd, reindexFlags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, reindexFlags, config.FlagEmbeddingDims, &cmder.embeddingDims)

	return cmd
}

func (c *reindexCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	if c.sqlitePath == "" {
		return fmt.Errorf("a catalog SQLite database is required; pass --sqlite or set storage.sqlite_path")
	}
	if c.vectorTarget == "" {
		return fmt.Errorf("a vector index database is required; pass --vector-store-target or set vector_store.target")
	}

	store, err := sqlite.NewStore(c.sqlitePath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer store.Close()

	if c.vectorProv != "" && c.vectorProv != "sqlitevec" {
		return fmt.Errorf("unsupported vector store provider: %s", c.vectorProv)
	}

	index, err := sqlitevec.NewIndex(sqlitevec.Config{
		DBPath:     c.vectorTarget,
		Dimensions: c.embeddingDims,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reindexer := tags.NewReindexer(store, embedder, index, c.logger)

	n, err := reindexer.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindexing: %w", err)
	}

	fmt.Printf("Reindexed %d tags\n", n)
	return nil
}
