// Package illumefycmder
package illumefycmder

import (
	configcmder "github.com/illumefy/illumefy-server/cmd/illumefy/config"
	initcmder "github.com/illumefy/illumefy-server/cmd/illumefy/init"
	reindexcmder "github.com/illumefy/illumefy-server/cmd/illumefy/reindex"
	servecmder "github.com/illumefy/illumefy-server/cmd/illumefy/serve"
	versioncmder "github.com/illumefy/illumefy-server/cmd/version"
	"github.com/spf13/cobra"
)

const illumefyLongDesc string = `Illumefy is the creator discovery backend.

Run services using:
  illumefy serve       Run the API server
  illumefy reindex     Rebuild the tag vector index from the catalog
  illumefy config      Manage persistent configuration`

const illumefyShortDesc string = "Illumefy - Creator Discovery"

func NewIllumefyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "illumefy",
		Short: illumefyShortDesc,
		Long:  illumefyLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Path to the .illumefy config directory (default: ./.illumefy or ~/.illumefy)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(reindexcmder.NewReindexCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
