// Package configcmder provides the config command for managing persistent
// illumefy configuration stored in the .illumefy/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent illumefy configuration.

Configuration is stored as config.toml in the .illumefy/ directory and
provides default values for command flags. CLI flags always take
precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, api.listen,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  search.overfetch_multiplier,
  tags.batch_size, tags.batch_pause_ms,
  events.provider, events.brokers, events.topic,
  synthesis.provider, synthesis.model

Use subcommands to get, set, or list configuration values:
  illumefy config set <key> <value>    Set a configuration value
  illumefy config get <key>            Get a configuration value
  illumefy config list                 List all configuration values
  illumefy config preset <name>        Apply a provider preset

Examples:
  illumefy config set embedding.model text-embedding-3-small
  illumefy config set search.overfetch_multiplier 4
  illumefy config get events.provider
  illumefy config preset ollama
  illumefy config list`

const configShortDesc string = "Manage persistent illumefy configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
