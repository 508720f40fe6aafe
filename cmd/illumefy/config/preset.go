package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/illumefy/illumefy-server/pkg/config"
)

const presetLongDesc string = `Apply a provider preset.

Replaces the current configuration with sane defaults for the named
provider. Presets pick the embedding and synthesis providers together.

Available presets:
  openai      OpenAI embeddings and synthesis
  anthropic   OpenAI embeddings, Claude synthesis
  ollama      Local Ollama embeddings and synthesis

Examples:
  illumefy config preset ollama`

const presetShortDesc string = "Apply a provider preset"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset <name>",
		Short: presetShortDesc,
		Long:  presetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runPreset(name, configDir string) error {
	cfg, err := config.PresetConfig(name)
	if err != nil {
		return fmt.Errorf("%w\n\nAvailable presets: %s",
			err, strings.Join(config.ValidPresetNames(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("Applied preset %q to %s\n", strings.ToLower(name), cfger.GetTarget())
	return nil
}
