// Package initcmder provides the init command for initializing a local
// .illumefy directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/illumefy/illumefy-server/pkg/config"
)

const (
	dirName = ".illumefy"

	remoteFetchTimeout = 10 * time.Second
)

const initLongDesc string = `Initialize a new .illumefy/ directory in the current working directory.

Creates a local .illumefy/ directory that takes precedence over the default
~/.illumefy/ directory for configuration and local databases, and writes a
config.toml with default values.

This is useful for maintaining separate illumefy state per project or directory.

The --preset flag seeds config.toml from a provider preset (openai,
anthropic, ollama) or from a URL serving a TOML config.

Examples:
  illumefy init
  illumefy init --preset ollama
  illumefy init --preset https://example.com/illumefy-config.toml`

const initShortDesc string = "Initialize a local .illumefy/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name or URL of a TOML config to seed config.toml from")

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, statErr := os.Stat(dir)
	exists := statErr == nil && info.IsDir()

	if !exists {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .illumefy directory: %w", err)
		}
	}

	cfg, err := c.resolveConfig()
	if err != nil {
		return err
	}

	configPath := filepath.Join(dir, "config.toml")

	// Without a preset, never clobber an existing config.toml.
	if c.preset == "" {
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Already initialized: %s\n", dir)
			return nil
		}
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	if exists {
		fmt.Printf("Updated config in %s\n", dir)
	} else {
		fmt.Printf("Initialized .illumefy directory: %s\n", dir)
	}
	return nil
}

// resolveConfig picks the config to write: a remote TOML document when
// --preset is a URL, a named provider preset, or the defaults.
func (c *initCommander) resolveConfig() (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://"):
		return fetchRemoteConfig(c.preset)

	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	client := &http.Client{Timeout: remoteFetchTimeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
