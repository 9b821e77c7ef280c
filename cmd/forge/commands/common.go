// Package commands implements the forge subcommands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/forge/config"
)

// loadConfig honors the root --config flag, otherwise discovers the
// nearest forge.toml.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
