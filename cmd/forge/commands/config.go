package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/teranos/forge/config"
	"github.com/teranos/forge/errors"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage forge configuration",
	Long: `Display and manage forge configuration.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (FORGE_* prefix)
3. The nearest forge.toml, searched upwards from the working directory
4. Default values

Examples:
  forge config show     # Show effective configuration
  forge config init     # Write a default forge.toml here`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	Long:  "Display the configuration forge would use from this directory, all sources merged.",
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default forge.toml into the current directory",
	RunE:  runConfigInit,
}

var configForce bool

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "Overwrite an existing forge.toml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "marshaling config to JSON")
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshaling config to TOML")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# forge configuration\n%s", string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(config.ConfigFileName); err == nil && !configForce {
		return errors.Newf("%s already exists, pass --force to overwrite", config.ConfigFileName)
	}

	if err := config.Save(config.Default(), config.ConfigFileName); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", config.ConfigFileName)
	return nil
}
