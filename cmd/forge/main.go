package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/forge/cmd/forge/commands"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
)

var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "forge - parallel script batch compiler",
	Long: `forge - Parallel batch compilation for game scripts.

forge collects script sources from files and directories, compiles them
on a bounded pool of parallel workers, and reports per-job and summary
results. Each job sees an overlay of its own source over its containing
directory, so scripts resolve their includes the way the game engine
would.

Available commands:
  compile - Compile scripts in parallel
  watch   - Recompile automatically when sources change
  history - Inspect recorded compilation runs
  config  - Manage forge configuration
  version - Show version information

Examples:
  forge compile scripts/               # Compile every script in a directory
  forge compile -j 8 -r src/           # 8 workers, recursive collection
  forge compile -k scripts/            # Keep going past compile errors
  forge watch src/                     # Rebuild on change
  forge history ls                     # List recent runs`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("json", false, "Emit machine-readable JSON output")
	rootCmd.PersistentFlags().String("config", "", "Use this config file instead of discovering forge.toml")

	rootCmd.AddCommand(commands.CompileCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()

	// Interrupts trigger the soft abort: queued jobs are dropped while
	// in-flight compiles run to completion.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// Compile failures already reported their summary through the
		// progress emitter.
		if !errors.Is(err, errors.ErrCompileFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
