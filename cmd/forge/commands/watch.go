package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/forge/batch"
	"github.com/teranos/forge/compiler"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/logger"
	"github.com/teranos/forge/resman"
	"github.com/teranos/forge/watch"
)

// WatchCmd represents the watch command
var WatchCmd = &cobra.Command{
	Use:   "watch [path]...",
	Short: "Recompile automatically when sources change",
	Long: `Watch source directories and recompile on change.

Changes are debounced so an editor save burst triggers a single
rebuild, and rebuilds are rate limited. Watch mode always keeps going
past compile errors: a broken script is reported, not fatal.

With no path the current directory is watched.`,
	RunE: runWatch,
}

var (
	watchRecursive bool
	watchJobs      int
	watchDebug     bool
	watchOutputDir string
)

func init() {
	WatchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", false, "Watch subdirectories too")
	WatchCmd.Flags().IntVarP(&watchJobs, "jobs", "j", 0, "Number of parallel workers (0 = one per processor)")
	WatchCmd.Flags().BoolVarP(&watchDebug, "debug-symbols", "g", false, "Also produce debug symbol artifacts")
	WatchCmd.Flags().StringVarP(&watchOutputDir, "output-dir", "o", "", "Write artifacts into this directory instead of next to each source")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	factory, err := compiler.Lookup(cfg.Engine)
	if err != nil {
		return err
	}

	log := logger.Logger
	ctx := cmd.Context()

	params := &batch.Params{
		Jobs:         cfg.Compile.Jobs,
		Recursive:    watchRecursive || cfg.Compile.Recursive,
		DebugSymbols: cfg.Compile.DebugSymbols,
		OutputDir:    cfg.Compile.OutputDir,
		KeepGoing:    true,
		Extensions:   cfg.Extensions,
	}
	flags := cmd.Flags()
	if flags.Changed("jobs") {
		params.Jobs = watchJobs
	}
	if flags.Changed("debug-symbols") {
		params.DebugSymbols = watchDebug
	}
	if flags.Changed("output-dir") {
		params.OutputDir = watchOutputDir
	}
	if err := params.Validate(); err != nil {
		return err
	}

	// Process-lifetime service: rebuilds in flight when the watch is
	// interrupted still resolve their resources.
	service := resman.NewService(resman.NewBasicStore(), log)
	service.Start(context.Background())

	rebuild := func(ctx context.Context, changed []string) error {
		sources, err := batch.CollectJobs(rebuildSpecs(dirs, changed), params.Recursive, params.Extensions)
		if err != nil {
			return err
		}
		pool := batch.NewPool(params, service, factory, batch.NewCLIEmitter(), log)
		pool.Run(ctx, sources)
		return nil
	}

	// Full pass up front so the watch starts from a known-good state.
	if err := rebuild(ctx, nil); err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(dirs, params.Extensions, params.Recursive,
		time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, log)
	if err != nil {
		return err
	}

	log.Infow("watching for changes", "dirs", dirs, "recursive", params.Recursive)
	runner := watch.NewRunner(watcher, cfg.Watch.MaxRebuildsPerSec, rebuild, log)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// rebuildSpecs narrows a triggered rebuild to the files that changed. The
// initial pass (no changed files) and triggers whose files have since been
// removed or renamed away fall back to the full directory set.
func rebuildSpecs(dirs, changed []string) []string {
	var specs []string
	for _, path := range changed {
		if _, err := os.Stat(path); err == nil {
			specs = append(specs, path)
		}
	}
	if len(specs) == 0 {
		return dirs
	}
	return specs
}
