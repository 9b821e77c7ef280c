package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teranos/forge/batch"
	"github.com/teranos/forge/compiler"
	"github.com/teranos/forge/config"
	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/history"
	"github.com/teranos/forge/logger"
	"github.com/teranos/forge/resman"
)

// CompileCmd represents the compile command
var CompileCmd = &cobra.Command{
	Use:   "compile <path>...",
	Short: "Compile scripts in parallel",
	Long: `Compile script sources on a bounded pool of parallel workers.

Paths may be individual source files or directories. Directories are
scanned for recognized source extensions; pass --recursive to descend
into subdirectories. Each collected source becomes one job with exactly
one outcome: success, skip, or error.

By default the first compile error stops dispatch of the remaining
queue while in-flight jobs run to completion. Pass --keep-going to
compile everything regardless.

Examples:
  forge compile scripts/                   # Every script in a directory
  forge compile -j 8 -r src/               # 8 workers, recursive
  forge compile -g -o build/ scripts/      # Debug symbols into build/
  forge compile --output-name hello a.nss  # Rename the single artifact
  forge compile -n scripts/                # Dry run, no artifacts`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCompile,
}

var (
	compileJobs       int
	compileRecursive  bool
	compileDryRun     bool
	compileDebug      bool
	compileKeepGoing  bool
	compileOutputDir  string
	compileOutputName string
	compileEngine     string
	compileHistory    string
)

func init() {
	CompileCmd.Flags().IntVarP(&compileJobs, "jobs", "j", 0, "Number of parallel workers (0 = one per processor)")
	CompileCmd.Flags().BoolVarP(&compileRecursive, "recursive", "r", false, "Descend into subdirectories")
	CompileCmd.Flags().BoolVarP(&compileDryRun, "dry-run", "n", false, "Compile without writing artifacts")
	CompileCmd.Flags().BoolVarP(&compileDebug, "debug-symbols", "g", false, "Also produce debug symbol artifacts")
	CompileCmd.Flags().BoolVarP(&compileKeepGoing, "keep-going", "k", false, "Continue past compile errors")
	CompileCmd.Flags().StringVarP(&compileOutputDir, "output-dir", "o", "", "Write artifacts into this directory instead of next to each source")
	CompileCmd.Flags().StringVar(&compileOutputName, "output-name", "", "Artifact base name (single source only)")
	CompileCmd.Flags().StringVar(&compileEngine, "engine", "", "Compiler engine to use")
	CompileCmd.Flags().StringVar(&compileHistory, "history", "", "Record the run into this history database")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	params := compileParams(cmd, cfg)

	engineName := cfg.Engine
	if cmd.Flags().Changed("engine") {
		engineName = compileEngine
	}
	factory, err := compiler.Lookup(engineName)
	if err != nil {
		return err
	}

	sources, err := batch.CollectJobs(args, params.Recursive, params.Extensions)
	if err != nil {
		return err
	}
	if params.OutputName != "" && len(sources) != 1 {
		return errors.Wrapf(errors.ErrInvalidConfig,
			"--output-name requires exactly one source, collected %d", len(sources))
	}
	if err := params.Validate(); err != nil {
		return err
	}

	log := logger.Logger
	ctx := cmd.Context()

	// The demand service lives for the process: an interrupt cancels the
	// pool's dispatch, but in-flight jobs keep resolving until they finish.
	service := resman.NewService(resman.NewBasicStore(), log)
	service.Start(context.Background())

	var emitter batch.ProgressEmitter = batch.NewCLIEmitter()
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		emitter = batch.NewJSONEmitter(cmd.OutOrStdout())
	}

	pool := batch.NewPool(params, service, factory, emitter, log)
	closeHistory := attachHistory(cmd, cfg, pool, params, log)
	defer closeHistory()

	snap := pool.Run(ctx, sources)
	if snap.Errors > 0 {
		return errors.Wrapf(errors.ErrCompileFailed,
			"%d of %d jobs failed", snap.Errors, snap.Dispatched())
	}
	return nil
}

// compileParams folds the config file under the command-line flags. A flag
// wins only when the user actually set it.
func compileParams(cmd *cobra.Command, cfg *config.Config) *batch.Params {
	params := &batch.Params{
		Jobs:         cfg.Compile.Jobs,
		Recursive:    cfg.Compile.Recursive,
		KeepGoing:    cfg.Compile.KeepGoing,
		DebugSymbols: cfg.Compile.DebugSymbols,
		OutputDir:    cfg.Compile.OutputDir,
		Extensions:   cfg.Extensions,
	}

	flags := cmd.Flags()
	if flags.Changed("jobs") {
		params.Jobs = compileJobs
	}
	if flags.Changed("recursive") {
		params.Recursive = compileRecursive
	}
	if flags.Changed("keep-going") {
		params.KeepGoing = compileKeepGoing
	}
	if flags.Changed("debug-symbols") {
		params.DebugSymbols = compileDebug
	}
	if flags.Changed("output-dir") {
		params.OutputDir = compileOutputDir
	}
	params.DryRun = compileDryRun
	params.OutputName = compileOutputName
	return params
}

// attachHistory fans a run recorder into the pool's emitter when history
// is enabled, returning a closer for the underlying database. History is
// additive observability: any failure here logs a warning and the run
// proceeds unrecorded.
func attachHistory(cmd *cobra.Command, cfg *config.Config, pool *batch.Pool, params *batch.Params, log *zap.SugaredLogger) func() {
	noop := func() {}

	path := cfg.History.Path
	enabled := cfg.History.Enabled
	if cmd.Flags().Changed("history") {
		path = compileHistory
		enabled = true
	}
	if !enabled {
		return noop
	}

	db, err := history.Open(path, log)
	if err != nil {
		log.Warnw("history disabled for this run", "error", err)
		return noop
	}
	rec, err := history.NewRecorder(history.NewStore(db), pool.RunID(), params, log)
	if err != nil {
		db.Close()
		log.Warnw("history disabled for this run", "error", err)
		return noop
	}
	pool.AddEmitter(rec)
	return func() { db.Close() }
}
