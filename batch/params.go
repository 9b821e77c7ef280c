package batch

import (
	"os"
	"runtime"

	"github.com/teranos/forge/errors"
)

// Params is the immutable run configuration shared by reference across all
// workers. It is constructed once before the pool starts and never mutated
// afterwards, so no synchronization is needed around it.
type Params struct {
	Jobs         int      // worker count; 0 means one per processor
	Recursive    bool     // descend into subdirectories during collection
	DryRun       bool     // suppress artifact writes
	DebugSymbols bool     // forwarded to the engine config
	KeepGoing    bool     // continue past compile errors
	OutputDir    string   // optional global output-directory override
	OutputName   string   // output base-name override; honored only when the run has exactly one job
	Extensions   []string // recognized source extensions, e.g. [".nss"]
}

// EffectiveJobs resolves the worker count, defaulting to the number of
// available processors.
func (p *Params) EffectiveJobs() int {
	if p.Jobs > 0 {
		return p.Jobs
	}
	return runtime.NumCPU()
}

// Validate checks the parts of Params that constitute configuration errors.
// Configuration errors are fatal before any job is dispatched.
func (p *Params) Validate() error {
	if p.Jobs < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "jobs must be positive, got %d", p.Jobs)
	}
	if len(p.Extensions) == 0 {
		return errors.Wrap(errors.ErrInvalidConfig, "no source extensions configured")
	}
	if p.OutputDir != "" {
		info, err := os.Stat(p.OutputDir)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidConfig, "output directory %s does not exist", p.OutputDir)
		}
		if !info.IsDir() {
			return errors.Wrapf(errors.ErrInvalidConfig, "output path %s is not a directory", p.OutputDir)
		}
	}
	return nil
}
