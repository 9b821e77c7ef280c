package batch

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/forge/compiler"
	"github.com/teranos/forge/resman"
)

// workerContext is the mutable per-worker state, owned exclusively by one
// worker goroutine for its lifetime. It holds the worker's engine handle
// (engines are per-worker because they are not safe to share), a private
// reply channel with room for exactly one outstanding reply, and the
// overlay and output location of the job currently being compiled.
type workerContext struct {
	engine  compiler.Engine
	service *resman.Service
	reply   chan resman.Result
	logger  *zap.SugaredLogger

	// Per-job state, overwritten by prepare at the start of each job.
	overlay    []resman.Container
	outputDir  string
	outputBase string
	dryRun     bool
}

// newWorkerContext builds the context and its engine. Called lazily on the
// worker's first job, then reused for every job that lands on the worker.
func newWorkerContext(factory compiler.Factory, cfg compiler.Config, service *resman.Service, dryRun bool, logger *zap.SugaredLogger) (*workerContext, error) {
	wc := &workerContext{
		service: service,
		reply:   make(chan resman.Result, 1),
		logger:  logger,
		dryRun:  dryRun,
	}
	engine, err := factory(cfg, wc.writeArtifact, wc.resolveResource)
	if err != nil {
		return nil, err
	}
	wc.engine = engine
	return wc, nil
}

// prepare points the context at one job: output location first (honoring
// the global directory override and the single-file base-name override),
// then the job's overlay: the source file itself and its containing
// directory, most-specific first, so same-directory dependencies resolve.
// Returns the base name the engine compiles under.
func (wc *workerContext) prepare(job Job, params *Params) string {
	dir := filepath.Dir(job.Source)
	base := strings.TrimSuffix(filepath.Base(job.Source), filepath.Ext(job.Source))

	wc.outputDir = dir
	if params.OutputDir != "" {
		wc.outputDir = params.OutputDir
	}
	wc.outputBase = base
	// The base-name override only makes sense for a single-job run; with
	// more jobs it would collapse every artifact onto one name.
	if params.OutputName != "" && job.Total == 1 {
		wc.outputBase = params.OutputName
	}

	wc.overlay = []resman.Container{
		resman.FileContainer(job.Source),
		resman.DirectoryContainer(dir),
	}
	return base
}

// resolveResource is the engine's resolve callback: a synchronous, blocking
// RPC to the demand service. There is deliberately no timeout; an
// unresponsive service stalls the worker.
func (wc *workerContext) resolveResource(id resman.ResourceID) ([]byte, bool) {
	wc.service.Submit(resman.Request{ID: id, Overlay: wc.overlay, Reply: wc.reply})
	res := <-wc.reply
	return res.Data, res.Found
}

// writeArtifact is the engine's write callback. In dry-run mode nothing
// touches disk; otherwise the artifact lands at
// <outputDir>/<outputBase>.<ext-for-type>. The callback has no failure
// channel, so a failed write is logged and the job outcome is unaffected.
func (wc *workerContext) writeArtifact(name string, typ resman.Type, data []byte) {
	path := filepath.Join(wc.outputDir, wc.outputBase+"."+typ.Ext())
	if wc.dryRun {
		wc.logger.Debugw("dry run, artifact not written",
			"artifact", name, "path", path, "bytes", len(data))
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		wc.logger.Errorw("failed to write artifact", "path", path, "error", err)
	}
}
