package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/forge/compiler"
	"github.com/teranos/forge/resman"
)

// Pool dispatches one task per collected job onto a bounded set of parallel
// workers and joins on completion. Pool size is fixed for the run.
type Pool struct {
	params  *Params
	service *resman.Service
	factory compiler.Factory
	emitter ProgressEmitter
	logger  *zap.SugaredLogger

	runID string
	tally Tally
}

// NewPool wires a pool. The service must already be started; the factory
// is invoked once per worker that ends up executing at least one job.
func NewPool(params *Params, service *resman.Service, factory compiler.Factory, emitter ProgressEmitter, logger *zap.SugaredLogger) *Pool {
	return &Pool{
		params:  params,
		service: service,
		factory: factory,
		emitter: emitter,
		logger:  logger.Named("batch"),
		runID:   uuid.NewString(),
	}
}

// RunID identifies this batch run in logs and the history store.
func (p *Pool) RunID() string {
	return p.runID
}

// AddEmitter fans another emitter in next to the existing one. Must be
// called before Run.
func (p *Pool) AddEmitter(e ProgressEmitter) {
	p.emitter = MultiEmitter(p.emitter, e)
}

// Run compiles every source and returns the final tally, read only after
// all workers have joined. The counters always sum to the number of jobs
// actually dispatched: with keep-going disabled, the first error stops
// further dispatch, while jobs already picked up run to completion and
// still contribute to the tally.
func (p *Pool) Run(ctx context.Context, sources []string) TallySnapshot {
	total := len(sources)
	jobs := make(chan Job, total)
	for i, src := range sources {
		jobs <- Job{Source: src, Index: i + 1, Total: total}
	}
	close(jobs)

	// cancel is the soft-abort signal: it stops workers from picking up
	// queued jobs but never preempts a compile in flight.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workers := p.params.EffectiveJobs()
	if total > 0 && workers > total {
		workers = total
	}

	p.logger.Infow("batch run starting",
		"run", p.runID, "jobs", total, "workers", workers, "dry_run", p.params.DryRun)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go p.worker(ctx, i, jobs, cancel, &wg)
	}
	wg.Wait()

	snap := p.tally.Snapshot()
	p.emitter.RunDone(snap, time.Since(start))
	p.logger.Infow("batch run finished",
		"run", p.runID,
		"successes", snap.Successes, "skips", snap.Skips, "errors", snap.Errors,
		"elapsed", time.Since(start))
	return snap
}

// worker drains the job channel. The worker context (and with it the
// engine) is created lazily on the first job and reused afterwards.
func (p *Pool) worker(ctx context.Context, id int, jobs <-chan Job, cancel context.CancelFunc, wg *sync.WaitGroup) {
	defer wg.Done()
	logger := p.logger.With("worker", id)

	var wc *workerContext
	for job := range jobs {
		if ctx.Err() != nil {
			// Soft abort: the run is over, leave queued jobs undispatched.
			logger.Debugw("abort observed, dropping queued jobs")
			return
		}

		if wc == nil {
			var err error
			wc, err = newWorkerContext(
				p.factory,
				compiler.Config{DebugSymbols: p.params.DebugSymbols},
				p.service,
				p.params.DryRun,
				logger,
			)
			if err != nil {
				// The job was dispatched to us; it still gets its one outcome.
				logger.Errorw("engine creation failed", "error", err)
				p.finish(Outcome{Job: job, Kind: OutcomeError, Detail: err.Error()}, cancel)
				wc = nil
				continue
			}
		}

		p.finish(p.compileOne(wc, job), cancel)
	}
}

// compileOne runs a single job through the worker's engine and classifies
// the returned code.
func (p *Pool) compileOne(wc *workerContext, job Job) Outcome {
	start := time.Now()
	base := wc.prepare(job, p.params)
	res := wc.engine.Compile(base)

	o := Outcome{Job: job, Detail: res.Message, Elapsed: time.Since(start)}
	switch res.Code {
	case compiler.CodeSuccess:
		o.Kind = OutcomeSuccess
		o.Detail = ""
	case compiler.CodeSkip:
		o.Kind = OutcomeSkip
	default:
		o.Kind = OutcomeError
	}
	return o
}

// finish records the job's single outcome and, when keep-going is off,
// raises the soft-abort signal on the first error.
func (p *Pool) finish(o Outcome, cancel context.CancelFunc) {
	p.tally.Record(o.Kind)
	p.emitter.JobDone(o)
	if o.Kind == OutcomeError && !p.params.KeepGoing {
		cancel()
	}
}
