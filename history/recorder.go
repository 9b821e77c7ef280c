package history

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/forge/batch"
)

// Recorder mirrors a batch run into the history store. It implements
// batch.ProgressEmitter so it can be fanned in next to the terminal
// emitter; persistence failures are logged and never disturb the run.
type Recorder struct {
	store  *Store
	run    *Run
	logger *zap.SugaredLogger
}

// NewRecorder creates the run row and returns the emitter that fills it.
func NewRecorder(store *Store, runID string, params *batch.Params, logger *zap.SugaredLogger) (*Recorder, error) {
	run := &Run{
		ID:        runID,
		StartedAt: time.Now(),
		Workers:   params.EffectiveJobs(),
		DryRun:    params.DryRun,
		KeepGoing: params.KeepGoing,
	}
	if err := store.CreateRun(run); err != nil {
		return nil, err
	}
	return &Recorder{store: store, run: run, logger: logger.Named("history")}, nil
}

// JobDone implements batch.ProgressEmitter.
func (r *Recorder) JobDone(o batch.Outcome) {
	rec := &JobRecord{
		RunID:     r.run.ID,
		Index:     o.Job.Index,
		Source:    o.Job.Source,
		Outcome:   o.Kind.String(),
		Detail:    o.Detail,
		ElapsedMS: o.Elapsed.Milliseconds(),
	}
	if err := r.store.RecordJob(rec); err != nil {
		r.logger.Warnw("failed to record job outcome", "run", r.run.ID, "error", err)
	}
}

// RunDone implements batch.ProgressEmitter.
func (r *Recorder) RunDone(t batch.TallySnapshot, elapsed time.Duration) {
	r.run.Successes = t.Successes
	r.run.Skips = t.Skips
	r.run.Errors = t.Errors
	r.run.ExitCode = t.ExitCode()
	if err := r.store.FinishRun(r.run); err != nil {
		r.logger.Warnw("failed to finish run record", "run", r.run.ID, "error", err)
	}
}
