package batch

import "sync/atomic"

// Tally holds the three independent outcome counters. Workers mutate them
// only by lock-free increment; reads happen after the pool has fully
// drained, so a snapshot taken post-join is exact.
type Tally struct {
	successes atomic.Int64
	skips     atomic.Int64
	errs      atomic.Int64
}

func (t *Tally) AddSuccess() { t.successes.Add(1) }
func (t *Tally) AddSkip()    { t.skips.Add(1) }
func (t *Tally) AddError()   { t.errs.Add(1) }

// Record increments the counter matching the outcome kind.
func (t *Tally) Record(kind OutcomeKind) {
	switch kind {
	case OutcomeSuccess:
		t.AddSuccess()
	case OutcomeSkip:
		t.AddSkip()
	case OutcomeError:
		t.AddError()
	}
}

// TallySnapshot is a point-in-time read of the counters.
type TallySnapshot struct {
	Successes int64
	Skips     int64
	Errors    int64
}

// Snapshot reads the counters. Only meaningful after the join barrier.
func (t *Tally) Snapshot() TallySnapshot {
	return TallySnapshot{
		Successes: t.successes.Load(),
		Skips:     t.skips.Load(),
		Errors:    t.errs.Load(),
	}
}

// Dispatched is the number of jobs that produced an outcome.
func (s TallySnapshot) Dispatched() int64 {
	return s.Successes + s.Skips + s.Errors
}

// ExitCode derives the process exit status: nonzero iff any job errored.
// Skips never affect the exit status.
func (s TallySnapshot) ExitCode() int {
	if s.Errors > 0 {
		return 1
	}
	return 0
}
