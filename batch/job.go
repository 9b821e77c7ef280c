// Package batch is the parallel compilation orchestrator: it collects
// source files into an ordered job list, dispatches them onto a bounded
// worker pool, routes each worker's resource demands through the resman
// demand service, and tallies exactly one outcome per job.
package batch

import (
	"time"
)

// Job is one source file to be compiled, with its position in the run.
// Immutable once created; owned by the pool until handed to a worker.
type Job struct {
	Source string // absolute source path
	Index  int    // 1-based position in the run
	Total  int    // fixed job count for the whole run
}

// OutcomeKind classifies a finished job.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkip
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkip:
		return "skip"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Outcome is the terminal classification of one job. Exactly one outcome is
// produced per dispatched job, never zero and never more than one.
type Outcome struct {
	Job     Job
	Kind    OutcomeKind
	Detail  string // skip reason or engine error message
	Elapsed time.Duration
}

// Description renders the short outcome text for the progress line.
func (o Outcome) Description() string {
	switch o.Kind {
	case OutcomeSuccess:
		return "Success"
	case OutcomeSkip:
		if o.Detail != "" {
			return o.Detail
		}
		return "Skipped"
	default:
		if o.Detail != "" {
			return o.Detail
		}
		return "Error"
	}
}
