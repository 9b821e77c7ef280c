package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

// ProgressEmitter receives per-job outcomes as workers finish them, and the
// final tally once the pool has drained. JobDone is called concurrently
// from worker goroutines; implementations must be safe for that.
type ProgressEmitter interface {
	JobDone(o Outcome)
	RunDone(t TallySnapshot, elapsed time.Duration)
}

// CLIEmitter renders pretty progress lines to the terminal.
type CLIEmitter struct {
	mu sync.Mutex
}

// NewCLIEmitter creates a terminal progress emitter.
func NewCLIEmitter() *CLIEmitter {
	return &CLIEmitter{}
}

// JobDone implements ProgressEmitter.
func (e *CLIEmitter) JobDone(o Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()

	line := fmt.Sprintf("[%d/%d] %s: %s", o.Job.Index, o.Job.Total, o.Job.Source, o.Description())
	switch o.Kind {
	case OutcomeSuccess:
		pterm.Success.Println(line)
	case OutcomeSkip:
		pterm.Warning.Println(line)
	default:
		pterm.Error.Println(line)
	}
}

// RunDone implements ProgressEmitter.
func (e *CLIEmitter) RunDone(t TallySnapshot, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	summary := fmt.Sprintf("%d succeeded, %d skipped, %d failed in %s",
		t.Successes, t.Skips, t.Errors, elapsed.Round(time.Millisecond))
	if t.Errors > 0 {
		pterm.Error.Println(summary)
		return
	}
	pterm.Success.Println(summary)
}

// JSONEmitter writes one JSON event per line for machine consumption.
type JSONEmitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONEmitter creates an emitter writing newline-delimited JSON to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{enc: json.NewEncoder(w)}
}

type jobEvent struct {
	Event     string `json:"event"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Source    string `json:"source"`
	Outcome   string `json:"outcome"`
	Detail    string `json:"detail,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

type runEvent struct {
	Event     string `json:"event"`
	Successes int64  `json:"successes"`
	Skips     int64  `json:"skips"`
	Errors    int64  `json:"errors"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// JobDone implements ProgressEmitter.
func (e *JSONEmitter) JobDone(o Outcome) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(jobEvent{
		Event:     "job",
		Index:     o.Job.Index,
		Total:     o.Job.Total,
		Source:    o.Job.Source,
		Outcome:   o.Kind.String(),
		Detail:    o.Detail,
		ElapsedMS: o.Elapsed.Milliseconds(),
	})
}

// RunDone implements ProgressEmitter.
func (e *JSONEmitter) RunDone(t TallySnapshot, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.enc.Encode(runEvent{
		Event:     "run",
		Successes: t.Successes,
		Skips:     t.Skips,
		Errors:    t.Errors,
		ElapsedMS: elapsed.Milliseconds(),
	})
}

// NopEmitter discards all events.
type NopEmitter struct{}

func (NopEmitter) JobDone(Outcome)                      {}
func (NopEmitter) RunDone(TallySnapshot, time.Duration) {}

// MultiEmitter fans events out to several emitters in order.
func MultiEmitter(emitters ...ProgressEmitter) ProgressEmitter {
	return multiEmitter(emitters)
}

type multiEmitter []ProgressEmitter

func (m multiEmitter) JobDone(o Outcome) {
	for _, e := range m {
		e.JobDone(o)
	}
}

func (m multiEmitter) RunDone(t TallySnapshot, elapsed time.Duration) {
	for _, e := range m {
		e.RunDone(t, elapsed)
	}
}
