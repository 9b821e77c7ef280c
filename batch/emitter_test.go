package batch

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeDescription(t *testing.T) {
	job := Job{Source: "/src/a.nss", Index: 1, Total: 3}

	assert.Equal(t, "Success", Outcome{Job: job, Kind: OutcomeSuccess}.Description())
	assert.Equal(t, "no compilable entry point",
		Outcome{Job: job, Kind: OutcomeSkip, Detail: "no compilable entry point"}.Description())
	assert.Equal(t, "Skipped", Outcome{Job: job, Kind: OutcomeSkip}.Description())
	assert.Equal(t, "syntax error line 4",
		Outcome{Job: job, Kind: OutcomeError, Detail: "syntax error line 4"}.Description())
}

func TestJSONEmitterEvents(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONEmitter(&buf)

	e.JobDone(Outcome{
		Job:     Job{Source: "/src/a.nss", Index: 2, Total: 5},
		Kind:    OutcomeError,
		Detail:  "syntax error line 4",
		Elapsed: 42 * time.Millisecond,
	})
	e.RunDone(TallySnapshot{Successes: 3, Skips: 1, Errors: 1}, time.Second)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var job map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &job))
	assert.Equal(t, "job", job["event"])
	assert.Equal(t, "error", job["outcome"])
	assert.Equal(t, "syntax error line 4", job["detail"])
	assert.Equal(t, float64(2), job["index"])

	var run map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &run))
	assert.Equal(t, "run", run["event"])
	assert.Equal(t, float64(1), run["errors"])
}

// countingEmitter records every event for assertions.
type countingEmitter struct {
	outcomes []Outcome
	runs     int
}

func (c *countingEmitter) JobDone(o Outcome)                    { c.outcomes = append(c.outcomes, o) }
func (c *countingEmitter) RunDone(TallySnapshot, time.Duration) { c.runs++ }

func TestMultiEmitterFansOut(t *testing.T) {
	a := &countingEmitter{}
	b := &countingEmitter{}
	m := MultiEmitter(a, b)

	m.JobDone(Outcome{Kind: OutcomeSuccess})
	m.RunDone(TallySnapshot{}, 0)

	assert.Len(t, a.outcomes, 1)
	assert.Len(t, b.outcomes, 1)
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)
}
