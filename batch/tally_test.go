package batch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTallyCountsSumToDispatched(t *testing.T) {
	var tally Tally

	// Hammer the counters from many goroutines, like workers would.
	kinds := []OutcomeKind{OutcomeSuccess, OutcomeSkip, OutcomeError}
	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		wg.Add(1)
		go func(kind OutcomeKind) {
			defer wg.Done()
			tally.Record(kind)
		}(kinds[i%3])
	}
	wg.Wait()

	snap := tally.Snapshot()
	assert.Equal(t, int64(100), snap.Successes)
	assert.Equal(t, int64(100), snap.Skips)
	assert.Equal(t, int64(100), snap.Errors)
	assert.Equal(t, int64(300), snap.Dispatched())
}

func TestExitCodeDependsOnlyOnErrors(t *testing.T) {
	assert.Equal(t, 0, TallySnapshot{}.ExitCode())
	assert.Equal(t, 0, TallySnapshot{Successes: 5}.ExitCode())
	assert.Equal(t, 0, TallySnapshot{Successes: 2, Skips: 9}.ExitCode(), "skips never affect exit status")
	assert.Equal(t, 1, TallySnapshot{Successes: 9, Skips: 9, Errors: 1}.ExitCode())
}
