package history

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teranos/forge/batch"
	"github.com/teranos/forge/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "forge.db"), zap.NewNop().Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	// Open already migrated once; a second pass must be a no-op.
	require.NoError(t, Migrate(db, zap.NewNop().Sugar()))
}

func TestRunLifecycle(t *testing.T) {
	store := NewStore(openTestDB(t))

	run := &Run{ID: uuid.NewString(), StartedAt: time.Now(), Workers: 4, KeepGoing: true}
	require.NoError(t, store.CreateRun(run))

	require.NoError(t, store.RecordJob(&JobRecord{
		RunID: run.ID, Index: 1, Source: "/src/a.nss", Outcome: "success", ElapsedMS: 12,
	}))
	require.NoError(t, store.RecordJob(&JobRecord{
		RunID: run.ID, Index: 2, Source: "/src/c.nss", Outcome: "error",
		Detail: "syntax error line 4", ElapsedMS: 7,
	}))

	run.Successes, run.Errors, run.ExitCode = 1, 1, 1
	require.NoError(t, store.FinishRun(run))

	got, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Successes)
	assert.Equal(t, int64(1), got.Errors)
	assert.Equal(t, 1, got.ExitCode)
	assert.True(t, got.KeepGoing)
	require.NotNil(t, got.FinishedAt)

	jobs, err := store.ListJobs(run.ID)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "success", jobs[0].Outcome)
	assert.Equal(t, "syntax error line 4", jobs[1].Detail)
}

func TestGetRunNotFound(t *testing.T) {
	store := NewStore(openTestDB(t))
	_, err := store.GetRun("no-such-run")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestListRunsNewestFirst(t *testing.T) {
	store := NewStore(openTestDB(t))

	older := &Run{ID: "older", StartedAt: time.Now().Add(-time.Hour), Workers: 1}
	newer := &Run{ID: "newer", StartedAt: time.Now(), Workers: 1}
	require.NoError(t, store.CreateRun(older))
	require.NoError(t, store.CreateRun(newer))

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "newer", runs[0].ID)

	runs, err = store.ListRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecorderMirrorsRun(t *testing.T) {
	store := NewStore(openTestDB(t))
	params := &batch.Params{Jobs: 2, Extensions: []string{".nss"}}

	runID := uuid.NewString()
	rec, err := NewRecorder(store, runID, params, zap.NewNop().Sugar())
	require.NoError(t, err)

	rec.JobDone(batch.Outcome{
		Job:  batch.Job{Source: "/src/a.nss", Index: 1, Total: 2},
		Kind: batch.OutcomeSuccess,
	})
	rec.JobDone(batch.Outcome{
		Job:    batch.Job{Source: "/src/b.nss", Index: 2, Total: 2},
		Kind:   batch.OutcomeSkip,
		Detail: "no compilable entry point",
	})
	rec.RunDone(batch.TallySnapshot{Successes: 1, Skips: 1}, time.Second)

	got, err := store.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Successes)
	assert.Equal(t, int64(1), got.Skips)
	assert.Equal(t, 0, got.ExitCode)

	jobs, err := store.ListJobs(runID)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}
