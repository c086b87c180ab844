package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papapumpkin/gantry/internal/calendar"
	"github.com/papapumpkin/gantry/internal/dag"
	"github.com/papapumpkin/gantry/internal/resource"
	"github.com/papapumpkin/gantry/internal/schedule"
)

// testStore opens a temporary store with a deterministic clock.
func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return s
}

func sampleSchedule(t *testing.T) *schedule.Result {
	t.Helper()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r, err := schedule.Compute(
		[]schedule.Task{{ID: "a", Duration: 2}, {ID: "b", Duration: 3}, {ID: "c", Duration: 1}},
		[]schedule.Dependency{
			{From: "a", To: "b", Relation: dag.FinishToStart},
			{From: "a", To: "c", Relation: dag.FinishToStart},
		},
		schedule.Options{ProjectStart: start},
	)
	require.NoError(t, err)
	return r
}

func TestOpen_WALAndIdempotentSchema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(ctx, dbPath)
	require.NoError(t, err)

	var mode string
	require.NoError(t, s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
	require.NoError(t, s.Close())

	again, err := Open(ctx, dbPath)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestSaveRun_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	sched := sampleSchedule(t)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	conflicts := []resource.Conflict{
		{ResourceID: "alice", Date: day, Allocated: 10, Available: 8, TaskIDs: []string{"a", "b"}},
	}

	run, err := s.SaveRun(ctx, Record{Project: "launch", Schedule: sched, Conflicts: conflicts})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 3, run.TaskCount)
	assert.Equal(t, 2, run.CriticalCount)
	assert.Equal(t, 1, run.ConflictCount)
	assert.InDelta(t, 5, run.ProjectFinish, schedule.Epsilon)
	assert.Equal(t, "2024-01-01", run.StartDate)
	assert.Equal(t, "2024-01-05", run.FinishDate)

	detail, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, detail.Run.ID)
	assert.Equal(t, "launch", detail.Run.Project)
	assert.True(t, run.CreatedAt.Equal(detail.Run.CreatedAt))
	assert.Equal(t, run.FinishDate, detail.Run.FinishDate)

	require.Len(t, detail.Tasks, 3)
	for i, id := range sched.Order {
		got := detail.Tasks[i]
		want := sched.Tasks[id]
		assert.Equal(t, want.TaskID, got.TaskID)
		assert.InDelta(t, want.ES, got.ES, schedule.Epsilon)
		assert.InDelta(t, want.LF, got.LF, schedule.Epsilon)
		assert.Equal(t, want.IsCritical, got.IsCritical)
	}

	require.Len(t, detail.Conflicts, 1)
	assert.Equal(t, conflicts[0], detail.Conflicts[0])
}

func TestRun_NotFound(t *testing.T) {
	t.Parallel()
	s := testStore(t)
	_, err := s.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuns_NewestFirstAndFiltered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	var ids []string
	for _, project := range []string{"alpha", "beta", "alpha"} {
		run, err := s.SaveRun(ctx, Record{Project: project})
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	all, err := s.Runs(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))

	alpha, err := s.Runs(ctx, "alpha", 0)
	require.NoError(t, err)
	require.Len(t, alpha, 2)
	for _, r := range alpha {
		assert.Equal(t, "alpha", r.Project)
	}

	limited, err := s.Runs(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, ids[2], limited[0].ID)
}

func TestSaveRun_ConflictsOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := testStore(t)

	d, err := calendar.ParseDate("2024-03-04")
	require.NoError(t, err)
	run, err := s.SaveRun(ctx, Record{
		Project:   "ops",
		Conflicts: []resource.Conflict{{ResourceID: "r", Date: d, Allocated: 9, Available: 8, TaskIDs: []string{"x"}}},
	})
	require.NoError(t, err)
	assert.Zero(t, run.TaskCount)
	assert.Empty(t, run.StartDate)

	detail, err := s.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, detail.Tasks)
	require.Len(t, detail.Conflicts, 1)
	assert.Equal(t, d, detail.Conflicts[0].Date)
}
