package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puresh/internal/ir"
	"github.com/roach88/puresh/internal/testutil"
)

func recordRuns(t *testing.T, s *Store, names ...string) []*Run {
	t.Helper()
	var runs []*Run
	for _, name := range names {
		r := &Run{
			Script:     name,
			SourcePath: name + ".yaml",
			SourceHash: ir.SourceHash([]byte(name)),
			ConfigHash: "cfg",
			Outcome:    OutcomeCompiled,
		}
		require.NoError(t, s.RecordRun(context.Background(), r))
		runs = append(runs, r)
	}
	return runs
}

// =============================================================================
// RecordRun
// =============================================================================

func TestRecordRunAssignsIdentity(t *testing.T) {
	s := createTestStore(t)
	runs := recordRuns(t, s, "a", "b")

	for i, r := range runs {
		id, err := uuid.Parse(r.ID)
		require.NoError(t, err, "run %d id %q", i, r.ID)
		assert.Equal(t, uuid.Version(4), id.Version())
		assert.Equal(t, int64(i+1), r.Seq)
		assert.Equal(t, ir.EngineVersion, r.EngineVersion)
		assert.Equal(t, fixedNow.Truncate(time.Second), r.CreatedAt)
	}
	assert.NotEqual(t, runs[0].ID, runs[1].ID)
}

func TestRecordRunInjectedClockAndIDs(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := testutil.NewStepClock(start, time.Minute)
	s, err := Open(filepath.Join(t.TempDir(), "test.db"),
		WithClock(clock.Now), WithIDGenerator(testutil.NewSequentialIDs("deploy")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	runs := recordRuns(t, s, "a", "b")
	assert.Equal(t, "deploy-0001", runs[0].ID)
	assert.Equal(t, "deploy-0002", runs[1].ID)
	assert.Equal(t, start, runs[0].CreatedAt)
	assert.Equal(t, start.Add(time.Minute), runs[1].CreatedAt)

	got, err := s.ReadRun(context.Background(), "deploy-0002")
	require.NoError(t, err)
	assert.Equal(t, *runs[1], got)
}

func TestRecordRunKeepsGivenID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := &Run{ID: "fixed-id", Script: "a", Outcome: OutcomeCached}
	require.NoError(t, s.RecordRun(ctx, r))
	assert.Equal(t, "fixed-id", r.ID)

	err := s.RecordRun(ctx, &Run{ID: "fixed-id", Script: "a", Outcome: OutcomeCached})
	require.Error(t, err, "duplicate run IDs are rejected")
}

func TestRecordRunInvalidOutcome(t *testing.T) {
	s := createTestStore(t)

	err := s.RecordRun(context.Background(), &Run{Script: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid outcome ""`)

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRecordRunFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := &Run{
		Script:     "bad.sh",
		SourceHash: "h",
		ConfigHash: "c",
		Outcome:    OutcomeFailed,
		Error:      "verification failed: V201",
	}
	require.NoError(t, s.RecordRun(ctx, r))

	got, err := s.ReadRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, *r, got)
}

// =============================================================================
// Reading
// =============================================================================

func TestListRunsOrder(t *testing.T) {
	s := createTestStore(t)
	recordRuns(t, s, "a", "b", "c", "d")

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 4)
	for i, want := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, runs[i].Script)
		assert.Equal(t, int64(i+1), runs[i].Seq)
	}
}

func TestListRunsLimitKeepsMostRecent(t *testing.T) {
	s := createTestStore(t)
	recordRuns(t, s, "a", "b", "c", "d")

	runs, err := s.ListRuns(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Script)
	assert.Equal(t, "d", runs[1].Script)
}

func TestListRunsEmpty(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestRunsForSource(t *testing.T) {
	s := createTestStore(t)
	recordRuns(t, s, "a", "b", "a")

	runs, err := s.RunsForSource(context.Background(), ir.SourceHash([]byte("a")))
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(1), runs[0].Seq)
	assert.Equal(t, int64(3), runs[1].Seq)

	none, err := s.RunsForSource(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReadRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.RecordRun(ctx, &Run{ID: "abc-1", Script: "a", Outcome: OutcomeCompiled}))
	require.NoError(t, s.RecordRun(ctx, &Run{ID: "abc-2", Script: "b", Outcome: OutcomeCompiled}))
	require.NoError(t, s.RecordRun(ctx, &Run{ID: "xyz", Script: "c", Outcome: OutcomeCompiled}))

	t.Run("exact id", func(t *testing.T) {
		r, err := s.ReadRun(ctx, "abc-2")
		require.NoError(t, err)
		assert.Equal(t, "b", r.Script)
	})

	t.Run("unique prefix", func(t *testing.T) {
		r, err := s.ReadRun(ctx, "xy")
		require.NoError(t, err)
		assert.Equal(t, "c", r.Script)
	})

	t.Run("ambiguous prefix", func(t *testing.T) {
		_, err := s.ReadRun(ctx, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ambiguous")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.ReadRun(ctx, "nope")
		assert.True(t, errors.Is(err, ErrRunNotFound))
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := s.ReadRun(ctx, "")
		assert.ErrorIs(t, err, ErrRunNotFound)
	})
}
