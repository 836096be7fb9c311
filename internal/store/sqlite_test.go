package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "claim_data.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	summary := &RunSummary{
		RawRows:      100,
		CleanRows:    92,
		DroppedRows:  8,
		TotalBilled:  12345.67,
		AnomalyCount: 2,
		OutputDir:    "outputs",
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, 92, got.Summary.CleanRows)
	assert.InDelta(t, 12345.67, got.Summary.TotalBilled, 1e-9)
}

func TestSQLiteFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "claim_data.csv")
	require.NoError(t, err)

	require.NoError(t, s.FailRun(ctx, run.ID, errors.New("quality: required column missing")))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "required column missing")
	assert.Nil(t, got.Summary)
}

func TestSQLiteCompleteRunNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.CompleteRun(context.Background(), "no-such-run", &RunSummary{})
	assert.Error(t, err)
}

func TestSQLiteListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, "a.csv")
	require.NoError(t, err)
	b, err := s.CreateRun(ctx, "b.csv")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, b.ID, &RunSummary{CleanRows: 1}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	complete, err := s.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, b.ID, complete[0].ID)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	running, err := s.ListRuns(ctx, RunFilter{Status: RunStatusRunning})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, a.ID, running[0].ID)
}

func TestSQLiteStages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "claim_data.csv")
	require.NoError(t, err)

	require.NoError(t, s.RecordStage(ctx, run.ID, "load", "complete", "100 rows"))
	require.NoError(t, s.RecordStage(ctx, run.ID, "quality", "complete", ""))
	require.NoError(t, s.RecordStage(ctx, run.ID, "metrics", "failed", "no clean rows"))

	stages, err := s.ListStages(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	assert.Equal(t, "load", stages[0].Name)
	assert.Equal(t, "100 rows", stages[0].Detail)
	assert.Equal(t, "failed", stages[2].Status)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.Error(t, err)
}
