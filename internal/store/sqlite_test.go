package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tribunal/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tribunal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(traceID string) *Run {
	return &Run{
		TraceID:    traceID,
		RepoRef:    "https://example.com/repo",
		DocRef:     "report.pdf",
		TotalScore: 14,
		MaxScore:   20,
		Verdicts: []models.FinalVerdict{
			{CriterionID: "forensic_accuracy_code", FinalScore: 4},
			{CriterionID: "orchestration_rigor", FinalScore: 2, SecurityOverrideApplied: true},
		},
		Warnings:     []string{"doc_analyst skipped: no document provided"},
		ArtifactFull: "audit_full.md",
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := sampleRun("trace-1")
	require.NoError(t, s.SaveRun(ctx, r))
	require.NotEmpty(t, r.ID, "SaveRun assigns a ULID")
	require.False(t, r.CreatedAt.IsZero())

	got, err := s.GetRun(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "trace-1", got.TraceID)
	assert.Equal(t, 14, got.TotalScore)
	assert.Equal(t, 20, got.MaxScore)
	require.Len(t, got.Verdicts, 2)
	assert.True(t, got.Verdicts[1].SecurityOverrideApplied)
	assert.Equal(t, []string{"doc_analyst skipped: no document provided"}, got.Warnings)
	assert.Equal(t, "audit_full.md", got.ArtifactFull)
}

func TestGetRunByTraceID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRun(ctx, sampleRun("trace-abc")))

	got, err := s.GetRunByTraceID(ctx, "trace-abc")
	require.NoError(t, err)
	assert.Equal(t, "trace-abc", got.TraceID)

	_, err = s.GetRunByTraceID(ctx, "no-such-trace")
	assert.Error(t, err)
}

func TestGetRun_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := sampleRun("trace-old")
	old.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SaveRun(ctx, old))

	recent := sampleRun("trace-new")
	require.NoError(t, s.SaveRun(ctx, recent))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "trace-new", runs[0].TraceID)
	assert.Equal(t, "trace-old", runs[1].TraceID)

	limited, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "trace-new", limited[0].TraceID)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	// Second migration run must be a no-op
	require.NoError(t, s.Migrate(context.Background()))
}

func TestVerdictScores(t *testing.T) {
	total, max := verdictScores([]models.FinalVerdict{
		{FinalScore: 3}, {FinalScore: 5}, {FinalScore: 0},
	})
	assert.Equal(t, 8, total)
	assert.Equal(t, 15, max)

	total, max = verdictScores(nil)
	assert.Zero(t, total)
	assert.Zero(t, max)
}
