package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/tribunal/internal/engine"
	"github.com/joescharf/tribunal/internal/models"
)

func TestArchiverSaveRun(t *testing.T) {
	s := newTestStore(t)
	a := NewArchiver(s)

	started := time.Now().UTC().Add(-time.Minute)
	st := &engine.RunState{
		TraceID: "trace-arch",
		RepoRef: "repo",
		DocRef:  "doc.pdf",
		Verdicts: []models.FinalVerdict{
			{CriterionID: "a", FinalScore: 4},
			{CriterionID: "b", FinalScore: 1},
		},
		Artifacts: engine.Artifacts{Full: "full.md", Summary: "summary.md", JSON: "report.json"},
		Errors:    []string{"evidence gate aborted the run"},
		StartedAt: started,
		Aborted:   true,
	}

	require.NoError(t, a.SaveRun(context.Background(), st))

	got, err := s.GetRunByTraceID(context.Background(), "trace-arch")
	require.NoError(t, err)
	assert.Equal(t, 5, got.TotalScore)
	assert.Equal(t, 10, got.MaxScore)
	assert.True(t, got.Aborted)
	assert.Equal(t, "full.md", got.ArtifactFull)
	assert.Len(t, got.Verdicts, 2)
	assert.Equal(t, []string{"evidence gate aborted the run"}, got.Errors)
}
