package store

import (
	"context"

	"github.com/joescharf/tribunal/internal/engine"
)

// Archiver adapts a Store to the engine's Archive interface,
// checkpointing terminal run states.
type Archiver struct {
	store Store
}

// NewArchiver creates an Archiver over the given store.
func NewArchiver(s Store) *Archiver {
	return &Archiver{store: s}
}

// SaveRun converts a terminal RunState into an archived Run record.
func (a *Archiver) SaveRun(ctx context.Context, st *engine.RunState) error {
	total, max := verdictScores(st.Verdicts)
	return a.store.SaveRun(ctx, &Run{
		TraceID:         st.TraceID,
		RepoRef:         st.RepoRef,
		DocRef:          st.DocRef,
		TotalScore:      total,
		MaxScore:        max,
		Aborted:         st.Aborted,
		Verdicts:        st.Verdicts,
		Errors:          st.Errors,
		Warnings:        st.Warnings,
		ArtifactFull:    st.Artifacts.Full,
		ArtifactSummary: st.Artifacts.Summary,
		ArtifactJSON:    st.Artifacts.JSON,
		CreatedAt:       st.StartedAt,
	})
}
