package store

import (
	"context"
	"time"

	"github.com/joescharf/tribunal/internal/models"
)

// Run is an archived audit run.
type Run struct {
	ID              string
	TraceID         string
	RepoRef         string
	DocRef          string
	TotalScore      int
	MaxScore        int
	Aborted         bool
	Verdicts        []models.FinalVerdict
	Errors          []string
	Warnings        []string
	ArtifactFull    string
	ArtifactSummary string
	ArtifactJSON    string
	CreatedAt       time.Time
}

// Store defines the persistence interface for the run archive.
type Store interface {
	SaveRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	GetRunByTraceID(ctx context.Context, traceID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
