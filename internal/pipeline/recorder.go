package pipeline

import (
	"context"

	"github.com/propmerge/internal/zoning"
)

// RunRecord is the per-run summary handed to the audit trail.
type RunRecord struct {
	RunID    string
	Sources  int
	Artifact string
	Stats    RunStats
	Failure  string // empty on success
}

// Recorder persists run summaries and per-address zoning decisions.
// Recording failures never fail the run.
type Recorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
	RecordResolutions(ctx context.Context, runID string, resolutions []zoning.Resolution) error
}

var _ Recorder = NoopRecorder{}

// NoopRecorder drops everything. It is the default when no database is
// configured.
type NoopRecorder struct{}

func (NoopRecorder) RecordRun(context.Context, RunRecord) error { return nil }

func (NoopRecorder) RecordResolutions(context.Context, string, []zoning.Resolution) error {
	return nil
}
