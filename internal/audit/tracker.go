// Package audit persists run summaries and per-address zoning decisions
// to PostgreSQL for later review.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/pipeline"
	"github.com/propmerge/internal/zoning"
)

// Tracker records merge runs. It satisfies the pipeline Recorder contract.
type Tracker struct {
	db         *sql.DB
	localDebug bool
}

var _ pipeline.Recorder = (*Tracker)(nil)

func NewTracker(db *sql.DB, localDebug bool) *Tracker {
	return &Tracker{db: db, localDebug: localDebug}
}

// RecordRun upserts one run summary row. Re-recording the same run
// replaces the summary, so a cancelled run that is retried under the same
// identifier keeps only its final state.
func (t *Tracker) RecordRun(ctx context.Context, rec pipeline.RunRecord) error {
	debug.Output(t.localDebug, "recording run %s (%d rows, failure=%q)",
		rec.RunID, rec.Stats.Extract.Rows, rec.Failure)

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO merge_runs (
			run_id, sources, rows_extracted, rows_dropped, unique_addresses,
			zoning_accepted, zoning_unresolved, classified,
			images_embedded, image_fallbacks, elapsed_ms, artifact, failure
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (run_id) DO UPDATE SET
			sources = EXCLUDED.sources,
			rows_extracted = EXCLUDED.rows_extracted,
			rows_dropped = EXCLUDED.rows_dropped,
			unique_addresses = EXCLUDED.unique_addresses,
			zoning_accepted = EXCLUDED.zoning_accepted,
			zoning_unresolved = EXCLUDED.zoning_unresolved,
			classified = EXCLUDED.classified,
			images_embedded = EXCLUDED.images_embedded,
			image_fallbacks = EXCLUDED.image_fallbacks,
			elapsed_ms = EXCLUDED.elapsed_ms,
			artifact = EXCLUDED.artifact,
			failure = EXCLUDED.failure
	`, rec.RunID, rec.Sources, rec.Stats.Extract.Rows, rec.Stats.Extract.DroppedRows,
		rec.Stats.Unique, rec.Stats.Zoning.Accepted, rec.Stats.Zoning.Unresolved,
		rec.Stats.Classified, rec.Stats.Assemble.ImagesEmbedded, rec.Stats.Assemble.ImageFallbacks,
		rec.Stats.Elapsed.Milliseconds(), rec.Artifact, rec.Failure)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecordResolutions saves every per-address decision of a run in one
// transaction.
func (t *Tracker) RecordResolutions(ctx context.Context, runID string, resolutions []zoning.Resolution) error {
	if len(resolutions) == 0 {
		return nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO zoning_decisions (run_id, address, method, zoning, accepted, occurrences)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id, address) DO UPDATE SET
			method = EXCLUDED.method,
			zoning = EXCLUDED.zoning,
			accepted = EXCLUDED.accepted,
			occurrences = EXCLUDED.occurrences,
			decided_at = now()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare decision insert: %w", err)
	}
	defer stmt.Close()

	for _, res := range resolutions {
		_, err := stmt.ExecContext(ctx, runID, res.Address, res.Method, res.Value, res.Accepted, res.Occurrences)
		if err != nil {
			return fmt.Errorf("failed to record decision for %q: %w", res.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit decisions: %w", err)
	}

	debug.Output(t.localDebug, "recorded %d zoning decisions for run %s", len(resolutions), runID)
	return nil
}
