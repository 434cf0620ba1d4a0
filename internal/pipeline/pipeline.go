// Package pipeline drives a merge run through its five phases: extract,
// zoning reconciliation, use classification, enrichment and workbook
// assembly. Phases degrade individually; only the final write or an
// explicit cancellation fails a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/propmerge/internal/addrindex"
	"github.com/propmerge/internal/assemble"
	"github.com/propmerge/internal/classify"
	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/enrich"
	"github.com/propmerge/internal/extract"
	"github.com/propmerge/internal/schema"
	"github.com/propmerge/internal/zoning"
)

// ErrCancelled reports a run stopped by its predicate, its progress
// callback or its context before an artifact was produced.
var ErrCancelled = errors.New("run cancelled")

// Job is one merge request.
type Job struct {
	Sources   []extract.Source
	Locations []string

	// ZoningSource resolves addresses to zoning values; nil skips the
	// zoning phase entirely.
	ZoningSource zoning.Source
	Overrides    zoning.Overrides

	// ReferencePath points at the allowance reference workbook; empty
	// searches the usual directories for the default file.
	ReferencePath string

	// ShouldStop is checked between phases; true stops the run.
	ShouldStop func() bool
	Progress   ProgressFunc
}

// RunStats summarises a run, complete or not.
type RunStats struct {
	RunID      string
	Extract    extract.Stats
	Unique     int // unique complete addresses
	Zoning     zoning.Stats
	Classified int
	Assemble   assemble.Stats
	Elapsed    time.Duration
}

// Runner owns the wired phases. Build one per configuration, run many
// jobs with it.
type Runner struct {
	cfg        *config.Config
	extractor  *extract.Extractor
	reconciler *zoning.Reconciler
	enricher   enrich.Enricher
	assembler  *assemble.Assembler
	recorder   Recorder
	localDebug bool
}

// NewRunner wires the phases from configuration. A nil enricher or
// recorder selects the no-op implementation.
func NewRunner(cfg *config.Config, enricher enrich.Enricher, recorder Recorder, localDebug bool) *Runner {
	if enricher == nil {
		enricher = enrich.NoopEnricher{}
	}
	if recorder == nil {
		recorder = NoopRecorder{}
	}

	return &Runner{
		cfg:        cfg,
		extractor:  extract.New(localDebug),
		reconciler: zoning.NewReconciler(localDebug),
		enricher:   enricher,
		assembler:  assemble.New(cfg.Paths.OutputDir, cfg.Fetch, localDebug),
		recorder:   recorder,
		localDebug: localDebug,
	}
}

// Run executes one merge job and returns the artifact path. Cancellation
// between phases returns ErrCancelled and no artifact.
func (r *Runner) Run(ctx context.Context, job Job) (string, RunStats, error) {
	start := time.Now()
	stats := RunStats{RunID: uuid.NewString()}
	progress := newProgressGuard(job.Progress)

	debug.Output(r.localDebug, "run %s: %d sources, %d locations",
		stats.RunID, len(job.Sources), len(job.Locations))

	fail := func(err error) (string, RunStats, error) {
		stats.Elapsed = time.Since(start)
		r.record(ctx, job, stats, "", err)
		return "", stats, err
	}
	stopped := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return job.ShouldStop != nil && job.ShouldStop()
	}

	rows, exStats := r.extractor.ExtractAll(job.Sources)
	stats.Extract = exStats
	if stopped() || !progress.report(pctExtract, fmt.Sprintf("extracted %d rows", len(rows))) {
		return fail(ErrCancelled)
	}

	idx := addrindex.New()
	for i := range rows {
		idx.Add(i, rows[i].Address)
	}
	stats.Unique = idx.Len()

	rows = r.applyZoning(ctx, job, rows, idx, &stats)
	if stopped() || !progress.report(pctZoning, fmt.Sprintf("zoning resolved for %d of %d addresses",
		stats.Zoning.Accepted, stats.Unique)) {
		return fail(ErrCancelled)
	}

	rows = r.applyClassification(job, rows, &stats)
	if stopped() || !progress.report(pctClassify, fmt.Sprintf("classified %d rows", stats.Classified)) {
		return fail(ErrCancelled)
	}

	if enriched, err := r.enricher.Enrich(ctx, rows); err != nil {
		debug.Output(r.localDebug, "enrichment skipped: %v", err)
	} else {
		rows = enriched
	}
	if stopped() || !progress.report(pctEnrich, "enrichment finished") {
		return fail(ErrCancelled)
	}

	if !progress.report(pctWrite, fmt.Sprintf("writing %d rows", len(rows))) {
		return fail(ErrCancelled)
	}
	artifact, asmStats, err := r.assembler.Write(ctx, rows, job.Locations)
	stats.Assemble = asmStats
	if err != nil {
		return fail(fmt.Errorf("failed to assemble workbook: %w", err))
	}

	stats.Elapsed = time.Since(start)
	r.record(ctx, job, stats, artifact, nil)
	progress.report(pctDone, artifact)

	return artifact, stats, nil
}

// applyZoning looks up and reconciles zoning for every unique address. A
// failing source degrades the phase to a no-op.
func (r *Runner) applyZoning(ctx context.Context, job Job, rows []schema.PropertyRow, idx *addrindex.Index, stats *RunStats) []schema.PropertyRow {
	if idx.Len() == 0 {
		return rows
	}

	var mapping map[string]string
	if job.ZoningSource != nil {
		var err error
		mapping, err = job.ZoningSource.Lookup(ctx, idx.UniqueAddresses())
		if err != nil {
			debug.Output(r.localDebug, "zoning source %s failed, phase skipped: %v",
				job.ZoningSource.Name(), err)
			mapping = nil
		}
	}
	mapping = job.Overrides.Apply(mapping)
	if len(mapping) == 0 {
		return rows
	}

	out, resolutions := r.reconciler.Apply(rows, idx, mapping)
	stats.Zoning = zoning.Summarize(resolutions)

	if err := r.recorder.RecordResolutions(ctx, stats.RunID, resolutions); err != nil {
		debug.Output(r.localDebug, "zoning decisions not recorded: %v", err)
	}

	return out
}

// applyClassification stamps allowance flags from the reference table. A
// missing or unreadable reference degrades the phase to a no-op.
func (r *Runner) applyClassification(job Job, rows []schema.PropertyRow, stats *RunStats) []schema.PropertyRow {
	path := job.ReferencePath
	if path == "" {
		var err error
		path, err = classify.Locate(classify.DefaultFilename, []string{r.cfg.Paths.ReferenceDir})
		if err != nil {
			debug.Output(r.localDebug, "classification skipped: %v", err)
			return rows
		}
	}

	table, err := classify.Load(path, r.cfg.BusinessType, r.localDebug)
	if err != nil {
		debug.Output(r.localDebug, "classification skipped: %v", err)
		return rows
	}

	out, classified := table.Classify(rows)
	stats.Classified = classified
	return out
}

// record hands the run to the audit trail. The write survives the run's
// own cancellation.
func (r *Runner) record(ctx context.Context, job Job, stats RunStats, artifact string, runErr error) {
	rec := RunRecord{
		RunID:    stats.RunID,
		Sources:  len(job.Sources),
		Artifact: artifact,
		Stats:    stats,
	}
	if runErr != nil {
		rec.Failure = runErr.Error()
	}

	if err := r.recorder.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
		debug.Output(r.localDebug, "run not recorded: %v", err)
	}
}
