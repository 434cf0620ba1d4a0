package pipeline

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/extract"
	"github.com/propmerge/internal/zoning"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		BusinessType: "Vet",
		Paths:        config.PathsConfig{OutputDir: t.TempDir()},
		Fetch:        config.FetchConfig{Workers: 2, TimeoutSeconds: 2, Retries: 1},
	}
}

func writeSheet(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := excelize.NewFile()
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, v))
		}
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
}

func writeSalesWorkbook(t *testing.T, path string, dataRows [][]string) {
	t.Helper()
	rows := [][]string{{"Property Photo", "Street Address", "Suburb", "State", "Postcode", "Property Type"}}
	writeSheet(t, path, append(rows, dataRows...))
}

func writeZoningCSV(t *testing.T, path string, pairs [][2]string) {
	t.Helper()
	file, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(file)
	require.NoError(t, w.Write([]string{"address", "zoning"}))
	for _, p := range pairs {
		require.NoError(t, w.Write([]string{p[0], p[1]}))
	}
	w.Flush()
	require.NoError(t, w.Error())
	require.NoError(t, file.Close())
}

func writeReference(t *testing.T, path string) {
	t.Helper()
	writeSheet(t, path, [][]string{
		{"Zone", "Vet", "Health"},
		{"E1 - Local Centre", "Yes", "No"},
		{"MU1 - Mixed Use", "No", "Yes"},
	})
}

type failingSource struct{}

func (failingSource) Name() string { return "failing" }

func (failingSource) Lookup(context.Context, []string) (map[string]string, error) {
	return nil, errors.New("upstream down")
}

type captureRecorder struct {
	runs        []RunRecord
	resolutions map[string][]zoning.Resolution
}

func (c *captureRecorder) RecordRun(_ context.Context, rec RunRecord) error {
	c.runs = append(c.runs, rec)
	return nil
}

func (c *captureRecorder) RecordResolutions(_ context.Context, runID string, rs []zoning.Resolution) error {
	if c.resolutions == nil {
		c.resolutions = make(map[string][]zoning.Resolution)
	}
	c.resolutions[runID] = append(c.resolutions[runID], rs...)
	return nil
}

func standardJob(t *testing.T) Job {
	t.Helper()
	dir := t.TempDir()

	sales := filepath.Join(dir, "sales.xlsx")
	writeSalesWorkbook(t, sales, [][]string{
		{"", "23 Willoughby Road", "Crows Nest", "NSW", "2065", "Retail"},
		{"", "23 Willoughby Road", "Crows Nest", "NSW", "2065", "Retail"},
		{"", "8 Help Street", "Chatswood", "NSW", "2067", "Office"},
	})

	zpath := filepath.Join(dir, "zoning.csv")
	writeZoningCSV(t, zpath, [][2]string{
		{"23 Willoughby Road, Crows Nest, NSW, 2065", "E1 - Local Centre"},
	})

	ref := filepath.Join(dir, "reference.xlsx")
	writeReference(t, ref)

	return Job{
		Sources:       []extract.Source{{Path: sales, Kind: extract.KindSales}},
		Locations:     []string{"Crows Nest, NSW", "Chatswood NSW"},
		ZoningSource:  zoning.NewFileSource(zpath),
		ReferencePath: ref,
	}
}

func TestRunProducesArtifact(t *testing.T) {
	job := standardJob(t)
	var pcts []int
	job.Progress = func(pct int, msg string) bool {
		pcts = append(pcts, pct)
		return true
	}

	runner := NewRunner(testConfig(t), nil, nil, false)
	artifact, stats, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.FileExists(t, artifact)

	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 3, stats.Extract.Rows)
	assert.Equal(t, 3, stats.Extract.PerSource["Sales"])
	assert.Equal(t, 2, stats.Unique)
	assert.Equal(t, 1, stats.Zoning.Accepted)
	assert.Equal(t, 1, stats.Zoning.Unresolved)
	assert.Equal(t, 1, stats.Zoning.ByMethod["exact"])
	assert.Equal(t, 2, stats.Classified)
	assert.Equal(t, 3, stats.Assemble.Rows)
	assert.Positive(t, stats.Elapsed)

	assert.Equal(t, []int{10, 35, 55, 70, 90, 100}, pcts)

	f, err := excelize.OpenFile(artifact)
	require.NoError(t, err)
	defer f.Close()

	for cell, want := range map[string]string{
		"A2":  "Sold",
		"G2":  "E1 - Local Centre",
		"G3":  "E1 - Local Centre", // duplicate occurrence shares the lookup
		"G4":  "",
		"AZ2": "T",
		"AZ3": "T",
		"AZ4": "",
	} {
		got, err := f.GetCellValue("Properties", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, "cell %s", cell)
	}
}

func TestRunEmptySourcesHeaderOnly(t *testing.T) {
	dir := t.TempDir()
	sales := filepath.Join(dir, "sales.xlsx")
	writeSalesWorkbook(t, sales, nil)

	job := Job{
		Sources:   []extract.Source{{Path: sales, Kind: extract.KindSales}},
		Locations: []string{"Crows Nest, NSW"},
	}

	runner := NewRunner(testConfig(t), nil, nil, false)
	artifact, stats, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.FileExists(t, artifact)

	assert.Zero(t, stats.Extract.Rows)
	assert.Zero(t, stats.Unique)
	assert.Zero(t, stats.Assemble.Rows)

	f, err := excelize.OpenFile(artifact)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Properties")
	require.NoError(t, err)
	require.Len(t, rows, 1, "only the header row")
	assert.Equal(t, "Type", rows[0][0])
}

func TestRunStopsOnPredicate(t *testing.T) {
	job := standardJob(t)
	job.ShouldStop = func() bool { return true }

	rec := &captureRecorder{}
	cfg := testConfig(t)
	runner := NewRunner(cfg, nil, rec, false)

	artifact, stats, err := runner.Run(context.Background(), job)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, artifact)

	entries, readErr := os.ReadDir(cfg.Paths.OutputDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "cancelled run must not leave an artifact")

	require.Len(t, rec.runs, 1)
	assert.Equal(t, stats.RunID, rec.runs[0].RunID)
	assert.Equal(t, ErrCancelled.Error(), rec.runs[0].Failure)
}

func TestRunStopsWhenProgressReturnsFalse(t *testing.T) {
	job := standardJob(t)
	job.Progress = func(int, string) bool { return false }

	runner := NewRunner(testConfig(t), nil, nil, false)
	artifact, _, err := runner.Run(context.Background(), job)
	require.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, artifact)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	job := standardJob(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(testConfig(t), nil, nil, false)
	_, _, err := runner.Run(ctx, job)
	require.ErrorIs(t, err, ErrCancelled)
}

func TestRunZoningFailureDegrades(t *testing.T) {
	job := standardJob(t)
	job.ZoningSource = failingSource{}

	runner := NewRunner(testConfig(t), nil, nil, false)
	artifact, stats, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.FileExists(t, artifact)

	assert.Zero(t, stats.Zoning.Accepted)
	assert.Zero(t, stats.Classified, "nothing to classify without zoning")

	f, err := excelize.OpenFile(artifact)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetCellValue("Properties", "G2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunMissingReferenceDegrades(t *testing.T) {
	job := standardJob(t)
	job.ReferencePath = filepath.Join(t.TempDir(), "absent.xlsx")

	runner := NewRunner(testConfig(t), nil, nil, false)
	artifact, stats, err := runner.Run(context.Background(), job)
	require.NoError(t, err)
	require.FileExists(t, artifact)
	assert.Zero(t, stats.Classified)
	assert.Equal(t, 1, stats.Zoning.Accepted, "zoning still runs without the reference")
}

func TestRunOverridesWinOverSource(t *testing.T) {
	job := standardJob(t)
	job.Overrides = zoning.Overrides{
		"23 Willoughby Road, Crows Nest, NSW, 2065": "MU1 - Mixed Use",
	}

	runner := NewRunner(testConfig(t), nil, nil, false)
	artifact, _, err := runner.Run(context.Background(), job)
	require.NoError(t, err)

	f, err := excelize.OpenFile(artifact)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Properties", "G2")
	require.NoError(t, err)
	assert.Equal(t, "MU1 - Mixed Use", got)

	flag, err := f.GetCellValue("Properties", "AZ2")
	require.NoError(t, err)
	assert.Equal(t, "F", flag, "Vet is not permitted in MU1 in the reference fixture")
}

func TestRunRecordsResolutions(t *testing.T) {
	job := standardJob(t)
	rec := &captureRecorder{}

	runner := NewRunner(testConfig(t), nil, rec, false)
	artifact, stats, err := runner.Run(context.Background(), job)
	require.NoError(t, err)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, stats.RunID, rec.runs[0].RunID)
	assert.Equal(t, artifact, rec.runs[0].Artifact)
	assert.Empty(t, rec.runs[0].Failure)
	assert.Len(t, rec.resolutions[stats.RunID], 2)
}
