// Package assemble writes the merged workbook: one styled sheet carrying
// the fixed column layout, clickable listing links and embedded photos.
package assemble

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/propmerge/internal/config"
	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/enrich"
	"github.com/propmerge/internal/schema"
)

// SheetName is the single sheet of the merged workbook.
const SheetName = "Properties"

// imageFallback replaces photo values the fetcher can never download,
// such as blob: or data: URLs left behind by a listing page.
const imageFallback = "Image unavailable"

// Embedded photo display size in pixels, and the row height in points
// that fits it.
const (
	photoWidth     = 160
	photoHeight    = 120
	photoRowHeight = 90
)

// colWidths fixes the width of the named columns; every other column gets
// defaultColWidth.
var colWidths = map[string]float64{
	"A": 15, "B": 15, "C": 30, "D": 20, "E": 10, "F": 10, "G": 35,
	"H": 20, "I": 8, "J": 8, "K": 8, "L": 20, "M": 15, "N": 15,
	"O": 12, "P": 20, "Q": 20, "R": 15, "S": 25, "T": 15, "U": 20,
	"V": 20, "W": 20, "X": 15, "Y": 30, "AZ": 10,
}

const defaultColWidth = 15

// Stats reports what the writer did with the rows it was given.
type Stats struct {
	Rows           int
	Hyperlinks     int
	ImagesEmbedded int
	ImageFallbacks int
}

// Assembler renders merged rows to a workbook on disk. Photo downloads go
// through Fetcher, which may be tuned before the first Write.
type Assembler struct {
	Fetcher *enrich.ImageFetcher

	outputDir  string
	localDebug bool
}

func New(outputDir string, fetch config.FetchConfig, localDebug bool) *Assembler {
	return &Assembler{
		Fetcher:    enrich.NewImageFetcher(fetch, localDebug),
		outputDir:  outputDir,
		localDebug: localDebug,
	}
}

// Write saves rows to a new workbook under the output directory and
// returns its path. Rows keep their given order. Photo cells are embedded
// images where the URL fetches cleanly and text otherwise; failing to
// save the file is the only fatal outcome.
func (a *Assembler) Write(ctx context.Context, rows []schema.PropertyRow, locations []string) (string, Stats, error) {
	defer debug.Timing(a.localDebug, "assemble workbook")()

	stats := Stats{Rows: len(rows)}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return "", stats, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return "", stats, fmt.Errorf("failed to build header style: %w", err)
	}
	dataStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Size: 12}})
	if err != nil {
		return "", stats, fmt.Errorf("failed to build data style: %w", err)
	}
	linkStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 12, Color: "0563C1", Underline: "single"},
	})
	if err != nil {
		return "", stats, fmt.Errorf("failed to build link style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(schema.ColumnCount)
	if err != nil {
		return "", stats, fmt.Errorf("failed to resolve last column: %w", err)
	}

	headers := schema.Headers()
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return "", stats, fmt.Errorf("failed to write header row: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", lastCol+"1", headerStyle); err != nil {
		return "", stats, fmt.Errorf("failed to style header row: %w", err)
	}

	today := time.Now().Format("02/01/2006")
	photoJobs := make(map[int]string)
	var linkRows []int

	for i := range rows {
		cells := rows[i].Cells()
		cells[schema.ColDateAdded] = today

		if raw := strings.TrimSpace(cells[schema.ColPropertyPhoto]); raw != "" {
			switch {
			case enrich.IsFetchableImageURL(raw):
				photoJobs[i] = raw
				cells[schema.ColPropertyPhoto] = ""
			case looksLikeURL(raw):
				cells[schema.ColPropertyPhoto] = imageFallback
				stats.ImageFallbacks++
			}
			// Photo cells holding plain text pass through unchanged.
		}

		link := cells[schema.ColWebsiteLink]
		if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
			linkRows = append(linkRows, i)
		}

		anchor, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", stats, fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(SheetName, anchor, &cells); err != nil {
			return "", stats, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if len(rows) > 0 {
		if err := f.SetCellStyle(SheetName, "A2", fmt.Sprintf("%s%d", lastCol, len(rows)+1), dataStyle); err != nil {
			return "", stats, fmt.Errorf("failed to style data rows: %w", err)
		}
	}

	for _, i := range linkRows {
		cell, err := excelize.CoordinatesToCellName(schema.ColWebsiteLink+1, i+2)
		if err != nil {
			return "", stats, fmt.Errorf("row %d: %w", i+2, err)
		}
		if err := f.SetCellHyperLink(SheetName, cell, rows[i].WebsiteLink.Render(), "External"); err != nil {
			return "", stats, fmt.Errorf("failed to link row %d: %w", i+2, err)
		}
		if err := f.SetCellStyle(SheetName, cell, cell, linkStyle); err != nil {
			return "", stats, fmt.Errorf("failed to style link on row %d: %w", i+2, err)
		}
		stats.Hyperlinks++
	}

	a.embedPhotos(ctx, f, photoJobs, &stats)

	for col := 1; col <= schema.ColumnCount; col++ {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return "", stats, fmt.Errorf("column %d: %w", col, err)
		}
		width, ok := colWidths[name]
		if !ok {
			width = defaultColWidth
		}
		if err := f.SetColWidth(SheetName, name, name, width); err != nil {
			return "", stats, fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	path := a.outputPath(locations)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", stats, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", stats, fmt.Errorf("failed to save workbook: %w", err)
	}

	debug.Output(a.localDebug, "workbook saved to %s (%d rows, %d images, %d fallbacks)",
		path, stats.Rows, stats.ImagesEmbedded, stats.ImageFallbacks)

	return path, stats, nil
}

// embedPhotos downloads every queued photo through the worker pool and
// places each into its row's cell, degrading to the raw URL as text when
// the fetch or the embed fails.
func (a *Assembler) embedPhotos(ctx context.Context, f *excelize.File, jobs map[int]string, stats *Stats) {
	if len(jobs) == 0 {
		return
	}

	results := a.Fetcher.FetchAll(ctx, jobs)

	for i, url := range jobs {
		rowNum := i + 2
		cell, err := excelize.CoordinatesToCellName(schema.ColPropertyPhoto+1, rowNum)
		if err != nil {
			continue
		}

		res := results[i]
		switch {
		case res.Err != nil:
			debug.Output(a.localDebug, "photo for row %d degraded to text: %v", rowNum, res.Err)
		case a.placeImage(f, cell, rowNum, res) == nil:
			stats.ImagesEmbedded++
			continue
		}

		if err := f.SetCellValue(SheetName, cell, url); err == nil {
			stats.ImageFallbacks++
		}
	}
}

// placeImage embeds one downloaded image at a fixed display size and
// opens the row up to fit it.
func (a *Assembler) placeImage(f *excelize.File, cell string, rowNum int, res enrich.FetchResult) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Data))
	if err != nil {
		debug.Output(a.localDebug, "photo for row %d not embeddable: %v", rowNum, err)
		return fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("image has no dimensions")
	}

	err = f.AddPictureFromBytes(SheetName, cell, &excelize.Picture{
		Extension: res.Ext,
		File:      res.Data,
		Format: &excelize.GraphicOptions{
			ScaleX: photoWidth / float64(cfg.Width),
			ScaleY: photoHeight / float64(cfg.Height),
		},
	})
	if err != nil {
		debug.Output(a.localDebug, "photo for row %d not embeddable: %v", rowNum, err)
		return err
	}

	return f.SetRowHeight(SheetName, rowNum, photoRowHeight)
}

// looksLikeURL separates resource references from free text in the photo
// column; only references degrade to the fallback marker.
func looksLikeURL(raw string) bool {
	return strings.Contains(raw, "://") ||
		strings.HasPrefix(raw, "blob:") ||
		strings.HasPrefix(raw, "data:")
}

// outputPath builds {outputDir}/Properties_{locations}_{timestamp}.xlsx
// from the first word of each of the first two locations.
func (a *Assembler) outputPath(locations []string) string {
	var parts []string
	for _, loc := range locations {
		if len(parts) == 2 {
			break
		}
		fields := strings.Fields(loc)
		if len(fields) == 0 {
			continue
		}
		parts = append(parts, strings.ReplaceAll(fields[0], ",", ""))
	}

	slug := strings.Join(parts, "_")
	if slug == "" {
		slug = "All"
	}

	dir := a.outputDir
	if dir == "" {
		dir = "merged_properties"
	}

	name := fmt.Sprintf("Properties_%s_%s.xlsx", slug, time.Now().Format("02_01_2006_15_04"))
	return filepath.Join(dir, name)
}
