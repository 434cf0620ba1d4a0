package zoning

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, path string, records [][]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		t.Fatal(err)
	}
}

func TestFileSourceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoning.csv")
	writeCSV(t, path, [][]string{
		{"Address", "Zoning"},
		{"23 Willoughby Road, Crows Nest, NSW, 2065", "E1 - Local Centre"},
		{"100 Pacific Highway, North Sydney, NSW, 2060", "MU1 - Mixed Use"},
		{"", "B3 - Commercial Core"},
		{"1 Blank Zone St, Sydney, NSW, 2000", ""},
	})

	mapping, err := NewFileSource(path).Lookup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}

	if len(mapping) != 2 {
		t.Errorf("mapping size = %d, want 2 (blank rows skipped)", len(mapping))
	}
	if got := mapping["23 Willoughby Road, Crows Nest, NSW, 2065"]; got != "E1 - Local Centre" {
		t.Errorf("mapping entry = %q, want E1 - Local Centre", got)
	}
}

func TestFileSourceCSVHeaderAnyCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoning.csv")
	writeCSV(t, path, [][]string{
		{"  ADDRESS ", "zoning"},
		{"1 Test St, Sydney, NSW, 2000", "B8 - Metropolitan Centre"},
	})

	mapping, err := NewFileSource(path).Lookup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got := mapping["1 Test St, Sydney, NSW, 2000"]; got != "B8 - Metropolitan Centre" {
		t.Errorf("mapping entry = %q", got)
	}
}

func TestFileSourceXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zoning.xlsx")

	f := excelize.NewFile()
	cells := [][]string{
		{"Address", "Zoning"},
		{"23 Willoughby Road, Crows Nest, NSW, 2065", "E1 - Local Centre"},
	}
	for r, row := range cells {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	mapping, err := NewFileSource(path).Lookup(context.Background(), nil)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got := mapping["23 Willoughby Road, Crows Nest, NSW, 2065"]; got != "E1 - Local Centre" {
		t.Errorf("mapping entry = %q", got)
	}
}

func TestFileSourceMissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	writeCSV(t, path, [][]string{
		{"Street", "Zone"},
		{"1 Test St", "E1 - Local Centre"},
	})

	_, err := NewFileSource(path).Lookup(context.Background(), nil)
	if !errors.Is(err, ErrNoMappingColumns) {
		t.Errorf("err = %v, want ErrNoMappingColumns", err)
	}
}

func TestFileSourceMissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.csv"))
	if _, err := src.Lookup(context.Background(), nil); err == nil {
		t.Error("Lookup() of a missing file succeeded")
	}
}
