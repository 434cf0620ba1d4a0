package zoning

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Source supplies an address -> zoning mapping for a batch of unique
// addresses. Keys are whatever address strings the backing service uses;
// the reconciler's match chain bridges the difference between those and
// the extracted addresses.
type Source interface {
	Name() string
	Lookup(ctx context.Context, addresses []string) (map[string]string, error)
}

// ErrNoMappingColumns reports a mapping file without recognisable
// Address and Zoning columns in its first row.
var ErrNoMappingColumns = errors.New("no address/zoning columns")

var _ Source = (*FileSource)(nil)

// FileSource reads a mapping file, CSV or XLSX, whose first row names an
// Address and a Zoning column (any case). The whole file is returned
// regardless of the requested batch: every row is a legitimate match
// candidate for the normalized and fuzzy strategies.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file:" + filepath.Base(s.Path)
}

func (s *FileSource) Lookup(_ context.Context, _ []string) (map[string]string, error) {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return s.readWorkbook()
	default:
		return s.readCSV()
	}
}

func (s *FileSource) readCSV() (map[string]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.Path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Path, ErrNoMappingColumns)
	}

	addrCol, zoneCol, err := mappingColumns(records[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	return collectMapping(records[1:], addrCol, zoneCol), nil
}

func (s *FileSource) readWorkbook() (map[string]string, error) {
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mapping workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("mapping workbook %s has no sheets", s.Path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Path, ErrNoMappingColumns)
	}

	addrCol, zoneCol, err := mappingColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}

	return collectMapping(rows[1:], addrCol, zoneCol), nil
}

// mappingColumns locates the Address and Zoning columns in a header row.
func mappingColumns(header []string) (addrCol, zoneCol int, err error) {
	addrCol, zoneCol = -1, -1
	for i, cell := range header {
		switch strings.ToLower(strings.TrimSpace(cell)) {
		case "address":
			addrCol = i
		case "zoning":
			zoneCol = i
		}
	}
	if addrCol < 0 || zoneCol < 0 {
		return 0, 0, ErrNoMappingColumns
	}
	return addrCol, zoneCol, nil
}

func collectMapping(rows [][]string, addrCol, zoneCol int) map[string]string {
	mapping := make(map[string]string, len(rows))
	for _, row := range rows {
		addr := strings.TrimSpace(fieldAt(row, addrCol))
		zone := strings.TrimSpace(fieldAt(row, zoneCol))
		if addr == "" || zone == "" {
			continue
		}
		mapping[addr] = zone
	}
	return mapping
}

func fieldAt(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}
