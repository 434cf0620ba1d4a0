// Package classify applies the allowable-use reference table to resolved
// zoning values. Matching is exact-only: the reference rows encode
// specific planning-instrument clauses, and an approximate match would
// silently misstate a legal use permission.
package classify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/schema"
)

// DefaultFilename is the reference workbook shipped alongside the tool.
const DefaultFilename = "Allowable Use in the Zone - TABLE.xlsx"

// ErrReferenceNotFound reports that no candidate directory holds the
// reference workbook.
var ErrReferenceNotFound = errors.New("reference table not found")

// ErrUnknownBusinessType reports a business type with no column in the
// reference table.
var ErrUnknownBusinessType = errors.New("unknown business type")

// terminalBlankRun is how many consecutive blank zone cells mark the end
// of the table; the reference sheet has no explicit end marker.
const terminalBlankRun = 5

// Table holds zone description -> "T"/"F" allowance flags for one
// business type.
type Table struct {
	localDebug bool
	allow      map[string]string
}

// Locate tries candidate directories (working directory, executable
// directory and its parent, then extras) for the reference workbook.
func Locate(filename string, extras []string) (string, error) {
	if filename == "" {
		filename = DefaultFilename
	}

	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		dirs = append(dirs, exeDir, filepath.Dir(exeDir))
	}
	dirs = append(dirs, extras...)

	for _, dir := range dirs {
		path := filepath.Join(dir, filename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrReferenceNotFound, filename)
}

// Load reads the reference workbook: column A is the zone description and
// the business type selects the allowance column (Vet -> B, Health -> C).
// Parsing stops after a run of blank zone cells, and header or footnote
// rows are skipped.
func Load(path, businessType string, localDebug bool) (*Table, error) {
	col, err := businessColumn(businessType)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference table %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("reference table %s has no sheets", path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference table: %w", err)
	}

	t := &Table{
		localDebug: localDebug,
		allow:      make(map[string]string),
	}

	blanks := 0
	for i := 1; i < len(rows); i++ {
		zone := strings.TrimSpace(cellIn(rows[i], 0))
		if zone == "" {
			blanks++
			if blanks >= terminalBlankRun {
				break
			}
			continue
		}
		blanks = 0

		if skipReferenceRow(zone) {
			debug.Output(localDebug, "reference row skipped: %q", zone)
			continue
		}

		flag, ok := allowanceFlag(cellIn(rows[i], col))
		if !ok {
			continue
		}
		t.allow[zone] = flag
	}

	debug.Output(localDebug, "reference table: %d zones for %s", len(t.allow), businessType)
	return t, nil
}

// Classify writes the allowance flag onto every row whose resolved zoning
// exactly equals a reference zone description. The input slice is not
// modified; the count of classified rows is returned with the copy.
func (t *Table) Classify(rows []schema.PropertyRow) ([]schema.PropertyRow, int) {
	out := append([]schema.PropertyRow(nil), rows...)
	classified := 0

	for i := range out {
		z := out[i].SiteZoning
		if !z.Resolved() {
			continue
		}
		flag, ok := t.allow[strings.TrimSpace(z.Value())]
		if !ok {
			continue
		}
		out[i].AllowableUse = schema.Val(flag)
		classified++
	}

	debug.Output(t.localDebug, "classified %d of %d rows", classified, len(out))
	return out, classified
}

// Len returns the number of reference zones loaded.
func (t *Table) Len() int {
	return len(t.allow)
}

// Entries returns a copy of the allowance map, for diagnostics.
func (t *Table) Entries() map[string]string {
	out := make(map[string]string, len(t.allow))
	for k, v := range t.allow {
		out[k] = v
	}
	return out
}

func businessColumn(businessType string) (int, error) {
	switch {
	case strings.EqualFold(businessType, "Vet"):
		return 1, nil
	case strings.EqualFold(businessType, "Health"):
		return 2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBusinessType, businessType)
	}
}

// skipReferenceRow recognises the header and footnote rows interleaved
// with the zone rows.
func skipReferenceRow(zone string) bool {
	if strings.HasPrefix(zone, "References") ||
		strings.HasPrefix(zone, "NOTE") ||
		strings.HasPrefix(zone, "http") {
		return true
	}
	return isAllCapsMultiWord(zone)
}

// isAllCapsMultiWord reports section headings like "PERMITTED USES":
// multiple words, at least one letter, no lowercase anywhere.
func isAllCapsMultiWord(s string) bool {
	if len(strings.Fields(s)) < 2 {
		return false
	}
	hasLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// allowanceFlag normalises a boolean-like cell to "T" or "F". Anything
// unrecognised yields no entry rather than a guess.
func allowanceFlag(cell string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "TRUE", "YES", "Y", "T":
		return "T", true
	case "FALSE", "NO", "N", "F":
		return "F", true
	default:
		return "", false
	}
}

func cellIn(row []string, i int) string {
	if i >= 0 && i < len(row) {
		return row[i]
	}
	return ""
}
