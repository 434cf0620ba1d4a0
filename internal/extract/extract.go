package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/schema"
	"github.com/propmerge/internal/validation"
)

// ErrNoHeaderRow reports a workbook with no recognisable header row.
var ErrNoHeaderRow = errors.New("no header row")

// headerMarker is the first-column cell that marks the header row.
const headerMarker = "Property Photo"

// linkColumn is the expected header of the detail page link column.
const linkColumn = "Open in RPData"

// HYPERLINK formula target, with or without the leading equals sign
var reHyperlink = regexp.MustCompile(`HYPERLINK\("([^"]+)"`)

// Failure records a source workbook that contributed no rows.
type Failure struct {
	Source string
	Err    error
}

// FileStats counts the rows a single workbook lost.
type FileStats struct {
	BlankRows   int
	DroppedRows int
}

// Stats summarises one extraction pass.
type Stats struct {
	Files       int
	Rows        int
	BlankRows   int
	DroppedRows int
	PerSource   map[string]int
	Failures    []Failure
}

// Extractor reads source workbooks into property rows.
type Extractor struct {
	localDebug bool
	validator  *validation.Validator
}

func New(localDebug bool) *Extractor {
	return &Extractor{
		localDebug: localDebug,
		validator:  validation.NewValidator(),
	}
}

// ExtractAll reads every source in order. A workbook that cannot be read
// contributes zero rows and is recorded as a failure; extraction continues.
func (e *Extractor) ExtractAll(sources []Source) ([]schema.PropertyRow, Stats) {
	defer debug.Timing(e.localDebug, "extract")()

	var all []schema.PropertyRow
	stats := Stats{PerSource: make(map[string]int)}

	for _, src := range sources {
		rows, fs, err := e.File(src)
		if err != nil {
			stats.Failures = append(stats.Failures, Failure{Source: src.Kind.String(), Err: err})
			debug.Output(e.localDebug, "source %s failed: %v", src.Kind, err)
			continue
		}
		stats.Files++
		stats.Rows += len(rows)
		stats.BlankRows += fs.BlankRows
		stats.DroppedRows += fs.DroppedRows
		stats.PerSource[src.Kind.String()] += len(rows)
		all = append(all, rows...)
		debug.Output(e.localDebug, "source %s: %d rows, %d blank, %d dropped", src.Kind, len(rows), fs.BlankRows, fs.DroppedRows)
	}

	return all, stats
}

// File reads a single workbook. The header row is the first whose leading
// cell is the header marker; everything below it is data. Source rows with
// no cell content at all are dropped.
func (e *Extractor) File(src Source) ([]schema.PropertyRow, FileStats, error) {
	var fs FileStats

	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, fs, fmt.Errorf("failed to open workbook %s: %w", src.Path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fs, fmt.Errorf("workbook %s has no sheets", src.Path)
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, fs, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	headerIdx := findHeaderRow(cells)
	if headerIdx < 0 {
		return nil, fs, fmt.Errorf("workbook %s: %w", src.Path, ErrNoHeaderRow)
	}
	headers := headerNames(cells[headerIdx])

	var rows []schema.PropertyRow

	for i := headerIdx + 1; i < len(cells); i++ {
		if isBlankRow(cells[i]) {
			fs.BlankRows++
			continue
		}
		// Workbook rows are 1-based and the loop index is 0-based.
		row, ok := e.safeBuildRow(f, sheet, src.Kind, headers, cells[i], i+1)
		if !ok {
			fs.DroppedRows++
			continue
		}
		rows = append(rows, row)
	}

	return rows, fs, nil
}

// safeBuildRow contains a panic from a single malformed row so the rest of
// the workbook still extracts.
func (e *Extractor) safeBuildRow(f *excelize.File, sheet string, kind Kind, headers []string, cells []string, rowNum int) (row schema.PropertyRow, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			debug.Output(e.localDebug, "row %d dropped: %v", rowNum, r)
			ok = false
		}
	}()
	return e.buildRow(f, sheet, kind, headers, cells, rowNum), true
}

// buildRow maps one source row onto the output schema for its category.
func (e *Extractor) buildRow(f *excelize.File, sheet string, kind Kind, headers []string, cells []string, rowNum int) schema.PropertyRow {
	get := func(name string) string {
		for col, header := range headers {
			if header == name {
				return cellAt(cells, col)
			}
		}
		return ""
	}

	cat := categoryFor(kind, get("Active Listing"))
	row := schema.NewRow(cat)

	row.Address = schema.Address{
		Street:   get("Street Address"),
		Suburb:   get("Suburb"),
		State:    get("State"),
		Postcode: get("Postcode"),
	}

	row.PropertyType = schema.Val(get("Property Type"))
	row.Bed = schema.Val(get("Bed"))
	row.Bath = schema.Val(get("Bath"))
	row.Car = schema.Val(get("Car"))
	row.LandSize = schema.Val(get("Land Size (m²)"))
	row.FloorSize = schema.Val(get("Floor Size (m²)"))
	row.YearBuilt = schema.Val(get("Year Built"))
	row.Agency = schema.Val(get("Agency"))
	row.Agent = schema.Val(get("Agent"))
	row.LandUse = schema.Val(get("Land Use"))
	row.DevZone = schema.Val(get("Development Zone"))
	row.ParcelDetails = schema.Val(get("Parcel Details"))
	row.OwnerType = schema.Val(get("Owner Type"))
	row.WebsiteLink = schema.Val(e.resolveLink(f, sheet, headers, cells, rowNum, row.Address))

	switch cat {
	case schema.Sold:
		row.SalePrice = schema.Val(get("Sale Price"))
		row.SaleDate = schema.Val(get("Sale Date"))
		row.SettlementDate = schema.Val(get("Settlement Date"))
		row.SaleType = schema.Val(get("Sale Type"))
		row.Owner1 = schema.Val(get("Owner 1 Name"))
		row.Owner2 = schema.Val(get("Owner 2 Name"))
		row.Owner3 = schema.Val(get("Owner 3 Name"))
		row.Vendor1 = schema.Val(get("Vendor 1 Name"))
		row.Vendor2 = schema.Val(get("Vendor 2 Name"))
		row.Vendor3 = schema.Val(get("Vendor 3 Name"))
	case schema.ForSale:
		row.FirstListedPrice = schema.Val(get("First Listed Price"))
		row.FirstListedDate = schema.Val(get("First Listed Date"))
		row.LastListedPrice = schema.Val(get("Last Listed Price"))
		row.LastListedDate = schema.Val(get("Last Listed Date"))
		row.ListingType = schema.Val(get("Listing Type"))
		row.DaysOnMarket = schema.Val(get("Days on Market"))
		row.ActiveListing = schema.Val(get("Active Listing"))
	default:
		row.FirstRentalPrice = schema.Val(get("First Rental Price"))
		row.FirstRentalDate = schema.Val(get("First Rental Date"))
		row.LastRentalPrice = schema.Val(get("Last Rental Price"))
		row.LastRentalDate = schema.Val(get("Last Rental Date"))
		row.OutgoingsExGST = schema.Val(get("Outgoings Ex GST"))
		row.TotalLeasePrice = schema.Val(get("Total Lease Price (Base + Outgoings)"))
		row.DaysOnMarket = schema.Val(get("Days on Market"))
		row.ActiveListing = schema.Val(get("Active Listing"))
	}

	rv := e.validator.ValidateRow(validation.Components{
		Street:   row.Address.Street,
		Suburb:   row.Address.Suburb,
		State:    row.Address.State,
		Postcode: row.Address.Postcode,
	})
	if !rv.Indexable {
		debug.Output(e.localDebug, "row %d not indexable: %s", rowNum, rv)
	}

	return row
}

// resolveLink finds the detail page link. The export format represents
// links inconsistently, so it falls back through: the cell hyperlink on
// the expected column, its formula, its plain value, any link-like
// column's value, and finally a URL synthesised from the address.
func (e *Extractor) resolveLink(f *excelize.File, sheet string, headers []string, cells []string, rowNum int, addr schema.Address) string {
	if col := headerIndex(headers, linkColumn); col >= 0 {
		if cell, err := excelize.CoordinatesToCellName(col+1, rowNum); err == nil {
			if has, target, err := f.GetCellHyperLink(sheet, cell); err == nil && has && target != "" {
				debug.Output(e.localDebug, "row %d link from cell hyperlink", rowNum)
				return target
			}
			if formula, err := f.GetCellFormula(sheet, cell); err == nil {
				if url := hyperlinkTarget(formula); url != "" {
					debug.Output(e.localDebug, "row %d link from formula", rowNum)
					return url
				}
			}
		}
		if value := linkValue(cellAt(cells, col)); value != "" {
			return value
		}
	}

	for col, header := range headers {
		if header == linkColumn {
			continue
		}
		if strings.Contains(header, "RPData") || strings.Contains(header, "Link") {
			if value := linkValue(cellAt(cells, col)); value != "" {
				return value
			}
		}
	}

	if strings.TrimSpace(addr.Street) != "" {
		url := syntheticURL(addr)
		debug.Output(e.localDebug, "row %d link synthesised: %s", rowNum, url)
		return url
	}

	return ""
}

// categoryFor maps a source kind to an output category. Rental rows split
// on the Active Listing flag.
func categoryFor(kind Kind, activeListing string) schema.Category {
	switch kind {
	case KindSales:
		return schema.Sold
	case KindForSale:
		return schema.ForSale
	default:
		if activeListing == "True" {
			return schema.ForLease
		}
		return schema.AlreadyLeased
	}
}

// findHeaderRow returns the index of the first row whose leading cell is
// the header marker, or -1.
func findHeaderRow(rows [][]string) int {
	for i, row := range rows {
		if strings.TrimSpace(cellAt(row, 0)) == headerMarker {
			return i
		}
	}
	return -1
}

func headerNames(row []string) []string {
	names := make([]string, len(row))
	for i, cell := range row {
		names[i] = strings.TrimSpace(cell)
	}
	return names
}

func headerIndex(headers []string, name string) int {
	for i, header := range headers {
		if header == name {
			return i
		}
	}
	return -1
}

// linkValue interprets a cell's text as a link: a HYPERLINK formula yields
// its target, anything else passes through unchanged.
func linkValue(raw string) string {
	if url := hyperlinkTarget(raw); url != "" {
		return url
	}
	return raw
}

func hyperlinkTarget(formula string) string {
	if m := reHyperlink.FindStringSubmatch(formula); m != nil {
		return m[1]
	}
	return ""
}

func syntheticURL(addr schema.Address) string {
	slug := strings.Join([]string{addr.Street, addr.Suburb, addr.State, addr.Postcode}, "-")
	slug = strings.ReplaceAll(strings.ToLower(slug), " ", "-")
	return "https://rpp.corelogic.com.au/property/" + slug
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cellAt(cells []string, i int) string {
	if i >= 0 && i < len(cells) {
		return cells[i]
	}
	return ""
}
