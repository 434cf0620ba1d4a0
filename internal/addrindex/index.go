package addrindex

import (
	"strings"

	"github.com/propmerge/internal/schema"
)

// Entry records one occurrence of an address in the extracted row list.
type Entry struct {
	Address    schema.Address
	Full       string
	Occurrence int // 1-based among rows sharing the same full address
	Row        int // position in the extracted row list
}

// Index assigns occurrence ordinals in first-seen order and groups rows by
// their exact full address. One external zoning lookup per unique address
// is shared by every occurrence of that address.
type Index struct {
	entries []Entry
	rows    map[string][]int
	order   []string
}

func New() *Index {
	return &Index{rows: make(map[string][]int)}
}

// Add indexes one row. Rows missing street, suburb or state are not
// indexable and are skipped.
func (ix *Index) Add(row int, addr schema.Address) (Entry, bool) {
	if strings.TrimSpace(addr.Street) == "" ||
		strings.TrimSpace(addr.Suburb) == "" ||
		strings.TrimSpace(addr.State) == "" {
		return Entry{}, false
	}

	full := addr.Full()
	if _, seen := ix.rows[full]; !seen {
		ix.order = append(ix.order, full)
	}
	ix.rows[full] = append(ix.rows[full], row)

	entry := Entry{
		Address:    addr,
		Full:       full,
		Occurrence: len(ix.rows[full]),
		Row:        row,
	}
	ix.entries = append(ix.entries, entry)
	return entry, true
}

// RowsFor returns the extracted row positions for every occurrence of the
// address, in extraction order.
func (ix *Index) RowsFor(full string) []int {
	return ix.rows[full]
}

// Count returns how many occurrences of the address were indexed.
func (ix *Index) Count(full string) int {
	return len(ix.rows[full])
}

// UniqueAddresses returns each distinct full address once, first seen first.
func (ix *Index) UniqueAddresses() []string {
	out := make([]string, len(ix.order))
	copy(out, ix.order)
	return out
}

// Entries returns every indexed occurrence in extraction order.
func (ix *Index) Entries() []Entry {
	return ix.entries
}

// Len is the number of indexed occurrences.
func (ix *Index) Len() int {
	return len(ix.entries)
}
