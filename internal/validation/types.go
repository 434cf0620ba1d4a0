package validation

import (
	"fmt"
	"strings"
)

// Components holds the structured parts of a property address as extracted
// from a source table. All fields are raw strings, kept as seen.
type Components struct {
	Street   string
	Suburb   string
	State    string
	Postcode string
}

// Result of a single component check. Reason is set for failures and for
// advisory findings on otherwise valid components.
type Result struct {
	Valid  bool
	Reason string
}

// RowValidation aggregates the component checks for one extracted row.
type RowValidation struct {
	Components Components
	Issues     []string
	Indexable  bool
	Quality    string // GOOD, FAIR or POOR
}

func (c Components) String() string {
	return fmt.Sprintf("Street: %s, Suburb: %s, State: %s, Postcode: %s",
		c.Street, c.Suburb, c.State, c.Postcode)
}

func (rv RowValidation) String() string {
	if rv.Indexable {
		return fmt.Sprintf("INDEXABLE (%s)", rv.Quality)
	}
	return fmt.Sprintf("SKIP (%s): %s", rv.Quality, strings.Join(rv.Issues, "; "))
}
