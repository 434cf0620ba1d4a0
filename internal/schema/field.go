package schema

// State describes how a cell value relates to its row's listing category.
type State int

const (
	// StateNotApplicable marks a column that does not apply to the row's
	// category (for example sale-price columns on a lease listing).
	StateNotApplicable State = iota
	// StateUnresolved marks a column that applies but has no value yet,
	// either awaiting downstream enrichment or left for manual entry.
	StateUnresolved
	// StateResolved marks a column holding an extracted or enriched value.
	StateResolved
)

// Field is a single cell value carrying its resolution state. The state
// controls rendering: NotApplicable renders as "N/A", Unresolved as an
// empty cell, Resolved as the value itself.
type Field struct {
	state State
	value string
}

// NA returns a not-applicable field.
func NA() Field { return Field{state: StateNotApplicable} }

// Blank returns an applicable-but-unresolved field.
func Blank() Field { return Field{state: StateUnresolved} }

// Val returns a resolved field holding s.
func Val(s string) Field { return Field{state: StateResolved, value: s} }

// State returns the field's resolution state.
func (f Field) State() State { return f.state }

// Resolved reports whether the field holds a value.
func (f Field) Resolved() bool { return f.state == StateResolved }

// Value returns the held value, empty unless resolved.
func (f Field) Value() string { return f.value }

// Render converts the field to its output cell representation.
func (f Field) Render() string {
	switch f.state {
	case StateNotApplicable:
		return "N/A"
	case StateResolved:
		return f.value
	default:
		return ""
	}
}
