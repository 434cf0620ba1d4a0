package match

// Candidate is one externally fetched zoning entry, keyed by the address
// the external service echoed back.
type Candidate struct {
	Address string
	Zoning  string
}

// Result reports which strategy matched and the zoning value it found.
type Result struct {
	Matched bool
	Method  string
	Value   string
}
