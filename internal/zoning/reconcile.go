package zoning

import (
	"sort"

	"github.com/propmerge/internal/addrindex"
	"github.com/propmerge/internal/debug"
	"github.com/propmerge/internal/match"
	"github.com/propmerge/internal/schema"
)

// NotFound is the sentinel external sources return for an address they
// could not resolve.
const NotFound = "-"

// Accepted reports whether a matched zoning value is usable. The length
// floor guards against truncated and placeholder values.
func Accepted(value string) bool {
	return value != NotFound && len(value) > 5
}

// Resolution records the outcome for one unique address. The audit trail
// and the did-you-mean report are built from these.
type Resolution struct {
	Address     string
	Method      string
	Value       string
	Accepted    bool
	Occurrences int
}

// Stats summarises a reconciliation pass.
type Stats struct {
	Unique     int
	Accepted   int
	Unresolved int
	ByMethod   map[string]int
}

// Reconciler writes externally supplied zoning values onto extracted rows,
// trying exact, normalized, then street-fuzzy matching per address.
type Reconciler struct {
	localDebug bool
	chain      *match.Chain
}

func NewReconciler(localDebug bool) *Reconciler {
	return &Reconciler{
		localDebug: localDebug,
		chain:      match.DefaultChain(),
	}
}

// Apply resolves every indexed unique address against the mapping and
// writes each accepted zoning to every occurrence row of that address.
// The input slice is not modified; the updated copy is returned together
// with one Resolution per unique address.
func (r *Reconciler) Apply(rows []schema.PropertyRow, idx *addrindex.Index, mapping map[string]string) ([]schema.PropertyRow, []Resolution) {
	defer debug.Timing(r.localDebug, "zoning reconcile")()

	out := append([]schema.PropertyRow(nil), rows...)
	candidates := Candidates(mapping)
	uniques := idx.UniqueAddresses()
	resolutions := make([]Resolution, 0, len(uniques))

	for _, addr := range uniques {
		res := r.chain.Match(r.localDebug, addr, candidates)

		rec := Resolution{Address: addr}
		if res.Matched {
			rec.Method = res.Method
			rec.Value = res.Value
			rec.Accepted = Accepted(res.Value)
		}

		if rec.Accepted {
			occ := idx.RowsFor(addr)
			for _, i := range occ {
				if i >= 0 && i < len(out) {
					out[i].SiteZoning = schema.Val(rec.Value)
				}
			}
			rec.Occurrences = len(occ)
			debug.Output(r.localDebug, "zoning %q -> %q via %s (%d rows)", addr, rec.Value, rec.Method, rec.Occurrences)
		} else {
			debug.Output(r.localDebug, "zoning unresolved: %q (method=%q value=%q)", addr, rec.Method, rec.Value)
		}

		resolutions = append(resolutions, rec)
	}

	return out, resolutions
}

// Candidates flattens a mapping into the ordered list the match strategies
// scan. Keys are sorted so first-match fuzzy resolution is deterministic
// run to run.
func Candidates(mapping map[string]string) []match.Candidate {
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]match.Candidate, len(keys))
	for i, k := range keys {
		out[i] = match.Candidate{Address: k, Zoning: mapping[k]}
	}
	return out
}

// Summarize folds resolutions into accepted/unresolved and per-method
// counts.
func Summarize(resolutions []Resolution) Stats {
	s := Stats{
		Unique:   len(resolutions),
		ByMethod: make(map[string]int),
	}
	for _, r := range resolutions {
		if r.Accepted {
			s.Accepted++
			s.ByMethod[r.Method]++
		} else {
			s.Unresolved++
		}
	}
	return s
}
