// Package symspell implements Symmetric Delete spelling suggestion over a
// term dictionary. The zoning layer builds a dictionary from candidate
// street tokens and uses it to propose near-miss candidates for addresses
// no match strategy resolved.
package symspell

import (
	"sort"
	"strings"
)

// Suggestion is a dictionary term within edit distance of an input.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int64
}

// Dictionary holds terms with occurrence counts plus a pre-computed index
// of delete variants, giving near-constant lookup for close misspellings.
type Dictionary struct {
	maxDistance int
	minTermLen  int

	terms   map[string]int64
	deletes map[string][]string
}

// NewDictionary returns an empty dictionary accepting suggestions up to
// maxDistance edits away. Non-positive maxDistance falls back to 2, which
// catches most typos without inviting false matches. Terms shorter than
// three characters are never indexed.
func NewDictionary(maxDistance int) *Dictionary {
	if maxDistance <= 0 {
		maxDistance = 2
	}
	return &Dictionary{
		maxDistance: maxDistance,
		minTermLen:  3,
		terms:       make(map[string]int64),
		deletes:     make(map[string][]string),
	}
}

// Add indexes a term, incrementing its occurrence count. Repeated Adds of
// the same term raise its rank among equally-distant suggestions.
func (d *Dictionary) Add(term string) {
	term = strings.ToUpper(strings.TrimSpace(term))
	if len(term) < d.minTermLen {
		return
	}

	_, known := d.terms[term]
	d.terms[term]++
	if known {
		return
	}

	for variant := range deleteVariants(term, d.maxDistance) {
		d.deletes[variant] = append(d.deletes[variant], term)
	}
}

// Contains reports whether the exact term is indexed.
func (d *Dictionary) Contains(term string) bool {
	_, ok := d.terms[strings.ToUpper(strings.TrimSpace(term))]
	return ok
}

// Len returns the number of unique terms.
func (d *Dictionary) Len() int {
	return len(d.terms)
}

// Suggest returns dictionary terms within maxDistance of the input, sorted
// by distance, then occurrence count descending, then term. An exact hit
// short-circuits to a single zero-distance suggestion.
func (d *Dictionary) Suggest(input string, maxDistance int) []Suggestion {
	input = strings.ToUpper(strings.TrimSpace(input))
	if input == "" {
		return nil
	}
	if maxDistance > d.maxDistance || maxDistance <= 0 {
		maxDistance = d.maxDistance
	}

	if freq, ok := d.terms[input]; ok {
		return []Suggestion{{Term: input, Distance: 0, Frequency: freq}}
	}

	// Any term within maxDistance shares a delete variant with the input,
	// so probing the input's variants (and the input itself) finds every
	// candidate without scanning the dictionary.
	probes := deleteVariants(input, maxDistance)
	probes[input] = struct{}{}

	seen := make(map[string]bool)
	var out []Suggestion

	consider := func(term string) {
		if seen[term] {
			return
		}
		seen[term] = true
		if dist := editDistance(input, term, maxDistance); dist >= 0 {
			out = append(out, Suggestion{Term: term, Distance: dist, Frequency: d.terms[term]})
		}
	}

	for probe := range probes {
		for _, term := range d.deletes[probe] {
			consider(term)
		}
		// The probe itself may be a dictionary term shorter than the input.
		if _, ok := d.terms[probe]; ok {
			consider(probe)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})

	return out
}

// Best returns the top suggestion within the dictionary's max distance, or
// nil when nothing qualifies.
func (d *Dictionary) Best(input string) *Suggestion {
	s := d.Suggest(input, d.maxDistance)
	if len(s) == 0 {
		return nil
	}
	return &s[0]
}

// deleteVariants returns every string reachable from term by removing up
// to depth characters, walked breadth-first one deletion per round.
func deleteVariants(term string, depth int) map[string]struct{} {
	variants := make(map[string]struct{})
	frontier := []string{term}

	for round := 0; round < depth; round++ {
		var next []string
		for _, t := range frontier {
			if len(t) <= 1 {
				continue
			}
			for i := 0; i < len(t); i++ {
				v := t[:i] + t[i+1:]
				if _, ok := variants[v]; ok {
					continue
				}
				variants[v] = struct{}{}
				next = append(next, v)
			}
		}
		frontier = next
	}

	return variants
}

// editDistance is the Damerau-Levenshtein distance between a and b,
// counting adjacent transpositions as one edit. Returns -1 as soon as the
// distance provably exceeds maxDistance.
func editDistance(a, b string, maxDistance int) int {
	la, lb := len(a), len(b)
	if la-lb > maxDistance || lb-la > maxDistance {
		return -1
	}
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}
	if la > lb {
		a, b = b, a
		la, lb = lb, la
	}

	// Three rolling rows: the row before last is needed for transpositions.
	older := make([]int, la+1)
	prev := make([]int, la+1)
	curr := make([]int, la+1)
	for i := 0; i <= la; i++ {
		prev[i] = i
	}

	for j := 1; j <= lb; j++ {
		curr[0] = j
		rowMin := j

		for i := 1; i <= la; i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				curr[i] = min(curr[i], older[i-2]+cost)
			}
			if curr[i] < rowMin {
				rowMin = curr[i]
			}
		}

		if rowMin > maxDistance {
			return -1
		}
		older, prev, curr = prev, curr, older
	}

	if prev[la] > maxDistance {
		return -1
	}
	return prev[la]
}
