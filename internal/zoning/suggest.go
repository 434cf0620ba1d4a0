package zoning

import (
	"slices"
	"sort"

	"github.com/propmerge/internal/match"
	"github.com/propmerge/internal/normalize"
	"github.com/propmerge/internal/symspell"
)

// Suggestion pairs an unresolved address with candidate source addresses
// whose street tokens nearly match it.
type Suggestion struct {
	Address    string
	Candidates []string
}

// Suggester proposes near-miss source addresses for queries the match
// chain could not resolve, by spell-matching street tokens against the
// candidate corpus.
type Suggester struct {
	dict    *symspell.Dictionary
	byToken map[string][]string
}

// NewSuggester indexes the street tokens of every candidate that carries
// a usable zoning value. Candidates whose value would be rejected anyway
// are skipped; suggesting them helps nobody.
func NewSuggester(candidates []match.Candidate) *Suggester {
	s := &Suggester{
		dict:    symspell.NewDictionary(2),
		byToken: make(map[string][]string),
	}

	for _, c := range candidates {
		if !Accepted(c.Zoning) {
			continue
		}
		street := normalize.StreetComponent(normalize.Key(c.Address))
		for _, tok := range normalize.TokenizeStreet(street) {
			s.dict.Add(tok)
			if !slices.Contains(s.byToken[tok], c.Address) {
				s.byToken[tok] = append(s.byToken[tok], c.Address)
			}
		}
	}

	return s
}

// For returns up to limit candidate addresses ranked by how many of the
// query's street tokens they nearly share; closer token matches weigh
// more.
func (s *Suggester) For(address string, limit int) []string {
	tokens := normalize.TokenizeStreet(normalize.StreetComponent(normalize.Key(address)))
	if len(tokens) == 0 {
		return nil
	}

	scores := make(map[string]int)
	for _, tok := range tokens {
		for _, sug := range s.dict.Suggest(tok, 2) {
			weight := 3 - sug.Distance
			for _, cand := range s.byToken[sug.Term] {
				scores[cand] += weight
			}
		}
	}
	if len(scores) == 0 {
		return nil
	}

	ranked := make([]string, 0, len(scores))
	for cand := range scores {
		ranked = append(ranked, cand)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Report builds the post-run did-you-mean list: one entry per unaccepted
// resolution with at least one near-miss candidate.
func Report(resolutions []Resolution, mapping map[string]string, limit int) []Suggestion {
	s := NewSuggester(Candidates(mapping))

	var out []Suggestion
	for _, r := range resolutions {
		if r.Accepted {
			continue
		}
		if near := s.For(r.Address, limit); len(near) > 0 {
			out = append(out, Suggestion{Address: r.Address, Candidates: near})
		}
	}
	return out
}
