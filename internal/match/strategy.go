package match

import (
	"github.com/propmerge/internal/normalize"
)

// Strategy is a pure lookup of one query address within a candidate set.
// Implementations must not mutate candidates.
type Strategy interface {
	Name() string
	Match(query string, candidates []Candidate) (string, bool)
}

var (
	_ Strategy = Exact{}
	_ Strategy = Normalized{}
	_ Strategy = StreetFuzzy{}
)

// Exact matches on byte equality of the full address.
type Exact struct{}

func (Exact) Name() string { return "exact" }

func (Exact) Match(query string, candidates []Candidate) (string, bool) {
	for _, c := range candidates {
		if c.Address == query {
			return c.Zoning, true
		}
	}
	return "", false
}

// Normalized matches on the reduced address key of both sides.
type Normalized struct{}

func (Normalized) Name() string { return "normalized" }

func (Normalized) Match(query string, candidates []Candidate) (string, bool) {
	key := normalize.Key(query)
	if key == "" {
		return "", false
	}
	for _, c := range candidates {
		if normalize.Key(c.Address) == key {
			return c.Zoning, true
		}
	}
	return "", false
}

// StreetFuzzy compares only the street component of the reduced keys, so
// addresses in different suburbs sharing a street name can collide.
type StreetFuzzy struct{}

func (StreetFuzzy) Name() string { return "street_fuzzy" }

func (StreetFuzzy) Match(query string, candidates []Candidate) (string, bool) {
	street := normalize.StreetComponent(normalize.Key(query))
	if street == "" {
		return "", false
	}
	for _, c := range candidates {
		if normalize.StreetComponent(normalize.Key(c.Address)) == street {
			return c.Zoning, true
		}
	}
	return "", false
}
