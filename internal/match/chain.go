package match

import (
	"github.com/propmerge/internal/debug"
)

// Chain tries each strategy in order and stops at the first hit.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain is the standard exact, normalized, street fuzzy ladder.
func DefaultChain() *Chain {
	return NewChain(Exact{}, Normalized{}, StreetFuzzy{})
}

func (c *Chain) Match(localDebug bool, query string, candidates []Candidate) Result {
	for _, s := range c.strategies {
		if value, ok := s.Match(query, candidates); ok {
			debug.Output(localDebug, "matched %q via %s", query, s.Name())
			return Result{Matched: true, Method: s.Name(), Value: value}
		}
		debug.Output(localDebug, "no %s match for %q", s.Name(), query)
	}
	return Result{}
}
