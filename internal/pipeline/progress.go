package pipeline

import "time"

// ProgressFunc receives milestone updates as a run moves through its
// phases. Returning false cancels the run.
type ProgressFunc func(pct int, msg string) bool

// Milestone percentages reported at phase boundaries.
const (
	pctExtract  = 10
	pctZoning   = 35
	pctClassify = 55
	pctEnrich   = 70
	pctWrite    = 90
	pctDone     = 100
)

// progressGuard wraps a ProgressFunc so reported percentages never go
// backwards and repeats of the same percentage are rate limited.
type progressGuard struct {
	fn          ProgressFunc
	last        int
	lastAt      time.Time
	minInterval time.Duration
}

func newProgressGuard(fn ProgressFunc) *progressGuard {
	return &progressGuard{fn: fn, last: -1, minInterval: 200 * time.Millisecond}
}

// report forwards the update and reports whether the run should continue.
// A repeat of the current percentage inside the rate window is swallowed
// without calling through.
func (g *progressGuard) report(pct int, msg string) bool {
	if g.fn == nil {
		return true
	}
	if pct < g.last {
		pct = g.last
	}
	if pct == g.last && time.Since(g.lastAt) < g.minInterval {
		return true
	}
	g.last = pct
	g.lastAt = time.Now()
	return g.fn(pct, msg)
}
