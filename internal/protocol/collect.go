// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package protocol

import (
	"sort"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// Collector accumulates the fragments of one analysis. It keeps the latest
// variation per declared rank, since ranks arrive out of order and are
// refreshed as the search deepens.
type Collector struct {
	legal   []types.Move
	maxRank int

	byRank   map[int]types.PrincipalVariation
	score    int
	rankOne  bool
	best     string
	terminal bool
}

// NewCollector returns a collector resolving tokens against legal and
// tracking at most maxRank lines (maxRank < 1 means one line).
func NewCollector(legal []types.Move, maxRank int) *Collector {
	if maxRank < 1 {
		maxRank = 1
	}
	return &Collector{
		legal:   legal,
		maxRank: maxRank,
		byRank:  make(map[int]types.PrincipalVariation),
	}
}

// Observe folds one fragment in and reports whether it was the terminal
// bestmove line.
func (c *Collector) Observe(f Fragment) bool {
	switch f.Kind {
	case KindBestMove:
		// An unresolvable token is dropped like any other; the line still
		// ends the search.
		if m, ok := Resolve(f.BestMove, c.legal); ok {
			c.best = m.UCI
		}
		c.terminal = true
		return true
	case KindInfo:
		c.observeInfo(f)
	}
	return false
}

func (c *Collector) observeInfo(f Fragment) {
	if f.HasScore {
		// The headline score follows rank 1 once rank 1 has been seen.
		if f.Rank <= 1 {
			c.score = f.Score
			c.rankOne = true
		} else if !c.rankOne {
			c.score = f.Score
		}
	}

	if f.PVMove == "" || f.Rank > c.maxRank {
		return
	}
	m, ok := Resolve(f.PVMove, c.legal)
	if !ok {
		return
	}
	pv := types.PrincipalVariation{Rank: f.Rank, UCI: m.UCI, SAN: m.SAN}
	if f.HasScore {
		pv.Score = f.Score
	} else if prev, ok := c.byRank[f.Rank]; ok {
		pv.Score = prev.Score
	}
	c.byRank[f.Rank] = pv
}

// Terminal reports whether a bestmove line was observed.
func (c *Collector) Terminal() bool { return c.terminal }

// Result returns what has been observed so far. Variations are ordered by
// ascending rank with unfilled ranks dropped.
func (c *Collector) Result() types.AnalysisResult {
	ranks := make([]int, 0, len(c.byRank))
	for r := range c.byRank {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	pvs := make([]types.PrincipalVariation, 0, len(ranks))
	for _, r := range ranks {
		pvs = append(pvs, c.byRank[r])
	}
	return types.AnalysisResult{
		BestMove:   c.best,
		Score:      c.score,
		Variations: pvs,
	}
}
