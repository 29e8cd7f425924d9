// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package openings

import (
	"github.com/pdiddy/chess-coach/internal/board"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// line is a book entry replayed into notated moves.
type line struct {
	entry types.OpeningEntry
	san   []string
}

// Matcher recognizes openings from a fixed book. It is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	lines    []line
	rejected []types.OpeningEntry
}

// NewMatcher replays every book entry from the initial position. An entry
// with a token that does not resolve to a legal move is rejected as a
// whole and never matches.
func NewMatcher(book []types.OpeningEntry) *Matcher {
	m := &Matcher{}
	for _, e := range book {
		san, ok := replay(e.Moves)
		if !ok {
			m.rejected = append(m.rejected, e)
			continue
		}
		m.lines = append(m.lines, line{entry: e, san: san})
	}
	return m
}

// Rejected returns the entries whose moves could not be replayed.
func (m *Matcher) Rejected() []types.OpeningEntry {
	return append([]types.OpeningEntry(nil), m.rejected...)
}

// Size returns the number of playable entries.
func (m *Matcher) Size() int { return len(m.lines) }

// Match returns the book line sharing the longest prefix with history, or
// nil if none does. History moves are in notated form. Each line is
// compared only up to the shorter of the two sequences; on equal matched
// length the earlier book entry wins.
func (m *Matcher) Match(history []string) *types.OpeningMatch {
	var best *types.OpeningMatch
	for _, l := range m.lines {
		n := min(len(l.san), len(history))
		if n == 0 || !samePrefix(l.san, history, n) {
			continue
		}
		if best == nil || n > best.Matched {
			best = &types.OpeningMatch{Code: l.entry.Code, Name: l.entry.Name, Matched: n}
		}
	}
	return best
}

func replay(tokens []string) ([]string, bool) {
	b := board.New()
	san := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		mv, ok := b.Resolve(tok)
		if !ok {
			return nil, false
		}
		if err := b.Apply(mv); err != nil {
			return nil, false
		}
		san = append(san, mv.SAN)
	}
	return san, true
}

func samePrefix(book, history []string, n int) bool {
	for i := 0; i < n; i++ {
		if types.TrimDecorations(book[i]) != types.TrimDecorations(history[i]) {
			return false
		}
	}
	return true
}
