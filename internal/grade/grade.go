// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package grade turns an evaluation swing into a letter grade and builds a
// short rationale for the move from an ordered rule table.
package grade

import (
	"strings"

	"github.com/pdiddy/chess-coach/internal/board"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// bucket is an inclusive upper bound on centipawn loss.
type bucket struct {
	maxLoss int
	grade   types.Grade
}

// Buckets in ascending order. Boundaries belong to the better grade.
var buckets = []bucket{
	{10, types.GradeAPlus},
	{20, types.GradeA},
	{50, types.GradeB},
	{90, types.GradeC},
	{150, types.GradeD},
}

// FromLoss grades a centipawn loss. A negative loss, meaning the move
// improved the mover's evaluation, grades as no loss.
func FromLoss(loss int) types.Grade {
	for _, b := range buckets {
		if loss <= b.maxLoss {
			return b.grade
		}
	}
	return types.GradeF
}

// Loss returns the centipawn loss of a move given the side-to-move scores
// before and after it. The after score belongs to the opponent, so it is
// negated to the mover's view: loss = before - (-after).
func Loss(before, after types.AnalysisResult) int {
	return before.Score + after.Score
}

// Fallback is the note for a move no rule describes.
const Fallback = "made a quiet move"

// Context is what the rules see: the move as listed in the position before
// it was played, and the board after it.
type Context struct {
	Move  types.Move
	After *board.Board
}

// Rule maps a predicate on the move to a phrase.
type Rule struct {
	Name    string
	Phrase  string
	Applies func(Context) bool
}

var centre = map[string]bool{"d4": true, "e4": true, "d5": true, "e5": true}

// Rules are evaluated in order; every matching phrase is used.
var Rules = []Rule{
	{"capture", "captured material", func(c Context) bool { return c.Move.Capture }},
	{"check", "gave check", func(c Context) bool { return c.Move.IsCheck() }},
	{"mate", "delivered checkmate", func(c Context) bool { return c.Move.IsMate() }},
	{"centre", "fought for the center", func(c Context) bool { return centre[c.Move.To] }},
	{"minor", "developed a minor piece", func(c Context) bool { return c.Move.Piece.IsMinor() }},
	{"castle", "castled to safety", func(c Context) bool { return c.Move.Castle }},
	{"underdefended", "piece is under-defended", underDefended},
}

// underDefended compares the opponent's moves onto the destination with the
// mover's own moves defending it, both in the position after the move.
func underDefended(c Context) bool {
	if c.After == nil {
		return false
	}
	attackers := c.After.ControlCount(c.Move.To, c.Move.Color.Other())
	defenders := c.After.ControlCount(c.Move.To, c.Move.Color)
	return attackers > defenders
}

// Phrases returns the phrases of every rule matching c, in rule order.
func Phrases(c Context) []string {
	var out []string
	for _, r := range Rules {
		if r.Applies(c) {
			out = append(out, r.Phrase)
		}
	}
	return out
}

// Note joins the matching phrases into one sentence-like note, or returns
// Fallback when none match.
func Note(c Context) string {
	p := Phrases(c)
	if len(p) == 0 {
		return Fallback
	}
	return strings.Join(p, ", ")
}
