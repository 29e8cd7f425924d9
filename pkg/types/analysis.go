// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// MateScore is the saturated centipawn value a mate-in-N score maps to.
// The sign follows the mate direction from the side to move.
const MateScore = 100000

// AnalysisRequest asks for one evaluation of a position. It is immutable
// once issued.
type AnalysisRequest struct {
	// FEN is the position snapshot sent with "position fen".
	FEN string `json:"fen" yaml:"fen"`

	// Limit bounds the search.
	Limit SearchLimit `json:"limit" yaml:"limit"`

	// Legal is the legal-move list of the position, used to resolve
	// coordinate tokens to notated moves.
	Legal []Move `json:"-" yaml:"-"`
}

// PrincipalVariation is one ranked candidate line, reduced to its first move.
type PrincipalVariation struct {
	// Rank is 1-based; within a result ranks are ascending with no holes.
	Rank int `json:"rank" yaml:"rank"`

	// UCI is the coordinate token (e.g. "g1f3").
	UCI string `json:"uci" yaml:"uci"`

	// SAN is the notated move (e.g. "Nf3").
	SAN string `json:"san" yaml:"san"`

	// Score is in centipawns from the side to move.
	Score int `json:"score" yaml:"score"`
}

// AnalysisResult is the settled outcome of one analysis request.
type AnalysisResult struct {
	// BestMove is the coordinate token of the engine's choice; empty when none
	// was observed.
	BestMove string `json:"best_move,omitempty" yaml:"best_move,omitempty"`

	// Score is the last observed evaluation in centipawns from the side to move.
	Score int `json:"score" yaml:"score"`

	// Variations are the ranked lines observed, compacted to remove holes.
	Variations []PrincipalVariation `json:"variations" yaml:"variations"`

	// TimedOut records that the result was produced by the timeout path.
	TimedOut bool `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`

	// Partial records that the search was cut short (timed out, superseded or
	// cancelled) before the engine reported its best move.
	Partial bool `json:"partial,omitempty" yaml:"partial,omitempty"`
}

// IsZero reports whether the result carries no engine data at all.
func (r AnalysisResult) IsZero() bool {
	return r.BestMove == "" && r.Score == 0 && len(r.Variations) == 0
}

// ZeroResult is the neutral result returned when no engine is available.
func ZeroResult() AnalysisResult {
	return AnalysisResult{Variations: []PrincipalVariation{}}
}
