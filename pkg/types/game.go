// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Color is the side to move.
type Color int

const (
	White Color = iota
	Black
)

// Other returns the opposing color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceKind identifies the kind of the moved piece.
type PieceKind int

const (
	NoPiece PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// IsMinor reports whether the piece is a knight or a bishop.
func (k PieceKind) IsMinor() bool { return k == Knight || k == Bishop }

// Move is one legal move as reported by the board-state collaborator. All
// fields describe the position before the move is played.
type Move struct {
	UCI       string    `json:"uci" yaml:"uci"`
	SAN       string    `json:"san" yaml:"san"`
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	Promotion string    `json:"promotion,omitempty" yaml:"promotion,omitempty"`
	Piece     PieceKind `json:"piece" yaml:"piece"`
	Color     Color     `json:"color" yaml:"color"`
	Capture   bool      `json:"capture,omitempty" yaml:"capture,omitempty"`
	Castle    bool      `json:"castle,omitempty" yaml:"castle,omitempty"`
}

// IsCheck reports whether the notated move carries a check decoration.
func (m Move) IsCheck() bool { return strings.HasSuffix(m.SAN, "+") }

// IsMate reports whether the notated move carries a mate decoration.
func (m Move) IsMate() bool { return strings.HasSuffix(m.SAN, "#") }

// TrimDecorations strips trailing check and mate marks from a notated move.
func TrimDecorations(san string) string {
	return strings.TrimRight(san, "+#")
}

// Grade is the letter grade of a user move.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeF     Grade = "F"
)

// MoveRecord is the coaching verdict on one accepted user move. Records are
// appended once and never modified.
type MoveRecord struct {
	Ply   int    `json:"ply" yaml:"ply"`
	SAN   string `json:"san" yaml:"san"`
	Grade Grade  `json:"grade" yaml:"grade"`

	// Loss is the centipawn loss, positive when the move worsened the mover's
	// position.
	Loss int    `json:"loss" yaml:"loss"`
	Note string `json:"note" yaml:"note"`
}

// OpeningEntry is one static book line.
type OpeningEntry struct {
	Code  string   `json:"code" yaml:"code"`
	Name  string   `json:"name" yaml:"name"`
	Moves []string `json:"moves" yaml:"moves"`
}

// OpeningMatch is the book line recognized in a game.
type OpeningMatch struct {
	Code    string `json:"code" yaml:"code"`
	Name    string `json:"name" yaml:"name"`
	Matched int    `json:"matched" yaml:"matched"`
}
