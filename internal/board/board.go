// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package board adapts github.com/notnil/chess to the board-state surface the
// coaching core consumes: snapshots, legal moves, apply and undo. Chess rules
// live entirely in notnil/chess.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// ErrIllegalMove is returned by Apply when the move is not legal in the
// current position.
var ErrIllegalMove = errors.New("illegal move")

var squareByName = func() map[string]chess.Square {
	m := make(map[string]chess.Square, 64)
	for sq := chess.A1; sq <= chess.H8; sq++ {
		m[sq.String()] = sq
	}
	return m
}()

var promoLetter = map[chess.PieceType]string{
	chess.Queen:  "q",
	chess.Rook:   "r",
	chess.Bishop: "b",
	chess.Knight: "n",
}

var pieceKind = map[chess.PieceType]types.PieceKind{
	chess.Pawn:   types.Pawn,
	chess.Knight: types.Knight,
	chess.Bishop: types.Bishop,
	chess.Rook:   types.Rook,
	chess.Queen:  types.Queen,
	chess.King:   types.King,
}

// Board is a game in progress: a stack of positions with the moves that
// produced them.
type Board struct {
	positions []*chess.Position
	played    []types.Move
}

// New returns a board at the standard starting position.
func New() *Board {
	return &Board{positions: []*chess.Position{chess.NewGame().Position()}}
}

// FromFEN returns a board at the given position.
func FromFEN(fen string) (*Board, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parsing FEN %q: %w", fen, err)
	}
	return &Board{positions: []*chess.Position{chess.NewGame(opt).Position()}}, nil
}

func (b *Board) current() *chess.Position {
	return b.positions[len(b.positions)-1]
}

// FEN returns the snapshot of the current position.
func (b *Board) FEN() string { return b.current().String() }

// Turn returns the side to move.
func (b *Board) Turn() types.Color { return colorOf(b.current().Turn()) }

// LegalMoves lists the legal moves of the current position.
func (b *Board) LegalMoves() []types.Move {
	return legalMoves(b.current())
}

// GameOver reports whether the side to move has no legal move.
func (b *Board) GameOver() bool {
	return len(b.current().ValidMoves()) == 0
}

// History returns the notated moves played so far.
func (b *Board) History() []string {
	out := make([]string, len(b.played))
	for i, m := range b.played {
		out[i] = m.SAN
	}
	return out
}

// Ply returns the number of moves played.
func (b *Board) Ply() int { return len(b.played) }

// Resolve finds the legal move named by tok, which may be a coordinate token
// ("g1f3") or a notated move ("Nf3", decorations optional).
func (b *Board) Resolve(tok string) (types.Move, bool) {
	legal := b.LegalMoves()
	lower := strings.ToLower(tok)
	for _, m := range legal {
		if m.UCI == lower {
			return m, true
		}
	}
	want := types.TrimDecorations(tok)
	for _, m := range legal {
		if types.TrimDecorations(m.SAN) == want {
			return m, true
		}
	}
	return types.Move{}, false
}

// Apply plays m, which must be one of LegalMoves.
func (b *Board) Apply(m types.Move) error {
	pos := b.current()
	for _, cm := range pos.ValidMoves() {
		if uciOf(cm) == m.UCI {
			b.positions = append(b.positions, pos.Update(cm))
			b.played = append(b.played, toMove(pos, cm))
			return nil
		}
	}
	return fmt.Errorf("%s in %s: %w", m.UCI, pos.String(), ErrIllegalMove)
}

// Undo takes back the last move. It reports false at the initial position.
func (b *Board) Undo() bool {
	if len(b.played) == 0 {
		return false
	}
	b.positions = b.positions[:len(b.positions)-1]
	b.played = b.played[:len(b.played)-1]
	return true
}

// Clone returns an independent copy. Positions are immutable and shared.
func (b *Board) Clone() *Board {
	return &Board{
		positions: append([]*chess.Position(nil), b.positions...),
		played:    append([]types.Move(nil), b.played...),
	}
}

// ControlCount counts the legal moves side c could make onto square if it
// were c's turn. A piece of c's own standing on the square is swapped for an
// enemy pawn first so that defending moves count as captures.
func (b *Board) ControlCount(square string, c types.Color) int {
	target, ok := squareByName[square]
	if !ok {
		return 0
	}
	pos := b.current()

	sm := make(map[chess.Square]chess.Piece)
	for sq, p := range pos.Board().SquareMap() {
		sm[sq] = p
	}
	if p, ok := sm[target]; ok && colorOf(p.Color()) == c {
		if p.Type() == chess.King {
			return 0
		}
		sm[target] = enemyPawn(c)
	}

	fields := strings.Fields(pos.String())
	if len(fields) < 4 {
		return 0
	}
	fields[0] = chess.NewBoard(sm).String()
	fields[1] = fenColor(c)
	fields[2] = "-"
	fields[3] = "-"

	opt, err := chess.FEN(strings.Join(fields, " "))
	if err != nil {
		return 0
	}
	n := 0
	for _, m := range chess.NewGame(opt).Position().ValidMoves() {
		if m.S2() == target {
			n++
		}
	}
	return n
}

func legalMoves(pos *chess.Position) []types.Move {
	valid := pos.ValidMoves()
	out := make([]types.Move, 0, len(valid))
	for _, m := range valid {
		out = append(out, toMove(pos, m))
	}
	return out
}

func toMove(pos *chess.Position, m *chess.Move) types.Move {
	piece := pos.Board().Piece(m.S1())
	return types.Move{
		UCI:       uciOf(m),
		SAN:       chess.AlgebraicNotation{}.Encode(pos, m),
		From:      m.S1().String(),
		To:        m.S2().String(),
		Promotion: promoLetter[m.Promo()],
		Piece:     pieceKind[piece.Type()],
		Color:     colorOf(pos.Turn()),
		Capture:   m.HasTag(chess.Capture) || m.HasTag(chess.EnPassant),
		Castle:    m.HasTag(chess.KingSideCastle) || m.HasTag(chess.QueenSideCastle),
	}
}

func uciOf(m *chess.Move) string {
	return m.S1().String() + m.S2().String() + promoLetter[m.Promo()]
}

func colorOf(c chess.Color) types.Color {
	if c == chess.Black {
		return types.Black
	}
	return types.White
}

func fenColor(c types.Color) string {
	if c == types.Black {
		return "b"
	}
	return "w"
}

func enemyPawn(c types.Color) chess.Piece {
	if c == types.White {
		return chess.BlackPawn
	}
	return chess.WhitePawn
}
