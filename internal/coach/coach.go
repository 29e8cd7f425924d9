// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coach runs the per-move coaching pipeline: evaluate before the
// move, play it, evaluate after, then grade, annotate, recognize the opening
// and optionally answer with the engine's move.
package coach

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/chess-coach/internal/board"
	"github.com/pdiddy/chess-coach/internal/grade"
	"github.com/pdiddy/chess-coach/internal/openings"
	"github.com/pdiddy/chess-coach/pkg/types"
)

var (
	// ErrIllegalMove reports a user move the board does not accept.
	ErrIllegalMove = errors.New("illegal move")

	// ErrGameOver reports a move or hint requested after the game ended.
	ErrGameOver = errors.New("game is over")

	// ErrNoEngine reports a reconfigure on a coach built without an engine.
	ErrNoEngine = errors.New("no engine to configure")
)

// Analyzer evaluates one position. engine.Channel and evalcache.Cached
// satisfy it.
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) types.AnalysisResult
}

// Tuner reads and changes the live engine options. engine.Channel
// satisfies it.
type Tuner interface {
	Config() types.EngineConfig
	Configure(cfg types.EngineConfig) error
}

// Options configures a Coach.
type Options struct {
	Limit types.SearchLimit

	// Reply makes the engine answer each user move.
	Reply bool

	// OnNewGame runs when a new game starts, e.g. to reset engine state.
	OnNewGame func()

	// Engine, when set, lets the player change strength mid-game.
	Engine Tuner

	Log zerolog.Logger
}

// Turn is the outcome of one accepted user move.
type Turn struct {
	Record  types.MoveRecord    `json:"record" yaml:"record"`
	Opening *types.OpeningMatch `json:"opening,omitempty" yaml:"opening,omitempty"`

	// Reply is the engine's answer, when one was played.
	Reply *types.Move `json:"reply,omitempty" yaml:"reply,omitempty"`

	// Eval is the analysis of the position right after the user's move, from
	// the opponent's side.
	Eval types.AnalysisResult `json:"eval" yaml:"eval"`

	GameOver bool `json:"game_over" yaml:"game_over"`
}

// State is a read-only snapshot of the game for display.
type State struct {
	GameID   string              `json:"game_id" yaml:"game_id"`
	FEN      string              `json:"fen" yaml:"fen"`
	Turn     types.Color         `json:"turn" yaml:"turn"`
	History  []string            `json:"history" yaml:"history"`
	Records  []types.MoveRecord  `json:"records" yaml:"records"`
	Opening  *types.OpeningMatch `json:"opening,omitempty" yaml:"opening,omitempty"`
	GameOver bool                `json:"game_over" yaml:"game_over"`
}

// Coach owns one game. Calls are serialized; the move record log is only
// ever appended to.
type Coach struct {
	analyzer Analyzer
	matcher  *openings.Matcher
	opts     Options

	mu      sync.Mutex
	id      uuid.UUID
	board   *board.Board
	records []types.MoveRecord
	opening *types.OpeningMatch
}

// New returns a coach at the initial position. matcher may be nil to skip
// opening recognition.
func New(analyzer Analyzer, matcher *openings.Matcher, opts Options) *Coach {
	c := &Coach{analyzer: analyzer, matcher: matcher, opts: opts}
	c.reset()
	return c
}

func (c *Coach) reset() {
	c.id = uuid.New()
	c.board = board.New()
	c.records = nil
	c.opening = nil
}

// NewGame discards the current game and starts from the initial position.
func (c *Coach) NewGame() {
	c.mu.Lock()
	c.reset()
	id := c.id
	c.mu.Unlock()

	if c.opts.OnNewGame != nil {
		c.opts.OnNewGame()
	}
	c.opts.Log.Info().Str("game", id.String()).Msg("new game")
}

// ApplyUserMove evaluates and plays tok, a coordinate or notated move.
// An illegal move returns ErrIllegalMove and changes nothing.
func (c *Coach) ApplyUserMove(ctx context.Context, tok string) (Turn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.board.GameOver() {
		return Turn{}, ErrGameOver
	}
	move, ok := c.board.Resolve(tok)
	if !ok {
		return Turn{}, fmt.Errorf("%q: %w", tok, ErrIllegalMove)
	}

	before := c.analyze(ctx, c.board)
	next := c.board.Clone()
	if err := next.Apply(move); err != nil {
		return Turn{}, fmt.Errorf("%q: %w: %w", tok, ErrIllegalMove, err)
	}
	after := c.analyze(ctx, next)

	loss := grade.Loss(before, after)
	rec := types.MoveRecord{
		Ply:   next.Ply(),
		SAN:   move.SAN,
		Grade: grade.FromLoss(loss),
		Loss:  loss,
		Note:  grade.Note(grade.Context{Move: move, After: next}),
	}

	c.board = next
	c.records = append(c.records, rec)
	c.opts.Log.Debug().
		Str("game", c.id.String()).
		Int("ply", rec.Ply).
		Str("move", rec.SAN).
		Str("grade", string(rec.Grade)).
		Int("loss", loss).
		Msg("graded move")

	turn := Turn{Record: rec, Eval: after}
	if c.opts.Reply && !c.board.GameOver() {
		turn.Reply = c.reply(after)
	}
	c.opening = c.match()
	turn.Opening = c.opening
	turn.GameOver = c.board.GameOver()
	return turn, nil
}

// reply plays the engine's best move from the post-move analysis.
func (c *Coach) reply(after types.AnalysisResult) *types.Move {
	if after.BestMove == "" {
		return nil
	}
	m, ok := c.board.Resolve(after.BestMove)
	if !ok {
		c.opts.Log.Warn().Str("move", after.BestMove).Str("fen", c.board.FEN()).Msg("engine reply not legal, skipped")
		return nil
	}
	if err := c.board.Apply(m); err != nil {
		c.opts.Log.Warn().Err(err).Msg("engine reply rejected")
		return nil
	}
	return &m
}

// Configure sets the engine's rating and number of reported lines. A zero
// argument keeps the current value. The game itself is unchanged.
func (c *Coach) Configure(rating, multiPV int) (types.EngineConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opts.Engine == nil {
		return types.EngineConfig{}, ErrNoEngine
	}

	cfg := c.opts.Engine.Config()
	if rating != 0 {
		cfg.Rating = rating
	}
	if multiPV != 0 {
		cfg.MultiPV = multiPV
	}
	if err := c.opts.Engine.Configure(cfg); err != nil {
		return c.opts.Engine.Config(), err
	}
	c.opts.Log.Info().Str("game", c.id.String()).Int("rating", cfg.Rating).Int("multipv", cfg.MultiPV).Msg("engine options changed")
	return cfg, nil
}

// Hint analyses the current position without changing the game.
func (c *Coach) Hint(ctx context.Context) (types.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.board.GameOver() {
		return types.AnalysisResult{}, ErrGameOver
	}
	return c.analyze(ctx, c.board), nil
}

// Records returns a copy of the move record log.
func (c *Coach) Records() []types.MoveRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.MoveRecord(nil), c.records...)
}

// GameID returns the id of the current game.
func (c *Coach) GameID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id.String()
}

// Snapshot returns the current game state.
func (c *Coach) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		GameID:   c.id.String(),
		FEN:      c.board.FEN(),
		Turn:     c.board.Turn(),
		History:  c.board.History(),
		Records:  append([]types.MoveRecord(nil), c.records...),
		Opening:  c.opening,
		GameOver: c.board.GameOver(),
	}
}

func (c *Coach) analyze(ctx context.Context, b *board.Board) types.AnalysisResult {
	if c.analyzer == nil {
		return types.ZeroResult()
	}
	return c.analyzer.Analyze(ctx, types.AnalysisRequest{
		FEN:   b.FEN(),
		Limit: c.opts.Limit,
		Legal: b.LegalMoves(),
	})
}

func (c *Coach) match() *types.OpeningMatch {
	if c.matcher == nil {
		return nil
	}
	return c.matcher.Match(c.board.History())
}
