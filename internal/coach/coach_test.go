// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package coach

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chess-coach/internal/openings"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// fakeAnalyzer returns scripted results in call order, then zero results.
type fakeAnalyzer struct {
	mu       sync.Mutex
	results  []types.AnalysisResult
	requests []types.AnalysisRequest
}

func (f *fakeAnalyzer) Analyze(_ context.Context, req types.AnalysisRequest) types.AnalysisResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.results) == 0 {
		return types.ZeroResult()
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r
}

func (f *fakeAnalyzer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func eval(score int, best string) types.AnalysisResult {
	return types.AnalysisResult{BestMove: best, Score: score, Variations: []types.PrincipalVariation{}}
}

func testMatcher(t *testing.T) *openings.Matcher {
	t.Helper()
	book, err := openings.DefaultBook()
	require.NoError(t, err)
	return openings.NewMatcher(book)
}

func newTestCoach(t *testing.T, a Analyzer, reply bool) *Coach {
	t.Helper()
	return New(a, testMatcher(t), Options{
		Limit: types.SearchLimit{Time: 100},
		Reply: reply,
		Log:   zerolog.Nop(),
	})
}

func TestApplyUserMoveWithReply(t *testing.T) {
	fa := &fakeAnalyzer{results: []types.AnalysisResult{
		eval(30, "e2e4"),  // before e4, white to move
		eval(-25, "e7e5"), // after e4, black to move
	}}
	c := newTestCoach(t, fa, true)

	turn, err := c.ApplyUserMove(context.Background(), "e4")
	require.NoError(t, err)

	assert.Equal(t, types.MoveRecord{
		Ply:   1,
		SAN:   "e4",
		Grade: types.GradeAPlus,
		Loss:  5,
		Note:  "fought for the center",
	}, turn.Record)
	require.NotNil(t, turn.Reply)
	assert.Equal(t, "e5", turn.Reply.SAN)
	require.NotNil(t, turn.Opening)
	assert.Equal(t, "C20", turn.Opening.Code)
	assert.Equal(t, -25, turn.Eval.Score)
	assert.False(t, turn.GameOver)

	require.Len(t, fa.requests, 2)
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", fa.requests[0].FEN)
	assert.Len(t, fa.requests[0].Legal, 20)
	assert.Contains(t, fa.requests[1].FEN, " b ")

	s := c.Snapshot()
	assert.Equal(t, []string{"e4", "e5"}, s.History)
	assert.Equal(t, types.White, s.Turn)
	assert.Len(t, s.Records, 1)
}

func TestApplyUserMoveGrades(t *testing.T) {
	tests := []struct {
		name          string
		before, after int
		wantGrade     types.Grade
		wantLoss      int
	}{
		{"best move", 20, -20, types.GradeAPlus, 0},
		{"improves position", 20, -80, types.GradeAPlus, -60},
		{"inaccuracy", 20, 30, types.GradeB, 50},
		{"mistake", 20, 100, types.GradeD, 120},
		{"blunder", 20, 400, types.GradeF, 420},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAnalyzer{results: []types.AnalysisResult{eval(tt.before, ""), eval(tt.after, "")}}
			c := newTestCoach(t, fa, false)

			turn, err := c.ApplyUserMove(context.Background(), "g1f3")
			require.NoError(t, err)
			assert.Equal(t, "Nf3", turn.Record.SAN)
			assert.Equal(t, tt.wantGrade, turn.Record.Grade)
			assert.Equal(t, tt.wantLoss, turn.Record.Loss)
			assert.Nil(t, turn.Reply)
		})
	}
}

func TestApplyUserMoveIllegal(t *testing.T) {
	fa := &fakeAnalyzer{}
	c := newTestCoach(t, fa, true)
	before := c.Snapshot()

	for _, tok := range []string{"e5", "Ke2", "e2e5", "banana", ""} {
		_, err := c.ApplyUserMove(context.Background(), tok)
		require.ErrorIs(t, err, ErrIllegalMove, tok)
	}

	assert.Equal(t, 0, fa.calls())
	assert.Empty(t, c.Records())
	assert.Equal(t, before, c.Snapshot())
}

func TestApplyUserMoveEngineUnavailable(t *testing.T) {
	c := newTestCoach(t, &fakeAnalyzer{}, true)

	turn, err := c.ApplyUserMove(context.Background(), "d4")
	require.NoError(t, err)
	assert.Equal(t, types.GradeAPlus, turn.Record.Grade)
	assert.Equal(t, 0, turn.Record.Loss)
	assert.Nil(t, turn.Reply, "no reply without a best move")
	assert.Equal(t, []string{"d4"}, c.Snapshot().History)
}

func TestApplyUserMoveNilAnalyzer(t *testing.T) {
	c := New(nil, nil, Options{Reply: true, Log: zerolog.Nop()})
	turn, err := c.ApplyUserMove(context.Background(), "c4")
	require.NoError(t, err)
	assert.Equal(t, "c4", turn.Record.SAN)
	assert.Nil(t, turn.Opening)
}

func TestReplyNotLegalIsSkipped(t *testing.T) {
	fa := &fakeAnalyzer{results: []types.AnalysisResult{eval(0, ""), eval(0, "a1a8")}}
	c := newTestCoach(t, fa, true)

	turn, err := c.ApplyUserMove(context.Background(), "e4")
	require.NoError(t, err)
	assert.Nil(t, turn.Reply)
	assert.Equal(t, types.Black, c.Snapshot().Turn)
}

func TestGameOver(t *testing.T) {
	c := newTestCoach(t, &fakeAnalyzer{}, false)
	ctx := context.Background()

	var turn Turn
	var err error
	for _, mv := range []string{"f3", "e5", "g4", "Qh4#"} {
		turn, err = c.ApplyUserMove(ctx, mv)
		require.NoError(t, err)
	}
	assert.True(t, turn.GameOver)
	assert.Equal(t, "Qh4#", turn.Record.SAN)
	assert.Equal(t, "delivered checkmate", turn.Record.Note)

	_, err = c.ApplyUserMove(ctx, "e4")
	assert.ErrorIs(t, err, ErrGameOver)
	_, err = c.Hint(ctx)
	assert.ErrorIs(t, err, ErrGameOver)
	assert.Len(t, c.Records(), 4)
}

func TestRecordsAppendOnly(t *testing.T) {
	c := newTestCoach(t, &fakeAnalyzer{}, false)
	ctx := context.Background()

	_, err := c.ApplyUserMove(ctx, "e4")
	require.NoError(t, err)
	first := c.Records()
	first[0].Grade = types.GradeF

	_, err = c.ApplyUserMove(ctx, "e5")
	require.NoError(t, err)
	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, types.GradeAPlus, recs[0].Grade)
	assert.Equal(t, 1, recs[0].Ply)
	assert.Equal(t, 2, recs[1].Ply)
}

func TestHint(t *testing.T) {
	fa := &fakeAnalyzer{results: []types.AnalysisResult{eval(35, "e2e4")}}
	c := newTestCoach(t, fa, true)
	before := c.Snapshot()

	res, err := c.Hint(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "e2e4", res.BestMove)
	assert.Equal(t, 35, res.Score)
	assert.Equal(t, before, c.Snapshot())
}

func TestNewGame(t *testing.T) {
	resets := 0
	c := New(&fakeAnalyzer{}, testMatcher(t), Options{
		OnNewGame: func() { resets++ },
		Log:       zerolog.Nop(),
	})
	id := c.GameID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	_, err = c.ApplyUserMove(context.Background(), "e4")
	require.NoError(t, err)
	require.NotNil(t, c.Snapshot().Opening)

	c.NewGame()
	assert.Equal(t, 1, resets)
	assert.NotEqual(t, id, c.GameID())
	s := c.Snapshot()
	assert.Empty(t, s.History)
	assert.Empty(t, s.Records)
	assert.Nil(t, s.Opening)
	assert.False(t, s.GameOver)
}

// fakeTuner validates like a session and records what it was given.
type fakeTuner struct {
	cfg     types.EngineConfig
	applied []types.EngineConfig
}

func (f *fakeTuner) Config() types.EngineConfig { return f.cfg }

func (f *fakeTuner) Configure(cfg types.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	f.cfg = cfg
	f.applied = append(f.applied, cfg)
	return nil
}

func TestConfigure(t *testing.T) {
	ft := &fakeTuner{cfg: types.EngineConfig{Rating: 1500, MultiPV: 3, Limit: types.SearchLimit{Depth: 10}}}
	c := New(&fakeAnalyzer{}, testMatcher(t), Options{Engine: ft, Log: zerolog.Nop()})

	cfg, err := c.Configure(2200, 0)
	require.NoError(t, err)
	assert.Equal(t, 2200, cfg.Rating)
	assert.Equal(t, 3, cfg.MultiPV, "zero keeps the current line count")
	assert.Equal(t, 10, cfg.Limit.Depth)

	cfg, err = c.Configure(0, 5)
	require.NoError(t, err)
	assert.Equal(t, types.EngineConfig{Rating: 2200, MultiPV: 5, Limit: types.SearchLimit{Depth: 10}}, cfg)

	cfg, err = c.Configure(1600, 0)
	require.ErrorIs(t, err, types.ErrUnsupportedRating)
	assert.Equal(t, 2200, cfg.Rating, "a rejected change leaves the options alone")
	assert.Len(t, ft.applied, 2)
}

func TestConfigureWithoutEngine(t *testing.T) {
	c := newTestCoach(t, &fakeAnalyzer{}, false)
	_, err := c.Configure(1800, 0)
	assert.ErrorIs(t, err, ErrNoEngine)
}
