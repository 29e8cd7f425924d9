// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chess-coach/internal/coach"
	"github.com/pdiddy/chess-coach/internal/engine"
	"github.com/pdiddy/chess-coach/internal/openings"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// scriptedAnalyzer answers every position with the same best move when it
// is legal there, and a neutral result otherwise.
type scriptedAnalyzer struct{ best string }

func (a scriptedAnalyzer) Analyze(_ context.Context, req types.AnalysisRequest) types.AnalysisResult {
	for _, m := range req.Legal {
		if m.UCI == a.best {
			return types.AnalysisResult{
				BestMove:   m.UCI,
				Score:      15,
				Variations: []types.PrincipalVariation{{Rank: 1, UCI: m.UCI, SAN: m.SAN, Score: 15}},
			}
		}
	}
	return types.ZeroResult()
}

func testServer(t *testing.T, released *atomic.Int32) *httptest.Server {
	t.Helper()
	book, err := openings.DefaultBook()
	require.NoError(t, err)
	matcher := openings.NewMatcher(book)

	factory := func(context.Context) (*coach.Coach, func(), error) {
		c := coach.New(scriptedAnalyzer{best: "e7e5"}, matcher, coach.Options{
			Limit: types.SearchLimit{Time: time.Millisecond},
			Reply: true,
			Log:   zerolog.Nop(),
		})
		return c, func() { released.Add(1) }, nil
	}
	ts := httptest.NewServer(New(factory, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req Request) Response {
	t.Helper()
	require.NoError(t, conn.WriteJSON(req))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestHealthz(t *testing.T) {
	var released atomic.Int32
	ts := testServer(t, &released)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSessionFlow(t *testing.T) {
	var released atomic.Int32
	ts := testServer(t, &released)
	conn := dial(t, ts)

	var hello Response
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, TypeState, hello.Type)
	require.NotNil(t, hello.State)
	assert.NotEmpty(t, hello.State.GameID)
	assert.Empty(t, hello.State.History)

	resp := roundTrip(t, conn, Request{Type: TypeMove, Move: "e4"})
	assert.Equal(t, TypeState, resp.Type)
	require.NotNil(t, resp.Record)
	assert.Equal(t, "e4", resp.Record.SAN)
	require.NotNil(t, resp.Reply)
	assert.Equal(t, "e5", resp.Reply.SAN)
	require.NotNil(t, resp.Opening)
	assert.Equal(t, "C20", resp.Opening.Code)
	require.NotNil(t, resp.State)
	assert.Equal(t, []string{"e4", "e5"}, resp.State.History)

	resp = roundTrip(t, conn, Request{Type: TypeMove, Move: "e5"})
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Error, "illegal move")

	resp = roundTrip(t, conn, Request{Type: TypeHint})
	assert.Equal(t, TypeHint, resp.Type)
	require.NotNil(t, resp.Eval)

	resp = roundTrip(t, conn, Request{Type: TypeNew})
	assert.Equal(t, TypeState, resp.Type)
	assert.NotEqual(t, hello.State.GameID, resp.State.GameID)
	assert.Empty(t, resp.State.History)

	resp = roundTrip(t, conn, Request{Type: "resign"})
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Error, "resign")

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return released.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestConnectionsAreIndependent(t *testing.T) {
	var released atomic.Int32
	ts := testServer(t, &released)
	a, b := dial(t, ts), dial(t, ts)

	var helloA, helloB Response
	require.NoError(t, a.ReadJSON(&helloA))
	require.NoError(t, b.ReadJSON(&helloB))
	assert.NotEqual(t, helloA.State.GameID, helloB.State.GameID)

	roundTrip(t, a, Request{Type: TypeMove, Move: "d4"})
	resp := roundTrip(t, b, Request{Type: TypeMove, Move: "c4"})
	assert.Equal(t, []string{"c4"}, resp.State.History)
}

// recordingProcess answers the UCI handshake and records every command.
type recordingProcess struct {
	mu     sync.Mutex
	sent   []string
	lines  chan string
	closed bool
}

func newRecordingProcess() *recordingProcess {
	return &recordingProcess{lines: make(chan string, 16)}
}

func (p *recordingProcess) Send(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.sent = append(p.sent, line)
	switch line {
	case "uci":
		p.lines <- "uciok"
	case "isready":
		p.lines <- "readyok"
	}
	return nil
}

func (p *recordingProcess) Lines() <-chan string { return p.lines }

func (p *recordingProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.lines)
	}
	return nil
}

func (p *recordingProcess) Sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent...)
}

func TestConfigureMessage(t *testing.T) {
	proc := newRecordingProcess()
	factory := func(ctx context.Context) (*coach.Coach, func(), error) {
		d := types.DefaultCoachConfig()
		sess := engine.NewSession(func(context.Context) (engine.Process, error) { return proc, nil }, d.Engine, zerolog.Nop())
		if err := sess.Start(ctx); err != nil {
			return nil, nil, err
		}
		wctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := sess.WaitReady(wctx); err != nil {
			return nil, nil, err
		}
		ch := engine.NewChannel(sess, d.Timing, zerolog.Nop())
		c := coach.New(nil, nil, coach.Options{Engine: ch, Log: zerolog.Nop()})
		return c, func() { sess.Close() }, nil
	}
	ts := httptest.NewServer(New(factory, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	conn := dial(t, ts)

	var hello Response
	require.NoError(t, conn.ReadJSON(&hello))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"configure","rating":2000,"multipv":2}`)))
	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, TypeConfigure, resp.Type)
	require.NotNil(t, resp.Engine)
	assert.Equal(t, 2000, resp.Engine.Rating)
	assert.Equal(t, 2, resp.Engine.MultiPV)
	assert.Contains(t, proc.Sent(), "setoption name UCI_Elo value 2000")
	assert.Contains(t, proc.Sent(), "setoption name MultiPV value 2")

	resp = roundTrip(t, conn, Request{Type: TypeConfigure, Rating: 1234})
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Error, "unsupported rating preset")
	assert.NotContains(t, proc.Sent(), "setoption name UCI_Elo value 1234")
}

func TestConfigureWithoutEngine(t *testing.T) {
	var released atomic.Int32
	ts := testServer(t, &released)
	conn := dial(t, ts)

	var hello Response
	require.NoError(t, conn.ReadJSON(&hello))
	resp := roundTrip(t, conn, Request{Type: TypeConfigure, Rating: 1800})
	assert.Equal(t, TypeError, resp.Type)
	assert.Contains(t, resp.Error, "no engine to configure")
}

func TestFactoryError(t *testing.T) {
	factory := func(context.Context) (*coach.Coach, func(), error) {
		return nil, nil, errors.New("no engine slots")
	}
	ts := httptest.NewServer(New(factory, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	conn := dial(t, ts)

	var resp Response
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, TypeError, resp.Type)
	assert.Equal(t, "no engine slots", resp.Error)
}

func TestServeStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(nil, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
