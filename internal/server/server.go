// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the coaching pipeline to a UI over WebSocket.
// Each connection owns one game and one engine session; its messages are
// handled in arrival order.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/chess-coach/internal/coach"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// Message types.
const (
	TypeNew       = "new"
	TypeMove      = "move"
	TypeHint      = "hint"
	TypeConfigure = "configure"
	TypeState     = "state"
	TypeError     = "error"
)

// shutdownTimeout bounds graceful shutdown.
var shutdownTimeout = 5 * time.Second

// Request is a message from the UI.
type Request struct {
	Type string `json:"type"`
	Move string `json:"move,omitempty"`

	// Rating and MultiPV change the engine options on a configure message;
	// zero keeps the current value.
	Rating  int `json:"rating,omitempty"`
	MultiPV int `json:"multipv,omitempty"`
}

// Response is a message to the UI.
type Response struct {
	Type    string                `json:"type"`
	Error   string                `json:"error,omitempty"`
	Record  *types.MoveRecord     `json:"record,omitempty"`
	Opening *types.OpeningMatch   `json:"opening,omitempty"`
	Reply   *types.Move           `json:"reply,omitempty"`
	Eval    *types.AnalysisResult `json:"eval,omitempty"`
	State   *coach.State          `json:"state,omitempty"`
	Engine  *types.EngineConfig   `json:"engine,omitempty"`
}

// CoachFactory builds the coach for one connection. release is called when
// the connection ends.
type CoachFactory func(ctx context.Context) (c *coach.Coach, release func(), err error)

// Server routes /ws and /healthz.
type Server struct {
	factory  CoachFactory
	log      zerolog.Logger
	upgrader websocket.Upgrader
	router   *mux.Router
}

// New returns a server building one coach per connection with factory.
func New(factory CoachFactory, log zerolog.Logger) *Server {
	s := &Server{
		factory: factory,
		log:     log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		router: mux.NewRouter(),
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleConnection)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx ends.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("serving")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c, release, err := s.factory(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("creating coach")
		_ = ws.WriteJSON(Response{Type: TypeError, Error: err.Error()})
		return
	}
	defer release()

	log := s.log.With().Str("game", c.GameID()).Logger()
	log.Info().Str("remote", r.RemoteAddr).Msg("client connected")

	if err := ws.WriteJSON(stateResponse(c)); err != nil {
		return
	}
	for {
		var req Request
		if err := ws.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Debug().Err(err).Msg("read failed")
			}
			log.Info().Msg("client disconnected")
			return
		}
		if err := ws.WriteJSON(s.handle(ctx, c, req)); err != nil {
			log.Debug().Err(err).Msg("write failed")
			return
		}
	}
}

// handle processes one request against c.
func (s *Server) handle(ctx context.Context, c *coach.Coach, req Request) Response {
	switch req.Type {
	case TypeNew:
		c.NewGame()
		return stateResponse(c)

	case TypeMove:
		turn, err := c.ApplyUserMove(ctx, req.Move)
		if err != nil {
			return Response{Type: TypeError, Error: err.Error()}
		}
		resp := stateResponse(c)
		resp.Record = &turn.Record
		resp.Opening = turn.Opening
		resp.Reply = turn.Reply
		resp.Eval = &turn.Eval
		return resp

	case TypeHint:
		res, err := c.Hint(ctx)
		if err != nil {
			return Response{Type: TypeError, Error: err.Error()}
		}
		return Response{Type: TypeHint, Eval: &res}

	case TypeConfigure:
		cfg, err := c.Configure(req.Rating, req.MultiPV)
		if err != nil {
			return Response{Type: TypeError, Error: err.Error()}
		}
		return Response{Type: TypeConfigure, Engine: &cfg}
	}
	return Response{Type: TypeError, Error: fmt.Sprintf("unknown message type %q", req.Type)}
}

func stateResponse(c *coach.Coach) Response {
	st := c.Snapshot()
	return Response{Type: TypeState, Opening: st.Opening, State: &st}
}
