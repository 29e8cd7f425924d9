// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/chess-coach/internal/protocol"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// Engine is the part of a Session the Channel drives.
type Engine interface {
	Ready() bool
	Send(line string) error
	Subscribe(fn func(protocol.Fragment)) (cancel func())
	Config() types.EngineConfig
	Configure(cfg types.EngineConfig) error
}

// resolution names the path that settled a request.
type resolution string

const (
	resolvedBestMove   resolution = "bestmove"
	resolvedTimeout    resolution = "timeout"
	resolvedSuperseded resolution = "superseded"
	resolvedCancelled  resolution = "cancelled"
)

// Channel serializes analysis requests over one engine. At most one request
// listens to engine output at a time; the protocol carries no request id,
// so isolation comes from detaching the previous listener before a new
// search starts.
type Channel struct {
	engine Engine
	timing types.TimingConfig
	log    zerolog.Logger

	mu        sync.Mutex
	pending   *request
	searching atomic.Bool
}

// NewChannel returns a channel over engine using timing for its timeouts.
func NewChannel(engine Engine, timing types.TimingConfig, log zerolog.Logger) *Channel {
	return &Channel{engine: engine, timing: timing, log: log}
}

// Analyze runs one search and returns its settled result. It never fails:
// without a ready engine it returns types.ZeroResult at once; on timeout,
// supersession or context cancellation it returns the partial data
// observed so far.
func (c *Channel) Analyze(ctx context.Context, req types.AnalysisRequest) types.AnalysisResult {
	if !c.engine.Ready() {
		return types.ZeroResult()
	}

	r := c.issue(req)

	timer := time.NewTimer(c.Timeout(req.Limit))
	defer timer.Stop()

	select {
	case res := <-r.done:
		return res
	case <-timer.C:
		if r.resolve(resolvedTimeout) {
			c.log.Info().Str("fen", req.FEN).Str("limit", req.Limit.String()).Msg("analysis timed out, using partial result")
		}
	case <-ctx.Done():
		r.resolve(resolvedCancelled)
	}
	return <-r.done
}

// Timeout returns how long a search with limit may run before it is forced
// to resolve.
func (c *Channel) Timeout(limit types.SearchLimit) time.Duration {
	if limit.IsDepth() {
		return c.timing.DepthBudget + c.timing.Grace
	}
	return limit.Time + c.timing.Grace
}

// Config returns the engine options currently applied.
func (c *Channel) Config() types.EngineConfig { return c.engine.Config() }

// Configure changes the engine options between searches. Options must not
// change while the engine searches, so a pending request is superseded and
// a running search stopped before the new options are sent. The next
// request then waits behind the usual readyok barrier.
func (c *Channel) Configure(cfg types.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != nil && c.pending.resolve(resolvedSuperseded) {
		c.log.Info().Str("fen", c.pending.fen).Msg("analysis superseded by reconfigure")
	}
	if c.searching.Load() {
		if err := c.engine.Send(protocol.CmdStop); err != nil {
			return err
		}
	}
	if err := c.engine.Configure(cfg); err != nil {
		return err
	}
	c.log.Info().Int("rating", cfg.Rating).Int("multipv", cfg.MultiPV).Msg("engine reconfigured")
	return nil
}

// issue supersedes any pending request and starts the search for req.
func (c *Channel) issue(req types.AnalysisRequest) *request {
	c.mu.Lock()
	defer c.mu.Unlock()

	barrier := false
	if c.pending != nil && c.pending.resolve(resolvedSuperseded) {
		c.log.Info().Str("fen", c.pending.fen).Msg("analysis superseded")
		barrier = true
	}
	// Read after resolving so a bestmove that just settled the previous
	// request is accounted for.
	if c.searching.Load() {
		barrier = true
	}

	r := newRequest(req, c.engine.Config().MultiPV, !barrier, &c.searching)
	c.pending = r
	c.searching.Store(true)
	r.attach(c.engine.Subscribe(r.observe))

	_ = c.engine.Send(protocol.CmdStop)
	if barrier {
		// The aborted search answers stop with its own bestmove; readyok marks
		// the end of that output.
		_ = c.engine.Send(protocol.CmdIsReady)
	}
	_ = c.engine.Send(protocol.Position(req.FEN))
	_ = c.engine.Send(protocol.Go(req.Limit))
	return r
}

// request is one in-flight analysis. It resolves exactly once; every path
// goes through resolve, which checks and sets the resolved flag under mu.
type request struct {
	fen       string
	searching *atomic.Bool
	done      chan types.AnalysisResult

	mu        sync.Mutex
	collector *protocol.Collector
	armed     bool
	resolved  bool
	detach    func()
}

func newRequest(req types.AnalysisRequest, multiPV int, armed bool, searching *atomic.Bool) *request {
	return &request{
		fen:       req.FEN,
		searching: searching,
		done:      make(chan types.AnalysisResult, 1),
		collector: protocol.NewCollector(req.Legal, multiPV),
		armed:     armed,
	}
}

// attach records the listener's cancel func, calling it at once if the
// request already resolved.
func (r *request) attach(detach func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		detach()
		return
	}
	r.detach = detach
}

func (r *request) observe(f protocol.Fragment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return
	}
	if !r.armed {
		r.armed = f.Kind == protocol.KindReadyOK
		return
	}
	if r.collector.Observe(f) {
		r.searching.Store(false)
		r.settleLocked(resolvedBestMove)
	}
}

// resolve settles the request with its partial data. It reports false when
// the request had already resolved.
func (r *request) resolve(why resolution) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.resolved {
		return false
	}
	r.settleLocked(why)
	return true
}

func (r *request) settleLocked(why resolution) {
	r.resolved = true
	if r.detach != nil {
		r.detach()
	}
	res := r.collector.Result()
	res.TimedOut = why == resolvedTimeout
	res.Partial = why != resolvedBestMove
	r.done <- res
}
