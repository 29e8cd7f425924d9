// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine owns the external analysis engine: its process, the UCI
// handshake and options (Session), and single-flight analysis requests
// (Channel).
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/chess-coach/internal/protocol"
	"github.com/pdiddy/chess-coach/pkg/types"
)

// ErrEngineUnavailable reports that the engine could not be constructed or
// never became ready. It is not fatal: analyses degrade to neutral results.
var ErrEngineUnavailable = errors.New("analysis engine unavailable")

// State is the lifecycle state of a Session.
type State int

const (
	StateUninitialized State = iota
	StateHandshakeSent
	StateReady
)

func (s State) String() string {
	switch s {
	case StateHandshakeSent:
		return "handshake-sent"
	case StateReady:
		return "ready"
	}
	return "uninitialized"
}

// Session owns one engine instance. Construction and teardown belong to the
// caller; there is no shared global engine.
type Session struct {
	launch Launcher
	log    zerolog.Logger

	mu       sync.Mutex
	state    State
	started  bool
	ackSeen  bool
	cfg      types.EngineConfig
	proc     Process
	ready    chan struct{}
	done     chan struct{}
	nextID   uint64
	handlers map[uint64]func(protocol.Fragment)
}

// NewSession returns an unstarted session that will apply cfg during the
// handshake.
func NewSession(launch Launcher, cfg types.EngineConfig, log zerolog.Logger) *Session {
	return &Session{
		launch:   launch,
		log:      log,
		cfg:      cfg,
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
		handlers: make(map[uint64]func(protocol.Fragment)),
	}
}

// Start launches the engine and sends the handshake. It is a no-op once
// called. When the engine cannot be constructed the session stays
// Uninitialized and Start returns an error wrapping ErrEngineUnavailable,
// only on this first call.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	var proc Process
	err := ErrEngineUnavailable
	if s.launch != nil {
		proc, err = s.launch(ctx)
	}
	if err == nil && proc == nil {
		err = ErrEngineUnavailable
	}
	if err != nil {
		close(s.done)
		s.log.Warn().Err(err).Msg("analysis engine unavailable, evaluations disabled")
		if errors.Is(err, ErrEngineUnavailable) {
			return err
		}
		return fmt.Errorf("starting engine: %w: %w", ErrEngineUnavailable, err)
	}

	s.mu.Lock()
	s.proc = proc
	s.state = StateHandshakeSent
	s.mu.Unlock()

	go s.dispatch(proc.Lines())
	return s.Send(protocol.CmdHandshake)
}

// WaitReady blocks until the handshake completes, the context ends, or the
// engine turns out to be unavailable.
func (s *Session) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-s.done:
		return ErrEngineUnavailable
	case <-ctx.Done():
		return fmt.Errorf("waiting for engine handshake: %w: %w", ErrEngineUnavailable, ctx.Err())
	}
}

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether the session completed its handshake.
func (s *Session) Ready() bool { return s.State() == StateReady }

// Config returns the options currently applied.
func (s *Session) Config() types.EngineConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Configure applies a new rating and variation count. The commands are
// emitted only when the session is Ready; before that the options are kept
// for the handshake. Configure does not know whether a search is running;
// callers analysing through a Channel use Channel.Configure.
func (s *Session) Configure(cfg types.EngineConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	ready := s.state == StateReady
	s.mu.Unlock()

	if !ready {
		return nil
	}
	for _, cmd := range protocol.ConfigureCommands(cfg) {
		if err := s.Send(cmd); err != nil {
			return err
		}
	}
	return nil
}

// NewGame tells a ready engine that the next positions belong to a new game.
func (s *Session) NewGame() {
	if s.Ready() {
		_ = s.Send(protocol.CmdNewGame)
	}
}

// Send writes one protocol line to the engine.
func (s *Session) Send(line string) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return ErrEngineUnavailable
	}
	s.log.Debug().Str("dir", "out").Str("line", line).Msg("engine")
	if err := proc.Send(line); err != nil {
		s.log.Error().Err(err).Str("line", line).Msg("engine write failed")
		return err
	}
	return nil
}

// Subscribe registers fn for every non-handshake fragment. The returned
// func removes it.
func (s *Session) Subscribe(fn func(protocol.Fragment)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.handlers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.handlers, id)
		s.mu.Unlock()
	}
}

// Listeners returns the number of registered handlers.
func (s *Session) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Close quits the engine and waits for its output to drain.
func (s *Session) Close() error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return nil
	}
	err := proc.Close()
	<-s.done
	return err
}

func (s *Session) dispatch(lines <-chan string) {
	defer close(s.done)
	for line := range lines {
		s.log.Debug().Str("dir", "in").Str("line", line).Msg("engine")
		f := protocol.ParseLine(line)
		if s.handshake(f) {
			continue
		}
		for _, fn := range s.snapshot() {
			fn(f)
		}
	}

	s.mu.Lock()
	s.state = StateUninitialized
	s.mu.Unlock()
	s.log.Info().Msg("engine output closed")
}

// handshake advances HandshakeSent to Ready and reports whether it consumed f.
func (s *Session) handshake(f protocol.Fragment) bool {
	s.mu.Lock()
	if s.state != StateHandshakeSent {
		s.mu.Unlock()
		return false
	}

	switch {
	case f.Kind == protocol.KindHandshakeOK && !s.ackSeen:
		s.ackSeen = true
		cfg := s.cfg
		s.mu.Unlock()
		for _, cmd := range protocol.ConfigureCommands(cfg) {
			_ = s.Send(cmd)
		}
		_ = s.Send(protocol.CmdIsReady)
		return true

	case f.Kind == protocol.KindReadyOK && s.ackSeen:
		s.state = StateReady
		close(s.ready)
		s.mu.Unlock()
		s.log.Info().Int("rating", s.Config().Rating).Msg("engine ready")
		return true
	}

	s.mu.Unlock()
	return false
}

// snapshot copies the handlers in registration order so they can be called
// without holding the lock while dispatch mutates the registry.
func (s *Session) snapshot() []func(protocol.Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uint64, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fns := make([]func(protocol.Fragment), len(ids))
	for i, id := range ids {
		fns[i] = s.handlers[id]
	}
	return fns
}
