// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// fakeProcess is a scripted engine. Replies to a command are pushed onto
// the output channel while Send holds the lock, so they are ordered after
// the command that caused them.
type fakeProcess struct {
	mu     sync.Mutex
	sent   []string
	lines  chan string
	closed bool

	// silent disables the built-in uci and isready replies.
	silent bool
	// goScripts are consumed one per "go" command.
	goScripts [][]string
	// onStop is emitted when "stop" arrives.
	onStop []string
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{lines: make(chan string, lineBuffer)}
}

func (f *fakeProcess) Send(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.sent = append(f.sent, line)

	var replies []string
	switch {
	case line == "uci" && !f.silent:
		replies = []string{"id name Fake 1.0", "id author Test", "uciok"}
	case line == "isready" && !f.silent:
		replies = []string{"readyok"}
	case line == "stop":
		replies = f.onStop
		f.onStop = nil
	case strings.HasPrefix(line, "go ") && len(f.goScripts) > 0:
		replies = f.goScripts[0]
		f.goScripts = f.goScripts[1:]
	}
	for _, r := range replies {
		f.lines <- r
	}
	return nil
}

func (f *fakeProcess) Lines() <-chan string { return f.lines }

func (f *fakeProcess) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.lines)
	}
	return nil
}

// emit injects engine output as if the engine wrote it unprompted.
func (f *fakeProcess) emit(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range lines {
		f.lines <- l
	}
}

func (f *fakeProcess) script(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goScripts = append(f.goScripts, lines)
}

func (f *fakeProcess) stopReply(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onStop = lines
}

func (f *fakeProcess) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeProcess) count(prefix string) int {
	n := 0
	for _, s := range f.Sent() {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func testEngineConfig() types.EngineConfig {
	return types.EngineConfig{
		Rating:  1500,
		MultiPV: 2,
		Limit:   types.SearchLimit{Time: 10 * time.Millisecond},
	}
}

func testTiming() types.TimingConfig {
	return types.TimingConfig{
		Grace:       50 * time.Millisecond,
		Handshake:   time.Second,
		DepthBudget: 50 * time.Millisecond,
	}
}

func launcherFor(p Process) Launcher {
	return func(context.Context) (Process, error) { return p, nil }
}

// readySession starts a session over fp and waits for the handshake.
func readySession(t *testing.T, fp *fakeProcess) *Session {
	t.Helper()
	s := NewSession(launcherFor(fp), testEngineConfig(), zerolog.Nop())
	require.NoError(t, s.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.WaitReady(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}
