// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/chess-coach/internal/protocol"
)

// lineBuffer is the capacity of the engine output channel.
const lineBuffer = 256

// Process is a running engine reached through its line protocol.
type Process interface {
	// Send writes one command line.
	Send(line string) error

	// Lines delivers engine output lines. It is closed when the engine exits.
	Lines() <-chan string

	// Close asks the engine to quit and releases it.
	Close() error
}

// Launcher constructs the engine process for a session.
type Launcher func(ctx context.Context) (Process, error)

// ExecLauncher returns a Launcher that runs the engine binary at path.
func ExecLauncher(path string, args ...string) Launcher {
	return func(ctx context.Context) (Process, error) {
		return StartProcess(ctx, path, args...)
	}
}

// execProcess drives an engine binary over stdin and stdout.
type execProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	mu     sync.Mutex
	w      *bufio.Writer
	closed bool

	lines chan string
	g     errgroup.Group
}

// StartProcess launches the engine binary and starts reading its output.
func StartProcess(ctx context.Context, path string, args ...string) (Process, error) {
	cmd := exec.CommandContext(ctx, path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening engine stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting engine %s: %w", path, err)
	}

	p := &execProcess{
		cmd:   cmd,
		stdin: stdin,
		w:     bufio.NewWriter(stdin),
		lines: make(chan string, lineBuffer),
	}
	p.g.Go(func() error {
		defer close(p.lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			p.lines <- scanner.Text()
		}
		return scanner.Err()
	})
	return p, nil
}

func (p *execProcess) Send(line string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("engine closed")
	}
	if _, err := p.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("writing %q: %w", line, err)
	}
	return p.w.Flush()
}

func (p *execProcess) Lines() <-chan string { return p.lines }

func (p *execProcess) Close() error {
	_ = p.Send(protocol.CmdQuit)

	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stdin.Close()

	// Output must be fully read before Wait.
	readErr := p.g.Wait()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("waiting for engine: %w", err)
	}
	return readErr
}
