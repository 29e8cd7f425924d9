// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"fmt"
	"os/exec"
	"strings"
)

// Candidates are the binary names tried when no engine path is configured.
var Candidates = []string{"stockfish", "stockfish.exe"}

// executor abstracts binary lookup for testing.
type executor interface {
	LookPath(file string) (string, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

var defaultExec executor = osExecutor{}

// Detect resolves the engine binary. A configured path must exist;
// otherwise the first of Candidates found on PATH is used. The error wraps
// ErrEngineUnavailable.
func Detect(configured string) (string, error) {
	return detect(defaultExec, configured)
}

func detect(exec executor, configured string) (string, error) {
	if configured != "" {
		path, err := exec.LookPath(configured)
		if err != nil {
			return "", fmt.Errorf("engine %s: %w: %w", configured, ErrEngineUnavailable, err)
		}
		return path, nil
	}

	for _, name := range Candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no engine binary on PATH (tried %s): %w",
		strings.Join(Candidates, ", "), ErrEngineUnavailable)
}
