// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrUnsupportedRating is returned when a rating is not one of RatingPresets.
	ErrUnsupportedRating = errors.New("unsupported rating preset")

	// ErrInvalidConfig is returned by Validate for out-of-range settings.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RatingPresets lists the playing strengths the engine may be limited to.
var RatingPresets = []int{1350, 1500, 1800, 2000, 2200, 2500, 2850}

// SearchLimit bounds one engine search. Exactly one of Time or Depth is
// meaningful: a positive Depth selects a depth-limited search.
type SearchLimit struct {
	// Time is the move time handed to "go movetime".
	Time time.Duration `json:"time,omitempty" yaml:"time,omitempty"`

	// Depth is the ply depth handed to "go depth".
	Depth int `json:"depth,omitempty" yaml:"depth,omitempty"`
}

// IsDepth reports whether the limit is depth based.
func (l SearchLimit) IsDepth() bool { return l.Depth > 0 }

// String renders the limit the way it appears in cache keys and logs.
func (l SearchLimit) String() string {
	if l.IsDepth() {
		return fmt.Sprintf("depth %d", l.Depth)
	}
	return fmt.Sprintf("movetime %d", l.Time.Milliseconds())
}

// EngineConfig holds the options applied to an engine session.
type EngineConfig struct {
	// Rating is the UCI_Elo value; must be one of RatingPresets.
	Rating int `json:"rating" yaml:"rating"`

	// MultiPV is the number of ranked lines reported per analysis (>= 1).
	MultiPV int `json:"multipv" yaml:"multipv"`

	// Limit is the default search limit for pipeline analyses.
	Limit SearchLimit `json:"limit" yaml:"limit"`
}

// Validate checks the rating preset and variation count.
func (c EngineConfig) Validate() error {
	if !slices.Contains(RatingPresets, c.Rating) {
		return fmt.Errorf("rating %d: %w", c.Rating, ErrUnsupportedRating)
	}
	if c.MultiPV < 1 {
		return fmt.Errorf("multipv %d must be at least 1: %w", c.MultiPV, ErrInvalidConfig)
	}
	if c.Limit.Depth < 0 || c.Limit.Time < 0 {
		return fmt.Errorf("negative search limit: %w", ErrInvalidConfig)
	}
	if !c.Limit.IsDepth() && c.Limit.Time == 0 {
		return fmt.Errorf("search limit needs a move time or a depth: %w", ErrInvalidConfig)
	}
	return nil
}

// TimingConfig holds the timeouts of the analysis channel.
type TimingConfig struct {
	// Grace is added to the search limit before an analysis is forced to resolve.
	Grace time.Duration `json:"grace" yaml:"grace"`

	// Handshake bounds how long the caller waits for the engine to become ready.
	Handshake time.Duration `json:"handshake" yaml:"handshake"`

	// DepthBudget is the time assumed for a depth-limited search when computing
	// its timeout.
	DepthBudget time.Duration `json:"depth_budget" yaml:"depth_budget"`
}

// CoachConfig groups every setting of the coaching tool.
type CoachConfig struct {
	// EnginePath is the engine binary; empty means detect on PATH.
	EnginePath string `json:"engine_path" yaml:"engine_path"`

	Engine EngineConfig `json:"engine" yaml:"engine"`
	Timing TimingConfig `json:"timing" yaml:"timing"`

	// BookPath optionally replaces the embedded opening book.
	BookPath string `json:"book_path,omitempty" yaml:"book_path,omitempty"`

	// CachePath is the SQLite evaluation cache file; empty disables caching.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`

	// Reply makes the engine answer each accepted user move.
	Reply bool `json:"reply" yaml:"reply"`
}

// DefaultCoachConfig returns the settings used when nothing is configured.
func DefaultCoachConfig() CoachConfig {
	return CoachConfig{
		Engine: EngineConfig{
			Rating:  1500,
			MultiPV: 3,
			Limit:   SearchLimit{Time: 800 * time.Millisecond},
		},
		Timing: TimingConfig{
			Grace:       time.Second,
			Handshake:   5 * time.Second,
			DepthBudget: 10 * time.Second,
		},
		Reply: true,
	}
}
