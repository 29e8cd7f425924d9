// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evalcache

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// Analyzer evaluates one position.
type Analyzer interface {
	Analyze(ctx context.Context, req types.AnalysisRequest) types.AnalysisResult
}

// Cached consults the store before, and fills it after, each analysis by
// next. Cache failures are logged and treated as misses.
type Cached struct {
	next    Analyzer
	store   *Store
	multiPV func() int
	log     zerolog.Logger
}

// Wrap returns next behind store. multiPV reports the variation count the
// engine is currently configured for.
func Wrap(next Analyzer, store *Store, multiPV func() int, log zerolog.Logger) *Cached {
	return &Cached{next: next, store: store, multiPV: multiPV, log: log}
}

func (c *Cached) Analyze(ctx context.Context, req types.AnalysisRequest) types.AnalysisResult {
	k := Key{FEN: req.FEN, Limit: req.Limit, MultiPV: c.multiPV()}

	res, ok, err := c.store.Get(ctx, k)
	if err != nil {
		c.log.Warn().Err(err).Msg("eval cache read failed")
	}
	if ok {
		c.log.Debug().Str("fen", req.FEN).Msg("eval cache hit")
		return res
	}

	res = c.next.Analyze(ctx, req)
	if _, err := c.store.Put(ctx, k, res); err != nil {
		c.log.Warn().Err(err).Msg("eval cache write failed")
	}
	return res
}
