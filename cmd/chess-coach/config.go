// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/pdiddy/chess-coach/internal/coach"
	"github.com/pdiddy/chess-coach/internal/engine"
	"github.com/pdiddy/chess-coach/internal/evalcache"
	"github.com/pdiddy/chess-coach/internal/openings"
	"github.com/pdiddy/chess-coach/pkg/types"
)

func setDefaults(v *viper.Viper) {
	d := types.DefaultCoachConfig()
	v.SetDefault("engine.rating", d.Engine.Rating)
	v.SetDefault("engine.multipv", d.Engine.MultiPV)
	v.SetDefault("engine.movetime", d.Engine.Limit.Time)
	v.SetDefault("engine.depth", 0)
	v.SetDefault("engine.grace", d.Timing.Grace)
	v.SetDefault("engine.handshake_timeout", d.Timing.Handshake)
	v.SetDefault("engine.depth_budget", d.Timing.DepthBudget)
	v.SetDefault("coach.reply", d.Reply)
}

// loadConfig reads every setting from v and validates the engine options.
func loadConfig(v *viper.Viper) (types.CoachConfig, error) {
	cfg := types.CoachConfig{
		EnginePath: v.GetString("engine.path"),
		Engine: types.EngineConfig{
			Rating:  v.GetInt("engine.rating"),
			MultiPV: v.GetInt("engine.multipv"),
			Limit: types.SearchLimit{
				Time:  v.GetDuration("engine.movetime"),
				Depth: v.GetInt("engine.depth"),
			},
		},
		Timing: types.TimingConfig{
			Grace:       v.GetDuration("engine.grace"),
			Handshake:   v.GetDuration("engine.handshake_timeout"),
			DepthBudget: v.GetDuration("engine.depth_budget"),
		},
		BookPath:  v.GetString("book.path"),
		CachePath: v.GetString("cache.path"),
		Reply:     v.GetBool("coach.reply"),
	}
	if err := cfg.Engine.Validate(); err != nil {
		return cfg, fmt.Errorf("engine settings: %w", err)
	}
	return cfg, nil
}

// stack holds what every command shares: settings, the opening book and the
// optional evaluation cache.
type stack struct {
	cfg     types.CoachConfig
	log     zerolog.Logger
	matcher *openings.Matcher
	store   *evalcache.Store
}

func newStack(v *viper.Viper, log zerolog.Logger) (*stack, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}

	book, err := openings.LoadBook(cfg.BookPath)
	if err != nil {
		return nil, err
	}
	matcher := openings.NewMatcher(book)
	for _, e := range matcher.Rejected() {
		log.Warn().Str("code", e.Code).Str("name", e.Name).Msg("opening book entry not playable, ignored")
	}

	s := &stack{cfg: cfg, log: log, matcher: matcher}
	if cfg.CachePath != "" {
		store, err := evalcache.NewStore(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s, nil
}

func (s *stack) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// launcher returns the engine launcher for the configured or detected
// binary. When no binary is found the launcher reports why, and the session
// logs it once at start.
func (s *stack) launcher() engine.Launcher {
	path, err := engine.Detect(s.cfg.EnginePath)
	if err != nil {
		return func(context.Context) (engine.Process, error) { return nil, err }
	}
	return engine.ExecLauncher(path)
}

// startEngine starts a session and waits for its handshake. An engine that
// is missing or slow leaves a session whose analyses return zero results.
func (s *stack) startEngine(ctx context.Context) (*engine.Session, *engine.Channel) {
	sess := engine.NewSession(s.launcher(), s.cfg.Engine, s.log)
	if err := sess.Start(ctx); err == nil {
		wctx, cancel := context.WithTimeout(ctx, s.cfg.Timing.Handshake)
		defer cancel()
		if err := sess.WaitReady(wctx); err != nil {
			s.log.Warn().Err(err).Msg("engine did not become ready")
		}
	}
	return sess, engine.NewChannel(sess, s.cfg.Timing, s.log)
}

func (s *stack) analyzer(ch *engine.Channel) coach.Analyzer {
	if s.store == nil {
		return ch
	}
	return evalcache.Wrap(ch, s.store, func() int { return ch.Config().MultiPV }, s.log)
}

// newCoach builds a coach with its own engine session. release closes the
// session.
func (s *stack) newCoach(ctx context.Context) (*coach.Coach, func(), error) {
	sess, ch := s.startEngine(ctx)
	c := coach.New(s.analyzer(ch), s.matcher, coach.Options{
		Limit:     s.cfg.Engine.Limit,
		Reply:     s.cfg.Reply,
		OnNewGame: sess.NewGame,
		Engine:    ch,
		Log:       s.log,
	})
	release := func() {
		if err := sess.Close(); err != nil {
			s.log.Debug().Err(err).Msg("closing engine")
		}
	}
	return c, release, nil
}
