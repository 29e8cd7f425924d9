// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the chess-coach CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is the diagnostics logger, configured in PersistentPreRunE.
var logger = zerolog.Nop()

// rootCmd is the base command for the chess-coach CLI.
var rootCmd = &cobra.Command{
	Use:   "chess-coach",
	Short: "Grade chess moves in real time with a UCI engine",
	Long: `chess-coach drives a UCI analysis engine (Stockfish by default) to grade
each move you play, explain it in a short note, and name the opening.

Play interactively in the terminal, analyze single positions, look up
openings, or serve the coach to a browser UI over WebSocket.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(viper.GetString("log.level"))
		if err != nil {
			return err
		}
		logger = l
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug().Str("file", f).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./chess-coach.yaml or ~/.config/chess-coach/chess-coach.yaml)")
	pf.String("engine", "", "engine binary (default: stockfish on PATH)")
	pf.Int("rating", 0, "engine strength preset: 1350, 1500, 1800, 2000, 2200, 2500, 2850")
	pf.Int("multipv", 0, "number of ranked lines per analysis")
	pf.Duration("movetime", 0, "search time per analysis")
	pf.Int("depth", 0, "search depth per analysis (overrides --movetime)")
	pf.String("book", "", "opening book YAML replacing the built-in book")
	pf.String("cache", "", "SQLite evaluation cache file (empty disables)")
	pf.String("log-level", "", "log level: debug, info, warn, error")

	for key, flag := range map[string]string{
		"engine.path":     "engine",
		"engine.rating":   "rating",
		"engine.multipv":  "multipv",
		"engine.movetime": "movetime",
		"engine.depth":    "depth",
		"book.path":       "book",
		"cache.path":      "cache",
		"log.level":       "log-level",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
	setDefaults(viper.GetViper())
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("chess-coach")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "chess-coach"))
		}
	}

	viper.SetEnvPrefix("CHESS_COACH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Reading config file:", err)
	}
}

// newLogger returns a console logger on stderr at level.
func newLogger(level string) (zerolog.Logger, error) {
	lvl := zerolog.WarnLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
