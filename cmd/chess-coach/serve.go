// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chess-coach/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the coach over WebSocket",
	Long: `Serve accepts WebSocket connections on /ws. Each connection gets its own
game and engine session. Messages are JSON: {"type":"new"}, {"type":"hint"}
or {"type":"move","move":"e4"}; every reply carries the game state.
/healthz answers 200 while the server runs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	st, err := newStack(viper.GetViper(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(st.newCoach, logger)
	return srv.ListenAndServe(ctx, viper.GetString("server.addr"))
}
