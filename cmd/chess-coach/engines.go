// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chess-coach/internal/engine"
	"github.com/pdiddy/chess-coach/pkg/types"
)

var errEngineRequired = errors.New("this command needs a working engine (see chess-coach engines)")

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Show which engine binary would be used",
	Long: `Engines resolves the engine binary the way the other commands do: the
configured engine.path, or else the first of the known binary names found
on PATH. It also lists the supported strength presets.`,
	RunE: runEngines,
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}

func runEngines(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	path, err := engine.Detect(viper.GetString("engine.path"))
	if err != nil {
		fmt.Fprintln(out, "Engine: not found")
		fmt.Fprintln(out, "Analyses will return neutral results until an engine is installed.")
		logger.Debug().Err(err).Msg("engine detection failed")
	} else {
		fmt.Fprintf(out, "Engine: %s\n", path)
	}
	fmt.Fprintf(out, "Rating presets: %v\n", types.RatingPresets)
	return nil
}
