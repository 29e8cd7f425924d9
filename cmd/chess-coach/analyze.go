// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chess-coach/internal/board"
	"github.com/pdiddy/chess-coach/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze one position",
	Long: `Analyze runs a single engine search on a position given as FEN (the
initial position by default) and prints the best move, the score from the
side to move and the ranked lines.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("fen", "", "position to analyze (default: initial position)")
	analyzeCmd.Flags().Bool("json", false, "output the result as JSON")
	analyzeCmd.Flags().Bool("yaml", false, "output the result as YAML")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fen, _ := cmd.Flags().GetString("fen")
	b := board.New()
	if fen != "" {
		var err error
		if b, err = board.FromFEN(fen); err != nil {
			return err
		}
	}

	st, err := newStack(viper.GetViper(), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sess, ch := st.startEngine(ctx)
	defer sess.Close()
	if !sess.Ready() {
		return fmt.Errorf("analyze: %w", errEngineRequired)
	}

	res := st.analyzer(ch).Analyze(ctx, types.AnalysisRequest{
		FEN:   b.FEN(),
		Limit: st.cfg.Engine.Limit,
		Legal: b.LegalMoves(),
	})

	jsonOut, _ := cmd.Flags().GetBool("json")
	yamlOut, _ := cmd.Flags().GetBool("yaml")
	out := cmd.OutOrStdout()
	switch {
	case jsonOut:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case yamlOut:
		enc := yaml.NewEncoder(out)
		defer enc.Close()
		return enc.Encode(res)
	}
	printAnalysis(out, res)
	return nil
}

func printAnalysis(out io.Writer, res types.AnalysisResult) {
	if res.IsZero() {
		fmt.Fprintln(out, "No evaluation available.")
		return
	}
	fmt.Fprintf(out, "Best move: %s  Score: %s", orDash(res.BestMove), formatScore(res.Score))
	if res.TimedOut {
		fmt.Fprint(out, "  (timed out)")
	}
	fmt.Fprintln(out)
	if len(res.Variations) == 0 {
		return
	}
	fmt.Fprintf(out, "%-4s  %-8s  %-6s  %s\n", "Rank", "Move", "UCI", "Score")
	fmt.Fprintln(out, strings.Repeat("-", 32))
	for _, pv := range res.Variations {
		fmt.Fprintf(out, "%-4d  %-8s  %-6s  %s\n", pv.Rank, pv.SAN, pv.UCI, formatScore(pv.Score))
	}
}

// formatScore renders centipawns as pawns, and saturated scores as mate.
func formatScore(cp int) string {
	switch {
	case cp >= types.MateScore:
		return "mate"
	case cp <= -types.MateScore:
		return "mated"
	}
	return fmt.Sprintf("%+.2f", float64(cp)/100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
