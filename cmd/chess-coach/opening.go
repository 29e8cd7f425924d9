// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chess-coach/internal/board"
	"github.com/pdiddy/chess-coach/internal/openings"
)

var openingCmd = &cobra.Command{
	Use:   "opening <moves...>",
	Short: "Name the opening of a move sequence",
	Long: `Opening plays the given moves (SAN or coordinates) from the initial
position and prints the longest matching book line. No engine is needed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runOpening,
}

func init() {
	rootCmd.AddCommand(openingCmd)
}

func runOpening(cmd *cobra.Command, args []string) error {
	book, err := openings.LoadBook(viper.GetString("book.path"))
	if err != nil {
		return err
	}
	return printOpening(cmd.OutOrStdout(), openings.NewMatcher(book), args)
}

func printOpening(out io.Writer, m *openings.Matcher, moves []string) error {
	b := board.New()
	for i, tok := range moves {
		mv, ok := b.Resolve(tok)
		if !ok {
			return fmt.Errorf("move %d %q: %w", i+1, tok, board.ErrIllegalMove)
		}
		if err := b.Apply(mv); err != nil {
			return err
		}
	}

	match := m.Match(b.History())
	if match == nil {
		fmt.Fprintln(out, "No book opening matches.")
		return nil
	}
	fmt.Fprintf(out, "%s %s (%d of %d moves in book)\n", match.Code, match.Name, match.Matched, len(moves))
	return nil
}
