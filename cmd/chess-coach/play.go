// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chess-coach/internal/coach"
	"github.com/pdiddy/chess-coach/pkg/types"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play a coached game in the terminal",
	Long: `Play starts a game from the initial position. Enter moves in SAN (Nf3)
or coordinates (g1f3); each one is graded against the engine and annotated.
Unless coach.reply is false the engine answers every move.

Commands: hint, new, history, rating N, multipv N, quit.`,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().Bool("no-reply", false, "play both sides yourself")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	st, err := newStack(viper.GetViper(), logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if noReply, _ := cmd.Flags().GetBool("no-reply"); noReply {
		st.cfg.Reply = false
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, release, err := st.newCoach(ctx)
	if err != nil {
		return err
	}
	defer release()

	return repl(ctx, c, cmd.InOrStdin(), cmd.OutOrStdout())
}

// repl reads one command or move per line until quit or end of input.
func repl(ctx context.Context, c *coach.Coach, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "New game. Enter a move, or: hint, new, history, rating N, multipv N, quit.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt(c))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if fields := strings.Fields(line); len(fields) == 2 && (fields[0] == "rating" || fields[0] == "multipv") {
			configure(out, c, fields[0], fields[1])
			continue
		}

		switch line {
		case "":
		case "quit", "exit":
			return nil
		case "new":
			c.NewGame()
			fmt.Fprintln(out, "New game.")
		case "history":
			printHistory(out, c.Records())
		case "hint":
			res, err := c.Hint(ctx)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}
			printAnalysis(out, res)
		default:
			turn, err := c.ApplyUserMove(ctx, line)
			switch {
			case errors.Is(err, coach.ErrIllegalMove):
				fmt.Fprintf(out, "Illegal move %q.\n", line)
				continue
			case err != nil:
				fmt.Fprintln(out, err)
				continue
			}
			printTurn(out, turn)
		}
	}
}

// configure handles "rating N" and "multipv N".
func configure(out io.Writer, c *coach.Coach, key, value string) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		fmt.Fprintf(out, "%s needs a positive number.\n", key)
		return
	}
	rating, multiPV := n, 0
	if key == "multipv" {
		rating, multiPV = 0, n
	}
	cfg, err := c.Configure(rating, multiPV)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	fmt.Fprintf(out, "Engine rating %d, %d lines.\n", cfg.Rating, cfg.MultiPV)
}

func prompt(c *coach.Coach) string {
	s := c.Snapshot()
	return fmt.Sprintf("%d. %s> ", len(s.History)/2+1, s.Turn)
}

func printTurn(out io.Writer, t coach.Turn) {
	r := t.Record
	fmt.Fprintf(out, "%s: %s (loss %d) - %s\n", r.SAN, r.Grade, r.Loss, r.Note)
	if t.Reply != nil {
		fmt.Fprintf(out, "Engine plays %s\n", t.Reply.SAN)
	}
	if t.Opening != nil {
		fmt.Fprintf(out, "Opening: %s %s\n", t.Opening.Code, t.Opening.Name)
	}
	if t.GameOver {
		fmt.Fprintln(out, "Game over.")
	}
}

func printHistory(out io.Writer, records []types.MoveRecord) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No moves yet.")
		return
	}
	fmt.Fprintf(out, "%-4s  %-8s  %-5s  %-6s  %s\n", "Ply", "Move", "Grade", "Loss", "Note")
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, r := range records {
		fmt.Fprintf(out, "%-4d  %-8s  %-5s  %-6d  %s\n", r.Ply, r.SAN, r.Grade, r.Loss, r.Note)
	}
}
