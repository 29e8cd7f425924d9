// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package protocol

import (
	"fmt"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// Outbound commands without arguments.
const (
	CmdHandshake = "uci"
	CmdIsReady   = "isready"
	CmdStop      = "stop"
	CmdNewGame   = "ucinewgame"
	CmdQuit      = "quit"
)

// Option names set during the handshake and on reconfiguration.
const (
	OptLimitStrength = "UCI_LimitStrength"
	OptElo           = "UCI_Elo"
	OptMultiPV       = "MultiPV"
)

// SetOption formats a setoption command.
func SetOption(name string, value any) string {
	return fmt.Sprintf("setoption name %s value %v", name, value)
}

// ConfigureCommands returns the option-set commands for cfg in the order
// they are sent: strength flag, rating value, variation count.
func ConfigureCommands(cfg types.EngineConfig) []string {
	return []string{
		SetOption(OptLimitStrength, true),
		SetOption(OptElo, cfg.Rating),
		SetOption(OptMultiPV, cfg.MultiPV),
	}
}

// Position formats a position-set command for a FEN snapshot.
func Position(fen string) string {
	return "position fen " + fen
}

// Go formats a search command for the given limit.
func Go(limit types.SearchLimit) string {
	if limit.IsDepth() {
		return fmt.Sprintf("go depth %d", limit.Depth)
	}
	return fmt.Sprintf("go movetime %d", limit.Time.Milliseconds())
}
