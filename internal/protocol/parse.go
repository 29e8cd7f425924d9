// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package protocol speaks the line-oriented UCI engine protocol: it formats
// outbound commands and decodes engine output into structured fragments.
// Unknown or partial lines are never errors; they decode to KindIgnored.
package protocol

import (
	"strconv"
	"strings"

	"github.com/pdiddy/chess-coach/pkg/types"
)

// Kind classifies one engine output line.
type Kind int

const (
	KindIgnored Kind = iota
	KindHandshakeOK
	KindReadyOK
	KindInfo
	KindBestMove
)

func (k Kind) String() string {
	switch k {
	case KindHandshakeOK:
		return "uciok"
	case KindReadyOK:
		return "readyok"
	case KindInfo:
		return "info"
	case KindBestMove:
		return "bestmove"
	}
	return "ignored"
}

// Fragment is the structured content of one engine output line.
type Fragment struct {
	Kind Kind

	// HasScore is set when an info line carried "score cp" or "score mate".
	HasScore bool
	Score    int

	// Rank is the declared multipv index; 1 when the line has a pv but no
	// multipv field, 0 when the line carries no pv.
	Rank int

	// PVMove is the first move token of the principal variation.
	PVMove string

	// BestMove is the token of a bestmove line; empty for "(none)".
	BestMove string
}

// ParseLine decodes one raw engine line.
func ParseLine(line string) Fragment {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Fragment{}
	}

	switch fields[0] {
	case "uciok":
		return Fragment{Kind: KindHandshakeOK}
	case "readyok":
		return Fragment{Kind: KindReadyOK}
	case "bestmove":
		f := Fragment{Kind: KindBestMove}
		if len(fields) > 1 && fields[1] != "(none)" {
			f.BestMove = fields[1]
		}
		return f
	case "info":
		return parseInfo(fields[1:])
	}
	return Fragment{}
}

func parseInfo(fields []string) Fragment {
	f := Fragment{Kind: KindInfo}
	rank := 0

	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "string":
			// Free text runs to the end of the line.
			return f
		case "multipv":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil && n > 0 {
					rank = n
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				if score, ok := parseScore(fields[i+1], fields[i+2]); ok {
					f.HasScore = true
					f.Score = score
				}
				i += 2
			}
		case "pv":
			if i+1 < len(fields) {
				f.PVMove = fields[i+1]
			}
			i = len(fields)
		}
	}

	if f.PVMove != "" {
		if rank == 0 {
			rank = 1
		}
		f.Rank = rank
	}
	return f
}

// parseScore converts "cp N" or "mate N". Mate scores saturate to
// ±types.MateScore; "mate 0" means the side to move is mated.
func parseScore(unit, value string) (int, bool) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	switch unit {
	case "cp":
		return n, true
	case "mate":
		if n > 0 {
			return types.MateScore, true
		}
		return -types.MateScore, true
	}
	return 0, false
}

// ValidToken reports whether tok is a coordinate move token: from-square,
// to-square and an optional promotion letter.
func ValidToken(tok string) bool {
	if len(tok) != 4 && len(tok) != 5 {
		return false
	}
	for i := 0; i < 4; i += 2 {
		if tok[i] < 'a' || tok[i] > 'h' || tok[i+1] < '1' || tok[i+1] > '8' {
			return false
		}
	}
	if len(tok) == 5 && !strings.ContainsRune("qrbn", rune(tok[4])) {
		return false
	}
	return true
}

// Resolve looks a coordinate token up in the legal-move list of the
// position under analysis. It reports false when nothing matches.
func Resolve(tok string, legal []types.Move) (types.Move, bool) {
	tok = strings.ToLower(tok)
	if !ValidToken(tok) {
		return types.Move{}, false
	}
	for _, m := range legal {
		if m.UCI == tok {
			return m, true
		}
	}
	return types.Move{}, false
}
