// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package openings loads the static opening book and recognizes the
// opening being played from a game's move history.
package openings

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chess-coach/pkg/types"
)

//go:embed book.yaml
var embeddedBook []byte

// DefaultBook returns the embedded opening book.
func DefaultBook() ([]types.OpeningEntry, error) {
	book, err := ParseBook(embeddedBook)
	if err != nil {
		return nil, fmt.Errorf("embedded book: %w", err)
	}
	return book, nil
}

// LoadBook reads a YAML book from path. An empty path selects the embedded
// book.
func LoadBook(path string) ([]types.OpeningEntry, error) {
	if path == "" {
		return DefaultBook()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading opening book: %w", err)
	}
	book, err := ParseBook(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return book, nil
}

// ParseBook decodes a YAML list of {code, name, moves} entries. Entries
// missing a code or moves are an error; whether their moves are playable is
// decided by the Matcher.
func ParseBook(data []byte) ([]types.OpeningEntry, error) {
	var book []types.OpeningEntry
	if err := yaml.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("parsing opening book: %w", err)
	}
	for i, e := range book {
		if e.Code == "" || len(e.Moves) == 0 {
			return nil, fmt.Errorf("opening book entry %d (%q): code and moves are required", i, e.Name)
		}
	}
	return book, nil
}
