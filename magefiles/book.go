//go:build mage

package main

import (
	"fmt"

	"github.com/pdiddy/chess-coach/internal/openings"
)

// CheckBook replays every opening book entry and fails on any that cannot
// be played from the initial position.
func CheckBook() error {
	book, err := openings.DefaultBook()
	if err != nil {
		return err
	}
	m := openings.NewMatcher(book)
	for _, e := range m.Rejected() {
		fmt.Printf("  %s %s: %v\n", e.Code, e.Name, e.Moves)
	}
	if n := len(m.Rejected()); n > 0 {
		return fmt.Errorf("%d of %d book entries are not playable", n, len(book))
	}
	fmt.Printf("All %d book entries replay cleanly.\n", m.Size())
	return nil
}
