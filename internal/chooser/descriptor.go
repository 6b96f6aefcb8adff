package chooser

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/rules"
)

// Descriptor is one legal move of the automated side as presented to an oracle.
type Descriptor struct {
	Move    board.Move
	Piece   board.Piece
	Capture bool
}

// Text renders the descriptor the way oracles receive it:
// "Pawn from e7 to e5" or "Knight from g8 captures on f6".
func (d Descriptor) Text() string {
	if d.Capture {
		return fmt.Sprintf("%s from %s captures on %s", d.Piece.Kind().Name(), d.Move.From, d.Move.To)
	}
	return fmt.Sprintf("%s from %s to %s", d.Piece.Kind().Name(), d.Move.From, d.Move.To)
}

func (d Descriptor) String() string { return d.Text() }

// Enumerate lists every legal move of color on b, in the move enumerator's order.
func Enumerate(b *board.Board, color board.Color) []Descriptor {
	moves := rules.LegalMoves(b, color)
	out := make([]Descriptor, 0, len(moves))
	for _, m := range moves {
		out = append(out, Descriptor{
			Move:    m,
			Piece:   b.At(m.From),
			Capture: rules.IsCapture(b, m),
		})
	}
	return out
}

// Texts returns the rendered descriptor list.
func Texts(legal []Descriptor) []string {
	out := make([]string, len(legal))
	for i, d := range legal {
		out[i] = d.Text()
	}
	return out
}

// Match finds the enumerated descriptor with the same origin and destination as m.
func Match(legal []Descriptor, m board.Move) (Descriptor, bool) {
	for _, d := range legal {
		if d.Move.From == m.From && d.Move.To == m.To {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ParseChoice maps an oracle reply back onto one of the enumerated descriptors.
// It accepts the exact descriptor text (case and surrounding whitespace ignored),
// a UCI coordinate pair such as "e7e5", or a hyphenated pair such as "e7-e5".
func ParseChoice(reply string, legal []Descriptor) (Descriptor, error) {
	text := normalizeReply(reply)
	if text == "" {
		return Descriptor{}, fmt.Errorf("empty reply: %w", ErrUnparseableChoice)
	}
	for _, d := range legal {
		if strings.EqualFold(d.Text(), text) {
			return d, nil
		}
	}
	if m, ok := parseCoordinatePair(text); ok {
		if d, found := Match(legal, m); found {
			return d, nil
		}
		return Descriptor{}, fmt.Errorf("move %s is not among the legal moves: %w", m.UCI(), ErrUnparseableChoice)
	}
	return Descriptor{}, fmt.Errorf("reply %q matches no legal move: %w", truncate(text, 64), ErrUnparseableChoice)
}

// ParseMove validates an already-structured move against the enumerated descriptors.
func ParseMove(m board.Move, legal []Descriptor) (Descriptor, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return Descriptor{}, fmt.Errorf("move %v -> %v off the board: %w", m.From, m.To, ErrUnparseableChoice)
	}
	d, ok := Match(legal, m)
	if !ok {
		return Descriptor{}, fmt.Errorf("move %s is not among the legal moves: %w", m.UCI(), ErrUnparseableChoice)
	}
	return d, nil
}

func normalizeReply(reply string) string {
	text := strings.TrimSpace(reply)
	text = strings.Trim(text, "\"'`.")
	return strings.Join(strings.Fields(text), " ")
}

func parseCoordinatePair(text string) (board.Move, bool) {
	compact := strings.ToLower(strings.NewReplacer("-", "", " ", "", "x", "").Replace(text))
	if len(compact) != 4 {
		return board.Move{}, false
	}
	from, err := board.ParseSquare(compact[:2])
	if err != nil {
		return board.Move{}, false
	}
	to, err := board.ParseSquare(compact[2:])
	if err != nil {
		return board.Move{}, false
	}
	return board.Move{From: from, To: to}, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
