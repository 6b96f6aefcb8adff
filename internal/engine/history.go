package engine

import (
	"fmt"

	"github.com/park285/cheese-gridchess/internal/board"
)

// HistoryEntry records one applied move.
// From is the piece symbol plus origin square ("Pe2"); To is the destination square ("e4").
type HistoryEntry struct {
	Ply       int         `json:"ply"`
	Color     board.Color `json:"color"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Move      board.Move  `json:"move"`
	Capture   bool        `json:"capture,omitempty"`
	Captured  string      `json:"captured,omitempty"`
	Rationale string      `json:"reason,omitempty"`
}

func newHistoryEntry(ply int, piece, captured board.Piece, m board.Move) HistoryEntry {
	e := HistoryEntry{
		Ply:       ply,
		Color:     piece.Color(),
		From:      piece.String() + m.From.String(),
		To:        m.To.String(),
		Move:      board.Move{From: m.From, To: m.To},
		Rationale: m.Rationale,
	}
	if !captured.IsEmpty() {
		e.Capture = true
		e.Captured = captured.String()
	}
	return e
}

// Notation renders "Pe2 e4" or "Pe4 x d5" for captures.
func (e HistoryEntry) Notation() string {
	if e.Capture {
		return fmt.Sprintf("%s x %s", e.From, e.To)
	}
	return e.From + " " + e.To
}

func (e HistoryEntry) String() string {
	if e.Rationale == "" {
		return fmt.Sprintf("%d. %s", e.Ply, e.Notation())
	}
	return fmt.Sprintf("%d. %s (%s)", e.Ply, e.Notation(), e.Rationale)
}
