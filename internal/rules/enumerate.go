package rules

import "github.com/park285/cheese-gridchess/internal/board"

// LegalDestinations probes all 64 squares from origin and returns the legal ones in row-major order.
// Each call returns a fresh slice; an empty or invalid origin yields nil.
func LegalDestinations(b *board.Board, origin board.Position) []board.Position {
	if b == nil || !origin.Valid() || b.At(origin).IsEmpty() {
		return nil
	}
	var out []board.Position
	for _, p := range board.All() {
		if IsLegalMove(b, origin, p) {
			out = append(out, p)
		}
	}
	return out
}

// DestinationSet is a lookup view over LegalDestinations for highlighting.
type DestinationSet map[board.Position]struct{}

func Destinations(b *board.Board, origin board.Position) DestinationSet {
	list := LegalDestinations(b, origin)
	set := make(DestinationSet, len(list))
	for _, p := range list {
		set[p] = struct{}{}
	}
	return set
}

func (s DestinationSet) Contains(p board.Position) bool {
	_, ok := s[p]
	return ok
}

// LegalMoves lists every legal move of color, grouped by origin in row-major order.
func LegalMoves(b *board.Board, color board.Color) []board.Move {
	if b == nil {
		return nil
	}
	var out []board.Move
	for _, from := range b.Occupied(color) {
		for _, to := range LegalDestinations(b, from) {
			out = append(out, board.Move{From: from, To: to})
		}
	}
	return out
}

// IsCapture reports whether a legal move lands on an opponent piece.
func IsCapture(b *board.Board, m board.Move) bool {
	target := b.At(m.To)
	return !target.IsEmpty() && target.Color() != b.At(m.From).Color()
}
