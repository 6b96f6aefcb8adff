// Package rules decides geometric move legality on a board.Board.
// Nothing here looks at whose turn it is, and nothing here mutates the board.
package rules

import "github.com/park285/cheese-gridchess/internal/board"

// IsLegalMove reports whether the piece on from may move to to.
// Empty origins and out-of-bounds positions are never legal.
func IsLegalMove(b *board.Board, from, to board.Position) bool {
	if b == nil || !from.Valid() || !to.Valid() {
		return false
	}
	piece := b.At(from)
	if piece.IsEmpty() {
		return false
	}
	target := b.At(to)
	if !target.IsEmpty() && target.Color() == piece.Color() {
		return false
	}

	var geometry bool
	switch piece.Kind() {
	case board.Pawn:
		geometry = pawnMove(b, piece.Color(), from, to)
	case board.Rook:
		geometry = rookLine(from, to)
	case board.Knight:
		geometry = knightJump(from, to)
	case board.Bishop:
		geometry = bishopLine(from, to)
	case board.Queen:
		geometry = rookLine(from, to) || bishopLine(from, to)
	case board.King:
		geometry = kingStep(from, to)
	}
	return geometry && PathClear(b, from, to)
}

// PathClear reports whether every square strictly between from and to is empty.
// Knights jump and are always clear. Positions not on a shared line or diagonal
// have no interior to inspect and report true; the geometry check rejects them.
func PathClear(b *board.Board, from, to board.Position) bool {
	if b.At(from).Kind() == board.Knight {
		return true
	}
	dr, dc := to.Row-from.Row, to.Col-from.Col
	if dr != 0 && dc != 0 && abs(dr) != abs(dc) {
		return true
	}
	stepR, stepC := sign(dr), sign(dc)
	cur := board.Pos(from.Row+stepR, from.Col+stepC)
	for cur != to {
		if !b.At(cur).IsEmpty() {
			return false
		}
		cur = board.Pos(cur.Row+stepR, cur.Col+stepC)
	}
	return true
}

func pawnMove(b *board.Board, color board.Color, from, to board.Position) bool {
	dir, startRow := -1, 6
	if color == board.Black {
		dir, startRow = 1, 1
	}
	dr, dc := to.Row-from.Row, to.Col-from.Col
	target := b.At(to)

	if dc == 0 {
		if !target.IsEmpty() {
			return false
		}
		if dr == dir {
			return true
		}
		mid := board.Pos(from.Row+dir, from.Col)
		return from.Row == startRow && dr == 2*dir && b.At(mid).IsEmpty()
	}
	// 대각선 이동은 상대 말을 잡을 때만 허용
	return abs(dc) == 1 && dr == dir && !target.IsEmpty() && target.Color() != color
}

func rookLine(from, to board.Position) bool {
	return from.Row == to.Row || from.Col == to.Col
}

func bishopLine(from, to board.Position) bool {
	return abs(from.Row-to.Row) == abs(from.Col-to.Col)
}

func knightJump(from, to board.Position) bool {
	dr, dc := abs(from.Row-to.Row), abs(from.Col-to.Col)
	return (dr == 2 && dc == 1) || (dr == 1 && dc == 2)
}

func kingStep(from, to board.Position) bool {
	return abs(from.Row-to.Row) <= 1 && abs(from.Col-to.Col) <= 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
