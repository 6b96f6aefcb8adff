package board

import (
	"fmt"
	"strings"
)

const Size = 8

const (
	files = "abcdefgh"
	ranks = "87654321"
)

// Position addresses a square; row 0 is rank 8, column 0 is file 'a'.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func Pos(row, col int) Position { return Position{Row: row, Col: col} }

func (p Position) Valid() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// String renders file-rank notation ("e2"); invalid positions render as "(row,col)".
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
	}
	return string([]byte{files[p.Col], ranks[p.Row]})
}

// ParseSquare decodes file-rank notation such as "e2".
func ParseSquare(s string) (Position, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if len(v) != 2 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	col := strings.IndexByte(files, v[0])
	row := strings.IndexByte(ranks, v[1])
	if col < 0 || row < 0 {
		return Position{}, fmt.Errorf("invalid square %q", s)
	}
	return Position{Row: row, Col: col}, nil
}

// All returns the 64 positions in row-major order.
func All() []Position {
	out := make([]Position, 0, Size*Size)
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			out = append(out, Position{Row: r, Col: c})
		}
	}
	return out
}

// Move is an origin/destination pair. Rationale is only set for automated moves.
type Move struct {
	From      Position `json:"from"`
	To        Position `json:"to"`
	Rationale string   `json:"reason,omitempty"`
}

// UCI renders the move as "e2e4".
func (m Move) UCI() string { return m.From.String() + m.To.String() }

func (m Move) String() string { return m.From.String() + "-" + m.To.String() }
