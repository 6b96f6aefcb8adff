package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrOutOfBounds is returned when a position has a coordinate outside [0,8).
var ErrOutOfBounds = errors.New("position out of bounds")

// Board is a free-form 8x8 grid. It carries no turn state and enforces no piece counts.
type Board struct {
	cells [Size][Size]Piece
}

// New returns an empty board.
func New() *Board { return &Board{} }

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Initial returns the standard starting placement.
func Initial() *Board {
	b := New()
	for c := 0; c < Size; c++ {
		b.cells[0][c] = NewPiece(backRank[c], Black)
		b.cells[1][c] = NewPiece(Pawn, Black)
		b.cells[6][c] = NewPiece(Pawn, White)
		b.cells[7][c] = NewPiece(backRank[c], White)
	}
	return b
}

func outOfBounds(p Position) error {
	return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, p.Row, p.Col)
}

func (b *Board) Get(p Position) (Piece, error) {
	if !p.Valid() {
		return Empty, outOfBounds(p)
	}
	return b.cells[p.Row][p.Col], nil
}

func (b *Board) Set(p Position, piece Piece) error {
	if !p.Valid() {
		return outOfBounds(p)
	}
	b.cells[p.Row][p.Col] = piece
	return nil
}

func (b *Board) IsEmpty(p Position) (bool, error) {
	piece, err := b.Get(p)
	if err != nil {
		return false, err
	}
	return piece.IsEmpty(), nil
}

// At is the unchecked accessor for callers that already validated p. Invalid positions yield Empty.
func (b *Board) At(p Position) Piece {
	if !p.Valid() {
		return Empty
	}
	return b.cells[p.Row][p.Col]
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	cp := *b
	return &cp
}

// Occupied lists the squares holding pieces of color, row-major.
func (b *Board) Occupied(color Color) []Position {
	var out []Position
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if p := b.cells[r][c]; !p.IsEmpty() && p.Color() == color {
				out = append(out, Position{Row: r, Col: c})
			}
		}
	}
	return out
}

// Snapshot is the external board representation: single-character cells,
// uppercase white, lowercase black, " " empty.
type Snapshot [Size][Size]string

func (b *Board) Snapshot() Snapshot {
	var s Snapshot
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			s[r][c] = b.cells[r][c].String()
		}
	}
	return s
}

// FromSnapshot rebuilds a board; both "" and " " are accepted as empty.
func FromSnapshot(s Snapshot) (*Board, error) {
	b := New()
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			p, err := ParseSymbol(s[r][c])
			if err != nil {
				return nil, fmt.Errorf("snapshot %s: %w", Pos(r, c), err)
			}
			b.cells[r][c] = p
		}
	}
	return b, nil
}

// FromRows accepts the loosely typed JSON grid used by oracles and stored rows.
func FromRows(rows [][]string) (*Board, error) {
	if len(rows) != Size {
		return nil, fmt.Errorf("snapshot must have %d rows, got %d", Size, len(rows))
	}
	var s Snapshot
	for r, row := range rows {
		if len(row) != Size {
			return nil, fmt.Errorf("snapshot row %d must have %d cells, got %d", r, Size, len(row))
		}
		copy(s[r][:], row)
	}
	return FromSnapshot(s)
}

// Rows converts the snapshot to a slice grid.
func (s Snapshot) Rows() [][]string {
	out := make([][]string, Size)
	for r := range s {
		out[r] = append([]string(nil), s[r][:]...)
	}
	return out
}

// FEN renders a Forsyth-Edwards string for engines. Castling and en-passant are never available.
func (b *Board) FEN(active Color, fullMove int) string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		empty := 0
		for c := 0; c < Size; c++ {
			p := b.cells[r][c]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p.Symbol())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if r < Size-1 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if active == Black {
		side = "b"
	}
	if fullMove < 1 {
		fullMove = 1
	}
	fmt.Fprintf(&sb, " %s - - 0 %d", side, fullMove)
	return sb.String()
}

// String draws the board as eight text rows, rank 8 first.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		sb.WriteByte(ranks[r])
		sb.WriteByte(' ')
		for c := 0; c < Size; c++ {
			p := b.cells[r][c]
			if p.IsEmpty() {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(p.Symbol())
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  " + files)
	return sb.String()
}
