package board

import (
	"fmt"
	"strings"
)

// Color identifies chess side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side. Unknown colors map to White.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) Valid() bool { return c == White || c == Black }

// ParseColor accepts "white"/"w" and "black"/"b" in any case.
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return "", fmt.Errorf("unknown color %q", s)
	}
}

// Kind is the colorless piece type.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{
	NoKind: "",
	Pawn:   "Pawn",
	Knight: "Knight",
	Bishop: "Bishop",
	Rook:   "Rook",
	Queen:  "Queen",
	King:   "King",
}

var kindLetters = [...]byte{
	NoKind: ' ',
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
	King:   'k',
}

// Name returns the English piece name used in move descriptors ("Knight").
func (k Kind) Name() string {
	if int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

func (k Kind) String() string { return k.Name() }

// Piece is the content of one square: either Empty or an occupied {Kind, Color}.
// The zero value is Empty.
type Piece struct {
	kind  Kind
	color Color
}

// Empty is the content of a vacant square.
var Empty = Piece{}

// NewPiece builds an occupied square content. An invalid kind or color yields Empty.
func NewPiece(kind Kind, color Color) Piece {
	if kind == NoKind || int(kind) >= len(kindNames) || !color.Valid() {
		return Empty
	}
	return Piece{kind: kind, color: color}
}

func (p Piece) IsEmpty() bool { return p.kind == NoKind }
func (p Piece) Kind() Kind    { return p.kind }

// Color returns the owning side; empty squares have no color ("").
func (p Piece) Color() Color { return p.color }

// Symbol encodes the piece with the case convention: uppercase white, lowercase black, ' ' empty.
func (p Piece) Symbol() byte {
	if p.IsEmpty() {
		return ' '
	}
	letter := kindLetters[p.kind]
	if p.color == White {
		return letter - 'a' + 'A'
	}
	return letter
}

func (p Piece) String() string { return string(p.Symbol()) }

// ParseSymbol is the only place where the case convention is decoded.
// "" and " " both denote an empty square.
func ParseSymbol(s string) (Piece, error) {
	if s == "" || s == " " {
		return Empty, nil
	}
	if len(s) != 1 {
		return Empty, fmt.Errorf("invalid piece symbol %q", s)
	}
	ch := s[0]
	color := Black
	if ch >= 'A' && ch <= 'Z' {
		color = White
		ch = ch - 'A' + 'a'
	}
	for k := Pawn; k <= King; k++ {
		if kindLetters[k] == ch {
			return Piece{kind: k, color: color}, nil
		}
	}
	return Empty, fmt.Errorf("invalid piece symbol %q", s)
}

// MustParseSymbol panics on malformed input; intended for literals in tests and tables.
func MustParseSymbol(s string) Piece {
	p, err := ParseSymbol(s)
	if err != nil {
		panic(err)
	}
	return p
}
