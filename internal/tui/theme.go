package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-gridchess/internal/board"
)

// Theme holds the square and text styles.
type Theme struct {
	Light    tcell.Color
	Dark     tcell.Color
	Selected tcell.Color
	LastMove tcell.Color
	Target   tcell.Color
	White    tcell.Color
	Black    tcell.Color
	Text     tcell.Style
	Dim      tcell.Style
	Alert    tcell.Style
}

func DefaultTheme() Theme {
	return Theme{
		Light:    tcell.NewRGBColor(240, 217, 181),
		Dark:     tcell.NewRGBColor(181, 136, 99),
		Selected: tcell.NewRGBColor(246, 246, 105),
		LastMove: tcell.NewRGBColor(205, 210, 106),
		Target:   tcell.NewRGBColor(64, 96, 64),
		White:    tcell.ColorWhite,
		Black:    tcell.ColorBlack,
		Text:     tcell.StyleDefault,
		Dim:      tcell.StyleDefault.Foreground(tcell.ColorGray),
		Alert:    tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
}

var glyphs = map[board.Kind]rune{
	board.King:   '♚',
	board.Queen:  '♛',
	board.Rook:   '♜',
	board.Bishop: '♝',
	board.Knight: '♞',
	board.Pawn:   '♟',
}

func glyph(p board.Piece) rune {
	if r, ok := glyphs[p.Kind()]; ok {
		return r
	}
	return ' '
}
