package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
	"go.uber.org/zap"
)

func (a *App) draw(ctx context.Context) {
	a.S.Clear()
	sess, err := a.games.Get(ctx, a.gameID)
	if err != nil {
		a.logger.Warn("draw_game_missing", zap.String("game_id", a.gameID), zap.Error(err))
		drawText(a.S, boardX, boardY, a.Theme.Alert, err.Error())
		a.S.Show()
		return
	}
	st := sess.CurrentState()
	a.drawBoard(st)

	bottom := boardY + board.Size*cellH + 1
	drawText(a.S, boardX, bottom, a.Theme.Text, a.format.Banner(st))
	if a.flash != "" {
		drawText(a.S, boardX, bottom+1, a.Theme.Alert, a.flash)
	}
	drawText(a.S, boardX, bottom+2, a.Theme.Dim, "click: select/move  r: retry  n: new game  q: quit")

	a.drawHistory(sess.History())
	a.S.Show()
}

func (a *App) drawBoard(st engine.State) {
	b, err := board.FromSnapshot(st.Board)
	if err != nil {
		a.logger.Warn("draw_board_invalid", zap.Error(err))
		return
	}
	for row := 0; row < board.Size; row++ {
		for col := 0; col < board.Size; col++ {
			p := board.Pos(row, col)
			bg := a.Theme.Light
			if (row+col)%2 == 1 {
				bg = a.Theme.Dark
			}
			if st.LastMove != nil && (st.LastMove.Move.From == p || st.LastMove.Move.To == p) {
				bg = a.Theme.LastMove
			}
			if st.Selected != nil && *st.Selected == p {
				bg = a.Theme.Selected
			}
			target := slices.Contains(st.Destinations, p)
			piece := b.At(p)

			x, y := squareOrigin(p)
			base := tcell.StyleDefault.Background(bg)
			for dy := 0; dy < cellH; dy++ {
				for dx := 0; dx < cellW; dx++ {
					a.S.SetContent(x+dx, y+dy, ' ', nil, base)
				}
			}
			cx, cy := x+cellW/2, y+cellH/2
			switch {
			case !piece.IsEmpty():
				fg := a.Theme.White
				if piece.Color() == board.Black {
					fg = a.Theme.Black
				}
				style := base.Foreground(fg).Bold(true)
				if target {
					style = style.Background(a.Theme.Target)
					a.S.SetContent(cx-1, cy, ' ', nil, style)
					a.S.SetContent(cx+1, cy, ' ', nil, style)
				}
				a.S.SetContent(cx, cy, glyph(piece), nil, style)
			case target:
				a.S.SetContent(cx, cy, '●', nil, base.Foreground(a.Theme.Target))
			}
		}
	}
	for i := 0; i < board.Size; i++ {
		_, y := squareOrigin(board.Pos(i, 0))
		rank := fmt.Sprint(board.Size - i)
		drawText(a.S, boardX-2, y+cellH/2, a.Theme.Dim, rank)
		x, _ := squareOrigin(board.Pos(0, i))
		drawText(a.S, x+cellW/2, boardY+board.Size*cellH, a.Theme.Dim, string(rune('a'+i)))
	}
}

func (a *App) drawHistory(history []engine.HistoryEntry) {
	y := boardY
	drawText(a.S, historyX, y, a.Theme.Text.Bold(true), fmt.Sprintf("Game %s", a.gameID))
	y += 2
	if label := a.format.Opening(history); label != "" {
		drawText(a.S, historyX, y, a.Theme.Dim, label)
		y++
	}
	if len(history) == 0 {
		drawText(a.S, historyX, y, a.Theme.Dim, a.format.Text("history.empty", nil))
		return
	}
	start := max(0, len(history)-maxRecent)
	for _, e := range history[start:] {
		drawText(a.S, historyX, y, a.Theme.Text, a.format.HistoryLine(e))
		y++
	}
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
