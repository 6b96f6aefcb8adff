// Package tui plays a game on a terminal grid with mouse selection.
package tui

import (
	"context"
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-gridchess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/game"
	"go.uber.org/zap"
)

const (
	cellW     = 5
	cellH     = 3
	boardX    = 3
	boardY    = 1
	historyX  = boardX + board.Size*cellW + 3
	maxRecent = 16
)

var errQuit = errors.New("quit")

// retryRejected carries a retry the session refused outright.
type retryRejected struct {
	gameID string
	err    error
}

// App owns the screen and one game at a time.
type App struct {
	S      tcell.Screen
	Theme  Theme
	games  *game.Manager
	format *chesspresenter.Formatter
	logger *zap.Logger

	gameID  string
	human   board.Color
	flash   string
	pressed bool
}

func New(s tcell.Screen, games *game.Manager, format *chesspresenter.Formatter, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{S: s, Theme: DefaultTheme(), games: games, format: format, logger: logger}
}

// GameID is the game currently on screen.
func (a *App) GameID() string { return a.gameID }

// Run starts a game for human and handles input until q, Esc or ctx cancellation.
// The screen must already be initialised; Run does not finalise it.
func (a *App) Run(ctx context.Context, human board.Color) error {
	a.human = human
	a.S.EnableMouse()
	a.S.HideCursor()

	unsubscribe := a.games.Subscribe(func(ev game.Event) {
		_ = a.S.PostEvent(tcell.NewEventInterrupt(ev))
	})
	defer unsubscribe()

	stop := context.AfterFunc(ctx, func() {
		_ = a.S.PostEvent(tcell.NewEventInterrupt(errQuit))
	})
	defer stop()

	if err := a.newGame(ctx); err != nil {
		return err
	}
	a.draw(ctx)

	for {
		ev := a.S.PollEvent()
		if ev == nil {
			return nil
		}
		switch ev := ev.(type) {
		case *tcell.EventResize:
			a.S.Sync()
		case *tcell.EventKey:
			if quit := a.onKey(ctx, ev); quit {
				return nil
			}
		case *tcell.EventMouse:
			a.onMouse(ctx, ev)
		case *tcell.EventInterrupt:
			if err, ok := ev.Data().(error); ok && errors.Is(err, errQuit) {
				return ctx.Err()
			}
			switch data := ev.Data().(type) {
			case game.Event:
				a.onGameEvent(data)
			case retryRejected:
				if data.gameID == a.gameID {
					a.showError(data.err, "")
				}
			}
		}
		a.draw(ctx)
	}
}

func (a *App) newGame(ctx context.Context) error {
	if a.gameID != "" {
		if err := a.games.End(ctx, a.gameID); err != nil {
			a.logger.Warn("end_game_failed", zap.String("game_id", a.gameID), zap.Error(err))
		}
	}
	sess, err := a.games.Create(ctx, a.human)
	if err != nil {
		return err
	}
	a.gameID = sess.ID()
	a.flash = ""
	return nil
}

func (a *App) onKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
	default:
		return false
	}
	switch ev.Rune() {
	case 'q':
		return true
	case 'n':
		if err := a.newGame(ctx); err != nil {
			a.showError(err, "")
		}
	case 'r':
		a.flash = ""
		id := a.gameID
		go func() {
			// Chooser failures come back as EventTurnFailed.
			_, err := a.games.Retry(ctx, id)
			if errors.Is(err, engine.ErrNotYourTurn) || errors.Is(err, engine.ErrTurnInFlight) || errors.Is(err, game.ErrGameNotFound) {
				_ = a.S.PostEvent(tcell.NewEventInterrupt(retryRejected{gameID: id, err: err}))
			}
		}()
	}
	return false
}

func (a *App) onMouse(ctx context.Context, ev *tcell.EventMouse) {
	down := ev.Buttons()&tcell.Button1 != 0
	if !down || a.pressed {
		a.pressed = down
		return
	}
	a.pressed = true
	pos, ok := squareAt(ev.Position())
	if !ok {
		return
	}
	res, err := a.games.Click(ctx, a.gameID, pos)
	if err != nil {
		a.showError(err, "")
		return
	}
	if res.Outcome != engine.ClickIgnored {
		a.flash = ""
	}
}

func (a *App) onGameEvent(ev game.Event) {
	if ev.GameID != a.gameID {
		return
	}
	switch ev.Kind {
	case game.EventTurnFailed:
		a.showError(ev.Err, ev.State.Active)
	case game.EventMoved:
		if ev.Entry != nil && ev.Entry.Color != a.human {
			a.flash = ""
		}
	}
}

func (a *App) showError(err error, active board.Color) {
	de := a.format.Error(err, a.gameID, active)
	a.flash = de.Message
	if de.Retryable {
		a.flash += "  [r] retry"
	}
}

// squareAt maps a terminal cell to a board square.
func squareAt(x, y int) (board.Position, bool) {
	if x < boardX || y < boardY {
		return board.Position{}, false
	}
	p := board.Pos((y-boardY)/cellH, (x-boardX)/cellW)
	return p, p.Valid()
}

// squareOrigin is the top-left cell of a square.
func squareOrigin(p board.Position) (x, y int) {
	return boardX + p.Col*cellW, boardY + p.Row*cellH
}
