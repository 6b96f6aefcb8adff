// Package chesspresenter turns engine state into catalog text, wire DTOs and board images.
package chesspresenter

import (
	"errors"
	"strings"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/msgcat"
	"github.com/park285/cheese-gridchess/pkg/chessdto"
)

// Formatter renders session state with the message catalog.
type Formatter struct {
	catalog *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter {
	return &Formatter{catalog: cat}
}

func (f *Formatter) Text(key string, data any) string { return f.catalog.Text(key, data) }

// Banner describes whose turn it is for the given state.
func (f *Formatter) Banner(st engine.State) string {
	color := TitleColor(st.Active)
	switch st.Phase {
	case engine.AwaitingHumanDestination:
		piece, origin := "", ""
		if st.Selected != nil {
			origin = st.Selected.String()
			if b, err := board.FromSnapshot(st.Board); err == nil {
				piece = b.At(*st.Selected).Kind().Name()
			}
		}
		return f.catalog.Text("turn.destination", map[string]any{
			"Color": color, "Piece": piece, "Origin": origin, "Count": len(st.Destinations),
		})
	case engine.AwaitingAutomatedMove:
		return f.catalog.Text("turn.automated", map[string]any{"Color": color})
	default:
		return f.catalog.Text("turn.human", map[string]any{"Color": color})
	}
}

func (f *Formatter) HistoryLine(e engine.HistoryEntry) string {
	data := map[string]any{"Ply": e.Ply, "Notation": e.Notation(), "Reason": e.Rationale}
	if e.Rationale == "" {
		return f.catalog.Text("history.line", data)
	}
	return f.catalog.Text("history.line_reason", data)
}

// Opening names the ECO opening the history follows, or "".
func (f *Formatter) Opening(history []engine.HistoryEntry) string {
	code, title := engine.OpeningLabel(history)
	if code == "" {
		return ""
	}
	return f.catalog.Text("opening.label", map[string]any{"Code": code, "Title": title})
}

func (f *Formatter) MoveRecord(e engine.HistoryEntry) *chessdto.MoveRecord {
	return &chessdto.MoveRecord{
		Ply:     e.Ply,
		Color:   string(e.Color),
		From:    e.From,
		To:      e.To,
		Capture: e.Capture,
		Reason:  e.Rationale,
		Text:    f.HistoryLine(e),
	}
}

func (f *Formatter) State(st engine.State) *chessdto.SessionState {
	out := &chessdto.SessionState{
		GameID:       st.GameID,
		Human:        string(st.Human),
		Active:       string(st.Active),
		Phase:        string(st.Phase),
		Board:        st.Board.Rows(),
		Destinations: ToSquares(st.Destinations),
		MoveCount:    st.MoveCount,
		Banner:       f.Banner(st),
	}
	if st.Selected != nil {
		sq := ToSquare(*st.Selected)
		out.Selected = &sq
	}
	if st.LastMove != nil {
		out.LastMove = f.MoveRecord(*st.LastMove)
	}
	return out
}

func (f *Formatter) History(id string, history []engine.HistoryEntry) *chessdto.HistoryView {
	view := &chessdto.HistoryView{GameID: id, Moves: make([]chessdto.MoveRecord, 0, len(history))}
	for _, e := range history {
		view.Moves = append(view.Moves, *f.MoveRecord(e))
	}
	view.Opening = f.Opening(history)
	return view
}

// Error maps engine and manager errors to wire errors with catalog messages.
func (f *Formatter) Error(err error, gameID string, active board.Color) *chessdto.DomainError {
	code, retryable := ErrorCode(err)
	msg := f.catalog.Text("error."+code, map[string]any{"GameID": gameID, "Color": TitleColor(active)})
	return &chessdto.DomainError{Code: code, Message: msg, Retryable: retryable}
}

// ErrorCode classifies err into a wire code and whether retrying may help.
func ErrorCode(err error) (code string, retryable bool) {
	switch {
	case errors.Is(err, engine.ErrIllegalMove):
		return chessdto.CodeIllegalMove, false
	case errors.Is(err, engine.ErrNotYourTurn):
		return chessdto.CodeNotYourTurn, false
	case errors.Is(err, engine.ErrTurnInFlight):
		return chessdto.CodeTurnInFlight, true
	case errors.Is(err, engine.ErrOutOfBounds):
		return chessdto.CodeOutOfBounds, false
	case errors.Is(err, engine.ErrChooserUnavailable):
		return chessdto.CodeChooserUnavailable, true
	case errors.Is(err, engine.ErrUnparseableChoice):
		return chessdto.CodeUnparseableChoice, true
	case errors.Is(err, engine.ErrNoLegalMoves):
		return chessdto.CodeNoLegalMoves, false
	case errors.Is(err, game.ErrGameNotFound):
		return chessdto.CodeGameNotFound, false
	case errors.Is(err, ErrBadRequest):
		return chessdto.CodeBadRequest, false
	default:
		return chessdto.CodeInternal, false
	}
}

func TitleColor(c board.Color) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
