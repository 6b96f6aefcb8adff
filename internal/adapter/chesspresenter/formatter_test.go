package chesspresenter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/msgcat"
	"github.com/park285/cheese-gridchess/internal/store"
	"github.com/park285/cheese-gridchess/pkg/chessdto"
)

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return NewFormatter(cat)
}

func newSession(t *testing.T) *engine.Session {
	t.Helper()
	s, err := engine.New(chooser.First{}, engine.Config{GameID: "g1", Human: board.White})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return s
}

func TestErrorCodes(t *testing.T) {
	f := newFormatter(t)
	tests := []struct {
		err       error
		code      string
		retryable bool
	}{
		{fmt.Errorf("x: %w", engine.ErrIllegalMove), chessdto.CodeIllegalMove, false},
		{engine.ErrNotYourTurn, chessdto.CodeNotYourTurn, false},
		{engine.ErrTurnInFlight, chessdto.CodeTurnInFlight, true},
		{chooser.MapError(context.DeadlineExceeded), chessdto.CodeChooserUnavailable, true},
		{fmt.Errorf("bad: %w", engine.ErrUnparseableChoice), chessdto.CodeUnparseableChoice, true},
		{engine.ErrNoLegalMoves, chessdto.CodeNoLegalMoves, false},
		{fmt.Errorf("g: %w", game.ErrGameNotFound), chessdto.CodeGameNotFound, false},
		{ErrBadRequest, chessdto.CodeBadRequest, false},
		{errors.New("boom"), chessdto.CodeInternal, false},
	}
	for _, tt := range tests {
		de := f.Error(tt.err, "g1", board.Black)
		if de.Code != tt.code || de.Retryable != tt.retryable || de.Message == "" || strings.HasPrefix(de.Message, "error.") {
			t.Errorf("Error(%v) = %+v", tt.err, de)
		}
	}
}

func TestStateAndBanner(t *testing.T) {
	f := newFormatter(t)
	s := newSession(t)
	ctx := context.Background()

	if got := f.Banner(s.CurrentState()); got != "White to move. Select a piece." {
		t.Errorf("initial banner = %q", got)
	}
	if _, err := s.Click(ctx, board.Pos(7, 6)); err != nil {
		t.Fatalf("Click: %v", err)
	}
	st := f.State(s.CurrentState())
	if st.Selected == nil || *st.Selected != (chessdto.Square{Row: 7, Col: 6}) {
		t.Errorf("selected = %+v", st.Selected)
	}
	want := []chessdto.Square{{Row: 5, Col: 5}, {Row: 5, Col: 7}}
	if diff := cmp.Diff(want, st.Destinations); diff != "" {
		t.Errorf("destinations (-want +got):\n%s", diff)
	}
	if !strings.Contains(st.Banner, "g1") {
		t.Errorf("destination banner = %q, want origin square", st.Banner)
	}
	if st.Board[7][6] != "N" || st.Board[0][4] != "k" {
		t.Errorf("board rows = %v", st.Board)
	}
}

func TestHistoryView(t *testing.T) {
	f := newFormatter(t)
	s := newSession(t)
	ctx := context.Background()
	if _, err := s.ApplyHumanMove(ctx, board.Pos(6, 4), board.Pos(4, 4)); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	if _, err := s.RunAutomatedTurn(ctx); err != nil {
		t.Fatalf("RunAutomatedTurn: %v", err)
	}
	view := f.History(s.ID(), s.History())
	if len(view.Moves) != 2 {
		t.Fatalf("moves = %+v", view.Moves)
	}
	if view.Moves[0].Text != "1. Pe2 e4" || view.Moves[0].Color != "white" {
		t.Errorf("first move = %+v", view.Moves[0])
	}
	if view.Moves[1].Color != "black" || view.Moves[1].Reason == "" {
		t.Errorf("automated move = %+v", view.Moves[1])
	}
}

func TestSquaresAndSummaries(t *testing.T) {
	if _, err := FromSquare(nil); !errors.Is(err, ErrBadRequest) {
		t.Errorf("FromSquare(nil) err = %v", err)
	}
	p, err := FromSquare(&chessdto.Square{Row: 3, Col: 2})
	if err != nil || p != board.Pos(3, 2) {
		t.Errorf("FromSquare = %v, %v", p, err)
	}
	if ToSquares(nil) != nil {
		t.Error("ToSquares(nil) should be nil")
	}
	got := ToDTOSummaries([]store.GameSummary{{GameID: "a", Boards: 3}})
	if len(got) != 1 || got[0].GameID != "a" || got[0].Boards != 3 {
		t.Errorf("summaries = %+v", got)
	}
	if got := ToDTOSummaries(nil); got == nil || len(got) != 0 {
		t.Errorf("empty summaries = %#v", got)
	}
}

func TestPresenterBoardPNG(t *testing.T) {
	p := NewPresenter(newFormatter(t), nil)
	s := newSession(t)
	raw, err := p.BoardPNG(context.Background(), s.CurrentState())
	if err != nil {
		t.Fatalf("BoardPNG: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Errorf("png.Decode: %v", err)
	}
}
