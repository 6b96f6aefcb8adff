package rules

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-gridchess/internal/board"
)

func sq(t *testing.T, s string) board.Position {
	t.Helper()
	p, err := board.ParseSquare(s)
	if err != nil {
		t.Fatalf("ParseSquare(%q): %v", s, err)
	}
	return p
}

func place(t *testing.T, b *board.Board, square, symbol string) {
	t.Helper()
	if err := b.Set(sq(t, square), board.MustParseSymbol(symbol)); err != nil {
		t.Fatalf("Set(%s): %v", square, err)
	}
}

func TestInitialBoardScenarios(t *testing.T) {
	b := board.Initial()
	tests := []struct {
		name     string
		from, to string
		want     bool
	}{
		{"pawn a2-a3", "a2", "a3", true},
		{"pawn a2-a4 double step", "a2", "a4", true},
		{"pawn a2-a5 too far", "a2", "a5", false},
		{"pawn a2-b3 diagonal onto empty", "a2", "b3", false},
		{"rook a1-h1 blocked", "a1", "h1", false},
		{"rook a1-a3 blocked by own pawn", "a1", "a3", false},
		{"knight b1-c3", "b1", "c3", true},
		{"knight b1-a3", "b1", "a3", true},
		{"knight b1-d2 own pawn", "b1", "d2", false},
		{"bishop c1-e3 blocked", "c1", "e3", false},
		{"queen d1-d3 blocked", "d1", "d3", false},
		{"king e1-e2 own pawn", "e1", "e2", false},
		{"black pawn e7-e5", "e7", "e5", true},
		{"black knight g8-f6", "g8", "f6", true},
		{"empty origin", "e4", "e5", false},
		{"same square", "e2", "e2", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLegalMove(b, sq(t, tt.from), sq(t, tt.to)); got != tt.want {
				t.Errorf("IsLegalMove(%s,%s) = %v; want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPawnBlockedAndCapture(t *testing.T) {
	b := board.New()
	place(t, b, "e7", "p")
	place(t, b, "e6", "P")
	if IsLegalMove(b, sq(t, "e7"), sq(t, "e6")) {
		t.Error("e7-e6 onto occupied square should be illegal")
	}
	if IsLegalMove(b, sq(t, "e7"), sq(t, "e5")) {
		t.Error("e7-e5 through occupied square should be illegal")
	}

	b2 := board.New()
	place(t, b2, "e7", "p")
	place(t, b2, "d6", "N")
	if !IsLegalMove(b2, sq(t, "e7"), sq(t, "d6")) {
		t.Error("e7xd6 capture should be legal")
	}
	if IsLegalMove(b2, sq(t, "e7"), sq(t, "f6")) {
		t.Error("e7-f6 diagonal onto empty should be illegal")
	}
	place(t, b2, "f6", "n")
	if IsLegalMove(b2, sq(t, "e7"), sq(t, "f6")) {
		t.Error("e7xf6 own piece should be illegal")
	}
}

func TestPawnDirectionAndStartRank(t *testing.T) {
	b := board.New()
	place(t, b, "c3", "P")
	place(t, b, "c6", "p")
	tests := []struct {
		from, to string
		want     bool
	}{
		{"c3", "c4", true},
		{"c3", "c5", false}, // not on start rank
		{"c3", "c2", false}, // backwards
		{"c6", "c5", true},
		{"c6", "c4", false},
		{"c6", "c7", false},
	}
	for _, tt := range tests {
		if got := IsLegalMove(b, sq(t, tt.from), sq(t, tt.to)); got != tt.want {
			t.Errorf("IsLegalMove(%s,%s) = %v; want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSelfCaptureNeverLegal(t *testing.T) {
	b := board.Initial()
	for _, color := range []board.Color{board.White, board.Black} {
		origins := b.Occupied(color)
		for _, from := range origins {
			for _, to := range origins {
				if IsLegalMove(b, from, to) {
					t.Errorf("%s %v->%v captures own piece", color, from, to)
				}
			}
		}
	}
}

func TestKnightIgnoresBlockers(t *testing.T) {
	b := board.New()
	place(t, b, "d4", "N")
	dests := []string{"b3", "b5", "c2", "c6", "e2", "e6", "f3", "f5"}
	before := make(map[string]bool, len(dests))
	for _, d := range dests {
		before[d] = IsLegalMove(b, sq(t, "d4"), sq(t, d))
		if !before[d] {
			t.Fatalf("knight d4-%s should be legal on empty board", d)
		}
	}
	for _, blocker := range []string{"c4", "e4", "d3", "d5", "c3", "e5", "c5", "e3"} {
		place(t, b, blocker, "p")
	}
	for _, d := range dests {
		if got := IsLegalMove(b, sq(t, "d4"), sq(t, d)); got != before[d] {
			t.Errorf("knight d4-%s changed legality with blockers: %v", d, got)
		}
	}
}

func TestSlidersBlockedByAnyColor(t *testing.T) {
	tests := []struct {
		name     string
		piece    string
		from, to string
		between  string
	}{
		{"rook file", "R", "a1", "a8", "a4"},
		{"rook rank", "R", "a1", "h1", "b1"},
		{"bishop diagonal", "B", "c1", "h6", "e3"},
		{"queen file", "Q", "d1", "d8", "d5"},
		{"queen diagonal", "q", "a8", "h1", "d5"},
	}
	for _, tt := range tests {
		for _, blocker := range []string{"p", "P"} {
			t.Run(tt.name+"/"+blocker, func(t *testing.T) {
				b := board.New()
				place(t, b, tt.from, tt.piece)
				if !IsLegalMove(b, sq(t, tt.from), sq(t, tt.to)) {
					t.Fatalf("%s %s-%s should be legal on empty board", tt.piece, tt.from, tt.to)
				}
				place(t, b, tt.between, blocker)
				if IsLegalMove(b, sq(t, tt.from), sq(t, tt.to)) {
					t.Errorf("%s %s-%s should be blocked by %s on %s", tt.piece, tt.from, tt.to, blocker, tt.between)
				}
			})
		}
	}
}

func TestGeometry(t *testing.T) {
	b := board.New()
	place(t, b, "d4", "Q")
	place(t, b, "a1", "K")
	place(t, b, "h8", "b")
	tests := []struct {
		from, to string
		want     bool
	}{
		{"d4", "e6", false}, // queen does not jump like a knight
		{"d4", "h8", true},  // capture at the end of a diagonal
		{"d4", "d1", true},
		{"a1", "b2", true},
		{"a1", "a3", false}, // king moves one square
		{"h8", "a1", false}, // blocked by the queen on d4
		{"h8", "e5", true},
	}
	for _, tt := range tests {
		if got := IsLegalMove(b, sq(t, tt.from), sq(t, tt.to)); got != tt.want {
			t.Errorf("IsLegalMove(%s,%s) = %v; want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsLegalMoveIsPure(t *testing.T) {
	b := board.Initial()
	before := b.Snapshot()
	for _, from := range board.All() {
		for _, to := range board.All() {
			first := IsLegalMove(b, from, to)
			if second := IsLegalMove(b, from, to); first != second {
				t.Fatalf("non-deterministic result for %v->%v", from, to)
			}
		}
	}
	if diff := cmp.Diff(before, b.Snapshot()); diff != "" {
		t.Errorf("board mutated (-before +after):\n%s", diff)
	}
}

func TestOutOfBoundsIsIllegal(t *testing.T) {
	b := board.Initial()
	if IsLegalMove(b, board.Pos(6, 0), board.Pos(-1, 0)) {
		t.Error("move off the board should be illegal")
	}
	if IsLegalMove(b, board.Pos(8, 0), board.Pos(5, 0)) {
		t.Error("origin off the board should be illegal")
	}
}
