package ucioracle

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
)

type fakeSearcher struct {
	res     SearchResult
	err     error
	lastFEN string
}

func (f *fakeSearcher) Search(_ context.Context, _ Level, fen string) (SearchResult, error) {
	f.lastFEN = fen
	return f.res, f.err
}

func mustLevel(t *testing.T, name string) Level {
	t.Helper()
	l, err := LookupLevel(name)
	if err != nil {
		t.Fatalf("LookupLevel(%q): %v", name, err)
	}
	return l
}

func TestOracleSkipsCandidatesOutsideGridRules(t *testing.T) {
	// O-O style and promotion-free engine lines: the first candidate is not a grid move.
	fake := &fakeSearcher{res: SearchResult{
		Candidates: []Candidate{
			{Move: "e8g8", EvalCP: 40, Principal: []string{"e8g8"}},
			{Move: "g8f6", EvalCP: 25, Principal: []string{"g8f6", "b1c3"}},
		},
		BestMove: "e8g8",
	}}
	o, err := New(fake, mustLevel(t, "master"), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b := board.Initial()
	m, err := o.ChooseMove(context.Background(), b, board.Black, chooser.Enumerate(b, board.Black))
	if err != nil {
		t.Fatalf("ChooseMove: %v", err)
	}
	if m.UCI() != "g8f6" {
		t.Errorf("move = %s; want g8f6", m.UCI())
	}
	if !strings.Contains(m.Rationale, "+25cp") {
		t.Errorf("rationale = %q; want evaluation", m.Rationale)
	}
	if want := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR b - - 0 1"; fake.lastFEN != want {
		t.Errorf("fen = %q; want %q", fake.lastFEN, want)
	}
}

func TestOracleBestMoveOnly(t *testing.T) {
	fake := &fakeSearcher{res: SearchResult{BestMove: "d7d5"}}
	o, _ := New(fake, mustLevel(t, "level8"), nil)
	b := board.Initial()
	m, err := o.ChooseMove(context.Background(), b, board.Black, chooser.Enumerate(b, board.Black))
	if err != nil {
		t.Fatalf("ChooseMove: %v", err)
	}
	if m.UCI() != "d7d5" {
		t.Errorf("move = %s; want d7d5", m.UCI())
	}
}

func TestOracleErrors(t *testing.T) {
	b := board.Initial()
	legal := chooser.Enumerate(b, board.Black)

	o, _ := New(&fakeSearcher{err: context.DeadlineExceeded}, mustLevel(t, "level1"), nil)
	if _, err := o.ChooseMove(context.Background(), b, board.Black, legal); !errors.Is(err, chooser.ErrChooserUnavailable) {
		t.Errorf("timeout err = %v; want ErrChooserUnavailable", err)
	}

	o, _ = New(&fakeSearcher{res: SearchResult{BestMove: "e8g8"}}, mustLevel(t, "level1"), nil)
	if _, err := o.ChooseMove(context.Background(), b, board.Black, legal); !errors.Is(err, chooser.ErrUnparseableChoice) {
		t.Errorf("castling err = %v; want ErrUnparseableChoice", err)
	}

	kingless := board.New()
	_ = kingless.Set(board.Pos(1, 0), board.MustParseSymbol("p"))
	if _, err := o.ChooseMove(context.Background(), kingless, board.Black, chooser.Enumerate(kingless, board.Black)); !errors.Is(err, chooser.ErrChooserUnavailable) {
		t.Errorf("kingless err = %v; want ErrChooserUnavailable", err)
	}
}

func TestOracleWeightedPickIsSeeded(t *testing.T) {
	fake := &fakeSearcher{res: SearchResult{Candidates: []Candidate{
		{Move: "e7e5", EvalCP: 30, Principal: []string{"e7e5"}},
		{Move: "c7c5", EvalCP: 20, Principal: []string{"c7c5"}},
		{Move: "e7e6", EvalCP: 10, Principal: []string{"e7e6"}},
	}}}
	b := board.Initial()
	legal := chooser.Enumerate(b, board.Black)

	run := func() []string {
		o, _ := New(fake, mustLevel(t, "level1"), nil)
		o.SetRandomSeed(42)
		var out []string
		for i := 0; i < 20; i++ {
			m, err := o.ChooseMove(context.Background(), b, board.Black, legal)
			if err != nil {
				t.Fatalf("ChooseMove: %v", err)
			}
			out = append(out, m.UCI())
		}
		return out
	}
	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different picks (-first +second):\n%s", diff)
	}
	allowed := map[string]bool{"e7e5": true, "c7c5": true, "e7e6": true}
	for _, mv := range first {
		if !allowed[mv] {
			t.Errorf("picked %s outside the candidate list", mv)
		}
	}
}

func TestLookupLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "level3"},
		{"5", "level5"},
		{"Level7", "level7"},
		{"beginner", "level1"},
		{"master", "level8"},
	}
	for _, tt := range tests {
		l, err := LookupLevel(tt.in)
		if err != nil {
			t.Fatalf("LookupLevel(%q): %v", tt.in, err)
		}
		if l.Name != tt.want {
			t.Errorf("LookupLevel(%q) = %s; want %s", tt.in, l.Name, tt.want)
		}
		if err := l.Validate(); err != nil {
			t.Errorf("%s invalid: %v", l.Name, err)
		}
	}
	if _, err := LookupLevel("level99"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLevelGoTokensAndTimeout(t *testing.T) {
	l := mustLevel(t, "level2")
	tokens, err := l.GoTokens()
	if err != nil {
		t.Fatalf("GoTokens: %v", err)
	}
	if diff := cmp.Diff([]string{"go", "depth", "6", "movetime", "60"}, tokens); diff != "" {
		t.Errorf("go tokens mismatch (-want +got):\n%s", diff)
	}
	if got := l.SearchTimeout(); got != 6180*time.Millisecond {
		t.Errorf("SearchTimeout = %v", got)
	}
	if _, err := (Level{Name: "x"}).GoTokens(); err == nil {
		t.Error("expected error without limits")
	}
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantRank int
		want     Candidate
		ok       bool
	}{
		{
			name:     "multipv cp",
			line:     "info depth 12 seldepth 16 multipv 2 score cp -35 nodes 1000 pv c7c5 g1f3 d7d6",
			wantRank: 2,
			want:     Candidate{Move: "c7c5", EvalCP: -35, Principal: []string{"c7c5", "g1f3", "d7d6"}},
			ok:       true,
		},
		{
			name:     "mate negative",
			line:     "info depth 5 score mate -3 pv e8d8",
			wantRank: 1,
			want:     Candidate{Move: "e8d8", EvalCP: -mateScore, Principal: []string{"e8d8"}},
			ok:       true,
		},
		{name: "no pv", line: "info depth 1 currmove e2e4", ok: false},
		{name: "empty pv", line: "info depth 1 pv", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rank, cand, ok := parseInfo(tt.line)
			if ok != tt.ok {
				t.Fatalf("ok = %v; want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if rank != tt.wantRank {
				t.Errorf("rank = %d; want %d", rank, tt.wantRank)
			}
			if diff := cmp.Diff(tt.want, cand); diff != "" {
				t.Errorf("candidate mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRankCandidatesAndCommands(t *testing.T) {
	got := rankCandidates(map[int]Candidate{3: {Move: "c"}, 1: {Move: "a"}, 2: {Move: "b"}})
	var moves []string
	for _, c := range got {
		moves = append(moves, c.Move)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, moves); diff != "" {
		t.Errorf("rank order mismatch (-want +got):\n%s", diff)
	}
	if got := positionCommand(" 8/8/8/8/8/8/8/8 w - - 0 1 "); got != "position fen 8/8/8/8/8/8/8/8 w - - 0 1\n" {
		t.Errorf("positionCommand = %q", got)
	}
	cmds := optionCommands(mustLevel(t, "level8"))
	for _, c := range cmds {
		if strings.Contains(c, "UCI_Elo") {
			t.Errorf("level8 should not limit strength: %q", c)
		}
	}
	if cmds := optionCommands(mustLevel(t, "level5")); !strings.Contains(strings.Join(cmds, ""), "UCI_Elo value 1500") {
		t.Errorf("level5 options missing elo: %v", cmds)
	}
}
