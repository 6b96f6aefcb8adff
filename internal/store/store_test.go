package store

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/redis/go-redis/v9"
)

const gameA = "0f8fad5b-d9cb-469f-a165-70867728950e"

func newTestRedis(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStoreFromClient(rdb, ttl), mr
}

func playedSession(t *testing.T) *engine.Session {
	t.Helper()
	s, err := engine.New(chooser.First{}, engine.Config{GameID: gameA, Human: board.White})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	from, _ := board.ParseSquare("e2")
	to, _ := board.ParseSquare("e4")
	if _, err := s.ApplyHumanMove(context.Background(), from, to); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	return s
}

func TestRedisSessionRoundTrip(t *testing.T) {
	st, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	saved := playedSession(t).Export()
	if err := st.SaveSession(ctx, saved); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if ttl := mr.TTL("gridchess:session:" + gameA); ttl != time.Hour {
		t.Errorf("session ttl = %v, want 1h", ttl)
	}

	got, err := st.LoadSession(ctx, gameA)
	if err != nil || got == nil {
		t.Fatalf("LoadSession: %v %v", got, err)
	}
	if diff := cmp.Diff(saved, *got); diff != "" {
		t.Errorf("loaded session mismatch (-want +got):\n%s", diff)
	}
	if _, err := engine.Restore(chooser.First{}, engine.Config{}, *got); err != nil {
		t.Errorf("Restore from loaded session: %v", err)
	}

	if err := st.DeleteSession(ctx, gameA); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	got, err = st.LoadSession(ctx, gameA)
	if err != nil || got != nil {
		t.Errorf("after delete LoadSession = %v, %v; want nil, nil", got, err)
	}
}

func TestRedisSessionExpires(t *testing.T) {
	st, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()
	if err := st.SaveSession(ctx, playedSession(t).Export()); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	got, err := st.LoadSession(ctx, gameA)
	if err != nil || got != nil {
		t.Errorf("expired LoadSession = %v, %v; want nil, nil", got, err)
	}
}

func TestRedisRejectsEmptyGameID(t *testing.T) {
	st, _ := newTestRedis(t, 0)
	ctx := context.Background()
	if err := st.SaveSession(ctx, engine.Saved{}); err == nil {
		t.Error("SaveSession with empty id should fail")
	}
	if err := st.RecordBoard(ctx, " ", board.Initial().Snapshot()); err == nil {
		t.Error("RecordBoard with empty id should fail")
	}
}

func TestRedisBoardTimeline(t *testing.T) {
	st, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	s := playedSession(t)
	first := board.Initial().Snapshot()
	second := s.CurrentState().Board
	for _, snap := range []board.Snapshot{first, second} {
		if err := st.RecordBoard(ctx, gameA, snap); err != nil {
			t.Fatalf("RecordBoard: %v", err)
		}
	}
	if err := st.RecordBoard(ctx, "other", first); err != nil {
		t.Fatalf("RecordBoard other: %v", err)
	}
	if ttl := mr.TTL("gridchess:boards:" + gameA); ttl != time.Hour {
		t.Errorf("timeline ttl = %v, want 1h", ttl)
	}

	recs, err := st.Boards(ctx, gameA)
	if err != nil {
		t.Fatalf("Boards: %v", err)
	}
	if len(recs) != 2 || recs[0].Seq != 1 || recs[1].Seq != 2 {
		t.Fatalf("Boards = %+v", recs)
	}
	if diff := cmp.Diff(second, recs[1].Board); diff != "" {
		t.Errorf("second board mismatch (-want +got):\n%s", diff)
	}

	games, err := st.RecentGames(ctx, 10)
	if err != nil {
		t.Fatalf("RecentGames: %v", err)
	}
	want := []GameSummary{
		{GameID: "other", Boards: 1},
		{GameID: gameA, Boards: 2},
	}
	if diff := cmp.Diff(want, games, cmpopts.IgnoreFields(GameSummary{}, "FirstAt", "LastAt")); diff != "" {
		t.Errorf("RecentGames mismatch (-want +got):\n%s", diff)
	}
	if !games[1].LastAt.After(games[1].FirstAt) {
		t.Errorf("timeline bounds = %v..%v", games[1].FirstAt, games[1].LastAt)
	}
}

func TestRedisRecentGamesDropsExpired(t *testing.T) {
	st, mr := newTestRedis(t, time.Minute)
	ctx := context.Background()
	if err := st.RecordBoard(ctx, gameA, board.Initial().Snapshot()); err != nil {
		t.Fatalf("RecordBoard: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	games, err := st.RecentGames(ctx, 0)
	if err != nil {
		t.Fatalf("RecentGames: %v", err)
	}
	if len(games) != 0 {
		t.Errorf("RecentGames = %+v, want none", games)
	}
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { clock = clock.Add(time.Second); return clock }

	_ = m.RecordBoard(ctx, "a", board.Initial().Snapshot())
	_ = m.RecordBoard(ctx, "b", board.Initial().Snapshot())
	_ = m.RecordBoard(ctx, "a", board.New().Snapshot())

	recs, _ := m.Boards(ctx, "a")
	if len(recs) != 2 || recs[1].Seq != 2 {
		t.Fatalf("Boards(a) = %+v", recs)
	}
	games, _ := m.RecentGames(ctx, 1)
	if len(games) != 1 || games[0].GameID != "a" || games[0].Boards != 2 {
		t.Errorf("RecentGames(1) = %+v", games)
	}

	saved := playedSession(t).Export()
	_ = m.SaveSession(ctx, saved)
	got, err := m.LoadSession(ctx, gameA)
	if err != nil || got == nil {
		t.Fatalf("LoadSession: %v %v", got, err)
	}
	if diff := cmp.Diff(saved, *got); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
	_ = m.DeleteSession(ctx, gameA)
	if got, _ := m.LoadSession(ctx, gameA); got != nil {
		t.Errorf("LoadSession after delete = %+v", got)
	}
}

type failingRecorder struct{ err error }

func (f failingRecorder) RecordBoard(context.Context, string, board.Snapshot) error { return f.err }

func TestHooks(t *testing.T) {
	m := NewMemoryStore()
	s, err := engine.New(chooser.First{}, engine.Config{GameID: gameA, Human: board.White})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	s.Subscribe(RecordHook(m))
	s.Subscribe(SaveHook(m, s))
	s.Subscribe(RecordHook(failingRecorder{err: errors.New("db down")}))

	ctx := context.Background()
	from, _ := board.ParseSquare("d2")
	to, _ := board.ParseSquare("d4")
	if _, err := s.ApplyHumanMove(ctx, from, to); err != nil {
		t.Fatalf("ApplyHumanMove: %v", err)
	}
	if _, err := s.RunAutomatedTurn(ctx); err != nil {
		t.Fatalf("RunAutomatedTurn: %v", err)
	}

	recs, _ := m.Boards(ctx, gameA)
	if len(recs) != 2 {
		t.Fatalf("recorded %d boards, want 2", len(recs))
	}
	if diff := cmp.Diff(s.CurrentState().Board, recs[1].Board); diff != "" {
		t.Errorf("last recorded board mismatch (-want +got):\n%s", diff)
	}
	saved, _ := m.LoadSession(ctx, gameA)
	if saved == nil || len(saved.History) != 2 {
		t.Errorf("saved session = %+v", saved)
	}
}

func TestBoardColumnEncoding(t *testing.T) {
	raw, err := encodeBoard(board.Initial().Snapshot())
	if err != nil {
		t.Fatalf("encodeBoard: %v", err)
	}
	if want := `[["r","n","b","q","k","b","n","r"],["p","p","p","p","p","p","p","p"],[" "," "," "," "," "," "," "," "]`; len(raw) < len(want) || raw[:len(want)] != want {
		t.Errorf("encodeBoard prefix = %s", raw)
	}
	snap, err := decodeBoard(raw)
	if err != nil {
		t.Fatalf("decodeBoard: %v", err)
	}
	if diff := cmp.Diff(board.Initial().Snapshot(), snap); diff != "" {
		t.Errorf("decoded board mismatch (-want +got):\n%s", diff)
	}
	if _, err := decodeBoard(`[["r"]]`); err == nil {
		t.Error("short grid should fail to decode")
	}
}

func TestParseGameID(t *testing.T) {
	if id, err := parseGameID(" " + gameA + " "); err != nil || id != gameA {
		t.Errorf("parseGameID = %q, %v", id, err)
	}
	if _, err := parseGameID("not-a-uuid"); err == nil {
		t.Error("parseGameID should reject non-uuid ids")
	}
	if _, err := NewPostgresRepository("  "); err == nil {
		t.Error("NewPostgresRepository should require a url")
	}
}
