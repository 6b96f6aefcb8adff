package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/msgcat"
	"github.com/park285/cheese-gridchess/internal/store"
	"github.com/park285/cheese-gridchess/pkg/chessdto"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const testGameID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

type fixture struct {
	srv     *httptest.Server
	manager *game.Manager
	archive *store.MemoryStore
}

func newFixture(t *testing.T, ch chooser.Chooser) *fixture {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	archive := store.NewMemoryStore()
	ids := 0
	m := game.NewManager(ch,
		game.WithRecorder(archive),
		game.WithChooserTimeout(time.Second),
		game.WithIDGenerator(func() string { ids++; return fmt.Sprintf("game-%d", ids) }),
	)
	srv := httptest.NewServer(New(m, cat, WithArchive(archive), WithPingInterval(0)).Handler())
	t.Cleanup(func() {
		srv.Close()
		m.Wait()
	})
	return &fixture{srv: srv, manager: m, archive: archive}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("websocket.Dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, in chessdto.ClientFrame) chessdto.ServerFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, in); err != nil {
		t.Fatalf("write %s: %v", in.Type, err)
	}
	return read(t, conn)
}

func read(t *testing.T, conn *websocket.Conn) chessdto.ServerFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out chessdto.ServerFrame
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read: %v", err)
	}
	return out
}

func TestGridProtocol(t *testing.T) {
	f := newFixture(t, chooser.First{})
	conn := f.dial(t)

	created := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameNew, Human: "white"})
	if created.Type != chessdto.FrameState || created.State == nil {
		t.Fatalf("new reply = %+v", created)
	}
	id := created.GameID
	if created.State.Phase != string(engine.AwaitingHumanSelection) || created.State.Banner != "White to move. Select a piece." {
		t.Errorf("initial state = %+v", created.State)
	}
	if got := created.State.Board[7][4]; got != "K" {
		t.Errorf("board[7][4] = %q, want K", got)
	}

	dest := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameDestinations, GameID: id, Square: &chessdto.Square{Row: 7, Col: 1}})
	want := []chessdto.Square{{Row: 5, Col: 0}, {Row: 5, Col: 2}}
	if fmt.Sprint(dest.Destinations) != fmt.Sprint(want) {
		t.Errorf("b1 destinations = %v, want %v", dest.Destinations, want)
	}

	sel := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameClick, GameID: id, Square: &chessdto.Square{Row: 6, Col: 4}})
	if sel.Outcome != string(engine.ClickSelected) || sel.State.Selected == nil || len(sel.State.Destinations) != 2 {
		t.Fatalf("select reply = %+v", sel)
	}

	if err := wsjson.Write(context.Background(), conn, chessdto.ClientFrame{Type: chessdto.FrameClick, GameID: id, Square: &chessdto.Square{Row: 4, Col: 4}}); err != nil {
		t.Fatalf("write click: %v", err)
	}
	var moved, reply bool
	for !(moved && reply) {
		fr := read(t, conn)
		switch {
		case fr.Outcome == string(engine.ClickMoved):
			reply = true
			if fr.Move == nil || fr.Move.Text != "1. Pe2 e4" {
				t.Errorf("click move = %+v", fr.Move)
			}
		case fr.Move != nil && fr.Move.Color == string(board.Black):
			moved = true
			if fr.State.Active != string(board.White) {
				t.Errorf("after automated move active = %s", fr.State.Active)
			}
		default:
			t.Fatalf("unexpected frame %+v", fr)
		}
	}

	hist := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameHistory, GameID: id})
	if hist.History == nil || len(hist.History.Moves) != 2 {
		t.Fatalf("history = %+v", hist.History)
	}

	illegal := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameMove, GameID: id, From: &chessdto.Square{Row: 6, Col: 0}, To: &chessdto.Square{Row: 3, Col: 0}})
	if illegal.Type != chessdto.FrameError || illegal.Error.Code != chessdto.CodeIllegalMove {
		t.Errorf("illegal move reply = %+v", illegal)
	}

	unknown := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameState, GameID: "nope"})
	if unknown.Error == nil || unknown.Error.Code != chessdto.CodeGameNotFound {
		t.Errorf("unknown game reply = %+v", unknown)
	}

	bad := roundTrip(t, conn, chessdto.ClientFrame{Type: "resign"})
	if bad.Error == nil || bad.Error.Code != chessdto.CodeBadRequest {
		t.Errorf("unknown frame reply = %+v", bad)
	}
}

func TestTurnFailureIsPushedAndRetried(t *testing.T) {
	var ok atomic.Bool
	ch := chooser.Func(func(ctx context.Context, b *board.Board, c board.Color, legal []chooser.Descriptor) (board.Move, error) {
		if !ok.Load() {
			return board.Move{}, errors.New("dial tcp: connection refused")
		}
		return legal[0].Move, nil
	})
	f := newFixture(t, ch)
	conn := f.dial(t)

	created := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameNew})
	id := created.GameID
	first := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameMove, GameID: id, From: &chessdto.Square{Row: 6, Col: 3}, To: &chessdto.Square{Row: 4, Col: 3}})
	second := read(t, conn)
	mv, failed := first, second
	if first.Type == chessdto.FrameError {
		mv, failed = second, first
	}
	if mv.Type != chessdto.FrameMove || mv.Move == nil {
		t.Fatalf("move reply = %+v", mv)
	}
	if failed.Type != chessdto.FrameError || failed.Error.Code != chessdto.CodeChooserUnavailable || !failed.Error.Retryable {
		t.Fatalf("failure push = %+v", failed)
	}
	if failed.State == nil || failed.State.Phase != string(engine.AwaitingAutomatedMove) {
		t.Errorf("failure state = %+v", failed.State)
	}

	ok.Store(true)
	retried := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameRetry, GameID: id})
	if retried.Move == nil || retried.Move.Color != string(board.Black) {
		t.Errorf("retry push = %+v", retried)
	}

	again := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameRetry, GameID: id})
	if again.Error == nil || again.Error.Code != chessdto.CodeNotYourTurn {
		t.Errorf("retry on human turn = %+v", again)
	}
}

func TestRetryDoesNotBlockOtherFrames(t *testing.T) {
	var mode atomic.Int32
	release := make(chan struct{})
	ch := chooser.Func(func(ctx context.Context, b *board.Board, c board.Color, legal []chooser.Descriptor) (board.Move, error) {
		switch mode.Load() {
		case 0:
			return board.Move{}, errors.New("dial tcp: connection refused")
		default:
			select {
			case <-release:
			case <-ctx.Done():
				return board.Move{}, ctx.Err()
			}
			return legal[0].Move, nil
		}
	})
	f := newFixture(t, ch)
	conn := f.dial(t)

	created := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameNew})
	id := created.GameID
	roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameMove, GameID: id, From: &chessdto.Square{Row: 6, Col: 4}, To: &chessdto.Square{Row: 4, Col: 4}})
	read(t, conn)
	if st, err := f.manager.Get(context.Background(), id); err != nil || st.CurrentState().Phase != engine.AwaitingAutomatedMove {
		t.Fatalf("game should wait for the automated reply: %v", err)
	}

	mode.Store(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, chessdto.ClientFrame{Type: chessdto.FrameRetry, GameID: id}); err != nil {
		t.Fatalf("write retry: %v", err)
	}
	hist := roundTrip(t, conn, chessdto.ClientFrame{Type: chessdto.FrameHistory, GameID: id})
	if hist.Type != chessdto.FrameHistory || hist.History == nil || len(hist.History.Moves) != 1 {
		t.Fatalf("history during retry = %+v", hist)
	}

	close(release)
	moved := read(t, conn)
	if moved.Move == nil || moved.Move.Color != string(board.Black) {
		t.Errorf("retry push = %+v", moved)
	}
}

func TestBoardTimeline(t *testing.T) {
	f := newFixture(t, chooser.First{})
	ctx := context.Background()
	sess, err := f.manager.Create(ctx, board.White)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.manager.Move(ctx, sess.ID(), board.Pos(6, 4), board.Pos(4, 4)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	f.manager.Wait()

	res, err := http.Get(f.srv.URL + "/games/" + sess.ID() + "/boards")
	if err != nil {
		t.Fatalf("boards: %v", err)
	}
	var frame chessdto.ServerFrame
	if err := json.NewDecoder(res.Body).Decode(&frame); err != nil {
		t.Fatalf("decode boards: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK || frame.Type != chessdto.FrameBoards || len(frame.Boards) != 2 {
		t.Fatalf("boards = %d %+v", res.StatusCode, frame)
	}
	if frame.Boards[0].Seq >= frame.Boards[1].Seq {
		t.Errorf("timeline out of order: %d, %d", frame.Boards[0].Seq, frame.Boards[1].Seq)
	}
	if got := frame.Boards[0].Board[4][4]; got != "P" {
		t.Errorf("first board e4 = %q; want P", got)
	}

	res, err = http.Get(f.srv.URL + "/games/" + testGameID + "/boards")
	if err != nil {
		t.Fatalf("missing boards: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("missing timeline status = %d", res.StatusCode)
	}
}

func TestHTTPEndpoints(t *testing.T) {
	f := newFixture(t, chooser.First{})
	ctx := context.Background()
	sess, err := f.manager.Create(ctx, board.White)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.manager.Move(ctx, sess.ID(), board.Pos(6, 4), board.Pos(4, 4)); err != nil {
		t.Fatalf("Move: %v", err)
	}
	f.manager.Wait()

	res, err := http.Get(f.srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", res.StatusCode)
	}

	res, err = http.Get(f.srv.URL + "/games/" + sess.ID() + "/board.png")
	if err != nil {
		t.Fatalf("board.png: %v", err)
	}
	if res.Header.Get("Content-Type") != "image/png" {
		t.Errorf("content type = %q", res.Header.Get("Content-Type"))
	}
	if _, err := png.Decode(res.Body); err != nil {
		t.Errorf("decode board.png: %v", err)
	}
	res.Body.Close()

	res, err = http.Get(f.srv.URL + "/games/" + testGameID + "/board.png")
	if err != nil {
		t.Fatalf("missing board.png: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("missing game status = %d", res.StatusCode)
	}

	res, err = http.Get(f.srv.URL + "/games?limit=5")
	if err != nil {
		t.Fatalf("games: %v", err)
	}
	var frame chessdto.ServerFrame
	if err := json.NewDecoder(res.Body).Decode(&frame); err != nil {
		t.Fatalf("decode games: %v", err)
	}
	res.Body.Close()
	if len(frame.Games) != 1 || frame.Games[0].GameID != sess.ID() || frame.Games[0].Boards != 2 {
		t.Errorf("games = %+v", frame.Games)
	}

	res, err = http.Get(f.srv.URL + "/games?limit=zero")
	if err != nil {
		t.Fatalf("games bad limit: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", res.StatusCode)
	}
}
