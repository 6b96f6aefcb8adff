package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/park285/cheese-gridchess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/pkg/chessdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// wsConn is one grid client. Frames are answered in order; automated moves and
// turn failures of watched games are pushed as they happen.
type wsConn struct {
	srv    *Server
	conn   *websocket.Conn
	out    chan chessdto.ServerFrame
	logger *zap.Logger

	mu       sync.RWMutex
	watching map[string]struct{}

	// replyMu is held from reading a session's state until the reply is queued.
	// Pushes take it too, so a reply never lands after a newer pushed state.
	replyMu sync.Mutex
	// retries tracks background retry frames.
	retries sync.WaitGroup
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		OriginPatterns:  s.originPatterns,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wc := &wsConn{
		srv:      s,
		conn:     conn,
		out:      make(chan chessdto.ServerFrame, s.sendBuffer),
		logger:   s.logger.With(zap.String("remote", r.RemoteAddr)),
		watching: make(map[string]struct{}),
	}
	unsubscribe := s.games.Subscribe(wc.onEvent)
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		wc.writeLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		wc.pingLoop(ctx)
	}()

	wc.logger.Debug("ws_connected")
	wc.readLoop(ctx)
	cancel()
	wg.Wait()
	wc.retries.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "")
	wc.logger.Debug("ws_disconnected")
}

func (c *wsConn) readLoop(ctx context.Context) {
	for {
		var f chessdto.ClientFrame
		if err := wsjson.Read(ctx, c.conn, &f); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				c.logger.Debug("ws_read_failed", zap.Error(err))
			}
			return
		}
		c.handle(ctx, f)
	}
}

func (c *wsConn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.conn, f)
			cancel()
			if err != nil {
				c.logger.Debug("ws_write_failed", zap.String("type", f.Type), zap.Error(err))
				return
			}
		}
	}
}

func (c *wsConn) pingLoop(ctx context.Context) {
	if c.srv.pingInterval <= 0 {
		return
	}
	t := time.NewTicker(c.srv.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := c.conn.Ping(pctx)
			cancel()
			if err != nil {
				c.logger.Debug("ws_ping_failed", zap.Error(err))
				return
			}
		}
	}
}

func (c *wsConn) send(f chessdto.ServerFrame) {
	select {
	case c.out <- f:
	default:
		c.logger.Warn("ws_send_dropped", zap.String("type", f.Type), zap.String("game_id", f.GameID))
	}
}

func (c *wsConn) reply(build func() chessdto.ServerFrame) {
	c.replyMu.Lock()
	defer c.replyMu.Unlock()
	c.send(build())
}

func (c *wsConn) push(f chessdto.ServerFrame) {
	c.replyMu.Lock()
	defer c.replyMu.Unlock()
	c.send(f)
}

func (c *wsConn) watch(id string) {
	c.mu.Lock()
	c.watching[id] = struct{}{}
	c.mu.Unlock()
}

func (c *wsConn) watches(id string) bool {
	c.mu.RLock()
	_, ok := c.watching[id]
	c.mu.RUnlock()
	return ok
}

// onEvent forwards automated moves and failures; human moves are answered directly.
func (c *wsConn) onEvent(ev game.Event) {
	if !c.watches(ev.GameID) {
		return
	}
	format := c.srv.format
	switch ev.Kind {
	case game.EventMoved:
		if ev.Entry == nil || ev.Entry.Color == ev.State.Human {
			return
		}
		c.push(chessdto.ServerFrame{
			Type:   chessdto.FrameState,
			GameID: ev.GameID,
			State:  format.State(ev.State),
			Move:   format.MoveRecord(*ev.Entry),
		})
	case game.EventTurnFailed:
		c.push(chessdto.ServerFrame{
			Type:   chessdto.FrameError,
			GameID: ev.GameID,
			State:  format.State(ev.State),
			Error:  format.Error(ev.Err, ev.GameID, ev.State.Active),
		})
	case game.EventEnded:
		c.mu.Lock()
		delete(c.watching, ev.GameID)
		c.mu.Unlock()
	}
}

func (c *wsConn) handle(ctx context.Context, f chessdto.ClientFrame) {
	format := c.srv.format
	games := c.srv.games
	fail := func(err error) {
		c.send(chessdto.ServerFrame{Type: chessdto.FrameError, GameID: f.GameID, Error: format.Error(err, f.GameID, "")})
	}
	stateFrame := func(typ string, sess *engine.Session) chessdto.ServerFrame {
		return chessdto.ServerFrame{Type: typ, GameID: sess.ID(), State: format.State(sess.CurrentState())}
	}

	switch f.Type {
	case chessdto.FrameNew:
		var human board.Color
		if f.Human != "" {
			color, err := board.ParseColor(f.Human)
			if err != nil {
				fail(chesspresenter.ErrBadRequest)
				return
			}
			human = color
		}
		sess, err := games.Create(ctx, human)
		if err != nil {
			fail(err)
			return
		}
		c.watch(sess.ID())
		c.reply(func() chessdto.ServerFrame { return stateFrame(chessdto.FrameState, sess) })

	case chessdto.FrameState:
		sess, err := games.Get(ctx, f.GameID)
		if err != nil {
			fail(err)
			return
		}
		c.watch(sess.ID())
		c.reply(func() chessdto.ServerFrame { return stateFrame(chessdto.FrameState, sess) })

	case chessdto.FrameClick:
		pos, err := chesspresenter.FromSquare(f.Square)
		if err != nil {
			fail(err)
			return
		}
		res, err := games.Click(ctx, f.GameID, pos)
		if err != nil {
			fail(err)
			return
		}
		sess, err := games.Get(ctx, f.GameID)
		if err != nil {
			fail(err)
			return
		}
		c.reply(func() chessdto.ServerFrame {
			frame := stateFrame(chessdto.FrameState, sess)
			frame.Outcome = string(res.Outcome)
			if res.Entry != nil {
				frame.Move = format.MoveRecord(*res.Entry)
			}
			return frame
		})

	case chessdto.FrameMove:
		from, err := chesspresenter.FromSquare(f.From)
		if err != nil {
			fail(err)
			return
		}
		to, err := chesspresenter.FromSquare(f.To)
		if err != nil {
			fail(err)
			return
		}
		entry, err := games.Move(ctx, f.GameID, from, to)
		if err != nil {
			fail(err)
			return
		}
		sess, err := games.Get(ctx, f.GameID)
		if err != nil {
			fail(err)
			return
		}
		c.reply(func() chessdto.ServerFrame {
			frame := stateFrame(chessdto.FrameMove, sess)
			frame.Move = format.MoveRecord(entry)
			return frame
		})

	case chessdto.FrameDestinations:
		pos, err := chesspresenter.FromSquare(f.Square)
		if err != nil {
			fail(err)
			return
		}
		sess, err := games.Get(ctx, f.GameID)
		if err != nil {
			fail(err)
			return
		}
		c.send(chessdto.ServerFrame{
			Type:         chessdto.FrameDestinations,
			GameID:       sess.ID(),
			Destinations: chesspresenter.ToSquares(sess.LegalDestinations(pos)),
		})

	case chessdto.FrameHistory:
		sess, err := games.Get(ctx, f.GameID)
		if err != nil {
			fail(err)
			return
		}
		c.send(chessdto.ServerFrame{
			Type:    chessdto.FrameHistory,
			GameID:  sess.ID(),
			History: format.History(sess.ID(), sess.History()),
		})

	case chessdto.FrameRetry:
		// The move itself and chooser failures arrive through onEvent.
		c.retries.Add(1)
		go func() {
			defer c.retries.Done()
			_, err := games.Retry(ctx, f.GameID)
			if errors.Is(err, engine.ErrNotYourTurn) || errors.Is(err, engine.ErrTurnInFlight) || errors.Is(err, game.ErrGameNotFound) {
				fail(err)
			}
		}()

	default:
		fail(chesspresenter.ErrBadRequest)
	}
}
