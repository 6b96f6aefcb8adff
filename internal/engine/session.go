// Package engine runs the turn protocol of one game: a human side that moves by
// clicking the grid and an automated side whose moves come from a chooser.Chooser.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/park285/cheese-gridchess/internal/rules"
	"go.uber.org/zap"
)

const defaultChooserTimeout = 20 * time.Second

// Phase is the turn state of a session. There is no terminal phase.
type Phase string

const (
	AwaitingHumanSelection   Phase = "awaiting_human_selection"
	AwaitingHumanDestination Phase = "awaiting_human_destination"
	AwaitingAutomatedMove    Phase = "awaiting_automated_move"
)

func (p Phase) Valid() bool {
	switch p {
	case AwaitingHumanSelection, AwaitingHumanDestination, AwaitingAutomatedMove:
		return true
	}
	return false
}

// State is a read-only view of a session for rendering.
type State struct {
	GameID       string           `json:"gameId"`
	Human        board.Color      `json:"human"`
	Active       board.Color      `json:"active"`
	Phase        Phase            `json:"phase"`
	Selected     *board.Position  `json:"selected,omitempty"`
	Destinations []board.Position `json:"destinations,omitempty"`
	Board        board.Snapshot   `json:"board"`
	MoveCount    int              `json:"moveCount"`
	LastMove     *HistoryEntry    `json:"lastMove,omitempty"`
}

// MoveEvent is published after every applied move.
type MoveEvent struct {
	GameID string
	Board  board.Snapshot
	Entry  HistoryEntry
	Active board.Color
	Phase  Phase
}

// Hook observes applied moves. Errors are logged and never affect the session.
type Hook func(ctx context.Context, ev MoveEvent) error

type Config struct {
	GameID         string
	Human          board.Color
	ChooserTimeout time.Duration
	Logger         *zap.Logger
}

// ClickOutcome says what a grid click did.
type ClickOutcome string

const (
	ClickIgnored    ClickOutcome = "ignored"
	ClickSelected   ClickOutcome = "selected"
	ClickDeselected ClickOutcome = "deselected"
	ClickMoved      ClickOutcome = "moved"
)

type ClickResult struct {
	Outcome ClickOutcome
	Entry   *HistoryEntry
}

// Session owns one board and its turn state. All methods are safe for concurrent use;
// the chooser call is the only step that runs outside the session lock.
type Session struct {
	mu       sync.Mutex
	id       string
	human    board.Color
	board    *board.Board
	active   board.Color
	phase    Phase
	selected board.Position
	history  []HistoryEntry
	inFlight bool

	chooser chooser.Chooser
	timeout time.Duration
	logger  *zap.Logger

	hookMu sync.RWMutex
	hooks  []Hook
}

// New starts a game from the standard initial placement with white to move.
func New(ch chooser.Chooser, cfg Config) (*Session, error) {
	s, err := newSession(ch, cfg)
	if err != nil {
		return nil, err
	}
	s.board = board.Initial()
	s.active = board.White
	s.phase = s.restingPhase()
	s.logger.Info("session_started",
		zap.String("human", string(s.human)),
		zap.String("phase", string(s.phase)),
	)
	return s, nil
}

func newSession(ch chooser.Chooser, cfg Config) (*Session, error) {
	if ch == nil {
		return nil, fmt.Errorf("move chooser is required")
	}
	human := cfg.Human
	if human == "" {
		human = board.White
	}
	if !human.Valid() {
		return nil, fmt.Errorf("invalid human color %q", cfg.Human)
	}
	timeout := cfg.ChooserTimeout
	if timeout <= 0 {
		timeout = defaultChooserTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:      cfg.GameID,
		human:   human,
		chooser: ch,
		timeout: timeout,
		logger:  logger.With(zap.String("game_id", cfg.GameID)),
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Human() board.Color { return s.human }

func (s *Session) Automated() board.Color { return s.human.Opponent() }

// Subscribe registers a post-move hook.
func (s *Session) Subscribe(h Hook) {
	if h == nil {
		return
	}
	s.hookMu.Lock()
	s.hooks = append(s.hooks, h)
	s.hookMu.Unlock()
}

// CurrentState returns the active player, phase, selection and a board snapshot.
func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		GameID:    s.id,
		Human:     s.human,
		Active:    s.active,
		Phase:     s.phase,
		Board:     s.board.Snapshot(),
		MoveCount: len(s.history),
	}
	if s.phase == AwaitingHumanDestination {
		sel := s.selected
		st.Selected = &sel
		st.Destinations = rules.LegalDestinations(s.board, sel)
	}
	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		st.LastMove = &last
	}
	return st
}

// LegalDestinations lists where the piece on origin may move on the current board.
func (s *Session) LegalDestinations(origin board.Position) []board.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rules.LegalDestinations(s.board, origin)
}

// History returns a copy of the applied moves in order.
func (s *Session) History() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HistoryEntry(nil), s.history...)
}

// Click feeds one grid click into the selection/destination protocol.
// Clicks outside the human's turn are ignored; illegal destinations clear the selection.
func (s *Session) Click(ctx context.Context, pos board.Position) (ClickResult, error) {
	if !pos.Valid() {
		return ClickResult{Outcome: ClickIgnored}, fmt.Errorf("click %v: %w", pos, ErrOutOfBounds)
	}

	s.mu.Lock()
	switch s.phase {
	case AwaitingHumanSelection:
		piece := s.board.At(pos)
		if piece.IsEmpty() || piece.Color() != s.active {
			s.mu.Unlock()
			return ClickResult{Outcome: ClickIgnored}, nil
		}
		s.selected = pos
		s.phase = AwaitingHumanDestination
		s.mu.Unlock()
		return ClickResult{Outcome: ClickSelected}, nil

	case AwaitingHumanDestination:
		origin := s.selected
		if !rules.IsLegalMove(s.board, origin, pos) {
			s.phase = AwaitingHumanSelection
			s.mu.Unlock()
			s.logger.Debug("turn_selection_cleared",
				zap.String("origin", origin.String()),
				zap.String("target", pos.String()),
			)
			return ClickResult{Outcome: ClickDeselected}, nil
		}
		ev := s.applyLocked(board.Move{From: origin, To: pos})
		s.mu.Unlock()
		s.publish(ctx, ev)
		entry := ev.Entry
		return ClickResult{Outcome: ClickMoved, Entry: &entry}, nil

	default:
		s.mu.Unlock()
		return ClickResult{Outcome: ClickIgnored}, nil
	}
}

// ApplyHumanMove validates and applies a complete move for the human side.
func (s *Session) ApplyHumanMove(ctx context.Context, from, to board.Position) (HistoryEntry, error) {
	if !from.Valid() || !to.Valid() {
		return HistoryEntry{}, fmt.Errorf("move %v -> %v: %w", from, to, ErrOutOfBounds)
	}
	s.mu.Lock()
	if s.phase == AwaitingAutomatedMove {
		s.mu.Unlock()
		return HistoryEntry{}, ErrNotYourTurn
	}
	piece := s.board.At(from)
	if piece.IsEmpty() || piece.Color() != s.active {
		s.mu.Unlock()
		return HistoryEntry{}, fmt.Errorf("no %s piece on %s: %w", s.active, from, ErrIllegalMove)
	}
	if !rules.IsLegalMove(s.board, from, to) {
		s.mu.Unlock()
		return HistoryEntry{}, fmt.Errorf("%s %s-%s: %w", piece.Kind().Name(), from, to, ErrIllegalMove)
	}
	ev := s.applyLocked(board.Move{From: from, To: to})
	s.mu.Unlock()
	s.publish(ctx, ev)
	return ev.Entry, nil
}

// RunAutomatedTurn asks the chooser for the automated side's move and applies it.
// Chooser failures leave the board and phase untouched so the turn can be retried.
func (s *Session) RunAutomatedTurn(ctx context.Context) (HistoryEntry, error) {
	s.mu.Lock()
	if s.phase != AwaitingAutomatedMove {
		s.mu.Unlock()
		return HistoryEntry{}, ErrNotYourTurn
	}
	if s.inFlight {
		s.mu.Unlock()
		return HistoryEntry{}, ErrTurnInFlight
	}
	s.inFlight = true
	color := s.active
	view := s.board.Clone()
	legal := chooser.Enumerate(view, color)
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}

	if len(legal) == 0 {
		release()
		s.logger.Warn("turn_no_legal_moves", zap.String("color", string(color)))
		return HistoryEntry{}, ErrNoLegalMoves
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := time.Now()
	move, err := s.chooser.ChooseMove(callCtx, view, color, legal)
	cancel()
	if err != nil {
		release()
		err = chooser.MapError(err)
		s.logger.Warn("chooser_call_failed",
			zap.String("color", string(color)),
			zap.Int("legal", len(legal)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return HistoryEntry{}, err
	}

	s.mu.Lock()
	s.inFlight = false
	if _, ok := chooser.Match(legal, move); !ok || !rules.IsLegalMove(s.board, move.From, move.To) || s.board.At(move.From).Color() != color {
		s.mu.Unlock()
		s.logger.Warn("chooser_choice_rejected",
			zap.String("move", move.UCI()),
			zap.String("rationale", move.Rationale),
		)
		return HistoryEntry{}, fmt.Errorf("automated move %s: %w", move, ErrIllegalMove)
	}
	ev := s.applyLocked(move)
	s.mu.Unlock()

	s.logger.Info("turn_automated_move",
		zap.String("move", move.UCI()),
		zap.String("rationale", move.Rationale),
		zap.Duration("elapsed", time.Since(start)),
	)
	s.publish(ctx, ev)
	return ev.Entry, nil
}

// applyLocked mutates the board, appends history and flips the active player.
// The move must already be validated and s.mu held.
func (s *Session) applyLocked(m board.Move) MoveEvent {
	piece := s.board.At(m.From)
	captured := s.board.At(m.To)
	_ = s.board.Set(m.To, piece)
	_ = s.board.Set(m.From, board.Empty)

	entry := newHistoryEntry(len(s.history)+1, piece, captured, m)
	s.history = append(s.history, entry)
	s.active = s.active.Opponent()
	s.phase = s.restingPhase()

	s.logger.Info("turn_move_applied",
		zap.Int("ply", entry.Ply),
		zap.String("color", string(entry.Color)),
		zap.String("from", entry.From),
		zap.String("to", entry.To),
		zap.Bool("capture", entry.Capture),
	)
	return MoveEvent{
		GameID: s.id,
		Board:  s.board.Snapshot(),
		Entry:  entry,
		Active: s.active,
		Phase:  s.phase,
	}
}

func (s *Session) restingPhase() Phase {
	if s.active == s.human {
		return AwaitingHumanSelection
	}
	return AwaitingAutomatedMove
}

func (s *Session) publish(ctx context.Context, ev MoveEvent) {
	s.hookMu.RLock()
	hooks := append([]Hook(nil), s.hooks...)
	s.hookMu.RUnlock()

	for i, h := range hooks {
		if err := s.runHook(ctx, h, ev); err != nil {
			s.logger.Warn("move_hook_failed",
				zap.Int("hook", i),
				zap.Int("ply", ev.Entry.Ply),
				zap.Error(err),
			)
		}
	}
}

func (s *Session) runHook(ctx context.Context, h Hook, ev MoveEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return h(ctx, ev)
}
