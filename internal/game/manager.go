// Package game owns the live sessions of a process: creation, lookup and restore,
// persistence hooks, and the background automated turn after each human move.
package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/park285/cheese-gridchess/internal/store"
	"go.uber.org/zap"
)

var ErrGameNotFound = errors.New("game not found")

// EventKind classifies manager notifications.
type EventKind string

const (
	EventCreated    EventKind = "created"
	EventRestored   EventKind = "restored"
	EventMoved      EventKind = "moved"
	EventTurnFailed EventKind = "turn_failed"
	EventEnded      EventKind = "ended"
)

// Event is delivered to listeners after every state change of a game.
type Event struct {
	Kind   EventKind
	GameID string
	State  engine.State
	Entry  *engine.HistoryEntry
	Err    error
}

// Listener must not block; slow consumers should hand events off to their own goroutine.
type Listener func(Event)

type Manager struct {
	chooser   chooser.Chooser
	sessions  store.SessionStore
	recorders []store.Recorder
	human     board.Color
	timeout   time.Duration
	autoReply bool
	newID     func() string
	logger    *zap.Logger

	mu    sync.RWMutex
	games map[string]*engine.Session

	lmu       sync.RWMutex
	listeners map[int]Listener
	nextL     int

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type Option func(*Manager)

// WithSessionStore persists every game after each move and enables restore by id.
func WithSessionStore(st store.SessionStore) Option { return func(m *Manager) { m.sessions = st } }

// WithRecorder attaches a board-timeline recorder to every game.
func WithRecorder(r store.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
}

func WithHuman(c board.Color) Option { return func(m *Manager) { m.human = c } }

func WithChooserTimeout(d time.Duration) Option { return func(m *Manager) { m.timeout = d } }

// WithAutoReply controls whether the automated side moves in the background after a human move.
func WithAutoReply(on bool) Option { return func(m *Manager) { m.autoReply = on } }

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithIDGenerator(f func() string) Option { return func(m *Manager) { m.newID = f } }

func NewManager(ch chooser.Chooser, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		chooser:   ch,
		human:     board.White,
		autoReply: true,
		newID:     uuid.NewString,
		logger:    zap.NewNop(),
		games:     make(map[string]*engine.Session),
		listeners: make(map[int]Listener),
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers a listener and returns its cancel function.
func (m *Manager) Subscribe(l Listener) func() {
	m.lmu.Lock()
	id := m.nextL
	m.nextL++
	m.listeners[id] = l
	m.lmu.Unlock()
	return func() {
		m.lmu.Lock()
		delete(m.listeners, id)
		m.lmu.Unlock()
	}
}

func (m *Manager) notify(ev Event) {
	m.lmu.RLock()
	ls := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.lmu.RUnlock()
	for _, l := range ls {
		l(ev)
	}
}

// Create starts a new game. human overrides the manager default when non-empty.
func (m *Manager) Create(ctx context.Context, human board.Color) (*engine.Session, error) {
	if human == "" {
		human = m.human
	}
	id := m.newID()
	s, err := engine.New(m.chooser, engine.Config{
		GameID:         id,
		Human:          human,
		ChooserTimeout: m.timeout,
		Logger:         m.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	m.attach(s)
	if m.sessions != nil {
		if err := m.sessions.SaveSession(ctx, s.Export()); err != nil {
			m.logger.Warn("game_save_failed", zap.String("game_id", id), zap.Error(err))
		}
	}
	m.logger.Info("game_created", zap.String("game_id", id), zap.String("human", string(human)))
	m.notify(Event{Kind: EventCreated, GameID: id, State: s.CurrentState()})
	m.scheduleAutomated(s)
	return s, nil
}

// Get returns a live session, restoring it from the session store when it is not in memory.
func (m *Manager) Get(ctx context.Context, id string) (*engine.Session, error) {
	m.mu.RLock()
	s, ok := m.games[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}
	if m.sessions == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrGameNotFound)
	}
	saved, err := m.sessions.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load game %s: %w", id, err)
	}
	if saved == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrGameNotFound)
	}
	restored, err := engine.Restore(m.chooser, engine.Config{ChooserTimeout: m.timeout, Logger: m.logger}, *saved)
	if err != nil {
		return nil, fmt.Errorf("restore game %s: %w", id, err)
	}

	m.subscribeHooks(restored)

	m.mu.Lock()
	if existing, ok := m.games[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.games[id] = restored
	m.mu.Unlock()

	m.logger.Info("game_restored", zap.String("game_id", id), zap.Int("moves", len(saved.History)))
	m.notify(Event{Kind: EventRestored, GameID: id, State: restored.CurrentState()})
	m.scheduleAutomated(restored)
	return restored, nil
}

// Games lists the ids of the games held in memory.
func (m *Manager) Games() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Click forwards a grid click and starts the automated reply when it completed a move.
func (m *Manager) Click(ctx context.Context, id string, pos board.Position) (engine.ClickResult, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return engine.ClickResult{Outcome: engine.ClickIgnored}, err
	}
	res, err := s.Click(ctx, pos)
	if err != nil {
		return res, err
	}
	if res.Outcome == engine.ClickMoved {
		m.scheduleAutomated(s)
	}
	return res, nil
}

// Move applies a complete human move and starts the automated reply.
func (m *Manager) Move(ctx context.Context, id string, from, to board.Position) (engine.HistoryEntry, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return engine.HistoryEntry{}, err
	}
	entry, err := s.ApplyHumanMove(ctx, from, to)
	if err != nil {
		return entry, err
	}
	m.scheduleAutomated(s)
	return entry, nil
}

// Retry runs the automated turn synchronously, typically after a reported chooser failure.
func (m *Manager) Retry(ctx context.Context, id string) (engine.HistoryEntry, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return engine.HistoryEntry{}, err
	}
	entry, err := s.RunAutomatedTurn(ctx)
	if err != nil && !errors.Is(err, engine.ErrTurnInFlight) && !errors.Is(err, engine.ErrNotYourTurn) {
		m.reportTurnFailure(s, err)
	}
	return entry, err
}

// End drops the game from memory and from the session store. Recorded boards are kept.
func (m *Manager) End(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.games[id]
	delete(m.games, id)
	m.mu.Unlock()

	var err error
	if m.sessions != nil {
		err = m.sessions.DeleteSession(ctx, id)
	}
	if !ok && m.sessions == nil {
		return fmt.Errorf("%s: %w", id, ErrGameNotFound)
	}
	ev := Event{Kind: EventEnded, GameID: id}
	if s != nil {
		ev.State = s.CurrentState()
	}
	m.logger.Info("game_ended", zap.String("game_id", id))
	m.notify(ev)
	return err
}

// Wait blocks until background automated turns have finished.
func (m *Manager) Wait() { m.wg.Wait() }

// Shutdown cancels background turns and waits for them, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) attach(s *engine.Session) {
	m.mu.Lock()
	m.games[s.ID()] = s
	m.mu.Unlock()
	m.subscribeHooks(s)
}

func (m *Manager) subscribeHooks(s *engine.Session) {
	for _, r := range m.recorders {
		s.Subscribe(store.RecordHook(r))
	}
	if m.sessions != nil {
		s.Subscribe(store.SaveHook(m.sessions, s))
	}
	s.Subscribe(func(ctx context.Context, ev engine.MoveEvent) error {
		entry := ev.Entry
		m.notify(Event{Kind: EventMoved, GameID: ev.GameID, State: s.CurrentState(), Entry: &entry})
		return nil
	})
}

func (m *Manager) scheduleAutomated(s *engine.Session) {
	if !m.autoReply || s.CurrentState().Phase != engine.AwaitingAutomatedMove {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if _, err := s.RunAutomatedTurn(m.baseCtx); err != nil {
			if errors.Is(err, engine.ErrTurnInFlight) || errors.Is(err, engine.ErrNotYourTurn) {
				return
			}
			m.reportTurnFailure(s, err)
		}
	}()
}

func (m *Manager) reportTurnFailure(s *engine.Session, err error) {
	m.logger.Warn("automated_turn_failed", zap.String("game_id", s.ID()), zap.Error(err))
	m.notify(Event{Kind: EventTurnFailed, GameID: s.ID(), State: s.CurrentState(), Err: err})
}
