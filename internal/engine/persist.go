package engine

import (
	"fmt"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
)

// Saved is the serialisable form of a session.
type Saved struct {
	GameID  string         `json:"gameId"`
	Human   board.Color    `json:"human"`
	Active  board.Color    `json:"active"`
	Phase   Phase          `json:"phase"`
	Board   board.Snapshot `json:"board"`
	History []HistoryEntry `json:"history"`
}

// Export captures the session. A pending human selection is not kept.
func (s *Session) Export() Saved {
	s.mu.Lock()
	defer s.mu.Unlock()
	phase := s.phase
	if phase == AwaitingHumanDestination {
		phase = AwaitingHumanSelection
	}
	return Saved{
		GameID:  s.id,
		Human:   s.human,
		Active:  s.active,
		Phase:   phase,
		Board:   s.board.Snapshot(),
		History: append([]HistoryEntry(nil), s.history...),
	}
}

// Restore rebuilds a session from a saved form. cfg.GameID and cfg.Human are taken from saved.
func Restore(ch chooser.Chooser, cfg Config, saved Saved) (*Session, error) {
	cfg.GameID = saved.GameID
	cfg.Human = saved.Human
	s, err := newSession(ch, cfg)
	if err != nil {
		return nil, err
	}
	b, err := board.FromSnapshot(saved.Board)
	if err != nil {
		return nil, fmt.Errorf("restore board: %w", err)
	}
	if !saved.Active.Valid() {
		return nil, fmt.Errorf("restore: invalid active color %q", saved.Active)
	}
	s.board = b
	s.active = saved.Active
	s.history = append([]HistoryEntry(nil), saved.History...)
	s.phase = s.restingPhase()
	if saved.Phase.Valid() && saved.Phase != s.phase && saved.Phase != AwaitingHumanDestination {
		return nil, fmt.Errorf("restore: phase %s does not match active %s", saved.Phase, saved.Active)
	}
	return s, nil
}
