// Package store persists board snapshots and live sessions.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
)

// Recorder receives the board after every applied move.
type Recorder interface {
	RecordBoard(ctx context.Context, gameID string, snap board.Snapshot) error
}

// SessionStore keeps the resumable form of live sessions.
// LoadSession returns (nil, nil) when the game is unknown or expired.
type SessionStore interface {
	SaveSession(ctx context.Context, saved engine.Saved) error
	LoadSession(ctx context.Context, gameID string) (*engine.Saved, error)
	DeleteSession(ctx context.Context, gameID string) error
}

// Archive reads recorded games back. RecentGames lists them most recently active
// first; Boards returns one game's timeline, oldest first, empty when unknown.
type Archive interface {
	RecentGames(ctx context.Context, limit int) ([]GameSummary, error)
	Boards(ctx context.Context, gameID string) ([]BoardRecord, error)
}

// BoardRecord is one stored snapshot of a game timeline.
type BoardRecord struct {
	GameID     string         `json:"gameId"`
	Seq        int            `json:"seq"`
	Board      board.Snapshot `json:"board"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// GameSummary describes a recorded game for listings.
type GameSummary struct {
	GameID  string    `json:"gameId"`
	Boards  int       `json:"boards"`
	FirstAt time.Time `json:"firstAt"`
	LastAt  time.Time `json:"lastAt"`
}

// RecordHook adapts a Recorder to the session post-move hook.
func RecordHook(r Recorder) engine.Hook {
	return func(ctx context.Context, ev engine.MoveEvent) error {
		if err := r.RecordBoard(ctx, ev.GameID, ev.Board); err != nil {
			return fmt.Errorf("record board ply %d: %w", ev.Entry.Ply, err)
		}
		return nil
	}
}

// SaveHook stores the session's resumable form after every move.
func SaveHook(st SessionStore, s *engine.Session) engine.Hook {
	return func(ctx context.Context, _ engine.MoveEvent) error {
		return st.SaveSession(ctx, s.Export())
	}
}
