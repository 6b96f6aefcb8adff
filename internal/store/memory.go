package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
)

// MemoryStore is a development recorder and session store used when no backend is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	boards   map[string][]BoardRecord
	sessions map[string]engine.Saved
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		boards:   make(map[string][]BoardRecord),
		sessions: make(map[string]engine.Saved),
	}
}

func (m *MemoryStore) RecordBoard(ctx context.Context, gameID string, snap board.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.boards[gameID]
	m.boards[gameID] = append(list, BoardRecord{
		GameID:     gameID,
		Seq:        len(list) + 1,
		Board:      snap,
		RecordedAt: m.now(),
	})
	return nil
}

// Boards returns the timeline of a game, oldest first.
func (m *MemoryStore) Boards(ctx context.Context, gameID string) ([]BoardRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]BoardRecord(nil), m.boards[gameID]...), nil
}

// RecentGames lists recorded games, latest activity first.
func (m *MemoryStore) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	m.mu.RLock()
	items := make([]GameSummary, 0, len(m.boards))
	for id, list := range m.boards {
		if len(list) == 0 {
			continue
		}
		items = append(items, GameSummary{
			GameID:  id,
			Boards:  len(list),
			FirstAt: list[0].RecordedAt,
			LastAt:  list[len(list)-1].RecordedAt,
		})
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastAt.Equal(items[j].LastAt) {
			return items[i].LastAt.After(items[j].LastAt)
		}
		return items[i].GameID < items[j].GameID
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryStore) SaveSession(ctx context.Context, saved engine.Saved) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved.History = append([]engine.HistoryEntry(nil), saved.History...)
	m.sessions[saved.GameID] = saved
	return nil
}

func (m *MemoryStore) LoadSession(ctx context.Context, gameID string) (*engine.Saved, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	saved, ok := m.sessions[gameID]
	if !ok {
		return nil, nil
	}
	saved.History = append([]engine.HistoryEntry(nil), saved.History...)
	return &saved, nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, gameID string) error {
	m.mu.Lock()
	delete(m.sessions, gameID)
	m.mu.Unlock()
	return nil
}
