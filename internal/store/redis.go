package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/engine"
	"github.com/redis/go-redis/v9"
)

const defaultSessionTTL = 24 * time.Hour

// RedisStore keeps live sessions and board timelines in redis with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewRedisStore connects to redisURL (redis://host:port/db) and pings it.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func (s *RedisStore) keySession(id string) string { return "gridchess:session:" + strings.TrimSpace(id) }
func (s *RedisStore) keyBoards(id string) string  { return "gridchess:boards:" + strings.TrimSpace(id) }
func (s *RedisStore) keyGames() string            { return "gridchess:games" }

func (s *RedisStore) SaveSession(ctx context.Context, saved engine.Saved) error {
	if strings.TrimSpace(saved.GameID) == "" {
		return fmt.Errorf("save session: empty game id")
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keySession(saved.GameID), raw, s.ttl).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyBoards(saved.GameID), s.ttl).Err()
	return nil
}

func (s *RedisStore) LoadSession(ctx context.Context, gameID string) (*engine.Saved, error) {
	raw, err := s.rdb.Get(ctx, s.keySession(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var saved engine.Saved
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", gameID, err)
	}
	return &saved, nil
}

// DeleteSession drops the live session. The board timeline expires on its own.
func (s *RedisStore) DeleteSession(ctx context.Context, gameID string) error {
	return s.rdb.Del(ctx, s.keySession(gameID)).Err()
}

func (s *RedisStore) RecordBoard(ctx context.Context, gameID string, snap board.Snapshot) error {
	if strings.TrimSpace(gameID) == "" {
		return fmt.Errorf("record board: empty game id")
	}
	now := s.now()
	raw, err := json.Marshal(BoardRecord{GameID: gameID, Board: snap, RecordedAt: now})
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.keyBoards(gameID), raw)
		pipe.Expire(ctx, s.keyBoards(gameID), s.ttl)
		pipe.ZAdd(ctx, s.keyGames(), redis.Z{Score: float64(now.UnixMilli()), Member: gameID})
		return nil
	})
	return err
}

// Boards returns the recorded timeline, oldest first.
func (s *RedisStore) Boards(ctx context.Context, gameID string) ([]BoardRecord, error) {
	raws, err := s.rdb.LRange(ctx, s.keyBoards(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]BoardRecord, 0, len(raws))
	for i, raw := range raws {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("decode board %d of %s: %w", i+1, gameID, err)
		}
		rec.Seq = i + 1
		out = append(out, rec)
	}
	return out, nil
}

// RecentGames lists games by latest recorded board. Games whose timeline expired are skipped.
func (s *RedisStore) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := s.rdb.ZRevRange(ctx, s.keyGames(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]GameSummary, 0, len(ids))
	for _, id := range ids {
		n, err := s.rdb.LLen(ctx, s.keyBoards(id)).Result()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			_ = s.rdb.ZRem(ctx, s.keyGames(), id).Err()
			continue
		}
		first, err := s.recordAt(ctx, id, 0)
		if err != nil {
			return nil, err
		}
		last, err := s.recordAt(ctx, id, -1)
		if err != nil {
			return nil, err
		}
		out = append(out, GameSummary{GameID: id, Boards: int(n), FirstAt: first.RecordedAt, LastAt: last.RecordedAt})
	}
	return out, nil
}

func (s *RedisStore) recordAt(ctx context.Context, gameID string, idx int64) (BoardRecord, error) {
	raw, err := s.rdb.LIndex(ctx, s.keyBoards(gameID), idx).Result()
	if err != nil {
		return BoardRecord{}, err
	}
	return decodeRecord(raw)
}

func decodeRecord(raw string) (BoardRecord, error) {
	var rec BoardRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return BoardRecord{}, err
	}
	return rec, nil
}
