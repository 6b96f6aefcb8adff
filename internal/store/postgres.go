package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/park285/cheese-gridchess/internal/board"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS chess_board (
    id         BIGSERIAL PRIMARY KEY,
    game_id    UUID NOT NULL,
    board      JSON NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS chess_board_game_idx ON chess_board (game_id, id);`

// PostgresRepository appends every board of every game to the chess_board table.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure chess_board schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RecordBoard(ctx context.Context, gameID string, snap board.Snapshot) error {
	id, err := parseGameID(gameID)
	if err != nil {
		return err
	}
	raw, err := encodeBoard(snap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO chess_board (game_id, board) VALUES ($1, $2)`, id, raw)
	return err
}

// Boards returns the timeline of one game, oldest first.
func (r *PostgresRepository) Boards(ctx context.Context, gameID string) ([]BoardRecord, error) {
	id, err := parseGameID(gameID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT board, created_at FROM chess_board WHERE game_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BoardRecord
	for rows.Next() {
		var raw string
		var at time.Time
		if err := rows.Scan(&raw, &at); err != nil {
			return nil, err
		}
		snap, err := decodeBoard(raw)
		if err != nil {
			return nil, fmt.Errorf("decode board %d of %s: %w", len(out)+1, gameID, err)
		}
		out = append(out, BoardRecord{GameID: id, Seq: len(out) + 1, Board: snap, RecordedAt: at})
	}
	return out, rows.Err()
}

// RecentGames lists recorded games, latest activity first.
func (r *PostgresRepository) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT game_id, count(*), min(created_at), max(created_at)
        FROM chess_board GROUP BY game_id ORDER BY max(created_at) DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.Boards, &g.FirstAt, &g.LastAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func parseGameID(gameID string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(gameID))
	if err != nil {
		return "", fmt.Errorf("game id %q: %w", gameID, err)
	}
	return id.String(), nil
}

// encodeBoard renders the board column: rows of single-character cells, " " for empty.
func encodeBoard(snap board.Snapshot) (string, error) {
	raw, err := json.Marshal(snap.Rows())
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeBoard(raw string) (board.Snapshot, error) {
	var rows [][]string
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		return board.Snapshot{}, err
	}
	b, err := board.FromRows(rows)
	if err != nil {
		return board.Snapshot{}, err
	}
	return b.Snapshot(), nil
}
