package chesspresenter

import (
	"errors"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/store"
	"github.com/park285/cheese-gridchess/pkg/chessdto"
)

// ErrBadRequest marks a malformed client frame or query.
var ErrBadRequest = errors.New("bad request")

func ToSquare(p board.Position) chessdto.Square { return chessdto.Square{Row: p.Row, Col: p.Col} }

// FromSquare converts a wire square; a missing square is a bad request.
func FromSquare(s *chessdto.Square) (board.Position, error) {
	if s == nil {
		return board.Position{}, ErrBadRequest
	}
	return board.Pos(s.Row, s.Col), nil
}

func ToSquares(ps []board.Position) []chessdto.Square {
	if len(ps) == 0 {
		return nil
	}
	out := make([]chessdto.Square, len(ps))
	for i, p := range ps {
		out[i] = ToSquare(p)
	}
	return out
}

func ToDTOSummaries(games []store.GameSummary) []chessdto.GameSummary {
	out := make([]chessdto.GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, chessdto.GameSummary{GameID: g.GameID, Boards: g.Boards, FirstAt: g.FirstAt, LastAt: g.LastAt})
	}
	return out
}

func ToDTOBoards(records []store.BoardRecord) []chessdto.BoardRecord {
	out := make([]chessdto.BoardRecord, 0, len(records))
	for _, r := range records {
		out = append(out, chessdto.BoardRecord{Seq: r.Seq, Board: r.Board.Rows(), RecordedAt: r.RecordedAt})
	}
	return out
}
