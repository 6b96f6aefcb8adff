package chessdto

import "time"

// GameSummary lists a recorded game.
type GameSummary struct {
	GameID  string    `json:"gameId"`
	Boards  int       `json:"boards"`
	FirstAt time.Time `json:"firstAt"`
	LastAt  time.Time `json:"lastAt"`
}

// BoardRecord is one recorded board of a game timeline, rows top to bottom.
type BoardRecord struct {
	Seq        int        `json:"seq"`
	Board      [][]string `json:"board"`
	RecordedAt time.Time  `json:"recordedAt"`
}

// HistoryView is the move list of one game with its opening label.
type HistoryView struct {
	GameID  string       `json:"gameId"`
	Moves   []MoveRecord `json:"moves"`
	Opening string       `json:"opening,omitempty"`
}
