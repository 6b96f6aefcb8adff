package chessdto

// Client frame types.
const (
	FrameNew          = "new"
	FrameState        = "state"
	FrameClick        = "click"
	FrameMove         = "move"
	FrameDestinations = "destinations"
	FrameHistory      = "history"
	FrameRetry        = "retry"
)

// Server-only frame types.
const (
	FrameError  = "error"
	FrameGames  = "games"
	FrameBoards = "boards"
)

// ClientFrame is one JSON message from a grid client.
// Square is used by click and destinations; From/To by move.
type ClientFrame struct {
	Type   string  `json:"type"`
	GameID string  `json:"gameId,omitempty"`
	Human  string  `json:"human,omitempty"`
	Square *Square `json:"square,omitempty"`
	From   *Square `json:"from,omitempty"`
	To     *Square `json:"to,omitempty"`
}

// ServerFrame is one JSON message to a grid client.
type ServerFrame struct {
	Type         string        `json:"type"`
	GameID       string        `json:"gameId,omitempty"`
	State        *SessionState `json:"state,omitempty"`
	Outcome      string        `json:"outcome,omitempty"`
	Move         *MoveRecord   `json:"move,omitempty"`
	Destinations []Square      `json:"destinations,omitempty"`
	History      *HistoryView  `json:"history,omitempty"`
	Games        []GameSummary `json:"games,omitempty"`
	Boards       []BoardRecord `json:"boards,omitempty"`
	Error        *DomainError  `json:"error,omitempty"`
}
