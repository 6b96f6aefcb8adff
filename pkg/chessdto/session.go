package chessdto

// SessionState is the client view of one game.
type SessionState struct {
	GameID       string      `json:"gameId"`
	Human        string      `json:"human"`
	Active       string      `json:"active"`
	Phase        string      `json:"phase"`
	Board        [][]string  `json:"board"`
	Selected     *Square     `json:"selected,omitempty"`
	Destinations []Square    `json:"destinations,omitempty"`
	MoveCount    int         `json:"moveCount"`
	LastMove     *MoveRecord `json:"lastMove,omitempty"`
	Banner       string      `json:"banner,omitempty"`
}
