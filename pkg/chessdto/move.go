package chessdto

// Square addresses a grid cell. Row 0 is the top (black's back rank), column 0 is the a-file.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MoveRecord is one applied move as shown to clients.
type MoveRecord struct {
	Ply     int    `json:"ply"`
	Color   string `json:"color"`
	From    string `json:"from"`
	To      string `json:"to"`
	Capture bool   `json:"capture,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Text    string `json:"text"`
}
