package chessdto

// Error codes carried by DomainError.
const (
	CodeIllegalMove        = "illegal_move"
	CodeNotYourTurn        = "not_your_turn"
	CodeTurnInFlight       = "turn_in_flight"
	CodeOutOfBounds        = "out_of_bounds"
	CodeChooserUnavailable = "chooser_unavailable"
	CodeUnparseableChoice  = "unparseable_choice"
	CodeNoLegalMoves       = "no_legal_moves"
	CodeGameNotFound       = "game_not_found"
	CodeBadRequest         = "bad_request"
	CodeInternal           = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "gridchess error"
}
