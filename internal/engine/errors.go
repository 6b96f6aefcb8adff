package engine

import (
	"errors"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
)

var (
	ErrIllegalMove  = errors.New("illegal move")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrTurnInFlight = errors.New("automated turn already in progress")

	ErrOutOfBounds        = board.ErrOutOfBounds
	ErrChooserUnavailable = chooser.ErrChooserUnavailable
	ErrUnparseableChoice  = chooser.ErrUnparseableChoice
	ErrNoLegalMoves       = chooser.ErrNoLegalMoves
)
