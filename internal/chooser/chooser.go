// Package chooser connects the automated side of a game to a move-selection oracle.
//
// The engine hands a Chooser the current board, the automated color and the list of
// legal move descriptors; the Chooser answers with one of those moves. Backends live in
// subpackages (httporacle, ucioracle); this package holds the shared descriptor format,
// the error vocabulary and the decorators that every backend can be wrapped in.
package chooser

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-gridchess/internal/board"
)

var (
	// ErrChooserUnavailable reports that the oracle could not be reached or timed out.
	ErrChooserUnavailable = errors.New("move chooser unavailable")
	// ErrUnparseableChoice reports a reply that does not name one of the legal moves.
	ErrUnparseableChoice = errors.New("move chooser reply not understood")
	// ErrNoLegalMoves is returned when the automated side has nothing to play.
	ErrNoLegalMoves = errors.New("no legal moves available")
)

// Chooser selects one move out of legal. Implementations may block; they must honour ctx.
// The returned move must correspond to one of the descriptors in legal.
type Chooser interface {
	ChooseMove(ctx context.Context, b *board.Board, color board.Color, legal []Descriptor) (board.Move, error)
}

// Func adapts an ordinary function to the Chooser interface.
type Func func(ctx context.Context, b *board.Board, color board.Color, legal []Descriptor) (board.Move, error)

func (f Func) ChooseMove(ctx context.Context, b *board.Board, color board.Color, legal []Descriptor) (board.Move, error) {
	return f(ctx, b, color, legal)
}

// First always plays the first legal descriptor.
type First struct{}

func (First) ChooseMove(ctx context.Context, _ *board.Board, _ board.Color, legal []Descriptor) (board.Move, error) {
	if err := ctx.Err(); err != nil {
		return board.Move{}, MapError(err)
	}
	if len(legal) == 0 {
		return board.Move{}, ErrNoLegalMoves
	}
	m := legal[0].Move
	m.Rationale = "first legal move"
	return m, nil
}

// MapError folds transport failures and timeouts into ErrChooserUnavailable.
// Errors that already carry one of the package sentinels are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrChooserUnavailable) || errors.Is(err, ErrUnparseableChoice) || errors.Is(err, ErrNoLegalMoves) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || timeoutMessage(err) {
		return fmt.Errorf("%w: timeout: %w", ErrChooserUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrChooserUnavailable, err)
}

// IsTimeout reports whether err came from a deadline rather than a transport failure.
func IsTimeout(err error) bool {
	return err != nil && (errors.Is(err, context.DeadlineExceeded) || timeoutMessage(err))
}

// Retryable reports whether another attempt at the same turn may succeed.
func Retryable(err error) bool {
	return errors.Is(err, ErrChooserUnavailable) || errors.Is(err, ErrUnparseableChoice)
}

func timeoutMessage(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
