package chooser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"go.uber.org/zap"
)

const defaultMaxAttempts = 3

// Resilient retries a chooser whose replies are unavailable or do not name a legal move.
// When every attempt fails and Fallback is set, the fallback's move is used and its
// rationale is prefixed with "fallback: ". A move outside legal is never returned.
type Resilient struct {
	Next           Chooser
	Fallback       Chooser
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
	Logger         *zap.Logger
}

type ResilientConfig struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	Backoff        time.Duration
	Fallback       Chooser
}

func NewResilient(next Chooser, cfg ResilientConfig, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := cfg.Backoff
	if backoff < 0 {
		backoff = 0
	}
	return &Resilient{
		Next:           next,
		Fallback:       cfg.Fallback,
		MaxAttempts:    attempts,
		AttemptTimeout: cfg.AttemptTimeout,
		Backoff:        backoff,
		Logger:         logger,
	}
}

// Budget is the longest time every attempt plus the backoff between them can take.
// It is zero when attempts are not individually bounded.
func (r *Resilient) Budget() time.Duration {
	if r.AttemptTimeout <= 0 {
		return 0
	}
	n := r.MaxAttempts
	if n <= 0 {
		n = defaultMaxAttempts
	}
	total := time.Duration(n) * r.AttemptTimeout
	for attempt := 1; attempt < n; attempt++ {
		total += r.Backoff * time.Duration(attempt)
	}
	return total
}

func (r *Resilient) ChooseMove(ctx context.Context, b *board.Board, color board.Color, legal []Descriptor) (board.Move, error) {
	if len(legal) == 0 {
		return board.Move{}, ErrNoLegalMoves
	}
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	var lastErr error
	if r.Next == nil {
		lastErr = fmt.Errorf("no chooser configured: %w", ErrChooserUnavailable)
		attempts = 0
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		move, err := r.attempt(ctx, b, color, legal)
		if err == nil {
			return move, nil
		}
		lastErr = err
		logger.Warn("chooser_attempt_failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Bool("timeout", IsTimeout(err)),
			zap.Error(err),
		)
		if !Retryable(err) || ctx.Err() != nil || attempt == attempts {
			break
		}
		if r.Backoff > 0 {
			wait := r.Backoff * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return board.Move{}, MapError(ctx.Err())
			case <-time.After(wait):
			}
		}
	}

	if r.Fallback == nil || errors.Is(lastErr, ErrNoLegalMoves) {
		return board.Move{}, lastErr
	}
	move, err := r.Fallback.ChooseMove(context.WithoutCancel(ctx), b, color, legal)
	if err != nil {
		return board.Move{}, errors.Join(lastErr, err)
	}
	d, err := ParseMove(move, legal)
	if err != nil {
		return board.Move{}, errors.Join(lastErr, err)
	}
	chosen := d.Move
	chosen.Rationale = "fallback: " + fallbackReason(move.Rationale)
	logger.Warn("chooser_fallback_used",
		zap.String("move", chosen.UCI()),
		zap.String("rationale", chosen.Rationale),
		zap.NamedError("cause", lastErr),
	)
	return chosen, nil
}

func (r *Resilient) attempt(ctx context.Context, b *board.Board, color board.Color, legal []Descriptor) (board.Move, error) {
	callCtx := ctx
	if r.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.AttemptTimeout)
		defer cancel()
	}
	move, err := r.Next.ChooseMove(callCtx, b, color, legal)
	if err != nil {
		return board.Move{}, MapError(err)
	}
	d, err := ParseMove(move, legal)
	if err != nil {
		return board.Move{}, err
	}
	chosen := d.Move
	chosen.Rationale = move.Rationale
	return chosen, nil
}

func fallbackReason(rationale string) string {
	if rationale == "" {
		return "first legal move"
	}
	return rationale
}
