package chooser

import (
	"context"
	"fmt"

	"github.com/dylhunn/dragontoothmg"
	"github.com/park285/cheese-gridchess/internal/board"
	"go.uber.org/zap"
)

// Prudent narrows the descriptor list to moves that are also legal under full chess
// rules (the mover's king is not left in check) before delegating to Next.
// Positions the full-rules generator cannot read, or narrowings that would leave
// nothing, pass the original list through unchanged.
type Prudent struct {
	Next   Chooser
	Logger *zap.Logger
}

func NewPrudent(next Chooser, logger *zap.Logger) *Prudent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prudent{Next: next, Logger: logger}
}

func (p *Prudent) ChooseMove(ctx context.Context, b *board.Board, color board.Color, legal []Descriptor) (board.Move, error) {
	if p.Next == nil {
		return board.Move{}, fmt.Errorf("prudent chooser has no delegate: %w", ErrChooserUnavailable)
	}
	narrowed := FullRulesFilter(b, color, legal)
	if len(narrowed) > 0 && len(narrowed) < len(legal) {
		p.logger().Debug("chooser_prudent_narrowed",
			zap.String("color", string(color)),
			zap.Int("legal", len(legal)),
			zap.Int("kept", len(narrowed)),
		)
		return p.Next.ChooseMove(ctx, b, color, narrowed)
	}
	return p.Next.ChooseMove(ctx, b, color, legal)
}

func (p *Prudent) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}

// FullRulesFilter keeps the descriptors whose move is generated by a full-rules move
// generator for the same position. It returns nil when the position has no single king
// per side or cannot be parsed.
func FullRulesFilter(b *board.Board, color board.Color, legal []Descriptor) []Descriptor {
	if b == nil || len(legal) == 0 || !KingsPresent(b) {
		return nil
	}
	allowed, ok := fullRulesMoves(b.FEN(color, 1))
	if !ok {
		return nil
	}
	out := make([]Descriptor, 0, len(legal))
	for _, d := range legal {
		if _, found := allowed[d.Move.UCI()]; found {
			out = append(out, d)
		}
	}
	return out
}

func fullRulesMoves(fen string) (moves map[string]struct{}, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			moves, ok = nil, false
		}
	}()
	pos := dragontoothmg.ParseFen(fen)
	generated := pos.GenerateLegalMoves()
	moves = make(map[string]struct{}, len(generated))
	for _, mv := range generated {
		text := mv.String()
		if len(text) > 4 {
			// promotion suffix; promotion itself is not modelled
			text = text[:4]
		}
		moves[text] = struct{}{}
	}
	return moves, true
}

// KingsPresent reports whether each side has exactly one king, which full-rules tools require.
func KingsPresent(b *board.Board) bool {
	var white, black int
	for _, p := range board.All() {
		piece := b.At(p)
		if piece.Kind() != board.King {
			continue
		}
		if piece.Color() == board.White {
			white++
		} else {
			black++
		}
	}
	return white == 1 && black == 1
}
