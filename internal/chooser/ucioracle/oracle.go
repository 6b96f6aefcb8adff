// Package ucioracle lets a UCI engine (Stockfish) choose the automated side's move.
package ucioracle

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	nchess "github.com/corentings/chess/v2"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chooser"
	"go.uber.org/zap"
)

// Searcher runs one engine search for a FEN position.
type Searcher interface {
	Search(ctx context.Context, level Level, fen string) (SearchResult, error)
}

// Oracle adapts a Searcher to chooser.Chooser.
type Oracle struct {
	searcher Searcher
	level    Level
	logger   *zap.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

var _ chooser.Chooser = (*Oracle)(nil)

func New(searcher Searcher, level Level, logger *zap.Logger) (*Oracle, error) {
	if searcher == nil {
		return nil, fmt.Errorf("uci searcher is required")
	}
	if err := level.Validate(); err != nil {
		return nil, fmt.Errorf("level %s: %w", level.Name, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		searcher: searcher,
		level:    level,
		logger:   logger,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// SetRandomSeed makes candidate selection reproducible.
func (o *Oracle) SetRandomSeed(seed int64) {
	o.randMu.Lock()
	o.rand = rand.New(rand.NewSource(seed))
	o.randMu.Unlock()
}

func (o *Oracle) ChooseMove(ctx context.Context, b *board.Board, color board.Color, legal []chooser.Descriptor) (board.Move, error) {
	if len(legal) == 0 {
		return board.Move{}, chooser.ErrNoLegalMoves
	}
	fen, err := PositionFEN(b, color)
	if err != nil {
		return board.Move{}, fmt.Errorf("%w: %w", chooser.ErrChooserUnavailable, err)
	}

	res, err := o.searcher.Search(ctx, o.level, fen)
	if err != nil {
		return board.Move{}, chooser.MapError(err)
	}

	matched := matchCandidates(res, legal)
	if len(matched) == 0 {
		return board.Move{}, fmt.Errorf("engine suggested %q, not a legal grid move: %w", res.BestMove, chooser.ErrUnparseableChoice)
	}
	pick := o.pick(matched)
	m := pick.desc.Move
	m.Rationale = fmt.Sprintf("%s eval %+dcp line %s", o.level.Name, pick.cand.EvalCP, strings.Join(pick.cand.Principal, " "))
	o.logger.Debug("uci_choice",
		zap.String("fen", fen),
		zap.String("move", m.UCI()),
		zap.Int("eval_cp", pick.cand.EvalCP),
		zap.Int("matched", len(matched)),
	)
	return m, nil
}

// PositionFEN renders b for the engine and checks it is a position full chess rules accept.
func PositionFEN(b *board.Board, color board.Color) (string, error) {
	if b == nil {
		return "", fmt.Errorf("nil board")
	}
	if !chooser.KingsPresent(b) {
		return "", fmt.Errorf("position needs exactly one king per side")
	}
	fen := b.FEN(color, 1)
	if _, err := nchess.FEN(fen); err != nil {
		return "", fmt.Errorf("invalid fen %q: %w", fen, err)
	}
	return fen, nil
}

type matchedCandidate struct {
	cand Candidate
	desc chooser.Descriptor
}

// matchCandidates keeps engine candidates, in rank order, that name an enumerated move.
// The bestmove line is used when no info line carried a principal variation.
func matchCandidates(res SearchResult, legal []chooser.Descriptor) []matchedCandidate {
	cands := res.Candidates
	if len(cands) == 0 && res.BestMove != "" {
		cands = []Candidate{{Move: res.BestMove, Principal: []string{res.BestMove}}}
	}
	var out []matchedCandidate
	seen := make(map[string]bool, len(cands))
	for _, c := range cands {
		mv := strings.ToLower(strings.TrimSpace(c.Move))
		if len(mv) > 4 {
			mv = mv[:4]
		}
		if mv == "" || seen[mv] {
			continue
		}
		seen[mv] = true
		d, err := chooser.ParseChoice(mv, legal)
		if err != nil {
			continue
		}
		out = append(out, matchedCandidate{cand: c, desc: d})
	}
	return out
}

// pick draws among the top candidates using the level's weights.
func (o *Oracle) pick(matched []matchedCandidate) matchedCandidate {
	limit := min(len(matched), len(o.level.Weights))
	if limit <= 1 {
		return matched[0]
	}
	total := 0.0
	for i := 0; i < limit; i++ {
		total += o.level.Weights[i]
	}
	if total == 0 {
		return matched[0]
	}

	o.randMu.Lock()
	threshold := o.rand.Float64() * total
	o.randMu.Unlock()

	for i := 0; i < limit; i++ {
		threshold -= o.level.Weights[i]
		if threshold <= 0 {
			return matched[i]
		}
	}
	return matched[limit-1]
}
