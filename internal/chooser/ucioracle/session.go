package ucioracle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadyTimeout  = 4 * time.Second
	newGameRetryAttempts = 3
	newGameRetryDelay    = 150 * time.Millisecond
	mateScore            = 30000
)

// Candidate is one principal variation reported by the engine.
type Candidate struct {
	Move      string
	EvalCP    int
	Principal []string
}

// SearchResult holds the MultiPV candidates ordered by rank plus the final bestmove.
type SearchResult struct {
	Candidates []Candidate
	BestMove   string
}

// Session is one running UCI engine process.
type Session struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	logger *zap.Logger
	mu     sync.Mutex
	search sync.Mutex
}

// StartSession launches binaryPath and configures it for level.
func StartSession(ctx context.Context, binaryPath string, level Level, logger *zap.Logger) (*Session, error) {
	if err := level.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, binaryPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdoutPipe.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := &Session{
		cmd:    cmd,
		stdin:  stdin,
		stdout: bufio.NewReader(stdoutPipe),
		logger: logger,
	}
	if err := s.handshake(ctx, level); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Search sets up fen and runs one bounded search.
func (s *Session) Search(ctx context.Context, fen string, level Level) (SearchResult, error) {
	s.search.Lock()
	defer s.search.Unlock()

	if err := s.send(positionCommand(fen)); err != nil {
		return SearchResult{}, fmt.Errorf("send position: %w", err)
	}
	goTokens, err := level.GoTokens()
	if err != nil {
		return SearchResult{}, err
	}
	goCmd := strings.Join(goTokens, " ")
	if err := s.send(goCmd + "\n"); err != nil {
		return SearchResult{}, fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, level.SearchTimeout())
	defer cancel()

	candidates := make(map[int]Candidate)
	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			s.logger.Warn("uci_read_failed",
				zap.String("fen", fen),
				zap.String("go", goCmd),
				zap.String("level", level.Name),
				zap.Error(err),
			)
			return SearchResult{}, fmt.Errorf("read line: %w", err)
		}
		switch {
		case line == "":
		case strings.HasPrefix(line, "info "):
			if rank, cand, ok := parseInfo(line); ok {
				candidates[rank] = cand
			}
		case strings.HasPrefix(line, "bestmove"):
			var best string
			if parts := strings.Fields(line); len(parts) >= 2 {
				best = parts[1]
			}
			return SearchResult{Candidates: rankCandidates(candidates), BestMove: best}, nil
		}
	}
}

// EnsureReady pings the engine with isready.
func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(readyCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame clears engine state between unrelated positions.
func (s *Session) NewGame(ctx context.Context) error {
	if err := s.send("ucinewgame\n"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}
	for attempt := 1; attempt <= newGameRetryAttempts; attempt++ {
		err := s.EnsureReady(ctx)
		if err == nil {
			return nil
		}
		if attempt == newGameRetryAttempts {
			return err
		}
		s.logger.Debug("uci_ready_retry", zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(newGameRetryDelay):
		}
	}
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stdin != nil {
		s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.cmd != nil {
		return s.cmd.Wait()
	}
	return nil
}

func (s *Session) handshake(ctx context.Context, level Level) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci\n"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	for _, cmd := range optionCommands(level) {
		if err := s.send(cmd); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if err := s.send("isready\n"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(initCtx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg)
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if strings.Contains(line, token) {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := s.stdout.ReadString('\n')
		ch <- result{line: strings.TrimSpace(line), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.line, res.err
	}
}

// positionCommand always sends an explicit FEN; grid positions need not arise from startpos.
func positionCommand(fen string) string {
	return "position fen " + strings.TrimSpace(fen) + "\n"
}

func optionCommands(level Level) []string {
	threads := level.Threads
	if threads <= 0 {
		threads = 1
	}
	cmds := []string{
		fmt.Sprintf("setoption name Threads value %d\n", threads),
		fmt.Sprintf("setoption name Hash value %d\n", level.HashMB),
		fmt.Sprintf("setoption name Skill Level value %d\n", level.SkillLevel),
		fmt.Sprintf("setoption name MultiPV value %d\n", level.MultiPV),
		"setoption name Move Overhead value 100\n",
	}
	if level.Elo > 0 {
		cmds = append(cmds,
			"setoption name UCI_LimitStrength value true\n",
			fmt.Sprintf("setoption name UCI_Elo value %d\n", level.Elo),
		)
	}
	return cmds
}

// parseInfo extracts (multipv rank, candidate) from an "info ... pv ..." line.
func parseInfo(line string) (int, Candidate, bool) {
	parts := strings.Fields(line)
	var (
		rank    = 1
		evalCP  int
		pvStart = -1
	)
	for i := 0; i < len(parts) && pvStart < 0; i++ {
		switch parts[i] {
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					rank = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				if v, err := strconv.Atoi(parts[i+2]); err == nil {
					switch parts[i+1] {
					case "cp":
						evalCP = v
					case "mate":
						evalCP = mateScore
						if v < 0 {
							evalCP = -mateScore
						}
					}
				}
				i += 2
			}
		case "pv":
			pvStart = i + 1
		}
	}
	if pvStart < 0 || pvStart >= len(parts) {
		return 0, Candidate{}, false
	}
	principal := append([]string(nil), parts[pvStart:]...)
	return rank, Candidate{Move: principal[0], EvalCP: evalCP, Principal: principal}, true
}

func rankCandidates(m map[int]Candidate) []Candidate {
	if len(m) == 0 {
		return nil
	}
	ranks := make([]int, 0, len(m))
	for k := range m {
		ranks = append(ranks, k)
	}
	sort.Ints(ranks)
	out := make([]Candidate, 0, len(ranks))
	for _, k := range ranks {
		out = append(out, m[k])
	}
	return out
}
