package ucioracle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

var errBucketAtCapacity = errors.New("session bucket at capacity")

// Pool keeps warm engine processes, bucketed by level configuration.
type Pool struct {
	binaryPath string
	capacity   int
	logger     *zap.Logger

	mu       sync.Mutex
	buckets  map[string]*bucket
	sessions map[*Session]*bucket
}

func NewPool(binaryPath string, perLevelCapacity int, logger *zap.Logger) (*Pool, error) {
	if binaryPath == "" {
		return nil, fmt.Errorf("binary path required")
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("stockfish binary check: %w", err)
	}
	if perLevelCapacity <= 0 {
		perLevelCapacity = defaultCapacity()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		binaryPath: binaryPath,
		capacity:   perLevelCapacity,
		logger:     logger,
		buckets:    make(map[string]*bucket),
		sessions:   make(map[*Session]*bucket),
	}, nil
}

// Search borrows a session for level, runs one search and returns the session to the pool.
// Sessions that fail are discarded instead of being reused.
func (p *Pool) Search(ctx context.Context, level Level, fen string) (SearchResult, error) {
	session, err := p.acquire(ctx, level)
	if err != nil {
		return SearchResult{}, err
	}
	var releaseErr error
	defer func() { p.release(session, releaseErr) }()

	if err := session.NewGame(ctx); err != nil {
		releaseErr = err
		return SearchResult{}, err
	}
	res, err := session.Search(ctx, fen, level)
	if err != nil {
		releaseErr = err
		return SearchResult{}, err
	}
	return res, nil
}

func (p *Pool) acquire(ctx context.Context, level Level) (*Session, error) {
	b := p.bucketFor(level)
	for {
		select {
		case s := <-b.idle:
			if p.ready(ctx, s, b) {
				return s, nil
			}
			continue
		default:
		}

		s, err := b.create(ctx, p.logger)
		if err == nil {
			p.track(s, b)
			return s, nil
		}
		if !errors.Is(err, errBucketAtCapacity) {
			return nil, err
		}

		select {
		case s := <-b.idle:
			if p.ready(ctx, s, b) {
				return s, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) ready(ctx context.Context, s *Session, b *bucket) bool {
	if s == nil {
		return false
	}
	if err := s.EnsureReady(ctx); err != nil {
		p.logger.Debug("uci_session_stale", zap.Error(err))
		b.discard(s)
		return false
	}
	p.track(s, b)
	return true
}

func (p *Pool) release(s *Session, err error) {
	if s == nil {
		return
	}
	p.mu.Lock()
	b, ok := p.sessions[s]
	delete(p.sessions, s)
	p.mu.Unlock()
	if !ok {
		_ = s.Close()
		return
	}
	if err != nil || !b.put(s) {
		b.discard(s)
	}
}

func (p *Pool) Close() error {
	p.mu.Lock()
	buckets := make([]*bucket, 0, len(p.buckets))
	for _, b := range p.buckets {
		buckets = append(buckets, b)
	}
	p.sessions = make(map[*Session]*bucket)
	p.mu.Unlock()

	var errs []error
	for _, b := range buckets {
		errs = append(errs, b.drain()...)
	}
	return errors.Join(errs...)
}

func (p *Pool) track(s *Session, b *bucket) {
	p.mu.Lock()
	p.sessions[s] = b
	p.mu.Unlock()
}

func (p *Pool) bucketFor(level Level) *bucket {
	key := level.key()
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.buckets[key]
	if !ok {
		b = &bucket{
			level:      level,
			capacity:   p.capacity,
			binaryPath: p.binaryPath,
			idle:       make(chan *Session, p.capacity),
		}
		p.buckets[key] = b
	}
	return b
}

type bucket struct {
	level      Level
	capacity   int
	binaryPath string

	mu    sync.Mutex
	total int
	idle  chan *Session
}

func (b *bucket) create(ctx context.Context, logger *zap.Logger) (*Session, error) {
	b.mu.Lock()
	if b.total >= b.capacity {
		b.mu.Unlock()
		return nil, errBucketAtCapacity
	}
	b.total++
	b.mu.Unlock()

	s, err := StartSession(ctx, b.binaryPath, b.level, logger)
	if err != nil {
		b.decrement()
		return nil, err
	}
	return s, nil
}

func (b *bucket) put(s *Session) bool {
	select {
	case b.idle <- s:
		return true
	default:
		return false
	}
}

func (b *bucket) discard(s *Session) {
	if s != nil {
		_ = s.Close()
	}
	b.decrement()
}

func (b *bucket) drain() []error {
	var errs []error
	for {
		select {
		case s := <-b.idle:
			if s == nil {
				continue
			}
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
			b.decrement()
		default:
			return errs
		}
	}
}

func (b *bucket) decrement() {
	b.mu.Lock()
	if b.total > 0 {
		b.total--
	}
	b.mu.Unlock()
}

func defaultCapacity() int {
	return min(max(runtime.NumCPU(), 2), 4)
}
