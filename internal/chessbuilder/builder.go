// Package chessbuilder assembles the chooser stack and stores from AppConfig.
package chessbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/cheese-gridchess/internal/chooser"
	"github.com/park285/cheese-gridchess/internal/chooser/httporacle"
	"github.com/park285/cheese-gridchess/internal/chooser/ucioracle"
	"github.com/park285/cheese-gridchess/internal/config"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/store"
	"go.uber.org/zap"
)

// turnSlack covers scheduling overhead on top of the chooser budget.
const turnSlack = 500 * time.Millisecond

type Deps struct {
	Chooser chooser.Chooser
	// TurnTimeout bounds one automated turn; it spans every chooser attempt.
	TurnTimeout time.Duration
	Sessions    store.SessionStore
	Recorders   []store.Recorder
	Archive     store.Archive

	closers []func() error
}

// Close releases engine processes and store connections in reverse order.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// GameOptions wires the stores and the turn deadline into a game manager.
func (d *Deps) GameOptions(logger *zap.Logger) []game.Option {
	opts := []game.Option{
		game.WithSessionStore(d.Sessions),
		game.WithChooserTimeout(d.TurnTimeout),
		game.WithLogger(logger),
	}
	for _, r := range d.Recorders {
		opts = append(opts, game.WithRecorder(r))
	}
	return opts
}

func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	base, closeBase, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	return assemble(ctx, cfg, logger, base, closeBase)
}

func assemble(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, base chooser.Chooser, closeBase func() error) (*Deps, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	deps := &Deps{}
	if closeBase != nil {
		deps.closers = append(deps.closers, closeBase)
	}
	r := Wrap(base, cfg, logger)
	deps.Chooser = r
	deps.TurnTimeout = TurnTimeout(r, cfg)

	if strings.TrimSpace(cfg.RedisURL) != "" {
		rs, err := store.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init redis store: %w", err)
		}
		deps.closers = append(deps.closers, rs.Close)
		deps.Sessions = rs
		deps.Recorders = append(deps.Recorders, rs)
		deps.Archive = rs
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := store.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init postgres repository: %w", err)
		}
		deps.closers = append(deps.closers, repo.Close)
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = repo.EnsureSchema(sctx)
		cancel()
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		deps.Recorders = append(deps.Recorders, repo)
		deps.Archive = repo
	}

	if deps.Sessions == nil || deps.Archive == nil {
		mem := store.NewMemoryStore()
		if deps.Sessions == nil {
			deps.Sessions = mem
		}
		if deps.Archive == nil {
			deps.Recorders = append(deps.Recorders, mem)
			deps.Archive = mem
		}
	}

	logger.Info("chess_deps_ready",
		zap.String("chooser", cfg.Chooser),
		zap.Bool("redis", cfg.RedisURL != ""),
		zap.Bool("postgres", cfg.DatabaseURL != ""),
		zap.Int("recorders", len(deps.Recorders)),
	)
	return deps, nil
}

// NewChooser builds the configured backend, optionally narrowed by Prudent, behind
// Resilient retries. The returned close func is nil when the backend holds no resources.
func NewChooser(cfg *config.AppConfig, logger *zap.Logger) (*chooser.Resilient, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, closeFn, err := newBackend(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return Wrap(base, cfg, logger), closeFn, nil
}

// Wrap puts base behind Prudent (when enabled) and Resilient. Each attempt gets
// ChooserTimeout of its own.
func Wrap(base chooser.Chooser, cfg *config.AppConfig, logger *zap.Logger) *chooser.Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ChooserPrudent {
		base = chooser.NewPrudent(base, logger.Named("prudent"))
	}
	rc := chooser.ResilientConfig{
		MaxAttempts:    cfg.ChooserMaxAttempts,
		AttemptTimeout: cfg.ChooserTimeout,
		Backoff:        cfg.ChooserBackoff,
	}
	if cfg.ChooserFallback {
		rc.Fallback = chooser.First{}
	}
	return chooser.NewResilient(base, rc, logger.Named("chooser"))
}

// TurnTimeout is the session deadline for one automated turn: the full retry
// budget of r plus slack, or ChooserTimeout when attempts are unbounded.
func TurnTimeout(r *chooser.Resilient, cfg *config.AppConfig) time.Duration {
	if b := r.Budget(); b > 0 {
		return b + turnSlack
	}
	return cfg.ChooserTimeout
}

func newBackend(cfg *config.AppConfig, logger *zap.Logger) (chooser.Chooser, func() error, error) {
	var (
		base    chooser.Chooser
		closeFn func() error
	)
	switch cfg.Chooser {
	case config.ChooserFirst, "":
		base = chooser.First{}
	case config.ChooserHTTP:
		if strings.TrimSpace(cfg.OracleURL) == "" {
			return nil, nil, fmt.Errorf("ORACLE_URL is required for the http chooser")
		}
		base = httporacle.NewClient(cfg.OracleURL,
			httporacle.WithRetry(cfg.OracleRetry),
			httporacle.WithTimeout(cfg.ChooserTimeout),
			httporacle.WithLogger(logger.Named("httporacle")),
		)
	case config.ChooserUCI:
		level, err := ucioracle.LookupLevel(cfg.ChooserLevel)
		if err != nil {
			return nil, nil, err
		}
		pool, err := ucioracle.NewPool(cfg.StockfishPath, 0, logger.Named("uci"))
		if err != nil {
			return nil, nil, fmt.Errorf("init engine pool: %w", err)
		}
		oracle, err := ucioracle.New(pool, level, logger.Named("ucioracle"))
		if err != nil {
			_ = pool.Close()
			return nil, nil, err
		}
		base, closeFn = oracle, pool.Close
	default:
		return nil, nil, fmt.Errorf("unknown chooser %q", cfg.Chooser)
	}

	return base, closeFn, nil
}
