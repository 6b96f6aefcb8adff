package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chessbuilder"
	appcfg "github.com/park285/cheese-gridchess/internal/config"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/gateway"
	"github.com/park285/cheese-gridchess/internal/msgcat"
	"github.com/park285/cheese-gridchess/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.Named("server")
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("messages_error", zap.Error(err))
	}
	human, err := board.ParseColor(cfg.HumanColor)
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := chessbuilder.New(ctx, cfg, obslog.Named("chess"))
	if err != nil {
		logger.Fatal("chess_init_error", zap.Error(err))
	}

	opts := append(deps.GameOptions(obslog.Named("game")), game.WithHuman(human))
	manager := game.NewManager(deps.Chooser, opts...)

	gw := gateway.New(manager, catalog,
		gateway.WithArchive(deps.Archive),
		gateway.WithLogger(obslog.Named("gateway")),
	)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("chooser", cfg.Chooser))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("manager_shutdown", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("deps_close", zap.Error(err))
	}
	logger.Info("stopped")
}
