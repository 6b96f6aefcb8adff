package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/park285/cheese-gridchess/internal/adapter/chesspresenter"
	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chessbuilder"
	appcfg "github.com/park285/cheese-gridchess/internal/config"
	"github.com/park285/cheese-gridchess/internal/game"
	"github.com/park285/cheese-gridchess/internal/msgcat"
	"github.com/park285/cheese-gridchess/internal/obslog"
	"github.com/park285/cheese-gridchess/internal/tui"
	"go.uber.org/zap"
)

func main() {
	humanFlag := flag.String("human", "", "side the human plays (white|black); defaults to HUMAN_COLOR")
	flag.Parse()

	// The terminal belongs to the grid, so logs only go to a file.
	opts := obslog.OptionsFromEnv()
	opts.Console = false
	opts.ToFile = true
	logger, err := obslog.Build(opts)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	side := cfg.HumanColor
	if *humanFlag != "" {
		side = *humanFlag
	}
	human, err := board.ParseColor(side)
	if err != nil {
		log.Fatalf("human side: %v", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := chessbuilder.New(ctx, cfg, logger.Named("chess"))
	if err != nil {
		log.Fatalf("chess init error: %v", err)
	}
	defer func() { _ = deps.Close() }()

	manager := game.NewManager(deps.Chooser, deps.GameOptions(logger.Named("game"))...)
	defer func() { _ = manager.Shutdown(context.Background()) }()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("screen: %v", err)
	}
	if err := screen.Init(); err != nil {
		log.Fatalf("screen init: %v", err)
	}

	app := tui.New(screen, manager, chesspresenter.NewFormatter(catalog), logger.Named("tui"))
	runErr := app.Run(ctx, human)
	screen.Fini()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("tui_stopped", zap.Error(runErr))
		log.Printf("tui error: %v", runErr)
	}
}
