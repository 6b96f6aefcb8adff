package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/park285/cheese-gridchess/internal/board"
	"github.com/park285/cheese-gridchess/internal/chessbuilder"
	"github.com/park285/cheese-gridchess/internal/chooser"
	appcfg "github.com/park285/cheese-gridchess/internal/config"
	"github.com/park285/cheese-gridchess/internal/obslog"
)

func main() {
	plies := flag.Int("plies", 4, "number of plies the chooser plays against itself")
	timeout := flag.Duration("timeout", 0, "per-move timeout (defaults to CHOOSER_TIMEOUT)")
	flag.Parse()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// Failures must surface instead of being replaced by the fallback move.
	cfg.ChooserFallback = false
	if *timeout > 0 {
		cfg.ChooserTimeout = *timeout
	}

	ch, closeFn, err := chessbuilder.NewChooser(cfg, obslog.Named("oraclecheck"))
	if err != nil {
		log.Fatalf("chooser init error: %v", err)
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	log.Printf("chooser=%s url=%q level=%s timeout=%s", cfg.Chooser, cfg.OracleURL, cfg.ChooserLevel, cfg.ChooserTimeout)
	b := board.Initial()
	color := board.White
	for ply := 1; ply <= *plies; ply++ {
		legal := chooser.Enumerate(b, color)
		if len(legal) == 0 {
			log.Printf("ply %d: %s has no legal moves", ply, color)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), chessbuilder.TurnTimeout(ch, cfg))
		started := time.Now()
		m, err := ch.ChooseMove(ctx, b, color, legal)
		cancel()
		if err != nil {
			log.Printf("ply %d: %s choose error after %s: %v", ply, color, time.Since(started).Round(time.Millisecond), err)
			return
		}
		d, ok := chooser.Match(legal, m)
		if !ok {
			log.Printf("ply %d: %s chose %s which is not legal", ply, color, m)
			return
		}
		fmt.Printf("ply %d %-5s %-12s %6s  %s\n", ply, color, d.Text(), time.Since(started).Round(time.Millisecond), m.Rationale)

		piece := b.At(m.From)
		_ = b.Set(m.To, piece)
		_ = b.Set(m.From, board.Empty)
		color = color.Opponent()
	}
	fmt.Println(b.String())
}
