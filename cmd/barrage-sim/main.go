package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/milk9111/barrage/config"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/prefabs"
	"golang.design/x/clipboard"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file read before the environment")
	ticks := flag.Int("ticks", 0, "frames to simulate (overrides BARRAGE_TICKS)")
	seed := flag.Uint64("seed", 0, "random seed (overrides BARRAGE_SEED)")
	watch := flag.Bool("watch", false, "rebuild the encounter when prefabs change on disk")
	copyReport := flag.Bool("copy", false, "copy the final report to the clipboard")
	stunAt := flag.Float64("stun", 0, "raise a stun after this many simulated seconds")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *ticks > 0 {
		cfg.Ticks = *ticks
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	cfg.Watch = cfg.Watch || *watch

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := logger.New(logger.WithLevel(level), logger.WithFormat(logger.Format(cfg.LogFormat)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := newSim(cfg, log)
	if err != nil {
		log.Error("build encounter", logger.Error(err))
		os.Exit(1)
	}
	defer s.close()

	var changes <-chan string
	if cfg.Watch {
		w, err := prefabs.NewWatcher(prefabs.Dir, filepath.Join(prefabs.Dir, "scripts"))
		if err != nil {
			log.Error("watch prefabs", logger.Error(err))
			os.Exit(1)
		}
		defer w.Close()
		go func() {
			for err := range w.Errors {
				log.Warn("prefab watcher", logger.Error(err))
			}
		}()
		changes = w.Events
		log.Info("watching prefabs", slog.String("dir", prefabs.Dir))
	}

	if err := s.run(ctx, cfg.Ticks, *stunAt, changes); err != nil {
		log.Warn("simulation interrupted", logger.Error(err))
	}

	report := s.report()
	fmt.Print(report)
	if *copyReport {
		if err := clipboard.Init(); err != nil {
			log.Error("clipboard unavailable", logger.Error(err))
			return
		}
		clipboard.Write(clipboard.FmtText, []byte(report))
		log.Info("report copied to clipboard")
	}
}
