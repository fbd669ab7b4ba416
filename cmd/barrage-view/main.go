package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/barrage/config"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/prefabs"
)

func main() {
	envFile := flag.String("env", ".env", "dotenv file read before the environment")
	seed := flag.Uint64("seed", 0, "random seed (overrides BARRAGE_SEED)")
	watch := flag.Bool("watch", false, "rebuild the encounter when prefabs change on disk")
	scale := flag.Int("scale", 1, "window scale factor")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
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

	var changes <-chan string
	if cfg.Watch {
		w, err := prefabs.NewWatcher(prefabs.Dir, filepath.Join(prefabs.Dir, "scripts"))
		if err != nil {
			log.Error("watch prefabs", logger.Error(err))
			os.Exit(1)
		}
		defer w.Close()
		changes = w.Events
	}

	v, err := newViewer(cfg, log, changes)
	if err != nil {
		log.Error("build encounter", logger.Error(err))
		os.Exit(1)
	}
	defer v.close()

	ebiten.SetTPS(cfg.TPS)
	ebiten.SetWindowSize(v.width*max(*scale, 1), v.height*max(*scale, 1))
	ebiten.SetWindowTitle("barrage: " + v.enc.Name)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(v); err != nil {
		log.Error("run", logger.Error(err))
	}
}
