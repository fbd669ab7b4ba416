package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/config"
	"github.com/milk9111/barrage/encounter"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/prefabs"
)

// circlingTarget walks a circle around Center at a fixed angular speed.
type circlingTarget struct {
	Center   cp.Vector
	Radius   float64
	SpeedDeg float64
	angle    float64
}

func (t *circlingTarget) Position() cp.Vector {
	rad := t.angle * math.Pi / 180
	return t.Center.Add(cp.Vector{X: math.Cos(rad), Y: math.Sin(rad)}.Mult(t.Radius))
}

func (t *circlingTarget) Alive() bool { return true }

func (t *circlingTarget) advance(dt float64) {
	t.angle = math.Mod(t.angle+t.SpeedDeg*dt, 360)
}

type sim struct {
	cfg    config.Config
	log    *slog.Logger
	seed   uint64
	target *circlingTarget
	enc    *encounter.Encounter

	phases  map[string]int
	stuns   int
	reloads int
	started time.Time
}

func newSim(cfg config.Config, log *slog.Logger) (*sim, error) {
	s := &sim{
		cfg:    cfg,
		log:    log,
		seed:   cfg.SeedOrNow(),
		phases: make(map[string]int),
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	return s, nil
}

// build loads the encounter prefab and replaces the running encounter.
func (s *sim) build() error {
	spec, err := prefabs.LoadEncounterSpec(s.cfg.Encounter)
	if err != nil {
		return err
	}
	if s.cfg.PoolSize > 0 {
		spec.Pool.Size = s.cfg.PoolSize
		if spec.Pool.MaxSize > 0 && spec.Pool.MaxSize < spec.Pool.Size {
			spec.Pool.MaxSize = spec.Pool.Size
		}
	}
	if s.target == nil {
		s.target = &circlingTarget{
			Center:   cp.Vector{X: spec.Arena.Width / 2, Y: spec.Arena.Height / 2},
			Radius:   math.Min(spec.Arena.Width, spec.Arena.Height) / 3,
			SpeedDeg: 40,
		}
	}

	enc, err := encounter.New(spec, encounter.Collaborators{
		Target:  s.target,
		Tracker: s,
	}, encounter.WithLogger(s.log), encounter.WithSeed(s.seed))
	if err != nil {
		return err
	}
	if s.enc != nil {
		s.enc.Close()
	}
	s.enc = enc
	return nil
}

func (s *sim) OnPhaseComplete(phase string) {
	s.phases[phase]++
}

// reload rebuilds after a prefab change. A broken prefab keeps the old encounter running.
func (s *sim) reload(path string) {
	attrs := []any{slog.String("path", path)}
	name := path
	if rel, err := filepath.Rel(prefabs.Dir, path); err == nil {
		name = rel
	}
	if mt, ok := prefabs.ModTime(name); ok {
		attrs = append(attrs, slog.Time("modified", mt))
	}
	if err := s.build(); err != nil {
		s.log.Error("reload failed, keeping previous encounter", append(attrs, logger.Error(err))...)
		return
	}
	s.reloads++
	s.log.Info("encounter reloaded", attrs...)
}

// run steps the encounter ticks times. With a non-nil changes channel the loop is
// paced at the configured TPS so edits can be watched live.
func (s *sim) run(ctx context.Context, ticks int, stunAt float64, changes <-chan string) error {
	dt := s.cfg.DT()
	stunTick := -1
	if stunAt > 0 {
		stunTick = int(stunAt / dt)
	}

	var pace <-chan time.Time
	if changes != nil {
		t := time.NewTicker(s.cfg.FrameDuration())
		defer t.Stop()
		pace = t.C
	}

	s.started = time.Now()
	for i := 0; i < ticks; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path, ok := <-changes:
			if !ok {
				changes = nil
				break
			}
			s.reload(path)
		default:
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}

		if i == stunTick {
			s.stuns++
			s.enc.RaiseEvent("stun")
		}
		s.target.advance(dt)
		s.enc.Tick(dt)
	}
	return nil
}

func (s *sim) report() string {
	st := s.enc.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "encounter %s (run %s, seed %d)\n", s.enc.Name, st.RunID, s.seed)
	fmt.Fprintf(&b, "  ticks      %d (%.1fs simulated, %s wall)\n", st.Ticks, st.Elapsed, time.Since(s.started).Round(time.Millisecond))
	fmt.Fprintf(&b, "  director   %s, %d patterns performed, enraged=%t\n", st.Director, st.Performed, st.Enraged)
	fmt.Fprintf(&b, "  absorbed   %d (growth %.2f)\n", st.Coordinator.Absorbed, st.Growth)
	fmt.Fprintf(&b, "  spawned    %d, skipped %d, reversals %d, aborts %d\n",
		st.Coordinator.Spawned, st.Coordinator.Skipped, st.Coordinator.Reversals, st.Coordinator.Aborts)
	fmt.Fprintf(&b, "  pool       %d/%d in use, grown %d, exhausted %d\n", st.InUse, st.PoolSize, st.Pool.Grown, st.Pool.Exhausted)
	fmt.Fprintf(&b, "  hits       wall %d, target %d\n", st.Pool.WallHits, st.Pool.TargetHits)

	names := make([]string, 0, len(s.phases))
	for name := range s.phases {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  phase      %-8s %d\n", name, s.phases[name])
	}
	if s.stuns > 0 || s.reloads > 0 {
		fmt.Fprintf(&b, "  stuns %d, reloads %d\n", s.stuns, s.reloads)
	}
	return b.String()
}

func (s *sim) close() {
	if s.enc != nil {
		s.enc.Close()
	}
}
