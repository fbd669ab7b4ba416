package choreography

import (
	"log/slog"

	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/pool"
)

type absorbRun struct {
	elapsed  float64
	spawn    fsm.Wait
	spawning bool
	count    int
	growth   float64
	inflight map[pool.Handle]struct{}
	done     bool
}

func (c *Coordinator) beginAbsorb(ctx *fsm.Context) {
	c.absorb = absorbRun{
		spawning: true,
		inflight: make(map[pool.Handle]struct{}),
	}
	ctx.Vars.SetFloat("absorb.count", 0)
}

func (c *Coordinator) tickAbsorb(ctx *fsm.Context) {
	a := &c.absorb
	if a.done {
		return
	}
	for h := range a.inflight {
		if _, ok := c.pool.Get(h); !ok {
			delete(a.inflight, h)
		}
	}

	if a.spawning {
		a.elapsed += ctx.DT
		if a.elapsed >= c.cfg.Absorb.Duration || a.count >= c.cfg.Absorb.Cap {
			a.spawning = false
		} else if a.spawn.Advance(ctx.DT) {
			c.spawnFeeder()
			a.spawn.Reset(c.cfg.Absorb.SpawnInterval)
		}
	}

	ctx.Vars.SetFloat("absorb.count", float64(a.count))
	if !a.spawning && len(a.inflight) == 0 {
		a.done = true
		c.completePhase(ctx, PhaseAbsorb)
	}
}

func (c *Coordinator) endAbsorb(*fsm.Context) {
	for h := range c.absorb.inflight {
		c.release(h)
	}
	clear(c.absorb.inflight)
	c.absorb.spawning = false
}

// spawnFeeder places a feeder on the spawn circle and sends it at the origin.
func (c *Coordinator) spawnFeeder() {
	spec := c.cfg.Absorb
	pos := c.cfg.Origin.Add(motion.FromAngleDeg(c.rng.Float64() * 360).Mult(spec.SpawnRadius))
	h, ok := c.spawn(pos, pool.Params{
		Acceleration:        spec.Acceleration,
		MaxSpeed:            spec.MaxSpeed,
		IgnoreWallCollision: true,
		CanBeAbsorbed:       true,
		OnSignal:            c.onFeederSignal,
	})
	if !ok {
		return
	}
	c.absorb.inflight[h] = struct{}{}
	c.pool.Drive(h, &motion.Chase{
		Target:        motion.Point(c.cfg.Origin),
		Acceleration:  spec.Acceleration,
		MaxSpeed:      spec.MaxSpeed,
		ReachDistance: spec.ReachDistance,
		Timeout:       spec.Timeout,
	})
}

func (c *Coordinator) onFeederSignal(h pool.Handle, sig motion.Signal) {
	switch sig {
	case motion.SignalReached:
		c.absorbFeeder(h)
	case motion.SignalTimedOut:
		if _, ok := c.absorb.inflight[h]; ok {
			delete(c.absorb.inflight, h)
			c.release(h)
		}
	}
}

// absorbFeeder counts and releases a feeder in one step. A handle that is no
// longer in flight has already been counted or released.
func (c *Coordinator) absorbFeeder(h pool.Handle) {
	a := &c.absorb
	if _, ok := a.inflight[h]; !ok {
		return
	}
	delete(a.inflight, h)

	spec := c.cfg.Absorb
	if a.count < spec.Cap {
		a.count++
		c.stats.Absorbed++
		a.growth += spec.GrowthStep
		if spec.GrowthMax > 0 {
			a.growth = min(a.growth, spec.GrowthMax)
		}
	}
	c.release(h)

	if a.count < spec.Cap {
		return
	}
	a.spawning = false
	if len(a.inflight) == 0 {
		return
	}
	for other := range a.inflight {
		c.release(other)
	}
	dropped := len(a.inflight)
	clear(a.inflight)
	c.log.Info("absorb cap reached", slog.Int("count", a.count), slog.Int("dropped", dropped), logger.Pattern(c.pattern.Name))
}
