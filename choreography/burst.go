package choreography

import (
	"log/slog"

	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/pool"
)

const (
	motionStraight = "straight"
	motionOrbit    = "orbit"
	motionReverse  = "reverse"
)

type burstRun struct {
	ring    int
	wait    fsm.Wait
	release fsm.Wait
	rings   [][]pool.Handle
	done    bool
}

func (c *Coordinator) beginBurst(*fsm.Context) {
	c.burst = burstRun{
		release: fsm.NewWait(c.cfg.Burst.ReleaseDelay),
		rings:   make([][]pool.Handle, 0, len(c.cfg.Burst.Rings)),
	}
}

func (c *Coordinator) tickBurst(ctx *fsm.Context) {
	b := &c.burst
	if b.done {
		return
	}
	spec := c.cfg.Burst
	if b.ring < len(spec.Rings) {
		if b.wait.Advance(ctx.DT) {
			c.spawnRing(b.ring)
			b.ring++
			b.wait.Reset(spec.RingInterval)
		}
		return
	}
	if len(spec.Rings) > 0 && !b.release.Advance(ctx.DT) {
		return
	}
	c.releaseRings(ctx)
	b.done = true
	c.completePhase(ctx, PhaseBurst)
}

// spawnRing places a ring of stationary entities around the origin. Odd rings
// are offset by half a slot so consecutive rings interleave.
func (c *Coordinator) spawnRing(i int) {
	r := c.cfg.Burst.Rings[i]
	handles := make([]pool.Handle, 0, r.Count)
	offset := 0.0
	if i%2 == 1 && r.Count > 0 {
		offset = 180 / float64(r.Count)
	}
	for k := range r.Count {
		angle := offset + 360*float64(k)/float64(r.Count)
		pos := c.cfg.Origin.Add(motion.FromAngleDeg(angle).Mult(r.Radius))
		h, ok := c.spawn(pos, pool.Params{
			Rotation: angle,
			Timeout:  c.cfg.Burst.Timeout,
			OnSignal: c.onBurstSignal,
		})
		if ok {
			handles = append(handles, h)
		}
	}
	c.burst.rings = append(c.burst.rings, handles)
	c.log.Debug("burst ring", slog.Int("ring", i), slog.Int("spawned", len(handles)), logger.Pattern(c.pattern.Name))
}

// releaseRings sends every ring outward in the same tick.
func (c *Coordinator) releaseRings(ctx *fsm.Context) {
	spec := c.cfg.Burst
	launched := 0
	for i, handles := range c.burst.rings {
		r := spec.Rings[i]
		speed := spec.Speed * c.ringMultiplier(i) * orOne(r.SpeedMultiplier)
		for _, h := range handles {
			e, ok := c.pool.Get(h)
			if !ok {
				continue
			}
			out := motion.Normalize(e.Position().Sub(c.cfg.Origin))
			switch r.Motion {
			case motionOrbit:
				c.pool.Drive(h, &motion.Orbit{
					Center:          c.cfg.Origin,
					AngularSpeedDeg: r.Orbit.AngularSpeedDeg,
					OutwardSpeed:    speed,
					Duration:        r.Orbit.Duration,
				})
			case motionReverse:
				c.pool.Drive(h, &motion.ReverseAccel{
					Center:              c.cfg.Origin,
					InitialOutwardSpeed: speed,
					InwardAccel:         r.Reverse.InwardAccel,
					MaxInwardSpeed:      r.Reverse.MaxInwardSpeed,
					Duration:            r.Reverse.Duration,
				})
			default:
				c.pool.Launch(h, out.Mult(speed))
			}
			launched++
		}
	}
	ctx.Vars.SetFloat("burst.launched", float64(launched))
	c.log.Debug("burst released", slog.Int("rings", len(c.burst.rings)), slog.Int("launched", launched))
}

// ringMultiplier interpolates from the inner to the outer multiplier across the
// rings. Unset multipliers count as 1.
func (c *Coordinator) ringMultiplier(i int) float64 {
	inner := orOne(c.cfg.Burst.InnerMultiplier)
	outer := orOne(c.cfg.Burst.OuterMultiplier)
	n := len(c.cfg.Burst.Rings)
	if n <= 1 {
		return inner
	}
	t := float64(i) / float64(n-1)
	return inner + (outer-inner)*t
}

func (c *Coordinator) onBurstSignal(_ pool.Handle, sig motion.Signal) {
	if sig == motion.SignalDirectionReversed {
		c.stats.Reversals++
		c.m.Vars().AddFloat("burst.reversed", 1)
	}
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
