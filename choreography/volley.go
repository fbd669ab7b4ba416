package choreography

import (
	"log/slog"

	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/pool"
)

type volleyRun struct {
	wave int
	wait fsm.Wait
	done bool
}

func (c *Coordinator) beginVolley(*fsm.Context) {
	c.volley = volleyRun{}
}

func (c *Coordinator) tickVolley(ctx *fsm.Context) {
	v := &c.volley
	if v.done {
		return
	}
	spec := c.cfg.Volley
	if v.wave < spec.Waves && v.wait.Advance(ctx.DT) {
		c.fireWave(v.wave)
		v.wave++
		v.wait.Reset(spec.WaveInterval)
	}
	if v.wave >= spec.Waves {
		v.done = true
		c.completePhase(ctx, PhaseVolley)
	}
}

// fireWave launches one fan of ballistic entities from the origin.
func (c *Coordinator) fireWave(wave int) {
	spec := c.cfg.Volley
	base := spec.BaseAngleDeg
	if spec.AimAtTarget && c.target != nil && c.target.Alive() {
		base = motion.AngleDeg(c.target.Position().Sub(c.cfg.Origin))
	}

	fired := 0
	for range spec.PerWave {
		angle := base + c.jitter(spec.SpreadDeg/2)
		speed := max(spec.Speed+c.jitter(spec.SpeedJitter), 0)
		h, ok := c.spawn(c.cfg.Origin, pool.Params{
			Rotation: angle,
			MaxSpeed: speed,
			Timeout:  spec.Timeout,
		})
		if !ok {
			continue
		}
		c.pool.Launch(h, motion.FromAngleDeg(angle).Mult(speed))
		fired++
	}
	c.log.Debug("volley wave", slog.Int("wave", wave), slog.Int("fired", fired), slog.Float64("angle", base), logger.Pattern(c.pattern.Name))
}
