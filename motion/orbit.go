package motion

import (
	"math"

	"github.com/jakecoffman/cp"
)

// Orbit spirals around Center: OutwardSpeed along the radius plus a tangential
// speed of AngularSpeedDeg at the current radius. Positive angular speed turns
// counter-clockwise in a y-up frame. Duration 0 orbits until replaced.
type Orbit struct {
	Center          cp.Vector
	AngularSpeedDeg float64
	OutwardSpeed    float64
	Duration        float64

	elapsed float64
	done    bool
}

func (o *Orbit) Start(Body) {
	o.elapsed = 0
	o.done = false
}

func (o *Orbit) Step(b Body, dt float64) Signal {
	if o.done {
		return SignalNone
	}
	o.elapsed += dt

	pos := b.Position()
	r := radial(o.Center, pos)
	radius := pos.Distance(o.Center)
	tangential := o.AngularSpeedDeg * math.Pi / 180 * radius

	b.SetVelocity(r.Mult(o.OutwardSpeed).Add(r.Perp().Mult(tangential)))
	if o.Duration > 0 && o.elapsed >= o.Duration {
		o.done = true
		return SignalDone
	}
	return SignalNone
}
