package motion

import "github.com/jakecoffman/cp"

// ReverseAccel launches outward from Center and then pulls back in. The inward
// velocity component never exceeds MaxInwardSpeed (0 means no cap).
// SignalDirectionReversed is emitted once, on the first step where the radial
// velocity points inward. SignalDone follows after Duration (0 runs forever).
type ReverseAccel struct {
	Center              cp.Vector
	InitialOutwardSpeed float64
	InwardAccel         float64
	MaxInwardSpeed      float64
	Duration            float64

	elapsed  float64
	reversed bool
	done     bool
}

func (r *ReverseAccel) Start(b Body) {
	r.elapsed = 0
	r.reversed = false
	r.done = false
	b.SetVelocity(radial(r.Center, b.Position()).Mult(r.InitialOutwardSpeed))
}

func (r *ReverseAccel) Step(b Body, dt float64) Signal {
	if r.done {
		return SignalNone
	}
	// A reversal on the final step is reported first; Done follows on the next.
	if r.finished() {
		r.done = true
		return SignalDone
	}
	r.elapsed += dt

	if inward := Normalize(r.Center.Sub(b.Position())); inward != (cp.Vector{}) {
		v := b.Velocity().Add(inward.Mult(r.InwardAccel * dt))
		if r.MaxInwardSpeed > 0 {
			if in := v.Dot(inward); in > r.MaxInwardSpeed {
				v = v.Sub(inward.Mult(in - r.MaxInwardSpeed))
			}
		}
		b.SetVelocity(v)

		if !r.reversed && v.Dot(inward) > 0 {
			r.reversed = true
			return SignalDirectionReversed
		}
	}

	if r.finished() {
		r.done = true
		return SignalDone
	}
	return SignalNone
}

func (r *ReverseAccel) finished() bool {
	return r.Duration > 0 && r.elapsed >= r.Duration
}

func (r *ReverseAccel) Reversed() bool { return r.reversed }
