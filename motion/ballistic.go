package motion

import "github.com/jakecoffman/cp"

// Ballistic holds a constant velocity, finishing after Duration when positive.
type Ballistic struct {
	Velocity cp.Vector
	Duration float64

	elapsed float64
	done    bool
}

func (s *Ballistic) Start(b Body) {
	s.elapsed = 0
	s.done = false
	b.SetVelocity(s.Velocity)
}

func (s *Ballistic) Step(b Body, dt float64) Signal {
	if s.done {
		return SignalNone
	}
	s.elapsed += dt
	b.SetVelocity(s.Velocity)
	if s.Duration > 0 && s.elapsed >= s.Duration {
		s.done = true
		return SignalDone
	}
	return SignalNone
}
