package motion

// Chase accelerates toward Target, capped at MaxSpeed. It ends with SignalReached
// inside ReachDistance, or SignalTimedOut after Timeout seconds (0 disables the
// timeout) or when the target is gone.
type Chase struct {
	Target        Target
	Acceleration  float64
	MaxSpeed      float64
	ReachDistance float64
	Timeout       float64

	elapsed float64
	done    bool
}

func (c *Chase) Start(Body) {
	c.elapsed = 0
	c.done = false
}

func (c *Chase) Step(b Body, dt float64) Signal {
	if c.done {
		return SignalNone
	}
	if c.Target == nil || !c.Target.Alive() {
		c.done = true
		return SignalTimedOut
	}

	toward := c.Target.Position().Sub(b.Position())
	if toward.Length() < c.ReachDistance {
		c.done = true
		return SignalReached
	}

	c.elapsed += dt
	v := b.Velocity().Add(Normalize(toward).Mult(c.Acceleration * dt))
	b.SetVelocity(ClampLength(v, c.MaxSpeed))

	if c.Timeout > 0 && c.elapsed >= c.Timeout {
		c.done = true
		return SignalTimedOut
	}
	return SignalNone
}

func (c *Chase) Elapsed() float64 { return c.elapsed }
