package motion

import (
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
)

type Signal uint8

const (
	SignalNone Signal = iota
	SignalReached
	SignalTimedOut
	SignalDirectionReversed
	SignalDone
)

func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalReached:
		return "reached"
	case SignalTimedOut:
		return "timed_out"
	case SignalDirectionReversed:
		return "direction_reversed"
	case SignalDone:
		return "done"
	}
	return fmt.Sprintf("signal(%d)", uint8(s))
}

// Terminal reports whether the behavior that produced s has finished.
func (s Signal) Terminal() bool {
	return s == SignalReached || s == SignalTimedOut || s == SignalDone
}

// Body is whatever a behavior steers. Behaviors only write velocity; the owner
// integrates position.
type Body interface {
	Position() cp.Vector
	Velocity() cp.Vector
	SetVelocity(v cp.Vector)
}

// Target is a reference that may disappear while a behavior still points at it.
type Target interface {
	Position() cp.Vector
	Alive() bool
}

// Point is a fixed target that never goes away.
type Point cp.Vector

func (p Point) Position() cp.Vector { return cp.Vector(p) }
func (p Point) Alive() bool         { return true }

type Behavior interface {
	Start(b Body)
	Step(b Body, dt float64) Signal
}

// Normalize returns the unit vector of v, or zero for a zero vector.
func Normalize(v cp.Vector) cp.Vector {
	l := v.Length()
	if l == 0 {
		return cp.Vector{}
	}
	return v.Mult(1 / l)
}

// ClampLength limits v to max. A non-positive max leaves v unchanged.
func ClampLength(v cp.Vector, max float64) cp.Vector {
	if max <= 0 {
		return v
	}
	if v.LengthSq() > max*max {
		return v.Mult(max / v.Length())
	}
	return v
}

func FromAngleDeg(deg float64) cp.Vector {
	return cp.ForAngle(deg * math.Pi / 180)
}

func AngleDeg(v cp.Vector) float64 {
	return v.ToAngle() * 180 / math.Pi
}

// radial is the unit vector from center to p; +X when p sits on center.
func radial(center, p cp.Vector) cp.Vector {
	if r := Normalize(p.Sub(center)); r != (cp.Vector{}) {
		return r
	}
	return cp.Vector{X: 1}
}
