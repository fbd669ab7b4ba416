package pool

import (
	"github.com/google/uuid"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/motion"
)

// Params configures an entity on Acquire.
type Params struct {
	Rotation     float64
	Scale        float64
	Acceleration float64
	MaxSpeed     float64
	// Timeout caps how long the entity may fly; 0 means no cap.
	Timeout             float64
	Target              motion.Target
	IgnoreWallCollision bool
	CanBeAbsorbed       bool
	// OnSignal receives every non-none motion signal. Releasing the entity from
	// inside the callback is allowed.
	OnSignal func(h Handle, sig motion.Signal)
}

// Entity is a recyclable projectile. Its slot and uuid stay fixed for the life of
// the pool; everything else is reset between activations.
type Entity struct {
	ID uuid.UUID

	pos, vel, prevPos cp.Vector
	Rotation          float64
	Scale             float64

	Acceleration        float64
	MaxSpeed            float64
	Timeout             float64
	Target              motion.Target
	IgnoreWallCollision bool
	CanBeAbsorbed       bool

	protectedUntil float64
	collidable     bool
	age            float64

	slot     slotID
	gen      generation
	inUse    bool
	onSignal func(h Handle, sig motion.Signal)
	driver   motion.Driver
	machine  *fsm.Machine
	pool     *Pool
}

func (e *Entity) Position() cp.Vector     { return e.pos }
func (e *Entity) Velocity() cp.Vector     { return e.vel }
func (e *Entity) SetVelocity(v cp.Vector) { e.vel = v }
func (e *Entity) SetPosition(p cp.Vector) { e.pos = p }

func (e *Entity) Handle() Handle {
	if !e.inUse {
		return NoEntity
	}
	return makeHandle(e.slot, e.gen)
}

func (e *Entity) InUse() bool      { return e.inUse }
func (e *Entity) Collidable() bool { return e.collidable }
func (e *Entity) Age() float64     { return e.age }

// Protected reports whether collisions are currently ignored.
func (e *Entity) Protected() bool {
	return e.pool != nil && e.pool.now < e.protectedUntil
}

// Lifecycle is the current lifecycle state name.
func (e *Entity) Lifecycle() fsm.StateID { return e.machine.Current() }

// Behavior is the behavior currently driving velocity, if any.
func (e *Entity) Behavior() motion.Behavior { return e.driver.Active() }

func (e *Entity) apply(pos cp.Vector, p Params) {
	e.pos = pos
	e.prevPos = pos
	e.vel = cp.Vector{}
	e.Rotation = p.Rotation
	e.Scale = p.Scale
	if e.Scale == 0 {
		e.Scale = 1
	}
	e.Acceleration = p.Acceleration
	e.MaxSpeed = p.MaxSpeed
	e.Timeout = p.Timeout
	e.Target = p.Target
	e.IgnoreWallCollision = p.IgnoreWallCollision
	e.CanBeAbsorbed = p.CanBeAbsorbed
	e.onSignal = p.OnSignal
	e.age = 0
}

func (e *Entity) clear() {
	e.driver.Cancel()
	e.vel = cp.Vector{}
	e.collidable = false
	e.protectedUntil = 0
	e.Target = nil
	e.onSignal = nil
	e.CanBeAbsorbed = false
	e.IgnoreWallCollision = false
}
