package pool

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/physics"
)

var (
	ErrExhausted     = errors.New("pool: exhausted")
	ErrInvalidConfig = errors.New("pool: invalid config")
)

type Config struct {
	Size     int
	Growable bool
	// MaxSize caps growth; 0 grows without bound.
	MaxSize int
	// GraceDelay is how long a fresh entity ignores collisions.
	GraceDelay float64
	// DisperseTime is how long a hit entity lingers before it is recycled.
	DisperseTime float64
	// Radius is the collision radius of every entity.
	Radius float64
}

// Hooks lets a renderer follow entities. Deactivated fires after the entity has
// been reset; use Entity.ID to correlate the two calls.
type Hooks interface {
	OnEntityActivated(e *Entity)
	OnEntityDeactivated(e *Entity)
}

// Collider reports what a moving entity touched between two positions.
type Collider interface {
	Probe(from, to cp.Vector, radius float64) physics.Contact
}

type Stats struct {
	Acquired   int
	Released   int
	Exhausted  int
	Grown      int
	WallHits   int
	TargetHits int
}

type Option func(*Pool)

func WithHooks(h Hooks) Option {
	return func(p *Pool) { p.hooks = h }
}

func WithCollider(c Collider) Option {
	return func(p *Pool) { p.collider = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.log = l
		}
	}
}

// Pool owns a fixed (optionally growable) set of entities and hands them out by
// handle. It is driven by Tick from the host loop and is not safe for concurrent
// use.
type Pool struct {
	cfg      Config
	entities []*Entity
	free     []slotID
	graph    *fsm.Graph
	hooks    Hooks
	collider Collider
	log      *slog.Logger
	now      float64
	inUse    int
	stats    Stats
}

func New(cfg Config, opts ...Option) (*Pool, error) {
	switch {
	case cfg.Size < 0:
		return nil, fmt.Errorf("%w: size %d", ErrInvalidConfig, cfg.Size)
	case cfg.MaxSize < 0, cfg.MaxSize > 0 && cfg.MaxSize < cfg.Size:
		return nil, fmt.Errorf("%w: max size %d below size %d", ErrInvalidConfig, cfg.MaxSize, cfg.Size)
	case cfg.GraceDelay < 0, cfg.DisperseTime < 0, cfg.Radius < 0:
		return nil, fmt.Errorf("%w: negative duration or radius", ErrInvalidConfig)
	}

	graph, err := lifecycleGraph()
	if err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:   cfg,
		graph: graph,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With(logger.Component("pool"))

	p.entities = make([]*Entity, 0, cfg.Size)
	for range cfg.Size {
		if _, err := p.add(); err != nil {
			return nil, err
		}
	}
	for i := len(p.entities) - 1; i >= 0; i-- {
		p.free = append(p.free, p.entities[i].slot)
	}
	return p, nil
}

func (p *Pool) add() (*Entity, error) {
	e := &Entity{
		ID:    uuid.New(),
		slot:  slotID(len(p.entities)),
		gen:   1,
		Scale: 1,
		pool:  p,
	}
	e.machine = fsm.NewMachine(p.graph, fsm.WithHost(e), fsm.WithLogger(p.log))
	if err := e.machine.Start(StatePooled); err != nil {
		return nil, err
	}
	p.entities = append(p.entities, e)
	return e, nil
}

// Acquire activates a free entity at pos. With no free entity and no room to
// grow it returns ErrExhausted and the caller should skip the spawn.
func (p *Pool) Acquire(pos cp.Vector, params Params) (Handle, error) {
	var e *Entity
	if n := len(p.free); n > 0 {
		e = p.entities[p.free[n-1]]
		p.free = p.free[:n-1]
	} else if p.cfg.Growable && (p.cfg.MaxSize == 0 || len(p.entities) < p.cfg.MaxSize) {
		var err error
		if e, err = p.add(); err != nil {
			return NoEntity, err
		}
		p.stats.Grown++
		p.log.Debug("pool grew", slog.Int("size", len(p.entities)))
	} else {
		p.stats.Exhausted++
		p.log.Warn("pool exhausted, skipping spawn", slog.Int("size", len(p.entities)))
		return NoEntity, ErrExhausted
	}

	e.apply(pos, params)
	e.inUse = true
	p.inUse++
	p.stats.Acquired++
	e.machine.Dispatch(evAcquire)

	if p.hooks != nil {
		p.hooks.OnEntityActivated(e)
	}
	return e.Handle(), nil
}

// Release returns the entity to the pool. Releasing a stale or already released
// handle does nothing and reports false.
func (p *Pool) Release(h Handle) bool {
	e, ok := p.lookup(h)
	if !ok {
		p.log.Debug("release ignored", logger.Handle(h))
		return false
	}

	e.clear()
	e.inUse = false
	p.inUse--
	p.stats.Released++
	e.gen++
	if e.gen == 0 {
		e.gen = 1
	}
	p.free = append(p.free, e.slot)
	e.machine.Dispatch(evRecycle)

	if p.hooks != nil {
		p.hooks.OnEntityDeactivated(e)
	}
	return true
}

// Drive hands b to the entity; it owns velocity until it finishes or another
// behavior is pushed on top.
func (p *Pool) Drive(h Handle, b motion.Behavior) bool {
	e, ok := p.lookup(h)
	if !ok {
		return false
	}
	e.driver.Push(e, b)
	return true
}

// Launch sends the entity off in a straight line at v.
func (p *Pool) Launch(h Handle, v cp.Vector) bool {
	return p.Drive(h, &motion.Ballistic{Velocity: v})
}

// Redirect drops every behavior of the entity and starts b.
func (p *Pool) Redirect(h Handle, b motion.Behavior) bool {
	e, ok := p.lookup(h)
	if !ok {
		return false
	}
	e.driver.Replace(e, b)
	return true
}

// Protect extends the entity's collision protection by seconds from now.
func (p *Pool) Protect(h Handle, seconds float64) bool {
	e, ok := p.lookup(h)
	if !ok {
		return false
	}
	e.protectedUntil = max(e.protectedUntil, p.now+seconds)
	return true
}

// Tick advances the pool clock and every active entity.
func (p *Pool) Tick(dt float64) {
	p.now += dt
	n := len(p.entities)
	for i := 0; i < n; i++ {
		if e := p.entities[i]; e.inUse {
			e.machine.Tick(dt)
		}
	}
}

// Abort releases every entity in use and returns how many there were.
func (p *Pool) Abort() int {
	released := 0
	for _, e := range p.entities {
		if e.inUse && p.Release(e.Handle()) {
			released++
		}
	}
	if released > 0 {
		p.log.Info("pool aborted", slog.Int("released", released))
	}
	return released
}

func (p *Pool) Get(h Handle) (*Entity, bool) {
	return p.lookup(h)
}

// Each visits every entity in use, in slot order.
func (p *Pool) Each(fn func(e *Entity)) {
	for _, e := range p.entities {
		if e.inUse {
			fn(e)
		}
	}
}

func (p *Pool) Size() int      { return len(p.entities) }
func (p *Pool) InUse() int     { return p.inUse }
func (p *Pool) Available() int { return len(p.free) }
func (p *Pool) Now() float64   { return p.now }
func (p *Pool) Stats() Stats   { return p.stats }
func (p *Pool) Config() Config { return p.cfg }

// Close releases everything and detaches the hooks.
func (p *Pool) Close() {
	p.Abort()
	p.hooks = nil
}

func (p *Pool) lookup(h Handle) (*Entity, bool) {
	if !h.Valid() {
		return nil, false
	}
	s := int(h.slot())
	if s >= len(p.entities) {
		return nil, false
	}
	e := p.entities[s]
	if !e.inUse || e.gen != h.generation() {
		return nil, false
	}
	return e, true
}
