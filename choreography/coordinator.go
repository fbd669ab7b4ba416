package choreography

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/pool"
	"github.com/milk9111/barrage/prefabs"
)

type Phase string

const (
	PhaseAbsorb Phase = "absorb"
	PhaseVolley Phase = "volley"
	PhaseBurst  Phase = "burst"
)

var phases = []Phase{PhaseAbsorb, PhaseVolley, PhaseBurst}

func (p Phase) valid() bool {
	switch p {
	case PhaseAbsorb, PhaseVolley, PhaseBurst:
		return true
	}
	return false
}

const (
	StateIdle fsm.StateID = "idle"

	evSequenceComplete fsm.EventID = "sequence_complete"
	evAbort            fsm.EventID = "abort"
)

var (
	ErrBusy           = errors.New("choreography: coordinator busy")
	ErrInvalidPattern = errors.New("choreography: invalid pattern")
	ErrInvalidConfig  = errors.New("choreography: invalid config")
)

// Pattern is an ordered run of phases.
type Pattern struct {
	Name   string
	Phases []Phase
}

// Validate rejects empty patterns, unknown phases and a phase repeated back to
// back. The coordinator cannot re-enter the state it is leaving.
func (p Pattern) Validate() error {
	if len(p.Phases) == 0 {
		return fmt.Errorf("%w: %q has no phases", ErrInvalidPattern, p.Name)
	}
	for i, ph := range p.Phases {
		if !ph.valid() {
			return fmt.Errorf("%w: %q has unknown phase %q", ErrInvalidPattern, p.Name, ph)
		}
		if i > 0 && p.Phases[i-1] == ph {
			return fmt.Errorf("%w: %q repeats phase %q", ErrInvalidPattern, p.Name, ph)
		}
	}
	return nil
}

// PatternFromSpec converts a prefab pattern, validating its phases.
func PatternFromSpec(s prefabs.PatternSpec) (Pattern, error) {
	p := Pattern{Name: s.Name, Phases: make([]Phase, 0, len(s.Phases))}
	for _, ph := range s.Phases {
		p.Phases = append(p.Phases, Phase(ph))
	}
	return p, p.Validate()
}

// Tracker is told about every finished phase, e.g. to advance a quest or play a
// sound.
type Tracker interface {
	OnPhaseComplete(phase string)
}

type TrackerFunc func(phase string)

func (f TrackerFunc) OnPhaseComplete(phase string) { f(phase) }

// Spawner is the slice of the entity pool the coordinator drives.
type Spawner interface {
	Acquire(pos cp.Vector, params pool.Params) (pool.Handle, error)
	Release(h pool.Handle) bool
	Drive(h pool.Handle, b motion.Behavior) bool
	Launch(h pool.Handle, v cp.Vector) bool
	Get(h pool.Handle) (*pool.Entity, bool)
	Abort() int
}

type Config struct {
	Origin cp.Vector
	Absorb prefabs.AbsorbSpec
	Volley prefabs.VolleySpec
	Burst  prefabs.BurstSpec
}

// ConfigFromSpec pulls the phase parameters out of an encounter prefab.
func ConfigFromSpec(s *prefabs.EncounterSpec) Config {
	return Config{
		Origin: cp.Vector{X: s.Origin.X, Y: s.Origin.Y},
		Absorb: s.Absorb,
		Volley: s.Volley,
		Burst:  s.Burst,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Absorb.Cap < 0 || c.Absorb.SpawnInterval < 0 || c.Absorb.Duration < 0 {
		errs = append(errs, errors.New("absorb: negative cap, interval or duration"))
	}
	if c.Absorb.ReachDistance <= 0 {
		errs = append(errs, errors.New("absorb: reach_distance must be positive"))
	}
	if c.Volley.Waves < 0 || c.Volley.PerWave < 0 || c.Volley.WaveInterval < 0 {
		errs = append(errs, errors.New("volley: negative waves, per_wave or interval"))
	}
	if c.Burst.RingInterval < 0 || c.Burst.ReleaseDelay < 0 {
		errs = append(errs, errors.New("burst: negative ring_interval or release_delay"))
	}
	for i, r := range c.Burst.Rings {
		if r.Count < 0 {
			errs = append(errs, fmt.Errorf("burst: ring %d has negative count", i))
		}
		switch r.Motion {
		case "", motionStraight, motionOrbit, motionReverse:
		default:
			errs = append(errs, fmt.Errorf("burst: ring %d has unknown motion %q", i, r.Motion))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

type Stats struct {
	PhasesCompleted int
	Absorbed        int
	Spawned         int
	Skipped         int
	Reversals       int
	Aborts          int
}

type Option func(*Coordinator)

// WithTarget sets what volleys aim at.
func WithTarget(t motion.Target) Option {
	return func(c *Coordinator) { c.target = t }
}

func WithTracker(t Tracker) Option {
	return func(c *Coordinator) { c.tracker = t }
}

func WithRand(r *rand.Rand) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.rng = r
		}
	}
}

func WithSeed(seed uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed, seed^0x5bd1e995)))
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.log = l
		}
	}
}

// Coordinator runs attack patterns phase by phase on top of an entity pool.
type Coordinator struct {
	cfg     Config
	pool    Spawner
	target  motion.Target
	tracker Tracker
	rng     *rand.Rand
	log     *slog.Logger
	m       *fsm.Machine

	pattern Pattern
	step    int
	live    map[pool.Handle]struct{}

	absorb absorbRun
	volley volleyRun
	burst  burstRun

	stats Stats
}

func NewCoordinator(cfg Config, sp Spawner, opts ...Option) (*Coordinator, error) {
	if sp == nil {
		return nil, fmt.Errorf("%w: nil spawner", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	seed := uint64(time.Now().UnixNano())
	c := &Coordinator{
		cfg:  cfg,
		pool: sp,
		rng:  rand.New(rand.NewPCG(seed, seed>>1)),
		log:  logger.Discard(),
		live: make(map[pool.Handle]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("coordinator"))

	g, err := c.graph()
	if err != nil {
		return nil, err
	}
	c.m = fsm.NewMachine(g, fsm.WithHost(c), fsm.WithLogger(c.log), fsm.WithName("coordinator"))
	if err := c.m.Start(StateIdle); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Coordinator) graph() (*fsm.Graph, error) {
	b := fsm.NewBuilder().State(StateIdle)
	for _, ph := range phases {
		b.On(fsm.EventID(ph), fsm.StateID(ph))
	}

	b.State(fsm.StateID(PhaseAbsorb)).
		OnEnter("begin_absorb", c.beginAbsorb).
		OnTick("absorb", c.tickAbsorb).
		OnExit("end_absorb", c.endAbsorb)
	c.linkPhases(b, PhaseAbsorb)

	b.State(fsm.StateID(PhaseVolley)).
		OnEnter("begin_volley", c.beginVolley).
		OnTick("volley", c.tickVolley)
	c.linkPhases(b, PhaseVolley)

	b.State(fsm.StateID(PhaseBurst)).
		OnEnter("begin_burst", c.beginBurst).
		OnTick("burst", c.tickBurst)
	c.linkPhases(b, PhaseBurst)

	return b.Global(evAbort, StateIdle).Build()
}

func (c *Coordinator) linkPhases(b *fsm.Builder, from Phase) {
	for _, ph := range phases {
		if ph != from {
			b.On(fsm.EventID(ph), fsm.StateID(ph))
		}
	}
	b.On(evSequenceComplete, StateIdle)
}

// Begin starts p from its first phase. It fails with ErrBusy unless idle.
func (c *Coordinator) Begin(p Pattern) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !c.m.Is(StateIdle) {
		return fmt.Errorf("%w: running %q in phase %s", ErrBusy, c.pattern.Name, c.m.Current())
	}
	c.pattern = p
	c.step = 0
	c.log.Info("pattern started", logger.Pattern(p.Name), slog.Int("phases", len(p.Phases)))
	c.m.Dispatch(fsm.EventID(p.Phases[0]))
	return nil
}

// Abort releases everything the coordinator spawned and returns to idle without
// reporting the interrupted phase.
func (c *Coordinator) Abort() {
	released := 0
	for h := range c.live {
		if c.pool.Release(h) {
			released++
		}
	}
	clear(c.live)
	released += c.pool.Abort()
	c.stats.Aborts++
	c.log.Info("pattern aborted", logger.Pattern(c.pattern.Name), logger.State(c.m.Current()), slog.Int("released", released))
	c.m.Dispatch(evAbort)
}

func (c *Coordinator) Tick(dt float64) {
	c.prune()
	c.m.Tick(dt)
}

// Active reports whether a pattern is running.
func (c *Coordinator) Active() bool { return !c.m.Is(StateIdle) }

// Phase returns the running phase, or "" when idle.
func (c *Coordinator) Phase() Phase {
	if !c.Active() {
		return ""
	}
	return Phase(c.m.Current())
}

func (c *Coordinator) Origin() cp.Vector         { return c.cfg.Origin }
func (c *Coordinator) Pattern() Pattern          { return c.pattern }
func (c *Coordinator) Stats() Stats              { return c.stats }
func (c *Coordinator) Live() int                 { return len(c.live) }
func (c *Coordinator) Machine() *fsm.Machine     { return c.m }
func (c *Coordinator) SetTarget(t motion.Target) { c.target = t }

// Growth is the visual scale gained from absorbed feeders, starting at 1.
func (c *Coordinator) Growth() float64 { return 1 + c.absorb.growth }

func (c *Coordinator) prune() {
	for h := range c.live {
		if _, ok := c.pool.Get(h); !ok {
			delete(c.live, h)
		}
	}
}

func (c *Coordinator) spawn(pos cp.Vector, params pool.Params) (pool.Handle, bool) {
	h, err := c.pool.Acquire(pos, params)
	if err != nil {
		c.stats.Skipped++
		c.log.Debug("spawn skipped", logger.Phase(string(c.Phase())), logger.Error(err))
		return pool.NoEntity, false
	}
	c.live[h] = struct{}{}
	c.stats.Spawned++
	return h, true
}

func (c *Coordinator) release(h pool.Handle) bool {
	delete(c.live, h)
	return c.pool.Release(h)
}

func (c *Coordinator) completePhase(ctx *fsm.Context, ph Phase) {
	c.stats.PhasesCompleted++
	c.log.Info("phase complete", logger.Phase(string(ph)), logger.Pattern(c.pattern.Name))
	if c.tracker != nil {
		c.tracker.OnPhaseComplete(string(ph))
	}
	c.step++
	if c.step < len(c.pattern.Phases) {
		ctx.Emit(fsm.EventID(c.pattern.Phases[c.step]))
		return
	}
	ctx.Emit(evSequenceComplete)
}

// jitter returns a uniform value in [-span, span].
func (c *Coordinator) jitter(span float64) float64 {
	if span == 0 {
		return 0
	}
	return (c.rng.Float64()*2 - 1) * span
}
