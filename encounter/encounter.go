package encounter

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/choreography"
	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/physics"
	"github.com/milk9111/barrage/pool"
	"github.com/milk9111/barrage/prefabs"
	"github.com/milk9111/barrage/selector"
)

const defaultDirector = "director.yaml"

var ErrInvalidSpec = errors.New("encounter: invalid spec")

// Collaborators are the host-side objects the encounter talks to. All of them are
// optional.
type Collaborators struct {
	Target  motion.Target
	Hooks   pool.Hooks
	Tracker choreography.Tracker
}

type options struct {
	log      *slog.Logger
	seed     uint64
	seeded   bool
	registry *fsm.Registry
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithSeed makes pattern choice and spread jitter reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithRegistry supplies the action registry the director graph is compiled with.
func WithRegistry(r *fsm.Registry) Option {
	return func(o *options) { o.registry = r }
}

type Stats struct {
	RunID       uuid.UUID
	Ticks       int
	Elapsed     float64
	Director    fsm.StateID
	Phase       choreography.Phase
	Performed   int
	Enraged     bool
	Growth      float64
	InUse       int
	PoolSize    int
	Coordinator choreography.Stats
	Pool        pool.Stats
}

// Encounter owns one boss fight: the arena, the projectile pool, the coordinator
// running attack phases and the director choosing them.
type Encounter struct {
	ID          uuid.UUID
	Name        string
	Arena       *physics.Arena
	Pool        *pool.Pool
	Coordinator *choreography.Coordinator
	Director    *choreography.Director

	log     *slog.Logger
	ticks   int
	elapsed float64
	closed  bool
}

// Load reads an encounter prefab by name and builds it.
func Load(name string, c Collaborators, opts ...Option) (*Encounter, error) {
	spec, err := prefabs.LoadEncounterSpec(name)
	if err != nil {
		return nil, err
	}
	return New(spec, c, opts...)
}

func New(spec *prefabs.EncounterSpec, c Collaborators, opts ...Option) (*Encounter, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	o := options{log: logger.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = uint64(time.Now().UnixNano())
	}

	e := &Encounter{
		ID:   uuid.New(),
		Name: spec.Name,
	}
	e.log = o.log.With(slog.String("run", e.ID.String()), slog.String("encounter", spec.Name))

	e.Arena = physics.NewArena(spec.Arena.Width, spec.Arena.Height, spec.Arena.WallRadius)
	for _, w := range spec.Arena.Walls {
		e.Arena.AddWall(vec(w.A), vec(w.B), w.Radius)
	}
	if c.Target != nil {
		e.Arena.SetTarget(c.Target, spec.Arena.TargetRadius)
	}

	poolOpts := []pool.Option{pool.WithCollider(e.Arena), pool.WithLogger(e.log)}
	if c.Hooks != nil {
		poolOpts = append(poolOpts, pool.WithHooks(c.Hooks))
	}
	var err error
	e.Pool, err = pool.New(pool.Config{
		Size:         spec.Pool.Size,
		Growable:     spec.Pool.Growable,
		MaxSize:      spec.Pool.MaxSize,
		GraceDelay:   spec.Pool.GraceDelay,
		DisperseTime: spec.Pool.DisperseTime,
		Radius:       spec.Pool.Radius,
	}, poolOpts...)
	if err != nil {
		return nil, err
	}

	coordOpts := []choreography.Option{
		choreography.WithLogger(e.log),
		choreography.WithSeed(o.seed + 1),
	}
	if c.Target != nil {
		coordOpts = append(coordOpts, choreography.WithTarget(c.Target))
	}
	if c.Tracker != nil {
		coordOpts = append(coordOpts, choreography.WithTracker(c.Tracker))
	}
	e.Coordinator, err = choreography.NewCoordinator(choreography.ConfigFromSpec(spec), e.Pool, coordOpts...)
	if err != nil {
		return nil, err
	}

	patterns := make([]choreography.Pattern, 0, len(spec.Patterns))
	candidates := make([]selector.Candidate, 0, len(spec.Patterns))
	for _, ps := range spec.Patterns {
		p, err := choreography.PatternFromSpec(ps)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
		candidates = append(candidates, selector.Candidate{
			Event:     fsm.EventID(ps.Name),
			Weight:    ps.Weight,
			MaxFires:  ps.MaxFires,
			MissedMax: ps.MissedMax,
		})
	}
	sel, err := selector.New(candidates, selector.WithSeed(o.seed), selector.WithLogger(e.log))
	if err != nil {
		return nil, err
	}

	directorName := spec.Director
	if directorName == "" {
		directorName = defaultDirector
	}
	dspec, err := prefabs.LoadFSMSpec(directorName)
	if err != nil {
		return nil, err
	}
	e.Director, err = choreography.NewDirector(dspec, e.Coordinator, patterns, sel,
		choreography.WithRegistry(o.registry),
		choreography.WithDirectorLogger(e.log),
	)
	if err != nil {
		return nil, err
	}

	e.log.Info("encounter ready",
		slog.Int("patterns", len(patterns)),
		slog.Int("walls", e.Arena.Walls()),
		slog.Int("pool", e.Pool.Size()),
		slog.Uint64("seed", o.seed),
	)
	return e, nil
}

// Validate checks the parts of a prefab the lower layers do not.
func Validate(spec *prefabs.EncounterSpec) error {
	if spec == nil {
		return fmt.Errorf("%w: nil spec", ErrInvalidSpec)
	}
	var errs []error
	if spec.Arena.Width <= 0 || spec.Arena.Height <= 0 {
		errs = append(errs, fmt.Errorf("arena %vx%v must have positive size", spec.Arena.Width, spec.Arena.Height))
	}
	if len(spec.Patterns) == 0 {
		errs = append(errs, errors.New("no patterns"))
	}
	seen := make(map[string]bool, len(spec.Patterns))
	for _, p := range spec.Patterns {
		if p.Name == "" {
			errs = append(errs, errors.New("pattern without a name"))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate pattern %q", p.Name))
		}
		seen[p.Name] = true
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSpec, errors.Join(errs...))
	}
	return nil
}

// Tick advances the director, then the coordinator, then every projectile.
func (e *Encounter) Tick(dt float64) {
	if e.closed {
		return
	}
	e.Director.Tick(dt)
	e.Coordinator.Tick(dt)
	e.Pool.Tick(dt)
	e.ticks++
	e.elapsed += dt
}

// RaiseEvent forwards an outside event ("stun", "recover") to the director.
func (e *Encounter) RaiseEvent(name string) bool {
	if e.closed {
		return false
	}
	e.log.Info("event raised", logger.Event(name), logger.State(e.Director.State()))
	return e.Director.RaiseEvent(name)
}

func (e *Encounter) Enrage(scale float64) {
	if !e.closed {
		e.Director.Enrage(scale)
	}
}

func (e *Encounter) Origin() cp.Vector {
	return e.Coordinator.Origin()
}

func (e *Encounter) Stats() Stats {
	return Stats{
		RunID:       e.ID,
		Ticks:       e.ticks,
		Elapsed:     e.elapsed,
		Director:    e.Director.State(),
		Phase:       e.Coordinator.Phase(),
		Performed:   e.Director.Performed(),
		Enraged:     e.Director.Enraged(),
		Growth:      e.Coordinator.Growth(),
		InUse:       e.Pool.InUse(),
		PoolSize:    e.Pool.Size(),
		Coordinator: e.Coordinator.Stats(),
		Pool:        e.Pool.Stats(),
	}
}

// Close releases every projectile. The encounter ignores ticks afterwards.
func (e *Encounter) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.Pool.Close()
	e.log.Info("encounter closed", slog.Int("ticks", e.ticks))
}

func vec(v prefabs.VecSpec) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Y}
}
