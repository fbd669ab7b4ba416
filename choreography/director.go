package choreography

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/logger"
	"github.com/milk9111/barrage/prefabs"
	"github.com/milk9111/barrage/selector"
)

const (
	DirectorCooldown   fsm.StateID = "cooldown"
	DirectorChoosing   fsm.StateID = "choosing"
	DirectorPerforming fsm.StateID = "performing"
	DirectorStunned    fsm.StateID = "stunned"

	evReady     fsm.EventID = "ready"
	evPerformed fsm.EventID = "performed"
	evFailed    fsm.EventID = "failed"
)

const defaultEnrageScale = 0.5

type DirectorOption func(*Director)

func WithRegistry(r *fsm.Registry) DirectorOption {
	return func(d *Director) {
		if r != nil {
			d.reg = r
		}
	}
}

func WithDirectorLogger(l *slog.Logger) DirectorOption {
	return func(d *Director) {
		if l != nil {
			d.log = l
		}
	}
}

type queuedPatch struct {
	state fsm.StateID
	label string
	fn    fsm.PatchFunc
}

// Director decides what the boss does next: wait, pick a pattern, run it on the
// coordinator, and fall back to cooldown. Its graph comes from a prefab.
type Director struct {
	m        *fsm.Machine
	reg      *fsm.Registry
	coord    *Coordinator
	sel      *selector.Selector
	patterns map[fsm.EventID]Pattern
	log      *slog.Logger

	cooldown  float64
	chosen    Pattern
	performed int
	enraged   bool
	queued    []queuedPatch
}

// NewDirector compiles spec and routes every selector candidate from choosing to
// performing. Each candidate event must name one of patterns.
func NewDirector(spec prefabs.FSMSpec, coord *Coordinator, patterns []Pattern, sel *selector.Selector, opts ...DirectorOption) (*Director, error) {
	if coord == nil || sel == nil {
		return nil, errors.New("choreography: director needs a coordinator and a selector")
	}
	d := &Director{
		coord:    coord,
		sel:      sel,
		patterns: make(map[fsm.EventID]Pattern, len(patterns)),
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.reg == nil {
		d.reg = fsm.NewRegistry()
	}
	d.log = d.log.With(logger.Component("director"))

	for _, p := range patterns {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		d.patterns[fsm.EventID(p.Name)] = p
	}

	d.reg.Register("cooldown", func(arg any) (fsm.Action, error) {
		seconds, ok := arg.(float64)
		if !ok {
			if n, isInt := arg.(int); isInt {
				seconds = float64(n)
			} else {
				return nil, fmt.Errorf("cooldown: expected seconds, got %T", arg)
			}
		}
		d.cooldown = seconds
		return cooldownAction(seconds), nil
	})
	d.reg.Register("choose_pattern", func(any) (fsm.Action, error) { return d.choosePattern, nil })
	d.reg.Register("begin_pattern", func(any) (fsm.Action, error) { return d.beginPattern, nil })
	d.reg.Register("await_coordinator", func(any) (fsm.Action, error) { return d.awaitCoordinator, nil })
	d.reg.Register("abort_pattern", func(any) (fsm.Action, error) { return d.abortPattern, nil })

	g, initial, err := fsm.CompileSpec(spec, d.reg)
	if err != nil {
		return nil, err
	}
	for _, c := range sel.Candidates() {
		if _, ok := d.patterns[c.Event]; !ok {
			return nil, fmt.Errorf("%w: selector candidate %q has no pattern", ErrInvalidPattern, c.Event)
		}
		g, err = g.Patch(DirectorChoosing, fsm.AddTransition(fsm.Transition{Event: c.Event, Target: DirectorPerforming}))
		if err != nil {
			return nil, err
		}
	}

	d.m = fsm.NewMachine(g,
		fsm.WithHost(d),
		fsm.WithLogger(d.log),
		fsm.WithName("director"),
		fsm.WithTransitionHook(d.onTransition),
	)
	if err := d.m.Start(initial); err != nil {
		return nil, err
	}
	return d, nil
}

func cooldownAction(seconds float64) fsm.Action {
	return func(ctx *fsm.Context) {
		if ctx.Elapsed >= seconds {
			ctx.Emit(evReady)
		}
	}
}

func (d *Director) choosePattern(ctx *fsm.Context) {
	ev := d.sel.Next()
	p, ok := d.patterns[ev]
	if !ok {
		d.log.Error("selector returned unknown pattern", logger.Event(ev))
		ctx.Emit(evFailed)
		return
	}
	d.chosen = p
	ctx.Vars.SetObject("pattern", p.Name)
	d.log.Info("pattern chosen", logger.Pattern(p.Name))
	ctx.Emit(ev)
}

func (d *Director) beginPattern(ctx *fsm.Context) {
	if err := d.coord.Begin(d.chosen); err != nil {
		d.log.Warn("pattern not started", logger.Pattern(d.chosen.Name), logger.Error(err))
		ctx.Emit(evFailed)
	}
}

func (d *Director) awaitCoordinator(ctx *fsm.Context) {
	if d.coord.Active() {
		return
	}
	d.performed++
	ctx.Vars.AddFloat("performed", 1)
	ctx.Emit(evPerformed)
}

func (d *Director) abortPattern(*fsm.Context) {
	d.coord.Abort()
}

func (d *Director) onTransition(_, _ fsm.StateID, _ fsm.EventID) {
	if !d.enraged {
		if on, _ := d.m.Vars().Bool("enraged"); on {
			scale, ok := d.m.Vars().Float("enrage_scale")
			if !ok {
				scale = defaultEnrageScale
			}
			d.Enrage(scale)
		}
	}
	d.applyQueued()
}

// Enrage scales the cooldown wait by scale. The patch waits until the cooldown
// state is not active.
func (d *Director) Enrage(scale float64) {
	if scale <= 0 {
		scale = defaultEnrageScale
	}
	d.enraged = true
	d.m.Vars().SetBool("enraged", true)
	seconds := d.cooldown * scale
	d.queue(DirectorCooldown, "enrage", fsm.ReplaceAction(fsm.HookTick, "cooldown", fsm.NamedAction{
		Name: "cooldown",
		Run:  cooldownAction(seconds),
	}))
	d.log.Info("director enraged", slog.Float64("cooldown", seconds))
}

func (d *Director) queue(state fsm.StateID, label string, fn fsm.PatchFunc) {
	d.queued = append(d.queued, queuedPatch{state: state, label: label, fn: fn})
	d.applyQueued()
}

func (d *Director) applyQueued() {
	if d.m == nil {
		return
	}
	kept := d.queued[:0]
	for _, q := range d.queued {
		err := d.m.Patch(q.state, q.fn)
		switch {
		case errors.Is(err, fsm.ErrStatePatchActive):
			kept = append(kept, q)
		case err != nil:
			d.log.Error("patch failed", slog.String("patch", q.label), logger.State(q.state), logger.Error(err))
		default:
			d.log.Debug("patch applied", slog.String("patch", q.label), logger.State(q.state))
		}
	}
	clear(d.queued[len(kept):])
	d.queued = kept
}

func (d *Director) Tick(dt float64) {
	d.m.Tick(dt)
	d.applyQueued()
}

// RaiseEvent injects an outside event such as "stun" or "recover".
func (d *Director) RaiseEvent(name string) bool {
	return d.m.RaiseEvent(name)
}

func (d *Director) State() fsm.StateID    { return d.m.Current() }
func (d *Director) Enraged() bool         { return d.enraged }
func (d *Director) Performed() int        { return d.performed }
func (d *Director) Chosen() Pattern       { return d.chosen }
func (d *Director) QueuedPatches() int    { return len(d.queued) }
func (d *Director) Machine() *fsm.Machine { return d.m }

// Cooldown is the base cooldown read from the prefab.
func (d *Director) Cooldown() float64 { return d.cooldown }
