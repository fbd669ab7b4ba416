package fsm

import (
	"fmt"
	"log/slog"

	"github.com/milk9111/barrage/logger"
)

// maxDrain bounds how many queued events one Dispatch or Tick will apply.
const maxDrain = 64

// Context is handed to every action.
type Context struct {
	Machine *Machine
	Vars    *Variables
	State   StateID
	DT      float64
	// Elapsed is the time spent in State, including the current tick.
	Elapsed float64
	Host    any
}

// Emit queues ev on the running machine. It is applied once the actions that are
// currently running have all finished.
func (c *Context) Emit(ev EventID) {
	if c == nil || c.Machine == nil || ev == "" {
		return
	}
	c.Machine.Dispatch(ev)
}

type Option func(*Machine)

func WithVariables(v *Variables) Option {
	return func(m *Machine) {
		if v != nil {
			m.vars = v
		}
	}
}

// WithHost attaches an owner payload exposed to actions as Context.Host.
func WithHost(host any) Option {
	return func(m *Machine) { m.host = host }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

func WithName(name string) Option {
	return func(m *Machine) { m.name = name }
}

// WithTransitionHook is called after every completed transition.
func WithTransitionHook(fn func(from, to StateID, ev EventID)) Option {
	return func(m *Machine) { m.onTransition = fn }
}

type Machine struct {
	name    string
	graph   *Graph
	vars    *Variables
	host    any
	log     *slog.Logger
	current StateID
	elapsed float64
	started bool
	busy    bool
	pending []EventID

	onTransition func(from, to StateID, ev EventID)
}

func NewMachine(g *Graph, opts ...Option) *Machine {
	m := &Machine{
		graph: g,
		vars:  NewVariables(),
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("fsm"))
	if m.name != "" {
		m.log = m.log.With(slog.String("machine", m.name))
	}
	return m
}

// Start enters initial and runs its entry actions. It must be called exactly once.
func (m *Machine) Start(initial StateID) error {
	if m.started {
		return ErrAlreadyStarted
	}
	if m.graph == nil || !m.graph.Has(initial) {
		return configErr(initial, "", "unknown initial state")
	}
	m.started = true
	m.current = initial
	m.elapsed = 0
	m.run(m.graph.state(initial).OnEnter, 0)
	m.drain()
	return nil
}

// Dispatch resolves ev against the global transitions, then the active state's.
// While actions are running the event is queued instead and Dispatch returns false.
func (m *Machine) Dispatch(ev EventID) bool {
	if !m.started {
		m.log.Debug("dispatch before start", logger.Event(ev))
		return false
	}
	if m.busy {
		m.pending = append(m.pending, ev)
		return false
	}
	ok := m.apply(ev)
	m.drain()
	return ok
}

// RaiseEvent injects an event from outside the graph, e.g. a health threshold.
func (m *Machine) RaiseEvent(name string) bool {
	return m.Dispatch(EventID(name))
}

// Tick runs the active state's tick actions and then applies whatever they emitted.
func (m *Machine) Tick(dt float64) {
	if !m.started || m.busy {
		return
	}
	m.elapsed += dt
	m.run(m.graph.state(m.current).OnTick, dt)
	m.drain()
}

// Patch swaps in a patched copy of the graph. The active state cannot be patched.
func (m *Machine) Patch(id StateID, fn PatchFunc) error {
	if m.started && id == m.current {
		return fmt.Errorf("%w: %q", ErrStatePatchActive, id)
	}
	g, err := m.graph.Patch(id, fn)
	if err != nil {
		return err
	}
	m.graph = g
	m.log.Debug("graph patched", logger.State(id), slog.Int("version", g.Version()))
	return nil
}

func (m *Machine) Current() StateID     { return m.current }
func (m *Machine) Is(id StateID) bool   { return m.started && m.current == id }
func (m *Machine) Started() bool        { return m.started }
func (m *Machine) Graph() *Graph        { return m.graph }
func (m *Machine) Vars() *Variables     { return m.vars }
func (m *Machine) Host() any            { return m.host }
func (m *Machine) TimeInState() float64 { return m.elapsed }
func (m *Machine) Pending() int         { return len(m.pending) }
func (m *Machine) Logger() *slog.Logger { return m.log }

func (m *Machine) apply(ev EventID) bool {
	target, ok := m.graph.resolve(m.current, ev)
	if !ok {
		m.log.Debug("event ignored", logger.State(m.current), logger.Event(ev))
		return false
	}
	if target == m.current {
		return false
	}

	from := m.current
	m.run(m.graph.state(from).OnExit, 0)
	m.current = target
	m.elapsed = 0
	m.run(m.graph.state(target).OnEnter, 0)

	m.log.Debug("transition", slog.String("from", string(from)), slog.String("to", string(target)), logger.Event(ev))
	if m.onTransition != nil {
		m.onTransition(from, target, ev)
	}
	return true
}

func (m *Machine) run(actions []NamedAction, dt float64) {
	if len(actions) == 0 {
		return
	}
	prev := m.busy
	m.busy = true
	defer func() { m.busy = prev }()

	ctx := &Context{
		Machine: m,
		Vars:    m.vars,
		State:   m.current,
		DT:      dt,
		Elapsed: m.elapsed,
		Host:    m.host,
	}
	for _, a := range actions {
		if a.Run != nil {
			a.Run(ctx)
		}
	}
}

func (m *Machine) drain() {
	for n := 0; len(m.pending) > 0; n++ {
		if n >= maxDrain {
			m.log.Warn("event queue overflow, dropping events", slog.Int("dropped", len(m.pending)), logger.State(m.current))
			m.pending = m.pending[:0]
			return
		}
		ev := m.pending[0]
		m.pending = m.pending[1:]
		m.apply(ev)
	}
}
