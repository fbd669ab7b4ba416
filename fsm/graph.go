package fsm

type (
	StateID string
	EventID string
)

// Action runs inside entry, tick or exit of a state.
type Action func(ctx *Context)

type NamedAction struct {
	Name string
	Run  Action
}

type Transition struct {
	Event  EventID
	Target StateID
}

type State struct {
	ID          StateID
	OnEnter     []NamedAction
	OnTick      []NamedAction
	OnExit      []NamedAction
	Transitions []Transition
}

func (s State) clone() State {
	s.OnEnter = append([]NamedAction(nil), s.OnEnter...)
	s.OnTick = append([]NamedAction(nil), s.OnTick...)
	s.OnExit = append([]NamedAction(nil), s.OnExit...)
	s.Transitions = append([]Transition(nil), s.Transitions...)
	return s
}

// Graph is an immutable set of states plus global transitions. Patching produces a
// new Graph with a higher Version and leaves the receiver untouched.
type Graph struct {
	states  []State
	index   map[StateID]int
	globals []Transition
	version int
}

// Build validates and freezes a graph. States and globals keep registration order,
// which is also the order transitions are matched in.
func Build(states []State, globals []Transition) (*Graph, error) {
	g := &Graph{
		states:  make([]State, 0, len(states)),
		index:   make(map[StateID]int, len(states)),
		globals: append([]Transition(nil), globals...),
	}
	for _, s := range states {
		if s.ID == "" {
			return nil, configErr("", "", "empty state id")
		}
		if _, dup := g.index[s.ID]; dup {
			return nil, configErr(s.ID, "", "duplicate state")
		}
		g.index[s.ID] = len(g.states)
		g.states = append(g.states, s.clone())
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) validate() error {
	for _, t := range g.globals {
		if t.Event == "" {
			return configErr("", "", "global transition with empty event")
		}
		if !g.Has(t.Target) {
			return configErr("", t.Target, "global transition references unknown target")
		}
	}
	for _, s := range g.states {
		for _, t := range s.Transitions {
			if t.Event == "" {
				return configErr(s.ID, "", "transition with empty event")
			}
			if !g.Has(t.Target) {
				return configErr(s.ID, t.Target, "transition references unknown target")
			}
		}
	}
	return nil
}

func (g *Graph) Has(id StateID) bool {
	_, ok := g.index[id]
	return ok
}

// State returns a copy of the state record.
func (g *Graph) State(id StateID) (State, bool) {
	i, ok := g.index[id]
	if !ok {
		return State{}, false
	}
	return g.states[i].clone(), true
}

func (g *Graph) States() []StateID {
	out := make([]StateID, len(g.states))
	for i, s := range g.states {
		out[i] = s.ID
	}
	return out
}

func (g *Graph) Globals() []Transition {
	return append([]Transition(nil), g.globals...)
}

func (g *Graph) Version() int { return g.version }

func (g *Graph) state(id StateID) *State {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return &g.states[i]
}

// resolve finds the target of ev from state id. Globals win over locals.
func (g *Graph) resolve(id StateID, ev EventID) (StateID, bool) {
	for _, t := range g.globals {
		if t.Event == ev {
			return t.Target, true
		}
	}
	if s := g.state(id); s != nil {
		for _, t := range s.Transitions {
			if t.Event == ev {
				return t.Target, true
			}
		}
	}
	return "", false
}

// Builder assembles a graph fluently:
//
//	g, err := fsm.NewBuilder().
//		State("idle").On("begin", "run").
//		State("run").OnTick("step", step).On("stop", "idle").
//		Global("abort", "idle").
//		Build()
type Builder struct {
	states  []State
	globals []Transition
	cur     int
	err     error
}

func NewBuilder() *Builder {
	return &Builder{cur: -1}
}

// State starts (or reopens) a state; following calls attach to it.
func (b *Builder) State(id StateID) *Builder {
	for i := range b.states {
		if b.states[i].ID == id {
			b.cur = i
			return b
		}
	}
	b.states = append(b.states, State{ID: id})
	b.cur = len(b.states) - 1
	return b
}

func (b *Builder) OnEnter(name string, fn Action) *Builder {
	if s := b.current(); s != nil {
		s.OnEnter = append(s.OnEnter, NamedAction{Name: name, Run: fn})
	}
	return b
}

func (b *Builder) OnTick(name string, fn Action) *Builder {
	if s := b.current(); s != nil {
		s.OnTick = append(s.OnTick, NamedAction{Name: name, Run: fn})
	}
	return b
}

func (b *Builder) OnExit(name string, fn Action) *Builder {
	if s := b.current(); s != nil {
		s.OnExit = append(s.OnExit, NamedAction{Name: name, Run: fn})
	}
	return b
}

func (b *Builder) On(ev EventID, target StateID) *Builder {
	if s := b.current(); s != nil {
		s.Transitions = append(s.Transitions, Transition{Event: ev, Target: target})
	}
	return b
}

func (b *Builder) Global(ev EventID, target StateID) *Builder {
	b.globals = append(b.globals, Transition{Event: ev, Target: target})
	return b
}

func (b *Builder) Build() (*Graph, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Build(b.states, b.globals)
}

func (b *Builder) current() *State {
	if b.cur < 0 || b.cur >= len(b.states) {
		if b.err == nil {
			b.err = configErr("", "", "builder: action or transition before any state")
		}
		return nil
	}
	return &b.states[b.cur]
}
