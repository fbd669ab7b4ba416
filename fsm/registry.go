package fsm

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/milk9111/barrage/prefabs"
)

// Factory builds an action from its YAML argument.
type Factory func(arg any) (Action, error)

// Registry maps action names used in FSM prefabs to factories.
type Registry struct {
	factories  map[string]Factory
	loadScript func(name string) ([]byte, error)
}

type RegistryOption func(*Registry)

// WithScriptLoader overrides where `script` actions read their source from.
func WithScriptLoader(fn func(name string) ([]byte, error)) RegistryOption {
	return func(r *Registry) {
		if fn != nil {
			r.loadScript = fn
		}
	}
}

// NewRegistry returns a registry holding the built-in actions.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories:  map[string]Factory{},
		loadScript: prefabs.LoadScript,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.Register("emit", func(arg any) (Action, error) {
		ev := EventID(asString(arg))
		if ev == "" {
			return nil, fmt.Errorf("emit: missing event name")
		}
		return func(ctx *Context) { ctx.Emit(ev) }, nil
	})

	// emit_after: {event: x, seconds: n} fires once per visit when time in state
	// crosses n.
	r.Register("emit_after", func(arg any) (Action, error) {
		m, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("emit_after: expected map, got %T", arg)
		}
		ev := EventID(asString(m["event"]))
		if ev == "" {
			return nil, fmt.Errorf("emit_after: missing event")
		}
		seconds := asFloat(m["seconds"])
		return func(ctx *Context) {
			if ctx.Elapsed >= seconds && ctx.Elapsed-ctx.DT < seconds {
				ctx.Emit(ev)
			}
		}, nil
	})

	r.Register("set_bool", func(arg any) (Action, error) {
		m, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("set_bool: expected map, got %T", arg)
		}
		return func(ctx *Context) {
			for _, k := range sortedKeys(m) {
				ctx.Vars.SetBool(k, asBool(m[k]))
			}
		}, nil
	})

	r.Register("set_float", func(arg any) (Action, error) {
		m, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("set_float: expected map, got %T", arg)
		}
		return func(ctx *Context) {
			for _, k := range sortedKeys(m) {
				ctx.Vars.SetFloat(k, asFloat(m[k]))
			}
		}, nil
	})

	r.Register("add_float", func(arg any) (Action, error) {
		m, ok := arg.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("add_float: expected map, got %T", arg)
		}
		return func(ctx *Context) {
			for _, k := range sortedKeys(m) {
				ctx.Vars.AddFloat(k, asFloat(m[k]))
			}
		}, nil
	})

	r.Register("log", func(arg any) (Action, error) {
		msg := asString(arg)
		return func(ctx *Context) {
			ctx.Machine.Logger().Info(msg, slog.String("state", string(ctx.State)))
		}, nil
	})

	r.Register("script", func(arg any) (Action, error) {
		return newScriptAction(asString(arg), r.loadScript)
	})

	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) Make(name string, arg any) (Action, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	a, err := f(arg)
	if err != nil {
		return nil, fmt.Errorf("action %q: %w", name, err)
	}
	return a, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CompileSpec turns an FSM prefab into a graph plus its initial state. States are
// compiled in name order so the first reported error is stable.
func CompileSpec(spec prefabs.FSMSpec, reg *Registry) (*Graph, StateID, error) {
	if spec.Initial == "" {
		return nil, "", configErr("", "", "missing initial state")
	}
	if reg == nil {
		reg = NewRegistry()
	}

	build := func(state StateID, list []map[string]any) ([]NamedAction, error) {
		out := make([]NamedAction, 0, len(list))
		for _, entry := range list {
			for _, k := range sortedKeys(entry) {
				act, err := reg.Make(k, entry[k])
				if err != nil {
					return nil, configErr(state, "", err.Error())
				}
				out = append(out, NamedAction{Name: k, Run: act})
			}
		}
		return out, nil
	}

	names := make([]string, 0, len(spec.States))
	for name := range spec.States {
		names = append(names, name)
	}
	sort.Strings(names)

	states := make([]State, 0, len(names))
	for _, name := range names {
		raw := spec.States[name]
		id := StateID(name)
		s := State{ID: id}
		var err error
		if s.OnEnter, err = build(id, raw.OnEnter); err != nil {
			return nil, "", err
		}
		if s.OnTick, err = build(id, raw.OnTick); err != nil {
			return nil, "", err
		}
		if s.OnExit, err = build(id, raw.OnExit); err != nil {
			return nil, "", err
		}
		for _, entry := range spec.Transitions[name] {
			for _, ev := range sortedKeys(entry) {
				s.Transitions = append(s.Transitions, Transition{Event: EventID(ev), Target: StateID(entry[ev])})
			}
		}
		states = append(states, s)
	}

	for from := range spec.Transitions {
		if _, ok := spec.States[from]; !ok {
			return nil, "", configErr(StateID(from), "", "transitions declared for unknown state")
		}
	}

	var globals []Transition
	for _, entry := range spec.Global {
		for _, ev := range sortedKeys(entry) {
			globals = append(globals, Transition{Event: EventID(ev), Target: StateID(entry[ev])})
		}
	}

	g, err := Build(states, globals)
	if err != nil {
		return nil, "", err
	}
	initial := StateID(spec.Initial)
	if !g.Has(initial) {
		return nil, "", configErr(initial, "", "unknown initial state")
	}
	return g, initial, nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	case float32:
		return float64(t)
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "yes" || t == "1"
	case int:
		return t != 0
	default:
		return false
	}
}
