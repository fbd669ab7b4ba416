package fsm

import "fmt"

type Hook uint8

const (
	HookEnter Hook = iota
	HookTick
	HookExit
)

func (h Hook) String() string {
	switch h {
	case HookEnter:
		return "enter"
	case HookTick:
		return "tick"
	case HookExit:
		return "exit"
	}
	return fmt.Sprintf("hook(%d)", uint8(h))
}

// PatchFunc transforms a copy of one state record.
type PatchFunc func(State) (State, error)

// Patch returns a new graph with fn applied to state id. The receiver is not
// modified, so machines still holding it keep running the old version.
func (g *Graph) Patch(id StateID, fn PatchFunc) (*Graph, error) {
	i, ok := g.index[id]
	if !ok {
		return nil, configErr(id, "", "patch of unknown state")
	}
	s, err := fn(g.states[i].clone())
	if err != nil {
		return nil, err
	}
	if s.ID != id {
		return nil, configErr(id, "", "patch cannot rename a state")
	}

	ng := &Graph{
		states:  append([]State(nil), g.states...),
		index:   g.index,
		globals: g.globals,
		version: g.version + 1,
	}
	ng.states[i] = s
	if err := ng.validate(); err != nil {
		return nil, err
	}
	return ng, nil
}

func actionsFor(s *State, h Hook) *[]NamedAction {
	switch h {
	case HookEnter:
		return &s.OnEnter
	case HookExit:
		return &s.OnExit
	default:
		return &s.OnTick
	}
}

func findAction(list []NamedAction, name string) int {
	for i, a := range list {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// InsertAction inserts a at index; an index outside the list appends.
func InsertAction(h Hook, index int, a NamedAction) PatchFunc {
	return func(s State) (State, error) {
		list := actionsFor(&s, h)
		if index < 0 || index >= len(*list) {
			*list = append(*list, a)
			return s, nil
		}
		*list = append((*list)[:index], append([]NamedAction{a}, (*list)[index:]...)...)
		return s, nil
	}
}

// RemoveAction removes the first action called name.
func RemoveAction(h Hook, name string) PatchFunc {
	return func(s State) (State, error) {
		list := actionsFor(&s, h)
		i := findAction(*list, name)
		if i < 0 {
			return s, configErr(s.ID, "", fmt.Sprintf("no %s action %q", h, name))
		}
		*list = append((*list)[:i], (*list)[i+1:]...)
		return s, nil
	}
}

func ReplaceAction(h Hook, name string, a NamedAction) PatchFunc {
	return func(s State) (State, error) {
		list := actionsFor(&s, h)
		i := findAction(*list, name)
		if i < 0 {
			return s, configErr(s.ID, "", fmt.Sprintf("no %s action %q", h, name))
		}
		(*list)[i] = a
		return s, nil
	}
}

func AddTransition(t Transition) PatchFunc {
	return func(s State) (State, error) {
		s.Transitions = append(s.Transitions, t)
		return s, nil
	}
}

func RemoveTransition(ev EventID) PatchFunc {
	return func(s State) (State, error) {
		for i, t := range s.Transitions {
			if t.Event == ev {
				s.Transitions = append(s.Transitions[:i], s.Transitions[i+1:]...)
				return s, nil
			}
		}
		return s, configErr(s.ID, "", fmt.Sprintf("no transition on %q", ev))
	}
}

// RetargetTransition points the first transition on ev at target.
func RetargetTransition(ev EventID, target StateID) PatchFunc {
	return func(s State) (State, error) {
		for i, t := range s.Transitions {
			if t.Event == ev {
				s.Transitions[i].Target = target
				return s, nil
			}
		}
		return s, configErr(s.ID, "", fmt.Sprintf("no transition on %q", ev))
	}
}

// Chain applies fns in order, stopping at the first error.
func Chain(fns ...PatchFunc) PatchFunc {
	return func(s State) (State, error) {
		var err error
		for _, fn := range fns {
			if s, err = fn(s); err != nil {
				return s, err
			}
		}
		return s, nil
	}
}
