package fsm

import (
	"errors"
	"testing"

	"github.com/milk9111/barrage/prefabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileYAMLSpec() prefabs.FSMSpec {
	return prefabs.FSMSpec{
		Initial: "wait",
		States: map[string]prefabs.FSMStateSpec{
			"wait": {
				OnEnter: []map[string]any{{"set_float": map[string]any{"entered": 1}}},
				OnTick:  []map[string]any{{"emit_after": map[string]any{"event": "ready", "seconds": 0.3}}},
			},
			"fire": {
				OnEnter: []map[string]any{{"add_float": map[string]any{"shots": 1}}, {"set_bool": map[string]any{"hot": true}}},
				OnTick:  []map[string]any{{"emit": "cool"}},
			},
			"stunned": {},
		},
		Transitions: map[string][]map[string]string{
			"wait": {{"ready": "fire"}},
			"fire": {{"cool": "wait"}},
		},
		Global: []map[string]string{{"stun": "stunned"}},
	}
}

func TestCompileSpecRuns(t *testing.T) {
	g, initial, err := CompileSpec(compileYAMLSpec(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateID("wait"), initial)
	assert.Equal(t, []StateID{"fire", "stunned", "wait"}, g.States())

	m := NewMachine(g)
	require.NoError(t, m.Start(initial))
	entered, _ := m.Vars().Float("entered")
	assert.Equal(t, 1.0, entered)

	for range 3 {
		m.Tick(0.1)
	}
	assert.Equal(t, StateID("fire"), m.Current())
	hot, _ := m.Vars().Bool("hot")
	assert.True(t, hot)

	m.Tick(0.1)
	assert.Equal(t, StateID("wait"), m.Current())

	m.RaiseEvent("stun")
	assert.Equal(t, StateID("stunned"), m.Current())
}

func TestEmitAfterFiresOncePerVisit(t *testing.T) {
	reg := NewRegistry()
	act, err := reg.Make("emit_after", map[string]any{"event": "ping", "seconds": 0.2})
	require.NoError(t, err)

	count := 0
	g, err := NewBuilder().
		State("a").OnTick("emit", act).On("ping", "a2").
		State("a2").OnEnter("count", func(*Context) { count++ }).
		Build()
	require.NoError(t, err)

	m := NewMachine(g)
	require.NoError(t, m.Start("a"))
	for range 10 {
		m.Tick(0.05)
	}
	assert.Equal(t, 1, count)
}

func TestCompileSpecErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*prefabs.FSMSpec)
	}{
		{"missing initial", func(s *prefabs.FSMSpec) { s.Initial = "" }},
		{"unknown initial", func(s *prefabs.FSMSpec) { s.Initial = "ghost" }},
		{"unknown action", func(s *prefabs.FSMSpec) {
			s.States["stunned"] = prefabs.FSMStateSpec{OnEnter: []map[string]any{{"explode": true}}}
		}},
		{"bad action arg", func(s *prefabs.FSMSpec) {
			s.States["stunned"] = prefabs.FSMStateSpec{OnEnter: []map[string]any{{"set_bool": "yes"}}}
		}},
		{"unknown target", func(s *prefabs.FSMSpec) { s.Transitions["wait"] = []map[string]string{{"ready": "ghost"}} }},
		{"transitions of unknown state", func(s *prefabs.FSMSpec) { s.Transitions["ghost"] = []map[string]string{{"x": "wait"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := compileYAMLSpec()
			tt.mutate(&spec)
			_, _, err := CompileSpec(spec, nil)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestRegistryCustomFactory(t *testing.T) {
	reg := NewRegistry()
	reg.Register("boom", func(arg any) (Action, error) {
		if arg == nil {
			return nil, errors.New("needs arg")
		}
		return func(*Context) {}, nil
	})
	assert.Contains(t, reg.Names(), "boom")
	_, err := reg.Make("boom", nil)
	assert.ErrorContains(t, err, "needs arg")
}

func TestScriptAction(t *testing.T) {
	src := []byte(`
n := engine.add_float("runs", 1)
engine.set_bool("in_" + state, true)
if n >= 2 {
	engine.emit("done")
}
`)
	reg := NewRegistry(WithScriptLoader(func(name string) ([]byte, error) {
		assert.Equal(t, "counter.tengo", name)
		return src, nil
	}))
	act, err := reg.Make("script", "counter.tengo")
	require.NoError(t, err)

	g, err := NewBuilder().
		State("loop").OnTick("script", act).On("done", "end").
		State("end").
		Build()
	require.NoError(t, err)

	m := NewMachine(g)
	require.NoError(t, m.Start("loop"))
	m.Tick(0.1)
	assert.Equal(t, StateID("loop"), m.Current())
	m.Tick(0.1)
	assert.Equal(t, StateID("end"), m.Current())

	runs, _ := m.Vars().Float("runs")
	assert.Equal(t, 2.0, runs)
	in, _ := m.Vars().Bool("in_loop")
	assert.True(t, in)
}

func TestScriptActionCompileError(t *testing.T) {
	reg := NewRegistry(WithScriptLoader(func(string) ([]byte, error) {
		return []byte("this is not tengo ("), nil
	}))
	_, err := reg.Make("script", "broken.tengo")
	assert.Error(t, err)
}

func TestEmbeddedStunnedScript(t *testing.T) {
	act, err := NewRegistry().Make("script", "stunned.tengo")
	require.NoError(t, err)

	g, err := NewBuilder().State("stunned").OnEnter("script", act).On("again", "other").State("other").On("again", "stunned").Build()
	require.NoError(t, err)

	m := NewMachine(g)
	require.NoError(t, m.Start("stunned"))
	enraged, _ := m.Vars().Bool("enraged")
	assert.False(t, enraged)

	m.Dispatch("again")
	m.Dispatch("again")
	enraged, _ = m.Vars().Bool("enraged")
	assert.True(t, enraged)
	scale, ok := m.Vars().Float("enrage_scale")
	assert.True(t, ok)
	assert.Equal(t, 0.5, scale)
}
