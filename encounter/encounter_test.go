package encounter

import (
	"testing"

	"github.com/milk9111/barrage/choreography"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/pool"
	"github.com/milk9111/barrage/prefabs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

type countingHooks struct {
	activated, deactivated int
}

func (h *countingHooks) OnEntityActivated(*pool.Entity)   { h.activated++ }
func (h *countingHooks) OnEntityDeactivated(*pool.Entity) { h.deactivated++ }

func loadSpec(t *testing.T) *prefabs.EncounterSpec {
	t.Helper()
	spec, err := prefabs.LoadEncounterSpec("encounter.yaml")
	require.NoError(t, err)
	return spec
}

func TestEncounterRunsPatterns(t *testing.T) {
	hooks := &countingHooks{}
	var phases []string
	e, err := New(loadSpec(t), Collaborators{
		Target:  motion.Point{X: 320, Y: 420},
		Hooks:   hooks,
		Tracker: choreography.TrackerFunc(func(p string) { phases = append(phases, p) }),
	}, WithSeed(11))
	require.NoError(t, err)
	defer e.Close()

	maxInUse := 0
	for range 1800 {
		e.Tick(dt)
		maxInUse = max(maxInUse, e.Pool.InUse())
	}

	st := e.Stats()
	assert.Equal(t, 1800, st.Ticks)
	assert.InDelta(t, 30, st.Elapsed, 1e-6)
	assert.GreaterOrEqual(t, st.Performed, 3)
	assert.NotEmpty(t, phases)
	assert.Equal(t, len(phases), st.Coordinator.PhasesCompleted)
	assert.LessOrEqual(t, maxInUse, 256)
	assert.Equal(t, e.ID, st.RunID)

	assert.Equal(t, st.Pool.Acquired, hooks.activated)
	assert.Equal(t, st.Pool.Released, hooks.deactivated)
	assert.Equal(t, st.Pool.Acquired-st.Pool.Released, st.InUse)
}

func TestEncounterStun(t *testing.T) {
	e, err := New(loadSpec(t), Collaborators{Target: motion.Point{X: 320, Y: 420}}, WithSeed(5))
	require.NoError(t, err)

	for e.Stats().Director != choreography.DirectorPerforming {
		e.Tick(dt)
		require.Less(t, e.Stats().Ticks, 600)
	}
	for range 10 {
		e.Tick(dt)
	}
	require.Positive(t, e.Pool.InUse())

	assert.True(t, e.RaiseEvent("stun"))
	st := e.Stats()
	assert.Equal(t, choreography.DirectorStunned, st.Director)
	assert.Zero(t, st.InUse)
	assert.Equal(t, choreography.Phase(""), st.Phase)

	assert.True(t, e.RaiseEvent("recover"))
	assert.Equal(t, choreography.DirectorCooldown, e.Stats().Director)

	e.Close()
	assert.False(t, e.RaiseEvent("stun"))
	e.Tick(dt)
	assert.Equal(t, st.Ticks, e.Stats().Ticks)
}

func TestEncounterEnrage(t *testing.T) {
	e, err := New(loadSpec(t), Collaborators{}, WithSeed(1))
	require.NoError(t, err)
	e.Enrage(0.5)
	assert.True(t, e.Stats().Enraged)
	assert.Equal(t, 1, e.Director.QueuedPatches())
}

func TestLoad(t *testing.T) {
	e, err := Load("encounter.yaml", Collaborators{})
	require.NoError(t, err)
	assert.Equal(t, "warden", e.Name)
	assert.Equal(t, 6, e.Arena.Walls())
	assert.Equal(t, 96, e.Pool.Size())
	assert.InDelta(t, 320, e.Origin().X, 1e-9)

	_, err = Load("missing.yaml", Collaborators{})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *prefabs.EncounterSpec)
	}{
		{"empty arena", func(s *prefabs.EncounterSpec) { s.Arena.Width = 0 }},
		{"no patterns", func(s *prefabs.EncounterSpec) { s.Patterns = nil }},
		{"unnamed pattern", func(s *prefabs.EncounterSpec) { s.Patterns[0].Name = "" }},
		{"duplicate pattern", func(s *prefabs.EncounterSpec) { s.Patterns[1].Name = s.Patterns[0].Name }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := loadSpec(t)
			tt.mutate(spec)
			_, err := New(spec, Collaborators{})
			assert.ErrorIs(t, err, ErrInvalidSpec)
		})
	}

	_, err := New(nil, Collaborators{})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}

func TestNewRejectsBadParts(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *prefabs.EncounterSpec)
		wantErr error
	}{
		{"repeated phase", func(s *prefabs.EncounterSpec) {
			s.Patterns[0].Phases = []string{"volley", "volley"}
		}, choreography.ErrInvalidPattern},
		{"bad ring motion", func(s *prefabs.EncounterSpec) {
			s.Burst.Rings[0].Motion = "wobble"
		}, choreography.ErrInvalidConfig},
		{"bad pool", func(s *prefabs.EncounterSpec) {
			s.Pool.MaxSize = 1
		}, pool.ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := loadSpec(t)
			tt.mutate(spec)
			_, err := New(spec, Collaborators{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
