package choreography

import (
	"testing"

	"github.com/milk9111/barrage/fsm"
	"github.com/milk9111/barrage/pool"
	"github.com/milk9111/barrage/prefabs"
	"github.com/milk9111/barrage/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type directorFixture struct {
	d *Director
	c *Coordinator
	p *pool.Pool
}

func (f *directorFixture) step(n int) {
	for range n {
		f.d.Tick(dt)
		f.c.Tick(dt)
		f.p.Tick(dt)
	}
}

// stepUntil steps until cond holds and returns the number of ticks taken.
func (f *directorFixture) stepUntil(t *testing.T, limit int, cond func() bool) int {
	t.Helper()
	for i := 1; i <= limit; i++ {
		f.step(1)
		if cond() {
			return i
		}
	}
	require.FailNow(t, "condition not reached", "director in %s after %d ticks", f.d.State(), limit)
	return 0
}

func testPatterns() []Pattern {
	return []Pattern{
		{Name: "quick", Phases: []Phase{PhaseVolley}},
		{Name: "rings", Phases: []Phase{PhaseBurst}},
	}
}

func newDirectorFixture(t *testing.T) *directorFixture {
	t.Helper()
	spec, err := prefabs.LoadFSMSpec("director.yaml")
	require.NoError(t, err)
	c, p, _ := newFixture(t, testConfig(), defaultPool())
	sel, err := selector.New([]selector.Candidate{
		{Event: "quick", Weight: 1, MaxFires: 1, MissedMax: 2},
		{Event: "rings", Weight: 1, MaxFires: 1, MissedMax: 2},
	}, selector.WithSeed(3))
	require.NoError(t, err)
	d, err := NewDirector(spec, c, testPatterns(), sel)
	require.NoError(t, err)
	return &directorFixture{d: d, c: c, p: p}
}

func TestDirectorCycle(t *testing.T) {
	f := newDirectorFixture(t)
	assert.Equal(t, DirectorCooldown, f.d.State())
	assert.InDelta(t, 1.2, f.d.Cooldown(), 1e-9)

	n := f.stepUntil(t, 40, func() bool { return f.d.State() != DirectorCooldown })
	assert.GreaterOrEqual(t, n, 24)
	assert.LessOrEqual(t, n, 25)
	assert.Equal(t, DirectorPerforming, f.d.State())
	assert.True(t, f.c.Active())

	name, ok := f.d.Machine().Vars().Object("pattern")
	require.True(t, ok)
	assert.Equal(t, f.d.Chosen().Name, name)

	f.stepUntil(t, 200, func() bool { return f.d.State() == DirectorCooldown })
	assert.Equal(t, 1, f.d.Performed())
	assert.False(t, f.c.Active())
}

func TestDirectorRotatesPatterns(t *testing.T) {
	f := newDirectorFixture(t)
	seen := map[string]int{}
	prev := 0
	f.stepUntil(t, 1000, func() bool {
		if f.d.Performed() != prev {
			prev = f.d.Performed()
			seen[f.d.Chosen().Name]++
		}
		return f.d.Performed() == 4
	})
	assert.Equal(t, map[string]int{"quick": 2, "rings": 2}, seen)
}

func TestDirectorStunAbortsPattern(t *testing.T) {
	f := newDirectorFixture(t)
	f.stepUntil(t, 40, func() bool { return f.d.State() == DirectorPerforming })
	f.step(2)
	require.True(t, f.c.Active())
	require.Positive(t, f.p.InUse())

	require.True(t, f.d.RaiseEvent("stun"))
	assert.Equal(t, DirectorStunned, f.d.State())
	assert.False(t, f.c.Active())
	assert.Zero(t, f.p.InUse())
	assert.False(t, f.d.Enraged())

	stuns, _ := f.d.Machine().Vars().Float("stuns")
	assert.Equal(t, 1.0, stuns)

	// stun while stunned is a no-op
	assert.False(t, f.d.RaiseEvent("stun"))

	n := f.stepUntil(t, 60, func() bool { return f.d.State() == DirectorCooldown })
	assert.InDelta(t, 40, n, 1)
	assert.Zero(t, f.d.Performed())
}

func TestDirectorEnragesAfterSecondStun(t *testing.T) {
	f := newDirectorFixture(t)
	version := f.d.Machine().Graph().Version()

	f.d.RaiseEvent("stun")
	f.d.RaiseEvent("recover")
	assert.False(t, f.d.Enraged())
	f.d.RaiseEvent("stun")

	assert.True(t, f.d.Enraged())
	assert.Zero(t, f.d.QueuedPatches())
	assert.Greater(t, f.d.Machine().Graph().Version(), version)

	f.d.RaiseEvent("recover")
	require.Equal(t, DirectorCooldown, f.d.State())
	n := f.stepUntil(t, 40, func() bool { return f.d.State() != DirectorCooldown })
	assert.GreaterOrEqual(t, n, 12)
	assert.LessOrEqual(t, n, 13)
}

func TestDirectorEnrageWaitsForCooldownToEnd(t *testing.T) {
	f := newDirectorFixture(t)
	f.d.Enrage(0.25)
	assert.Equal(t, 1, f.d.QueuedPatches())

	f.stepUntil(t, 40, func() bool { return f.d.State() != DirectorCooldown })
	assert.Zero(t, f.d.QueuedPatches())

	st, ok := f.d.Machine().Graph().State(DirectorCooldown)
	require.True(t, ok)
	require.Len(t, st.OnTick, 1)
	assert.Equal(t, "cooldown", st.OnTick[0].Name)

	f.stepUntil(t, 200, func() bool { return f.d.State() == DirectorCooldown })
	n := f.stepUntil(t, 40, func() bool { return f.d.State() != DirectorCooldown })
	assert.GreaterOrEqual(t, n, 6)
	assert.LessOrEqual(t, n, 7)
}

func TestNewDirectorRejectsUnknownCandidate(t *testing.T) {
	spec, err := prefabs.LoadFSMSpec("director.yaml")
	require.NoError(t, err)
	c, _, _ := newFixture(t, testConfig(), defaultPool())
	sel, err := selector.New([]selector.Candidate{{Event: "missing", Weight: 1, MaxFires: 1, MissedMax: 1}})
	require.NoError(t, err)

	_, err = NewDirector(spec, c, testPatterns(), sel)
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestNewDirectorRejectsBrokenGraph(t *testing.T) {
	spec, err := prefabs.LoadFSMSpec("director.yaml")
	require.NoError(t, err)
	delete(spec.States, string(DirectorPerforming))
	c, _, _ := newFixture(t, testConfig(), defaultPool())
	sel, err := selector.New([]selector.Candidate{{Event: "quick", Weight: 1, MaxFires: 1, MissedMax: 1}})
	require.NoError(t, err)

	_, err = NewDirector(spec, c, testPatterns(), sel)
	assert.ErrorIs(t, err, fsm.ErrConfiguration)
}
