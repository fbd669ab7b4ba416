package pool

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/motion"
	"github.com/milk9111/barrage/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 0.05

type hookLog struct {
	activated, deactivated []string
}

func (h *hookLog) OnEntityActivated(e *Entity) { h.activated = append(h.activated, e.ID.String()) }
func (h *hookLog) OnEntityDeactivated(e *Entity) {
	h.deactivated = append(h.deactivated, e.ID.String())
}

type stubCollider struct {
	kind physics.Kind
}

func (s *stubCollider) Probe(_, _ cp.Vector, _ float64) physics.Contact {
	return physics.Contact{Kind: s.kind}
}

type boxCollider struct {
	stubCollider
	bounds cp.BB
}

func (b *boxCollider) Contains(p cp.Vector) bool { return b.bounds.ContainsVect(p) }

func newPool(t *testing.T, cfg Config, opts ...Option) *Pool {
	t.Helper()
	p, err := New(cfg, opts...)
	require.NoError(t, err)
	return p
}

func tickN(p *Pool, n int) {
	for range n {
		p.Tick(dt)
	}
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative size", Config{Size: -1}},
		{"max below size", Config{Size: 4, MaxSize: 2}},
		{"negative grace", Config{Size: 1, GraceDelay: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestAcquireReleaseRestoresPool(t *testing.T) {
	p := newPool(t, Config{Size: 3, GraceDelay: 0.1})
	require.Equal(t, 3, p.Available())

	target := motion.Point{X: 9}
	h, err := p.Acquire(cp.Vector{X: 1, Y: 2}, Params{MaxSpeed: 50, Target: target, CanBeAbsorbed: true})
	require.NoError(t, err)
	require.True(t, h.Valid())
	assert.Equal(t, 2, p.Available())
	assert.Equal(t, 1, p.InUse())

	e, ok := p.Get(h)
	require.True(t, ok)
	assert.Equal(t, cp.Vector{X: 1, Y: 2}, e.Position())
	assert.Equal(t, cp.Vector{}, e.Velocity())
	assert.Equal(t, 1.0, e.Scale)
	assert.Equal(t, StatePreparing, e.Lifecycle())
	assert.False(t, e.Collidable())
	assert.True(t, e.Protected())
	id := e.ID

	require.True(t, p.Drive(h, &motion.Ballistic{Velocity: cp.Vector{X: 10}}))
	assert.True(t, p.Release(h))

	assert.Equal(t, 3, p.Available())
	assert.Zero(t, p.InUse())
	assert.Equal(t, StatePooled, e.Lifecycle())
	assert.Equal(t, cp.Vector{}, e.Velocity())
	assert.Nil(t, e.Target)
	assert.Nil(t, e.Behavior())
	assert.False(t, e.Collidable())
	assert.False(t, e.CanBeAbsorbed)
	assert.Equal(t, id, e.ID, "slot identity survives recycling")
}

func TestReleaseIsIdempotent(t *testing.T) {
	p := newPool(t, Config{Size: 1})
	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)

	assert.True(t, p.Release(h))
	assert.False(t, p.Release(h))
	assert.False(t, p.Release(NoEntity))
	assert.Equal(t, 1, p.Available())

	h2, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	assert.NotEqual(t, h, h2)
	assert.Equal(t, h.slot(), h2.slot())

	assert.False(t, p.Release(h), "stale handle must not release the new activation")
	_, ok := p.Get(h2)
	assert.True(t, ok)
	assert.Equal(t, 1, p.Stats().Released)
}

func TestExhaustion(t *testing.T) {
	p := newPool(t, Config{Size: 2})
	for range 2 {
		_, err := p.Acquire(cp.Vector{}, Params{})
		require.NoError(t, err)
	}
	h, err := p.Acquire(cp.Vector{}, Params{})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, NoEntity, h)
	assert.Equal(t, 1, p.Stats().Exhausted)
}

func TestGrowthRespectsMaxSize(t *testing.T) {
	p := newPool(t, Config{Size: 1, Growable: true, MaxSize: 3})
	for range 3 {
		_, err := p.Acquire(cp.Vector{}, Params{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 2, p.Stats().Grown)

	_, err := p.Acquire(cp.Vector{}, Params{})
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestHooks(t *testing.T) {
	hooks := &hookLog{}
	p := newPool(t, Config{Size: 2}, WithHooks(hooks))

	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	p.Release(h)
	p.Release(h)

	require.Len(t, hooks.activated, 1)
	assert.Equal(t, hooks.activated, hooks.deactivated)
}

func TestGraceDelayArmsCollision(t *testing.T) {
	p := newPool(t, Config{Size: 1, GraceDelay: 0.1}, WithCollider(&stubCollider{}))
	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	e, _ := p.Get(h)

	p.Tick(dt)
	assert.Equal(t, StatePreparing, e.Lifecycle())
	p.Tick(dt)
	assert.Equal(t, StateActive, e.Lifecycle())
	assert.True(t, e.Collidable())
}

func TestWallHitDispersesThenRecycles(t *testing.T) {
	col := &stubCollider{kind: physics.ContactWall}
	hooks := &hookLog{}
	p := newPool(t, Config{Size: 1, GraceDelay: 0.1, DisperseTime: 0.1}, WithCollider(col), WithHooks(hooks))

	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	e, _ := p.Get(h)

	tickN(p, 2)
	require.Equal(t, StateActive, e.Lifecycle())
	p.Tick(dt)
	assert.Equal(t, StateDispersing, e.Lifecycle())
	assert.Equal(t, 1, p.Stats().WallHits)

	tickN(p, 2)
	assert.False(t, e.InUse())
	assert.Equal(t, StatePooled, e.Lifecycle())
	assert.Len(t, hooks.deactivated, 1)
}

func TestIgnoreWallCollision(t *testing.T) {
	col := &stubCollider{kind: physics.ContactWall}
	p := newPool(t, Config{Size: 1}, WithCollider(col))
	h, err := p.Acquire(cp.Vector{}, Params{IgnoreWallCollision: true})
	require.NoError(t, err)
	e, _ := p.Get(h)

	tickN(p, 4)
	assert.Equal(t, StateActive, e.Lifecycle())

	col.kind = physics.ContactTarget
	p.Tick(dt)
	assert.Equal(t, StateDispersing, e.Lifecycle())
	assert.Equal(t, 1, p.Stats().TargetHits)
}

func TestProtectionWindow(t *testing.T) {
	col := &stubCollider{kind: physics.ContactTarget}
	p := newPool(t, Config{Size: 1, DisperseTime: 1}, WithCollider(col))
	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	require.True(t, p.Protect(h, 0.2))
	e, _ := p.Get(h)

	tickN(p, 3)
	assert.Equal(t, StateActive, e.Lifecycle(), "hits ignored while protected")
	tickN(p, 2)
	assert.Equal(t, StateDispersing, e.Lifecycle())
}

func TestDriveMovesEntity(t *testing.T) {
	p := newPool(t, Config{Size: 1})
	h, err := p.Acquire(cp.Vector{X: 1}, Params{})
	require.NoError(t, err)
	require.True(t, p.Drive(h, &motion.Ballistic{Velocity: cp.Vector{X: 20}}))

	tickN(p, 2)
	e, _ := p.Get(h)
	assert.InDelta(t, 3, e.Position().X, 1e-9)
	assert.InDelta(t, 0.1, e.Age(), 1e-9)

	require.True(t, p.Redirect(h, &motion.Ballistic{Velocity: cp.Vector{Y: -10}}))
	p.Tick(dt)
	assert.InDelta(t, -0.5, e.Position().Y, 1e-9)
	assert.False(t, p.Drive(NoEntity, &motion.Ballistic{}))
}

func TestLaunch(t *testing.T) {
	p := newPool(t, Config{Size: 1})
	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	require.True(t, p.Launch(h, cp.Vector{Y: 10}))

	p.Tick(dt)
	e, _ := p.Get(h)
	assert.InDelta(t, 0.5, e.Position().Y, 1e-9)
	assert.IsType(t, &motion.Ballistic{}, e.Behavior())

	p.Release(h)
	assert.False(t, p.Launch(h, cp.Vector{X: 1}))
}

func TestSignalCallbackMayRelease(t *testing.T) {
	p := newPool(t, Config{Size: 1})
	var got []motion.Signal
	var h Handle
	params := Params{OnSignal: func(sh Handle, sig motion.Signal) {
		assert.Equal(t, h, sh)
		got = append(got, sig)
		p.Release(sh)
	}}

	h, err := p.Acquire(cp.Vector{}, params)
	require.NoError(t, err)
	require.True(t, p.Drive(h, &motion.Chase{Target: motion.Point{X: 2}, Acceleration: 100, MaxSpeed: 100, ReachDistance: 5}))

	p.Tick(dt)
	assert.Equal(t, []motion.Signal{motion.SignalReached}, got)
	assert.Zero(t, p.InUse())
	assert.Equal(t, 1, p.Stats().Released)
}

func TestUnhandledTerminalSignalDisperses(t *testing.T) {
	p := newPool(t, Config{Size: 1, DisperseTime: 1})
	h, err := p.Acquire(cp.Vector{}, Params{})
	require.NoError(t, err)
	require.True(t, p.Drive(h, &motion.Ballistic{Velocity: cp.Vector{X: 1}, Duration: dt}))

	p.Tick(dt)
	e, _ := p.Get(h)
	assert.Equal(t, StateDispersing, e.Lifecycle())
	assert.Equal(t, cp.Vector{}, e.Velocity())
}

func TestLostTargetEndsChase(t *testing.T) {
	target := &fadingTarget{alive: true}
	p := newPool(t, Config{Size: 1})
	h, err := p.Acquire(cp.Vector{}, Params{Target: target})
	require.NoError(t, err)
	require.True(t, p.Drive(h, &motion.Chase{Target: target, Acceleration: 10, MaxSpeed: 10, ReachDistance: 1}))

	p.Tick(dt)
	e, _ := p.Get(h)
	require.NotEqual(t, StateDispersing, e.Lifecycle())

	target.alive = false
	p.Tick(dt)
	assert.Equal(t, StateDispersing, e.Lifecycle())
}

type fadingTarget struct{ alive bool }

func (f *fadingTarget) Position() cp.Vector { return cp.Vector{X: 100} }
func (f *fadingTarget) Alive() bool         { return f.alive }

func TestTimeoutAndBounds(t *testing.T) {
	p := newPool(t, Config{Size: 2})
	h, err := p.Acquire(cp.Vector{}, Params{Timeout: 0.1})
	require.NoError(t, err)
	e, _ := p.Get(h)
	tickN(p, 2)
	assert.Equal(t, StateDispersing, e.Lifecycle())

	box := &boxCollider{bounds: cp.BB{L: 0, B: 0, R: 10, T: 10}}
	q := newPool(t, Config{Size: 1}, WithCollider(box))
	h, err = q.Acquire(cp.Vector{X: 9, Y: 5}, Params{})
	require.NoError(t, err)
	require.True(t, q.Drive(h, &motion.Ballistic{Velocity: cp.Vector{X: 40}}))
	e, _ = q.Get(h)
	q.Tick(dt)
	assert.Equal(t, StateDispersing, e.Lifecycle())
}

func TestAbortReleasesEverything(t *testing.T) {
	p := newPool(t, Config{Size: 4})
	for range 3 {
		_, err := p.Acquire(cp.Vector{}, Params{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, p.Abort())
	assert.Zero(t, p.InUse())
	assert.Equal(t, 4, p.Available())

	count := 0
	p.Each(func(*Entity) { count++ })
	assert.Zero(t, count)
}

func TestHandleString(t *testing.T) {
	assert.Equal(t, "3v2", makeHandle(3, 2).String())
	assert.False(t, NoEntity.Valid())
}
