package physics

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/motion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummy struct {
	pos   cp.Vector
	alive bool
}

func (d *dummy) Position() cp.Vector { return d.pos }
func (d *dummy) Alive() bool         { return d.alive }

func TestArenaBoundaryWalls(t *testing.T) {
	a := NewArena(200, 100, 1)
	require.Equal(t, 4, a.Walls())

	tests := []struct {
		name     string
		from, to cp.Vector
		want     Kind
	}{
		{"inside", cp.Vector{X: 50, Y: 50}, cp.Vector{X: 60, Y: 50}, ContactNone},
		{"through right wall", cp.Vector{X: 190, Y: 50}, cp.Vector{X: 210, Y: 50}, ContactWall},
		{"through floor", cp.Vector{X: 50, Y: 10}, cp.Vector{X: 50, Y: -10}, ContactWall},
		{"resting on wall", cp.Vector{X: 2, Y: 50}, cp.Vector{X: 2, Y: 50}, ContactWall},
		{"resting inside", cp.Vector{X: 100, Y: 50}, cp.Vector{X: 100, Y: 50}, ContactNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Probe(tt.from, tt.to, 3)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestArenaWallNormalFacesMover(t *testing.T) {
	a := NewArena(200, 100, 1)
	c := a.Probe(cp.Vector{X: 190, Y: 50}, cp.Vector{X: 210, Y: 50}, 2)
	require.Equal(t, ContactWall, c.Kind)
	assert.Less(t, c.Normal.X, 0.0)
	assert.InDelta(t, 199, c.Point.X, 1e-6)
}

func TestArenaInteriorWall(t *testing.T) {
	a := NewArena(200, 200, 1)
	a.AddWall(cp.Vector{X: 50, Y: 100}, cp.Vector{X: 150, Y: 100}, 2)

	from, to, r := a.WallSegment(4)
	assert.Equal(t, cp.Vector{X: 50, Y: 100}, from)
	assert.Equal(t, cp.Vector{X: 150, Y: 100}, to)
	assert.Equal(t, 2.0, r)

	assert.Equal(t, ContactWall, a.Probe(cp.Vector{X: 100, Y: 90}, cp.Vector{X: 100, Y: 110}, 1).Kind)
	assert.Equal(t, ContactNone, a.Probe(cp.Vector{X: 20, Y: 90}, cp.Vector{X: 20, Y: 110}, 1).Kind)
}

func TestArenaTarget(t *testing.T) {
	a := NewArena(400, 400, 1)
	target := &dummy{pos: cp.Vector{X: 200, Y: 200}, alive: true}
	a.SetTarget(target, 10)

	c := a.Probe(cp.Vector{X: 150, Y: 205}, cp.Vector{X: 250, Y: 205}, 2)
	assert.Equal(t, ContactTarget, c.Kind)
	assert.InDelta(t, 200, c.Point.X, 1e-9)

	assert.Equal(t, ContactNone, a.Probe(cp.Vector{X: 150, Y: 230}, cp.Vector{X: 250, Y: 230}, 2).Kind)

	target.alive = false
	assert.Equal(t, ContactNone, a.Probe(cp.Vector{X: 150, Y: 205}, cp.Vector{X: 250, Y: 205}, 2).Kind)

	a.SetTarget(nil, 0)
	assert.Equal(t, ContactNone, a.Probe(cp.Vector{X: 195, Y: 200}, cp.Vector{X: 205, Y: 200}, 2).Kind)
}

func TestArenaNearestContactWins(t *testing.T) {
	a := NewArena(400, 400, 1)
	a.SetTarget(motion.Point{X: 380, Y: 200}, 10)

	// Target sits before the right wall along the sweep.
	c := a.Probe(cp.Vector{X: 300, Y: 200}, cp.Vector{X: 420, Y: 200}, 2)
	assert.Equal(t, ContactTarget, c.Kind)

	// Sweeping away from the wall side, the left wall comes first.
	a.SetTarget(motion.Point{X: 5, Y: 300}, 1)
	c = a.Probe(cp.Vector{X: 100, Y: 200}, cp.Vector{X: -20, Y: 200}, 2)
	assert.Equal(t, ContactWall, c.Kind)
}

func TestArenaContains(t *testing.T) {
	a := NewArena(100, 50, 1)
	assert.True(t, a.Contains(cp.Vector{X: 10, Y: 10}))
	assert.False(t, a.Contains(cp.Vector{X: 101, Y: 10}))
	assert.Equal(t, cp.BB{R: 100, T: 50}, a.Bounds())
	assert.Equal(t, "wall", ContactWall.String())
}
