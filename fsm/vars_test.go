package fsm

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/assert"
)

func TestVariables(t *testing.T) {
	v := NewVariables()

	v.SetBool("armed", true)
	v.SetFloat("count", 2)
	v.SetVector("aim", cp.Vector{X: 1, Y: 2})
	v.SetObject("pattern", "bloom")

	b, ok := v.Bool("armed")
	assert.True(t, ok)
	assert.True(t, b)

	_, ok = v.Float("armed")
	assert.False(t, ok, "kind mismatch")

	assert.Equal(t, 5.0, v.AddFloat("count", 3))
	assert.Equal(t, 1.5, v.AddFloat("fresh", 1.5))

	vec, ok := v.Vector("aim")
	assert.True(t, ok)
	assert.Equal(t, cp.Vector{X: 1, Y: 2}, vec)

	o, ok := v.Object("pattern")
	assert.True(t, ok)
	assert.Equal(t, "bloom", o)

	assert.Equal(t, KindVector, v.Kind("aim"))
	assert.Equal(t, KindNone, v.Kind("missing"))
	assert.Equal(t, []string{"aim", "armed", "count", "fresh", "pattern"}, v.Names())

	v.SetFloat("armed", 1)
	assert.Equal(t, KindFloat, v.Kind("armed"))

	v.Delete("aim")
	assert.False(t, v.Has("aim"))
	v.Reset()
	assert.Zero(t, v.Len())
}

func TestVariablesZeroValue(t *testing.T) {
	var v Variables
	_, ok := v.Float("hits")
	assert.False(t, ok)
	assert.Zero(t, v.Len())

	v.SetBool("armed", true)
	assert.Equal(t, 2.0, v.AddFloat("hits", 2))
	armed, ok := v.Bool("armed")
	assert.True(t, ok)
	assert.True(t, armed)
	assert.Equal(t, []string{"armed", "hits"}, v.Names())
}

func TestWait(t *testing.T) {
	w := NewWait(1)
	assert.False(t, w.Advance(0.4))
	assert.InDelta(t, 0.6, w.Remaining(), 1e-9)
	assert.InDelta(t, 0.4, w.Progress(), 1e-9)
	assert.True(t, w.Advance(0.6))
	assert.Zero(t, w.Remaining())
	assert.Equal(t, 1.0, w.Progress())

	w.Reset(0)
	assert.True(t, w.Done())
	assert.Equal(t, 1.0, w.Progress())
}
