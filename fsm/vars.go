package fsm

import (
	"sort"

	"github.com/jakecoffman/cp"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindBool
	KindFloat
	KindVector
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindVector:
		return "vector"
	case KindObject:
		return "object"
	}
	return "none"
}

type value struct {
	kind Kind
	b    bool
	f    float64
	v    cp.Vector
	o    any
}

// Variables is the typed value store shared by a machine's actions. Setting a name
// to a different kind replaces it; typed getters report ok=false on a kind mismatch.
// The zero value is ready to use.
type Variables struct {
	values map[string]value
}

func NewVariables() *Variables {
	return &Variables{values: map[string]value{}}
}

func (v *Variables) set(name string, val value) {
	if v.values == nil {
		v.values = map[string]value{}
	}
	v.values[name] = val
}

func (v *Variables) SetBool(name string, b bool) {
	v.set(name, value{kind: KindBool, b: b})
}

func (v *Variables) Bool(name string) (bool, bool) {
	val, ok := v.values[name]
	if !ok || val.kind != KindBool {
		return false, false
	}
	return val.b, true
}

func (v *Variables) SetFloat(name string, f float64) {
	v.set(name, value{kind: KindFloat, f: f})
}

func (v *Variables) Float(name string) (float64, bool) {
	val, ok := v.values[name]
	if !ok || val.kind != KindFloat {
		return 0, false
	}
	return val.f, true
}

// AddFloat adds delta to a float (missing counts as zero) and returns the result.
func (v *Variables) AddFloat(name string, delta float64) float64 {
	f, _ := v.Float(name)
	f += delta
	v.SetFloat(name, f)
	return f
}

func (v *Variables) SetVector(name string, vec cp.Vector) {
	v.set(name, value{kind: KindVector, v: vec})
}

func (v *Variables) Vector(name string) (cp.Vector, bool) {
	val, ok := v.values[name]
	if !ok || val.kind != KindVector {
		return cp.Vector{}, false
	}
	return val.v, true
}

func (v *Variables) SetObject(name string, o any) {
	v.set(name, value{kind: KindObject, o: o})
}

func (v *Variables) Object(name string) (any, bool) {
	val, ok := v.values[name]
	if !ok || val.kind != KindObject {
		return nil, false
	}
	return val.o, true
}

func (v *Variables) Has(name string) bool {
	_, ok := v.values[name]
	return ok
}

func (v *Variables) Kind(name string) Kind {
	return v.values[name].kind
}

func (v *Variables) Delete(name string) {
	delete(v.values, name)
}

func (v *Variables) Reset() {
	clear(v.values)
}

func (v *Variables) Names() []string {
	out := make([]string, 0, len(v.values))
	for k := range v.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (v *Variables) Len() int { return len(v.values) }
