package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/barrage/motion"
)

type Kind uint8

const (
	ContactNone Kind = iota
	ContactWall
	ContactTarget
)

func (k Kind) String() string {
	switch k {
	case ContactNone:
		return "none"
	case ContactWall:
		return "wall"
	case ContactTarget:
		return "target"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

type Contact struct {
	Kind   Kind
	Point  cp.Vector
	Normal cp.Vector
}

const (
	collisionWall cp.CollisionType = iota + 1
)

const wallCategory uint = 1 << 0

var (
	wallFilter  = cp.NewShapeFilter(cp.NO_GROUP, wallCategory, cp.ALL_CATEGORIES)
	queryFilter = cp.NewShapeFilter(cp.NO_GROUP, cp.ALL_CATEGORIES, wallCategory)
)

// Arena is the static collision world: boundary walls, interior walls and the
// one target entities can hit. It answers sweep queries and never steps bodies.
type Arena struct {
	space        *cp.Space
	bounds       cp.BB
	walls        []*cp.Shape
	target       motion.Target
	targetRadius float64
}

// NewArena encloses (0,0)-(width,height) with four wall segments.
func NewArena(width, height, wallRadius float64) *Arena {
	a := &Arena{
		space:  cp.NewSpace(),
		bounds: cp.BB{L: 0, B: 0, R: width, T: height},
	}
	corners := []cp.Vector{{X: 0, Y: 0}, {X: width, Y: 0}, {X: width, Y: height}, {X: 0, Y: height}}
	for i := range corners {
		a.AddWall(corners[i], corners[(i+1)%len(corners)], wallRadius)
	}
	return a
}

// AddWall adds a static segment of thickness radius.
func (a *Arena) AddWall(from, to cp.Vector, radius float64) {
	seg := cp.NewSegment(a.space.StaticBody, from, to, radius)
	seg.SetCollisionType(collisionWall)
	seg.SetFilter(wallFilter)
	seg.SetElasticity(0)
	seg.UserData = len(a.walls)
	a.space.AddShape(seg)
	a.walls = append(a.walls, seg)
}

// SetTarget registers the entity projectiles can hit. A nil target disables
// target contacts.
func (a *Arena) SetTarget(t motion.Target, radius float64) {
	a.target = t
	a.targetRadius = radius
}

func (a *Arena) Bounds() cp.BB { return a.bounds }
func (a *Arena) Walls() int    { return len(a.walls) }

// WallSegment returns the endpoints of wall i, for drawing.
func (a *Arena) WallSegment(i int) (cp.Vector, cp.Vector, float64) {
	seg := a.walls[i].Class.(*cp.Segment)
	return seg.A(), seg.B(), seg.Radius()
}

func (a *Arena) Contains(p cp.Vector) bool {
	return a.bounds.ContainsVect(p)
}

// Probe sweeps a circle of radius from one position to the next and reports the
// first wall or target it touches.
func (a *Arena) Probe(from, to cp.Vector, radius float64) Contact {
	wall, wallAlpha := a.probeWalls(from, to, radius)
	target, targetAlpha := a.probeTarget(from, to, radius)

	switch {
	case wall.Kind != ContactNone && target.Kind != ContactNone:
		if targetAlpha <= wallAlpha {
			return target
		}
		return wall
	case wall.Kind != ContactNone:
		return wall
	default:
		return target
	}
}

func (a *Arena) probeWalls(from, to cp.Vector, radius float64) (Contact, float64) {
	if from.Near(to, 1e-9) {
		info := a.space.PointQueryNearest(to, radius, queryFilter)
		if info.Shape == nil {
			return Contact{}, 1
		}
		return Contact{Kind: ContactWall, Point: info.Point, Normal: info.Gradient}, 0
	}

	info := a.space.SegmentQueryFirst(from, to, radius, queryFilter)
	if info.Shape == nil {
		return Contact{}, 1
	}
	return Contact{Kind: ContactWall, Point: info.Point, Normal: info.Normal}, info.Alpha
}

func (a *Arena) probeTarget(from, to cp.Vector, radius float64) (Contact, float64) {
	if a.target == nil || !a.target.Alive() {
		return Contact{}, 1
	}
	center := a.target.Position()
	closest := center.ClosestPointOnSegment(from, to)
	reach := radius + a.targetRadius
	if closest.DistanceSq(center) > reach*reach {
		return Contact{}, 1
	}

	alpha := 0.0
	if l := to.Distance(from); l > 0 {
		alpha = closest.Distance(from) / l
	}
	return Contact{Kind: ContactTarget, Point: closest, Normal: motion.Normalize(closest.Sub(center))}, alpha
}
