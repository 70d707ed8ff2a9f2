package navmesh

import (
	"sort"

	"github.com/annel0/mmo-sim/internal/vec"
)

// Сколько ближайших граничных ребер пробуется для скольжения
const clampCandidates = 2

// ClampMovement ограничивает шаг start->end навмешем.
// Если end вне сетки, движение проецируется на ближайшее граничное ребро (скольжение вдоль стены).
// Если и это невозможно, сущность остается в start.
func (m *NavMesh) ClampMovement(start, end vec.Vec3) vec.Vec3 {
	if m.Contains(end) {
		return end
	}
	if len(m.border) == 0 {
		return start
	}

	type nearEdge struct {
		edge int
		dist float64
	}
	near := make([]nearEdge, 0, len(m.border))
	for _, e := range m.border {
		near = append(near, nearEdge{edge: e, dist: m.Segment(e).PlanarDistance(start)})
	}
	sort.Slice(near, func(i, j int) bool { return near[i].dist < near[j].dist })

	delta := end.Sub(start).Planar()
	for i := 0; i < len(near) && i < clampCandidates; i++ {
		seg := m.Segment(near[i].edge)
		dir := seg.B.Sub(seg.A).Planar().Normalized()
		slid := start.Add(dir.Mul(delta.Dot(dir)))

		// и в пределах ребра, и за его концом (угол) точка должна остаться в регионе
		if r, ok := m.RegionContaining(slid, m.opts.QueryEpsilon); ok {
			if h, err := m.regions[r].Plane.HeightAt(slid.X, slid.Z); err == nil {
				slid.Y = h
			}
			return slid
		}
	}
	return start
}
