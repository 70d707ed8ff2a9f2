package navmesh

import (
	"math"
	"math/rand"

	"github.com/annel0/mmo-sim/internal/vec"
)

// Допуск теста "точка слева от ребра", в единицах расстояния до прямой ребра
const containTolerance = 1e-6

// insidePlanar проверяет, что проекция точки лежит внутри региона или на его границе
func (m *NavMesh) insidePlanar(r int, p vec.Vec3) bool {
	reg := m.regions[r]
	if p.X < reg.MinX-gridPadding || p.X > reg.MaxX+gridPadding ||
		p.Z < reg.MinZ-gridPadding || p.Z > reg.MaxZ+gridPadding {
		return false
	}
	e := reg.Edge
	for i := 0; i < reg.Count; i++ {
		a := m.Tail(e)
		b := m.edges[e].Vertex
		length := a.PlanarDistance(b)
		if vec.Cross2(a, b, p)/length < -containTolerance {
			return false
		}
		e = m.edges[e].Next
	}
	return true
}

// RegionContaining возвращает первый регион, содержащий точку, с допуском eps по высоте
func (m *NavMesh) RegionContaining(p vec.Vec3, eps float64) (int, bool) {
	for _, r := range m.index.candidates(p) {
		if !m.insidePlanar(r, p) {
			continue
		}
		if m.regions[r].Plane.VerticalDistance(p) <= eps {
			return r, true
		}
	}
	return -1, false
}

// Contains проверяет точку с допуском по высоте по умолчанию
func (m *NavMesh) Contains(p vec.Vec3) bool {
	_, ok := m.RegionContaining(p, m.opts.QueryEpsilon)
	return ok
}

// ClosestRegion возвращает регион с ближайшим центроидом
func (m *NavMesh) ClosestRegion(p vec.Vec3) int {
	best := -1
	bestDist := math.Inf(1)
	for r, reg := range m.regions {
		if d := reg.Centroid.DistanceSq(p); d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best
}

// CheckPath - дешевая проверка: обе точки должны лежать в каком-то регионе
func (m *NavMesh) CheckPath(from, to vec.Vec3) bool {
	return m.Contains(from) && m.Contains(to)
}

// FindPath ищет кратчайший путь между точками навмеша.
// Пустой результат означает, что цель недостижима.
func (m *NavMesh) FindPath(from, to vec.Vec3) []vec.Vec3 {
	src, ok := m.RegionContaining(from, m.opts.QueryEpsilon)
	if !ok {
		return nil
	}
	dst, ok := m.RegionContaining(to, m.opts.QueryEpsilon)
	if !ok {
		return nil
	}
	if src == dst {
		return []vec.Vec3{from, to}
	}

	_, portals, ok := m.graph.ShortestPath(src, dst)
	if !ok {
		return nil
	}
	return StringPull(m.Corridor(from, to, portals))
}

// FindPathNearest ищет путь, подтягивая точку назначения вне навмеша к ближайшему региону
func (m *NavMesh) FindPathNearest(from, to vec.Vec3) []vec.Vec3 {
	return m.FindPath(from, m.NearestPoint(to))
}

// RegionChain возвращает цепочку регионов, которую выбрал бы FindPath
func (m *NavMesh) RegionChain(from, to vec.Vec3) []int {
	src, ok := m.RegionContaining(from, m.opts.QueryEpsilon)
	if !ok {
		return nil
	}
	dst, ok := m.RegionContaining(to, m.opts.QueryEpsilon)
	if !ok {
		return nil
	}
	regions, _, ok := m.graph.ShortestPath(src, dst)
	if !ok {
		return nil
	}
	return regions
}

// NearestPoint возвращает точку на навмеше рядом с p.
// Для точек вне сетки берется ближайшая точка региона с ближайшим центроидом.
func (m *NavMesh) NearestPoint(p vec.Vec3) vec.Vec3 {
	if m.Contains(p) {
		return p
	}
	r := m.ClosestRegion(p)
	if r < 0 {
		return p
	}

	best := p
	if !m.insidePlanar(r, p) {
		bestDist := math.Inf(1)
		for _, e := range m.RegionEdges(r) {
			seg := m.Segment(e)
			if d := seg.PlanarDistance(p); d < bestDist {
				bestDist = d
				best = seg.ClosestPoint(p)
			}
		}
	}
	if h, err := m.regions[r].Plane.HeightAt(best.X, best.Z); err == nil {
		best.Y = h
	}
	return best
}

// HeightAt возвращает высоту поверхности под точкой
func (m *NavMesh) HeightAt(p vec.Vec3) (float64, bool) {
	r, ok := m.RegionContaining(p, m.opts.QueryEpsilon)
	if !ok {
		return 0, false
	}
	h, err := m.regions[r].Plane.HeightAt(p.X, p.Z)
	if err != nil {
		return 0, false
	}
	return h, true
}

// SnapHeight ставит точку на поверхность региона под ней или ближайшего региона
func (m *NavMesh) SnapHeight(p vec.Vec3) vec.Vec3 {
	r, ok := m.RegionContaining(p, m.opts.QueryEpsilon)
	if !ok {
		r = m.ClosestRegion(p)
		if r < 0 {
			return p
		}
	}
	if h, err := m.regions[r].Plane.HeightAt(p.X, p.Z); err == nil {
		p.Y = h
	}
	return p
}

// SmoothHeight сдвигает высоту точки к поверхности на долю factor расстояния до плоскости
func (m *NavMesh) SmoothHeight(p vec.Vec3, factor float64) vec.Vec3 {
	h, ok := m.HeightAt(p)
	if !ok {
		return p
	}
	if factor <= 0 || factor > 1 {
		factor = 1
	}
	p.Y += (h - p.Y) * factor
	return p
}

// RandomPoint возвращает случайную точку навмеша, регион выбирается пропорционально площади
func (m *NavMesh) RandomPoint(rng *rand.Rand) vec.Vec3 {
	total := 0.0
	for _, reg := range m.regions {
		total += reg.Area
	}
	draw := rng.Float64() * total
	acc := 0.0
	for r, reg := range m.regions {
		acc += reg.Area
		if draw < acc {
			return m.RandomPointInRegion(r, rng)
		}
	}
	return m.RandomPointInRegion(len(m.regions)-1, rng)
}

// RandomPointInRegion возвращает равномерно случайную точку выпуклого региона
func (m *NavMesh) RandomPointInRegion(r int, rng *rand.Rand) vec.Vec3 {
	verts := m.RegionVertices(r)

	// веер треугольников из первой вершины
	total := 0.0
	areas := make([]float64, len(verts)-2)
	for i := 1; i+1 < len(verts); i++ {
		areas[i-1] = math.Abs(vec.Cross2(verts[0], verts[i], verts[i+1]))
		total += areas[i-1]
	}
	draw := rng.Float64() * total
	tri := len(areas) - 1
	for i, a := range areas {
		if draw < a {
			tri = i
			break
		}
		draw -= a
	}

	a, b, c := verts[0], verts[tri+1], verts[tri+2]
	u, v := rng.Float64(), rng.Float64()
	if u+v > 1 {
		u, v = 1-u, 1-v
	}
	p := a.Add(b.Sub(a).Mul(u)).Add(c.Sub(a).Mul(v))
	if h, err := m.regions[r].Plane.HeightAt(p.X, p.Z); err == nil {
		p.Y = h
	}
	return p
}
