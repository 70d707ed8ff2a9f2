package navmesh

import (
	"fmt"
	"math"
	"sort"

	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/vec"
)

const (
	// Минимальная |Normal.Y|, при которой регион считается ходимым
	verticalLimit = 1e-3
	// Минимальная удвоенная площадь региона в проекции на XZ
	areaEpsilon = 1e-9
	// Допуск выпуклости: синус угла поворота в вершине
	convexTolerance = 1e-6
)

// Build строит навмеш из набора выпуклых многоугольников.
// Ошибки геометрии возвращаются с индексом исходного многоугольника.
func Build(polys []Polygon, opts BuildOptions) (*NavMesh, error) {
	if len(polys) == 0 {
		return nil, ErrEmptyMesh
	}
	opts = opts.withDefaults()

	loops := make([][]vec.Vec3, 0, len(polys))
	for i, p := range polys {
		loop, err := normalizePolygon(p, opts.PlaneTolerance)
		if err != nil {
			return nil, fmt.Errorf("регион %d: %w", i, err)
		}
		loops = append(loops, loop)
	}

	a := newArena(loops, opts.WeldTolerance)
	merges := 0
	if opts.MergeConvexRegions {
		loops, merges = a.mergeConvex(opts.PlaneTolerance)
		a = newArena(loops, opts.WeldTolerance)
	}

	m := &NavMesh{
		regions: a.regions,
		edges:   a.edges,
		opts:    opts,
	}
	m.finalize()
	m.stats = Stats{
		InputRegions: len(polys),
		Regions:      len(m.regions),
		Merges:       merges,
		BorderEdges:  len(m.border),
		GraphEdges:   m.graph.EdgeCount(),
	}

	logging.GetNavLogger().Debug("навмеш построен: %d -> %d регионов, %d граничных ребер, %d ребер графа",
		m.stats.InputRegions, m.stats.Regions, m.stats.BorderEdges, m.stats.GraphEdges)
	return m, nil
}

// normalizePolygon проверяет многоугольник и приводит обход к положительной площади на XZ
func normalizePolygon(p Polygon, tol float64) ([]vec.Vec3, error) {
	verts := dedupe(p)
	if len(verts) < 3 {
		return nil, ErrDegenerateRegion
	}

	normal := newellNormal(verts)
	if normal.Length() < vec.Epsilon {
		return nil, ErrDegenerateRegion
	}
	normal = normal.Normalized()
	if math.Abs(normal.Y) < verticalLimit {
		return nil, ErrVerticalRegion
	}

	plane := planeThrough(verts, normal)
	for _, v := range verts {
		if math.Abs(plane.SignedDistance(v)) > tol {
			return nil, ErrNonPlanarRegion
		}
	}

	area := signedArea2(verts)
	if math.Abs(area) < areaEpsilon {
		return nil, ErrDegenerateRegion
	}
	if area < 0 {
		for i, j := 0, len(verts)-1; i < j; i, j = i+1, j-1 {
			verts[i], verts[j] = verts[j], verts[i]
		}
	}

	if !isConvex(verts) {
		return nil, ErrNonConvexRegion
	}
	return verts, nil
}

// dedupe убирает подряд идущие совпадающие вершины, включая замыкание
func dedupe(p Polygon) []vec.Vec3 {
	out := make([]vec.Vec3, 0, len(p))
	for _, v := range p {
		if len(out) > 0 && out[len(out)-1].ApproxEqual(v, vec.Epsilon) {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0].ApproxEqual(out[len(out)-1], vec.Epsilon) {
		out = out[:len(out)-1]
	}
	return out
}

// newellNormal - нормаль многоугольника методом Ньюэлла
func newellNormal(verts []vec.Vec3) vec.Vec3 {
	var n vec.Vec3
	for i := range verts {
		a := verts[i]
		b := verts[(i+1)%len(verts)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	return n
}

func planeThrough(verts []vec.Vec3, normal vec.Vec3) vec.Plane {
	if normal.Y < 0 {
		normal = normal.Mul(-1)
	}
	return vec.Plane{Normal: normal, D: -normal.Dot(average(verts))}
}

func average(verts []vec.Vec3) vec.Vec3 {
	var sum vec.Vec3
	for _, v := range verts {
		sum = sum.Add(v)
	}
	return sum.Mul(1 / float64(len(verts)))
}

// signedArea2 - удвоенная ориентированная площадь в проекции на XZ
func signedArea2(verts []vec.Vec3) float64 {
	area := 0.0
	for i := 1; i+1 < len(verts); i++ {
		area += vec.Cross2(verts[0], verts[i], verts[i+1])
	}
	return area
}

// isConvex проверяет, что в каждой вершине поворот не отрицательный.
// Коллинеарные вершины допустимы.
func isConvex(verts []vec.Vec3) bool {
	n := len(verts)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		a := verts[(i+n-1)%n]
		b := verts[i]
		c := verts[(i+1)%n]
		l1 := a.PlanarDistance(b)
		l2 := b.PlanarDistance(c)
		if l1 == 0 || l2 == 0 {
			return false
		}
		if vec.Cross2(a, b, c)/(l1*l2) < -convexTolerance {
			return false
		}
	}
	return signedArea2(verts) > areaEpsilon
}

func coplanar(verts []vec.Vec3, tol float64) bool {
	normal := newellNormal(verts)
	if normal.Length() < vec.Epsilon {
		return false
	}
	plane := planeThrough(verts, normal.Normalized())
	for _, v := range verts {
		if math.Abs(plane.SignedDistance(v)) > tol {
			return false
		}
	}
	return true
}

// arena - изменяемое представление регионов на время построения
type arena struct {
	regions []Region
	edges   []HalfEdge
}

func newArena(loops [][]vec.Vec3, weld float64) *arena {
	a := &arena{
		regions: make([]Region, 0, len(loops)),
	}
	for r, loop := range loops {
		first := len(a.edges)
		n := len(loop)
		for i := range loop {
			a.edges = append(a.edges, HalfEdge{
				Vertex: loop[(i+1)%n],
				Next:   first + (i+1)%n,
				Prev:   first + (i+n-1)%n,
				Twin:   -1,
				Region: r,
			})
		}
		a.regions = append(a.regions, Region{Edge: first, Count: n})
	}
	a.linkTwins(weld)
	return a
}

type pointKey struct {
	x, y, z int64
}

type edgeKey struct {
	tail, head pointKey
}

func quantize(p vec.Vec3, step float64) pointKey {
	return pointKey{
		x: int64(math.Round(p.X / step)),
		y: int64(math.Round(p.Y / step)),
		z: int64(math.Round(p.Z / step)),
	}
}

func (a *arena) tail(e int) vec.Vec3 {
	return a.edges[a.edges[e].Prev].Vertex
}

// linkTwins связывает полуребра с зеркальными концами из разных регионов
func (a *arena) linkTwins(weld float64) {
	open := make(map[edgeKey]int, len(a.edges))
	for e := range a.edges {
		k := edgeKey{tail: quantize(a.tail(e), weld), head: quantize(a.edges[e].Vertex, weld)}
		rev := edgeKey{tail: k.head, head: k.tail}
		if other, ok := open[rev]; ok && a.edges[other].Region != a.edges[e].Region {
			a.edges[e].Twin = other
			a.edges[other].Twin = e
			delete(open, rev)
			continue
		}
		if _, exists := open[k]; !exists {
			open[k] = e
		}
	}
}

func (a *arena) loop(r int) []vec.Vec3 {
	out := make([]vec.Vec3, 0, a.regions[r].Count)
	e := a.regions[r].Edge
	for i := 0; i < a.regions[r].Count; i++ {
		out = append(out, a.tail(e))
		e = a.edges[e].Next
	}
	return out
}

func (a *arena) sharedEdges(ra, rb int) int {
	count := 0
	e := a.regions[ra].Edge
	for i := 0; i < a.regions[ra].Count; i++ {
		if t := a.edges[e].Twin; t >= 0 && a.edges[t].Region == rb {
			count++
		}
		e = a.edges[e].Next
	}
	return count
}

// mergedLoop возвращает вершины многоугольника, полученного удалением ребра e и его близнеца
func (a *arena) mergedLoop(e int) []vec.Vec3 {
	t := a.edges[e].Twin
	out := make([]vec.Vec3, 0, a.regions[a.edges[e].Region].Count+a.regions[a.edges[t].Region].Count-2)
	for cur := a.edges[e].Next; cur != e; cur = a.edges[cur].Next {
		out = append(out, a.edges[cur].Vertex)
	}
	for cur := a.edges[t].Next; cur != t; cur = a.edges[cur].Next {
		out = append(out, a.edges[cur].Vertex)
	}
	return out
}

// splice сшивает регион близнеца в регион ребра e
func (a *arena) splice(e int) {
	t := a.edges[e].Twin
	ra := a.edges[e].Region
	rb := a.edges[t].Region

	for cur := a.edges[t].Next; cur != t; cur = a.edges[cur].Next {
		a.edges[cur].Region = ra
	}

	ePrev, eNext := a.edges[e].Prev, a.edges[e].Next
	tPrev, tNext := a.edges[t].Prev, a.edges[t].Next
	a.edges[ePrev].Next = tNext
	a.edges[tNext].Prev = ePrev
	a.edges[tPrev].Next = eNext
	a.edges[eNext].Prev = tPrev

	a.regions[ra].Edge = eNext
	a.regions[ra].Count += a.regions[rb].Count - 2
	a.regions[rb].Count = 0
	a.edges[e].Twin, a.edges[t].Twin = -1, -1
}

// mergeConvex жадно объединяет соседние регионы, начиная с самого длинного общего ребра.
// Возвращает контуры оставшихся регионов и число слияний.
func (a *arena) mergeConvex(tol float64) ([][]vec.Vec3, int) {
	type candidate struct {
		edge   int
		length float64
	}
	cands := make([]candidate, 0, len(a.edges)/2)
	for e, he := range a.edges {
		if he.Twin > e && a.edges[he.Twin].Region != he.Region {
			cands = append(cands, candidate{edge: e, length: a.tail(e).DistanceTo(he.Vertex)})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].length > cands[j].length })

	dead := make([]bool, len(a.edges))
	merges := 0
	for _, c := range cands {
		e := c.edge
		t := a.edges[e].Twin
		if dead[e] || t < 0 {
			continue
		}
		ra, rb := a.edges[e].Region, a.edges[t].Region
		if ra == rb || a.sharedEdges(ra, rb) > 1 {
			continue
		}
		merged := a.mergedLoop(e)
		if !isConvex(merged) || !coplanar(merged, tol) {
			continue
		}
		a.splice(e)
		dead[e], dead[t] = true, true
		merges++
	}

	loops := make([][]vec.Vec3, 0, len(a.regions)-merges)
	for r := range a.regions {
		if a.regions[r].Count == 0 {
			continue
		}
		loops = append(loops, a.loop(r))
	}
	return loops, merges
}

// finalize вычисляет центроиды, плоскости, границы и строит граф с индексом
func (m *NavMesh) finalize() {
	for r := range m.regions {
		verts := m.RegionVertices(r)
		reg := &m.regions[r]
		reg.Centroid = average(verts)
		reg.Plane = planeThrough(verts, newellNormal(verts).Normalized())
		reg.Area = signedArea2(verts) / 2
		reg.MinX, reg.MinZ = math.Inf(1), math.Inf(1)
		reg.MaxX, reg.MaxZ = math.Inf(-1), math.Inf(-1)
		for _, v := range verts {
			reg.MinX = math.Min(reg.MinX, v.X)
			reg.MinZ = math.Min(reg.MinZ, v.Z)
			reg.MaxX = math.Max(reg.MaxX, v.X)
			reg.MaxZ = math.Max(reg.MaxZ, v.Z)
		}
	}

	m.border = m.border[:0]
	for e, he := range m.edges {
		if he.IsBorder() {
			m.border = append(m.border, e)
		}
	}

	m.graph = newGraph(m)
	m.index = newGridIndex(m.regions, m.opts.GridCellSize)
}
