package navmesh

import (
	"github.com/annel0/mmo-sim/internal/vec"
)

// Polygon - выпуклый многоугольник на входе построения
type Polygon []vec.Vec3

// HalfEdge - направленное ребро региона
type HalfEdge struct {
	Vertex vec.Vec3 // вершина, в которую указывает ребро
	Next   int
	Prev   int
	Twin   int // -1 для граничного ребра
	Region int
}

// IsBorder сообщает, что у ребра нет соседнего региона
func (e HalfEdge) IsBorder() bool {
	return e.Twin < 0
}

// Region - выпуклый плоский регион навмеша
type Region struct {
	Edge     int // первое полуребро цикла
	Count    int
	Centroid vec.Vec3
	Plane    vec.Plane
	Area     float64
	MinX     float64
	MinZ     float64
	MaxX     float64
	MaxZ     float64
}

// BuildOptions - параметры построения
type BuildOptions struct {
	MergeConvexRegions bool
	// Допуск отклонения вершин от плоскости региона
	PlaneTolerance float64
	// Шаг квантования при поиске совпадающих вершин
	WeldTolerance float64
	// Допуск по высоте для запросов без явного epsilon
	QueryEpsilon float64
	// Размер ячейки сетки индекса, 0 - подобрать автоматически
	GridCellSize float64
}

// DefaultBuildOptions возвращает параметры по умолчанию
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MergeConvexRegions: true,
		PlaneTolerance:     0.01,
		WeldTolerance:      1e-4,
		QueryEpsilon:       0.5,
	}
}

func (o BuildOptions) withDefaults() BuildOptions {
	d := DefaultBuildOptions()
	if o.PlaneTolerance <= 0 {
		o.PlaneTolerance = d.PlaneTolerance
	}
	if o.WeldTolerance <= 0 {
		o.WeldTolerance = d.WeldTolerance
	}
	if o.QueryEpsilon <= 0 {
		o.QueryEpsilon = d.QueryEpsilon
	}
	return o
}

// Stats - сводка по построенному навмешу
type Stats struct {
	InputRegions int `json:"input_regions"`
	Regions      int `json:"regions"`
	Merges       int `json:"merges"`
	BorderEdges  int `json:"border_edges"`
	GraphEdges   int `json:"graph_edges"`
}

// NavMesh - навигационная сетка карты. После Build только читается,
// поэтому безопасна для одновременного использования из нескольких горутин.
type NavMesh struct {
	regions []Region
	edges   []HalfEdge
	border  []int
	graph   *Graph
	index   *gridIndex
	opts    BuildOptions
	stats   Stats
}

// RegionCount возвращает число регионов
func (m *NavMesh) RegionCount() int {
	return len(m.regions)
}

// Region возвращает регион по индексу
func (m *NavMesh) Region(i int) Region {
	return m.regions[i]
}

// Edge возвращает полуребро по индексу
func (m *NavMesh) Edge(i int) HalfEdge {
	return m.edges[i]
}

// EdgeCount возвращает число полуребер
func (m *NavMesh) EdgeCount() int {
	return len(m.edges)
}

// Tail возвращает начало полуребра
func (m *NavMesh) Tail(e int) vec.Vec3 {
	return m.edges[m.edges[e].Prev].Vertex
}

// Segment возвращает полуребро как отрезок
func (m *NavMesh) Segment(e int) vec.Segment {
	return vec.Segment{A: m.Tail(e), B: m.edges[e].Vertex}
}

// RegionEdges возвращает индексы полуребер региона по порядку обхода
func (m *NavMesh) RegionEdges(r int) []int {
	out := make([]int, 0, m.regions[r].Count)
	e := m.regions[r].Edge
	for i := 0; i < m.regions[r].Count; i++ {
		out = append(out, e)
		e = m.edges[e].Next
	}
	return out
}

// RegionVertices возвращает вершины региона против часовой стрелки (вид сверху)
func (m *NavMesh) RegionVertices(r int) []vec.Vec3 {
	edges := m.RegionEdges(r)
	out := make([]vec.Vec3, len(edges))
	for i, e := range edges {
		out[i] = m.Tail(e)
	}
	return out
}

// BorderEdges возвращает граничные ребра как отрезки
func (m *NavMesh) BorderEdges() []vec.Segment {
	out := make([]vec.Segment, len(m.border))
	for i, e := range m.border {
		out[i] = m.Segment(e)
	}
	return out
}

// Graph возвращает граф навигации
func (m *NavMesh) Graph() *Graph {
	return m.graph
}

// Stats возвращает сводку построения
func (m *NavMesh) Stats() Stats {
	return m.stats
}

// Options возвращает параметры, с которыми построен навмеш
func (m *NavMesh) Options() BuildOptions {
	return m.opts
}

// Isolate возвращает копию навмеша, в графе которой регион r отрезан от соседей.
// Геометрия общая, исходный навмеш не меняется.
func (m *NavMesh) Isolate(r int) *NavMesh {
	cp := *m
	cp.graph = m.graph.Isolate(r)
	cp.stats.GraphEdges = cp.graph.EdgeCount()
	return &cp
}
