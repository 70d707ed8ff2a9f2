package navmesh

import "github.com/annel0/mmo-sim/internal/vec"

// GraphEdge - переход из региона в соседний через общее ребро
type GraphEdge struct {
	To     int
	Cost   float64
	Portal int // полуребро исходного региона, общее с регионом To
}

// Graph - ориентированный граф регионов. Неизменяем после построения.
type Graph struct {
	nodes []vec.Vec3
	adj   [][]GraphEdge
	edges int
}

func newGraph(m *NavMesh) *Graph {
	g := &Graph{
		nodes: make([]vec.Vec3, len(m.regions)),
		adj:   make([][]GraphEdge, len(m.regions)),
	}
	for r, reg := range m.regions {
		g.nodes[r] = reg.Centroid
	}
	for e, he := range m.edges {
		if he.Twin < 0 {
			continue
		}
		from := he.Region
		to := m.edges[he.Twin].Region
		if from == to {
			continue
		}
		g.adj[from] = append(g.adj[from], GraphEdge{
			To:     to,
			Cost:   g.nodes[from].DistanceTo(g.nodes[to]),
			Portal: e,
		})
		g.edges++
	}
	return g
}

// NodeCount возвращает число узлов
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount возвращает число направленных ребер
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Centroid возвращает позицию узла
func (g *Graph) Centroid(node int) vec.Vec3 {
	return g.nodes[node]
}

// Neighbors возвращает исходящие ребра узла
func (g *Graph) Neighbors(node int) []GraphEdge {
	return g.adj[node]
}

// Isolate возвращает копию графа без ребер, входящих в узел и выходящих из него
func (g *Graph) Isolate(node int) *Graph {
	cp := &Graph{
		nodes: g.nodes,
		adj:   make([][]GraphEdge, len(g.adj)),
	}
	for from, list := range g.adj {
		if from == node {
			continue
		}
		kept := make([]GraphEdge, 0, len(list))
		for _, ge := range list {
			if ge.To != node {
				kept = append(kept, ge)
			}
		}
		cp.adj[from] = kept
		cp.edges += len(kept)
	}
	return cp
}
