package navmesh

import "container/heap"

type searchNode struct {
	region int
	g      float64
	f      float64
	index  int
}

type searchQueue []*searchNode

func (pq searchQueue) Len() int { return len(pq) }

func (pq searchQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq searchQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *searchQueue) Push(x any) {
	n := len(*pq)
	item := x.(*searchNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *searchQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

type cameFrom struct {
	region int
	portal int
}

// ShortestPath ищет цепочку регионов от start до goal алгоритмом A*.
// Возвращает регионы и порталы между соседними регионами цепочки.
func (g *Graph) ShortestPath(start, goal int) ([]int, []int, bool) {
	if start < 0 || goal < 0 || start >= len(g.nodes) || goal >= len(g.nodes) {
		return nil, nil, false
	}
	if start == goal {
		return []int{start}, nil, true
	}

	heuristic := func(r int) float64 {
		return g.nodes[r].DistanceTo(g.nodes[goal])
	}

	open := &searchQueue{}
	heap.Init(open)
	heap.Push(open, &searchNode{region: start, f: heuristic(start)})
	gScore := map[int]float64{start: 0}
	prev := make(map[int]cameFrom)
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		if _, seen := closed[current.region]; seen {
			continue
		}
		closed[current.region] = struct{}{}
		if current.region == goal {
			regions, portals := reconstructChain(prev, start, goal)
			return regions, portals, true
		}

		for _, edge := range g.adj[current.region] {
			if _, seen := closed[edge.To]; seen {
				continue
			}
			tentativeG := current.g + edge.Cost
			if known, ok := gScore[edge.To]; ok && tentativeG >= known {
				continue
			}
			gScore[edge.To] = tentativeG
			prev[edge.To] = cameFrom{region: current.region, portal: edge.Portal}
			heap.Push(open, &searchNode{
				region: edge.To,
				g:      tentativeG,
				f:      tentativeG + heuristic(edge.To),
			})
		}
	}
	return nil, nil, false
}

func reconstructChain(prev map[int]cameFrom, start, goal int) ([]int, []int) {
	regions := []int{goal}
	portals := make([]int, 0)
	for r := goal; r != start; {
		step := prev[r]
		portals = append(portals, step.portal)
		regions = append(regions, step.region)
		r = step.region
	}
	for i, j := 0, len(regions)-1; i < j; i, j = i+1, j-1 {
		regions[i], regions[j] = regions[j], regions[i]
	}
	for i, j := 0, len(portals)-1; i < j; i, j = i+1, j-1 {
		portals[i], portals[j] = portals[j], portals[i]
	}
	return regions, portals
}
