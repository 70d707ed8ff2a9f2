package navmesh

import "github.com/annel0/mmo-sim/internal/vec"

// Portal - проход между соседними регионами коридора.
// Left и Right заданы с точки зрения идущего по коридору.
type Portal struct {
	Left  vec.Vec3
	Right vec.Vec3
}

const funnelEpsilon = 1e-9

// Corridor превращает цепочку порталов в список проходов от from до to
func (m *NavMesh) Corridor(from, to vec.Vec3, portals []int) []Portal {
	out := make([]Portal, 0, len(portals)+2)
	out = append(out, Portal{Left: from, Right: from})
	for _, e := range portals {
		// Регион лежит слева от своего ребра, поэтому при выходе через ребро
		// его конец оказывается слева, а начало справа
		out = append(out, Portal{Left: m.edges[e].Vertex, Right: m.Tail(e)})
	}
	out = append(out, Portal{Left: to, Right: to})
	return out
}

// StringPull сокращает коридор до кратчайшей натянутой ломаной (simple stupid funnel)
func StringPull(corridor []Portal) []vec.Vec3 {
	if len(corridor) == 0 {
		return nil
	}

	apex := corridor[0].Left
	left := corridor[0].Left
	right := corridor[0].Right
	apexIndex, leftIndex, rightIndex := 0, 0, 0

	path := []vec.Vec3{apex}
	push := func(p vec.Vec3) {
		if !path[len(path)-1].ApproxEqual(p, funnelEpsilon) {
			path = append(path, p)
		}
	}

	for i := 1; i < len(corridor); i++ {
		pl := corridor[i].Left
		pr := corridor[i].Right

		// правая граница
		if vec.Cross2(apex, right, pr) >= 0 {
			if apex.ApproxEqual(right, funnelEpsilon) || vec.Cross2(apex, left, pr) < 0 {
				right = pr
				rightIndex = i
			} else {
				push(left)
				apex = left
				apexIndex = leftIndex
				left, right = apex, apex
				leftIndex, rightIndex = apexIndex, apexIndex
				i = apexIndex
				continue
			}
		}

		// левая граница
		if vec.Cross2(apex, left, pl) <= 0 {
			if apex.ApproxEqual(left, funnelEpsilon) || vec.Cross2(apex, right, pl) > 0 {
				left = pl
				leftIndex = i
			} else {
				push(right)
				apex = right
				apexIndex = rightIndex
				left, right = apex, apex
				leftIndex, rightIndex = apexIndex, apexIndex
				i = apexIndex
				continue
			}
		}
	}

	push(corridor[len(corridor)-1].Left)
	return path
}

// PathLength возвращает длину ломаной
func PathLength(path []vec.Vec3) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].DistanceTo(path[i])
	}
	return total
}
