package navmesh

import "github.com/annel0/mmo-sim/internal/vec"

type cell struct{ x, z int }

// gridPolys строит карту из клеток size x size, каждая клетка - два треугольника
func gridPolys(cols, rows int, size float64, holes map[cell]bool) []Polygon {
	polys := make([]Polygon, 0, cols*rows*2)
	for x := 0; x < cols; x++ {
		for z := 0; z < rows; z++ {
			if holes[cell{x, z}] {
				continue
			}
			x0, z0 := float64(x)*size, float64(z)*size
			x1, z1 := x0+size, z0+size
			a := vec.New(x0, 0, z0)
			b := vec.New(x1, 0, z0)
			c := vec.New(x1, 0, z1)
			d := vec.New(x0, 0, z1)
			polys = append(polys, Polygon{a, b, c}, Polygon{a, c, d})
		}
	}
	return polys
}

// wallHoles - стена в колонке 2, проход только в верхнем ряду
func wallHoles() map[cell]bool {
	return map[cell]bool{{2, 0}: true, {2, 1}: true, {2, 2}: true, {2, 3}: true}
}

// segmentInside проверяет отрезок по набору промежуточных точек
func segmentInside(m *NavMesh, a, b vec.Vec3, samples int) bool {
	for i := 0; i <= samples; i++ {
		if !m.Contains(a.Lerp(b, float64(i)/float64(samples))) {
			return false
		}
	}
	return true
}
