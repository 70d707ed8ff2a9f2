package navmesh

import (
	"math"

	"github.com/annel0/mmo-sim/internal/vec"
)

// gridIndex - равномерная сетка на плоскости XZ, ограничивающая кандидатов в поиске региона
type gridIndex struct {
	cellSize float64
	cells    map[vec.Vec2][]int
}

const gridPadding = 1e-4

func newGridIndex(regions []Region, cellSize float64) *gridIndex {
	if cellSize <= 0 {
		cellSize = autoCellSize(regions)
	}
	g := &gridIndex{
		cellSize: cellSize,
		cells:    make(map[vec.Vec2][]int),
	}
	for r, reg := range regions {
		lo := vec.CellOf(vec.Vec3{X: reg.MinX - gridPadding, Z: reg.MinZ - gridPadding}, cellSize)
		hi := vec.CellOf(vec.Vec3{X: reg.MaxX + gridPadding, Z: reg.MaxZ + gridPadding}, cellSize)
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				key := vec.Vec2{X: x, Y: y}
				g.cells[key] = append(g.cells[key], r)
			}
		}
	}
	return g
}

// autoCellSize берет удвоенный средний размер региона
func autoCellSize(regions []Region) float64 {
	if len(regions) == 0 {
		return 1
	}
	sum := 0.0
	for _, reg := range regions {
		sum += math.Max(reg.MaxX-reg.MinX, reg.MaxZ-reg.MinZ)
	}
	size := 2 * sum / float64(len(regions))
	if size < 1 {
		return 1
	}
	return size
}

// candidates возвращает регионы ячейки точки в порядке возрастания индекса
func (g *gridIndex) candidates(p vec.Vec3) []int {
	return g.cells[vec.CellOf(p, g.cellSize)]
}
