package world

import (
	"math"

	"github.com/annel0/mmo-sim/internal/vec"
)

// SpatialIndex - равномерная сетка для поиска ближайших игроков.
// Принадлежит горутине тика, блокировок нет.
type SpatialIndex struct {
	cellSize float64
	cells    map[vec.Vec2]map[uint64]vec.Vec3
	where    map[uint64]vec.Vec2
	minCell  vec.Vec2
	maxCell  vec.Vec2
}

// NewSpatialIndex создаёт индекс с заданным размером ячейки
func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 {
		cellSize = 8
	}
	return &SpatialIndex{
		cellSize: cellSize,
		cells:    make(map[vec.Vec2]map[uint64]vec.Vec3),
		where:    make(map[uint64]vec.Vec2),
	}
}

// Len возвращает число сущностей
func (si *SpatialIndex) Len() int {
	return len(si.where)
}

// Update добавляет сущность или переносит ее в новую ячейку
func (si *SpatialIndex) Update(id uint64, pos vec.Vec3) {
	c := vec.CellOf(pos, si.cellSize)
	if old, ok := si.where[id]; ok && old != c {
		si.removeFromCell(old, id)
	}
	bucket, ok := si.cells[c]
	if !ok {
		bucket = make(map[uint64]vec.Vec3)
		si.cells[c] = bucket
	}
	bucket[id] = pos
	si.where[id] = c

	if len(si.where) == 1 {
		si.minCell, si.maxCell = c, c
		return
	}
	si.minCell = vec.Vec2{X: min(si.minCell.X, c.X), Y: min(si.minCell.Y, c.Y)}
	si.maxCell = vec.Vec2{X: max(si.maxCell.X, c.X), Y: max(si.maxCell.Y, c.Y)}
}

// Remove удаляет сущность
func (si *SpatialIndex) Remove(id uint64) {
	c, ok := si.where[id]
	if !ok {
		return
	}
	si.removeFromCell(c, id)
	delete(si.where, id)
}

func (si *SpatialIndex) removeFromCell(c vec.Vec2, id uint64) {
	bucket := si.cells[c]
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(si.cells, c)
	}
}

// Nearest ищет ближайшую сущность, для которой accept возвращает true.
// Ячейки обходятся кольцами, поиск останавливается, когда кольцо дальше лучшего кандидата.
func (si *SpatialIndex) Nearest(pos vec.Vec3, accept func(id uint64) bool) (uint64, float64, bool) {
	if len(si.where) == 0 {
		return 0, 0, false
	}
	center := vec.CellOf(pos, si.cellSize)
	maxRing := max(
		abs(center.X-si.minCell.X), abs(center.X-si.maxCell.X),
		abs(center.Y-si.minCell.Y), abs(center.Y-si.maxCell.Y),
	)

	var bestID uint64
	best := math.Inf(1)
	for r := 0; r <= maxRing; r++ {
		// ближайшая точка кольца r не ближе (r-1) ячеек
		if float64(r-1)*si.cellSize > best {
			break
		}
		for x := center.X - r; x <= center.X+r; x++ {
			for y := center.Y - r; y <= center.Y+r; y++ {
				if abs(x-center.X) != r && abs(y-center.Y) != r {
					continue
				}
				for id, p := range si.cells[vec.Vec2{X: x, Y: y}] {
					if accept != nil && !accept(id) {
						continue
					}
					d := pos.DistanceTo(p)
					if d < best || (d == best && id < bestID) {
						best, bestID = d, id
					}
				}
			}
		}
	}
	if math.IsInf(best, 1) {
		return 0, 0, false
	}
	return bestID, best, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
