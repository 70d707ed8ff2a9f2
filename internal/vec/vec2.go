package vec

import "math"

// Vec2 представляет целочисленные координаты ячейки на плоскости XZ
type Vec2 struct {
	X, Y int
}

// CellOf возвращает ячейку сетки с размером cell, в которую попадает точка
func CellOf(p Vec3, cell float64) Vec2 {
	return Vec2{X: int(math.Floor(p.X / cell)), Y: int(math.Floor(p.Z / cell))}
}
