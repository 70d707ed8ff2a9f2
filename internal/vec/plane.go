package vec

import (
	"errors"
	"math"
)

// ErrVerticalPlane возвращается, если высоту нельзя выразить через X и Z
var ErrVerticalPlane = errors.New("vertical plane")

// Plane задается нормалью и смещением: Normal·p + D = 0
type Plane struct {
	Normal Vec3
	D      float64
}

// PlaneFromPoints строит плоскость по трем точкам. Нормаль ориентирована вверх (Y >= 0).
func PlaneFromPoints(a, b, c Vec3) (Plane, bool) {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Length() < Epsilon {
		return Plane{}, false
	}
	n = n.Normalized()
	if n.Y < 0 {
		n = n.Mul(-1)
	}
	return Plane{Normal: n, D: -n.Dot(a)}, true
}

// SignedDistance - расстояние со знаком от точки до плоскости
func (p Plane) SignedDistance(point Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// IsVertical сообщает, что плоскость параллельна оси Y
func (p Plane) IsVertical() bool {
	return math.Abs(p.Normal.Y) < 1e-3
}

// HeightAt возвращает высоту плоскости в точке (x, z)
func (p Plane) HeightAt(x, z float64) (float64, error) {
	if p.IsVertical() {
		return 0, ErrVerticalPlane
	}
	return -(p.Normal.X*x + p.Normal.Z*z + p.D) / p.Normal.Y, nil
}

// VerticalDistance - расстояние по Y от точки до плоскости
func (p Plane) VerticalDistance(point Vec3) float64 {
	h, err := p.HeightAt(point.X, point.Z)
	if err != nil {
		return math.Inf(1)
	}
	return math.Abs(point.Y - h)
}

// Project проецирует точку на плоскость по нормали
func (p Plane) Project(point Vec3) Vec3 {
	return point.Sub(p.Normal.Mul(p.SignedDistance(point)))
}
