package vec

// Segment - отрезок между двумя точками
type Segment struct {
	A, B Vec3
}

// ProjectParam возвращает параметр t в [0,1] ближайшей к point точки отрезка на плоскости XZ
func (s Segment) ProjectParam(point Vec3) float64 {
	ab := s.B.Sub(s.A).Planar()
	lenSq := ab.LengthSq()
	if lenSq == 0 {
		return 0
	}
	t := point.Sub(s.A).Planar().Dot(ab) / lenSq
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// ClosestPoint - ближайшая к point точка отрезка (по проекции на XZ)
func (s Segment) ClosestPoint(point Vec3) Vec3 {
	return s.A.Lerp(s.B, s.ProjectParam(point))
}

// PlanarDistance - расстояние от точки до отрезка в проекции на XZ
func (s Segment) PlanarDistance(point Vec3) float64 {
	return s.ClosestPoint(point).PlanarDistance(point)
}
