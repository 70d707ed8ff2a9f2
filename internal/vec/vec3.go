package vec

import "math"

// Epsilon - допуск сравнения координат по умолчанию
const Epsilon = 1e-6

// Vec3 представляет точку или вектор в мировом пространстве.
// Y направлена вверх, ходимая плоскость - XZ.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Zero - нулевой вектор
var Zero = Vec3{}

// New создает вектор из координат
func New(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub вычитает вектор
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Mul умножает вектор на скаляр
func (v Vec3) Mul(scalar float64) Vec3 {
	return Vec3{X: v.X * scalar, Y: v.Y * scalar, Z: v.Z * scalar}
}

// Dot - скалярное произведение
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross - векторное произведение
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// LengthSq возвращает квадрат длины
func (v Vec3) LengthSq() float64 {
	return v.Dot(v)
}

// Length возвращает длину вектора
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// Normalized возвращает нормализованный вектор
func (v Vec3) Normalized() Vec3 {
	length := v.Length()
	if length == 0 {
		return Zero
	}
	return v.Mul(1 / length)
}

// DistanceTo возвращает расстояние до другой точки
func (v Vec3) DistanceTo(other Vec3) float64 {
	return math.Sqrt(v.DistanceSq(other))
}

// DistanceSq возвращает квадрат расстояния
func (v Vec3) DistanceSq(other Vec3) float64 {
	return v.Sub(other).LengthSq()
}

// PlanarDistance - расстояние в проекции на XZ
func (v Vec3) PlanarDistance(other Vec3) float64 {
	dx := v.X - other.X
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// ApproxEqual сравнивает векторы покомпонентно с допуском eps
func (v Vec3) ApproxEqual(other Vec3, eps float64) bool {
	return math.Abs(v.X-other.X) <= eps &&
		math.Abs(v.Y-other.Y) <= eps &&
		math.Abs(v.Z-other.Z) <= eps
}

// Lerp линейно интерполирует между v и other
func (v Vec3) Lerp(other Vec3, t float64) Vec3 {
	return v.Add(other.Sub(v).Mul(t))
}

// Planar обнуляет высоту
func (v Vec3) Planar() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// Cross2 - ориентированная площадь треугольника (o, a, b) в проекции на XZ.
// Положительна, если b лежит слева от луча o->a при взгляде сверху вдоль -Y
// в системе координат, где X вправо, а Z вверх.
func Cross2(o, a, b Vec3) float64 {
	return (a.X-o.X)*(b.Z-o.Z) - (a.Z-o.Z)*(b.X-o.X)
}
