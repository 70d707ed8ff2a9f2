package movement

import (
	"math"

	"github.com/annel0/mmo-sim/internal/vec"
)

// ArrivalTolerance - расстояние, на котором точка маршрута считается достигнутой
const ArrivalTolerance = 1.0

// Input - команда движения от клиента. Seq строго возрастает в пределах соединения.
type Input struct {
	Seq        uint32  `json:"seq"`
	Horizontal float64 `json:"h"`
	Vertical   float64 `json:"v"`
}

// Surface - то, что нужно движению от навмеша
type Surface interface {
	CheckPath(from, to vec.Vec3) bool
	SmoothHeight(p vec.Vec3, factor float64) vec.Vec3
	SnapHeight(p vec.Vec3) vec.Vec3
}

// Params - параметры шага, общие для клиента и сервера
type Params struct {
	Speed           float64 // единиц за один ввод
	HeightSmoothing float64 // доля расстояния до поверхности, (0,1]
}

// Result - итог применения одного ввода
type Result struct {
	Position vec.Vec3
	Rotation float64
	Accepted bool
}

func clampAxis(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// Step возвращает позицию-кандидата без проверок навмеша
func Step(pos vec.Vec3, in Input, speed float64) vec.Vec3 {
	pos.X += clampAxis(in.Horizontal) * speed
	pos.Z += clampAxis(in.Vertical) * speed
	return pos
}

// Rotation возвращает поворот по осям ввода и признак того, что ввод не нулевой
func Rotation(h, v float64) (float64, bool) {
	h, v = clampAxis(h), clampAxis(v)
	if h == 0 && v == 0 {
		return 0, false
	}
	return math.Atan2(h, v), true
}

// Apply применяет ввод одинаково на клиенте и сервере.
// Поворот меняется независимо от того, принят ли шаг.
func Apply(surface Surface, pos vec.Vec3, rot float64, in Input, p Params) Result {
	if r, ok := Rotation(in.Horizontal, in.Vertical); ok {
		rot = r
	}
	candidate := Step(pos, in, p.Speed)
	if !surface.CheckPath(pos, candidate) {
		return Result{Position: pos, Rotation: rot, Accepted: false}
	}
	return Result{
		Position: surface.SmoothHeight(candidate, p.HeightSmoothing),
		Rotation: rot,
		Accepted: true,
	}
}

func approach(from, to, step float64) float64 {
	if from < to {
		return math.Min(from+step, to)
	}
	return math.Max(from-step, to)
}

// FollowWaypoints сдвигает позицию к первой точке маршрута не более чем на speed по каждой оси.
// Высота ставится на поверхность, точка снимается с маршрута в пределах ArrivalTolerance.
func FollowWaypoints(surface Surface, pos vec.Vec3, waypoints []vec.Vec3, speed float64) (vec.Vec3, []vec.Vec3) {
	if len(waypoints) == 0 {
		return pos, waypoints
	}
	target := waypoints[0]
	pos.X = approach(pos.X, target.X, speed)
	pos.Z = approach(pos.Z, target.Z, speed)
	pos = surface.SnapHeight(pos)
	if pos.PlanarDistance(target) <= ArrivalTolerance {
		waypoints = waypoints[1:]
	}
	return pos, waypoints
}

// Heading возвращает поворот в сторону to
func Heading(from, to vec.Vec3) (float64, bool) {
	dx, dz := to.X-from.X, to.Z-from.Z
	if dx == 0 && dz == 0 {
		return 0, false
	}
	return math.Atan2(dx, dz), true
}
