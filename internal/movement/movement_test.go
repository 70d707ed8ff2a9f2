package movement

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/navmesh"
	"github.com/annel0/mmo-sim/internal/vec"
)

type flatSurface struct {
	reject bool
}

func (f flatSurface) CheckPath(from, to vec.Vec3) bool { return !f.reject }

func (f flatSurface) SmoothHeight(p vec.Vec3, _ float64) vec.Vec3 {
	p.Y = 0
	return p
}

func (f flatSurface) SnapHeight(p vec.Vec3) vec.Vec3 {
	p.Y = 0
	return p
}

func squareMesh(t *testing.T, size float64) *navmesh.NavMesh {
	t.Helper()
	m, err := navmesh.Build([]navmesh.Polygon{{
		vec.New(0, 0, 0), vec.New(size, 0, 0), vec.New(size, 0, size), vec.New(0, 0, size),
	}}, navmesh.DefaultBuildOptions())
	require.NoError(t, err)
	return m
}

var testParams = Params{Speed: 0.5, HeightSmoothing: 1}

func TestApplyAcceptsAndRotates(t *testing.T) {
	res := Apply(flatSurface{}, vec.New(0, 0, 0), 0, Input{Seq: 1, Horizontal: 1}, testParams)
	assert.True(t, res.Accepted)
	assert.Equal(t, vec.New(0.5, 0, 0), res.Position)
	assert.InDelta(t, math.Pi/2, res.Rotation, 1e-9)

	res = Apply(flatSurface{}, vec.New(0, 0, 0), 1.25, Input{Seq: 2}, testParams)
	assert.Equal(t, 1.25, res.Rotation, "Нулевой ввод не меняет поворот")
}

func TestApplyClampsAxis(t *testing.T) {
	res := Apply(flatSurface{}, vec.New(0, 0, 0), 0, Input{Seq: 1, Horizontal: 50, Vertical: -3}, testParams)
	assert.Equal(t, vec.New(0.5, 0, -0.5), res.Position, "Оси ввода ограничены [-1, 1]")
}

func TestApplyRejectedKeepsPosition(t *testing.T) {
	start := vec.New(1, 0, 1)
	res := Apply(flatSurface{reject: true}, start, 0, Input{Seq: 1, Vertical: -1}, testParams)
	assert.False(t, res.Accepted)
	assert.Equal(t, start, res.Position)
	assert.InDelta(t, math.Pi, res.Rotation, 1e-9, "Поворот меняется даже при отклоненном шаге")
}

func TestResolverDropsStaleAndDuplicate(t *testing.T) {
	r := NewResolver(testParams)
	assert.True(t, r.Enqueue(Input{Seq: 1, Horizontal: 1}))
	assert.True(t, r.Enqueue(Input{Seq: 2, Horizontal: 1}))
	assert.False(t, r.Enqueue(Input{Seq: 2, Horizontal: 1}), "Повтор отбрасывается")
	assert.False(t, r.Enqueue(Input{Seq: 1, Horizontal: 1}), "Устаревший ввод отбрасывается")
	assert.True(t, r.Enqueue(Input{Seq: 5, Horizontal: 1}), "Пропуски номеров допустимы")

	pos, _, n := r.Resolve(flatSurface{}, vec.New(0, 0, 0), 0, 0)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 1.5, pos.X, 1e-9)
	last, ok := r.LastProcessed()
	require.True(t, ok)
	assert.Equal(t, uint32(5), last)

	assert.False(t, r.Enqueue(Input{Seq: 4}), "Номер меньше обработанного отбрасывается")
	_, dropped := r.Counters()
	assert.Equal(t, uint64(3), dropped)
}

func TestResolverRecordsRejectedSequence(t *testing.T) {
	m := squareMesh(t, 4)
	r := NewResolver(testParams)
	start := vec.New(3.9, 0, 2)

	require.True(t, r.Enqueue(Input{Seq: 7, Horizontal: 1}))
	pos, rot, n := r.Resolve(m, start, 0, 0)
	assert.Equal(t, 1, n)
	assert.Equal(t, start, pos, "Шаг за границу отклонен")
	assert.InDelta(t, math.Pi/2, rot, 1e-9)

	last, ok := r.LastProcessed()
	require.True(t, ok)
	assert.Equal(t, uint32(7), last, "Номер отклоненного ввода все равно зафиксирован")
	rejected, _ := r.Counters()
	assert.Equal(t, uint64(1), rejected)
}

func TestResolverRespectsLimit(t *testing.T) {
	r := NewResolver(testParams)
	for seq := uint32(1); seq <= 5; seq++ {
		r.Enqueue(Input{Seq: seq, Vertical: 1})
	}
	pos, _, n := r.Resolve(flatSurface{}, vec.Zero, 0, 2)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 1.0, pos.Z, 1e-9)
	assert.Equal(t, 3, r.Pending())
}

func TestReconcileMatchesServer(t *testing.T) {
	m := squareMesh(t, 10)
	start := vec.New(5, 0, 5)
	pred := NewPredictor(m, testParams, start)
	server := NewResolver(testParams)

	inputs := [][2]float64{{1, 0}, {1, 1}, {0, 1}, {-1, 0}, {0, -1}}
	for _, axes := range inputs {
		in := pred.ApplyLocal(axes[0], axes[1])
		server.Enqueue(in)
	}
	predicted := pred.Position()

	// сервер успел обработать только три ввода
	authPos, authRot, _ := server.Resolve(m, start, 0, 3)
	last, _ := server.LastProcessed()
	require.Equal(t, uint32(3), last)

	pred.Reconcile(authPos, authRot, last)
	assert.True(t, predicted.ApproxEqual(pred.Position(), 1e-9), "Повтор неподтвержденных вводов дает ту же позицию")
	assert.Len(t, pred.Pending(), 2)

	// повторная сверка с тем же номером ничего не меняет
	pred.Reconcile(authPos, authRot, last)
	assert.True(t, predicted.ApproxEqual(pred.Position(), 1e-9))
	assert.Len(t, pred.Pending(), 2)

	finalPos, finalRot, _ := server.Resolve(m, authPos, authRot, 0)
	last, _ = server.LastProcessed()
	pred.Reconcile(finalPos, finalRot, last)
	assert.Empty(t, pred.Pending())
	assert.True(t, finalPos.ApproxEqual(pred.Position(), 1e-9))
}

func TestReconcileWithRejectedInputs(t *testing.T) {
	m := squareMesh(t, 2)
	start := vec.New(1.8, 0, 1)
	pred := NewPredictor(m, testParams, start)
	server := NewResolver(testParams)

	for i := 0; i < 3; i++ {
		server.Enqueue(pred.ApplyLocal(1, 0))
	}
	assert.Equal(t, start, pred.Position(), "Клиент тоже упирается в границу")

	pos, rot, _ := server.Resolve(m, start, 0, 0)
	last, _ := server.LastProcessed()
	pred.Reconcile(pos, rot, last)
	assert.Empty(t, pred.Pending())
	assert.Equal(t, start, pred.Position())
}

func TestFollowWaypoints(t *testing.T) {
	pos := vec.New(0, 0, 0)
	waypoints := []vec.Vec3{vec.New(3, 0, 0.5), vec.New(3, 0, 6)}

	pos, waypoints = FollowWaypoints(flatSurface{}, pos, waypoints, 1)
	assert.Equal(t, vec.New(1, 0, 0.5), pos, "Каждая ось ограничена скоростью и не перескакивает цель")
	assert.Len(t, waypoints, 2)

	pos, waypoints = FollowWaypoints(flatSurface{}, pos, waypoints, 1)
	assert.Equal(t, vec.New(2, 0, 0.5), pos)
	assert.Len(t, waypoints, 1, "Точка в пределах допуска снимается")

	for i := 0; i < 10 && len(waypoints) > 0; i++ {
		pos, waypoints = FollowWaypoints(flatSurface{}, pos, waypoints, 1)
	}
	assert.Empty(t, waypoints)
	assert.LessOrEqual(t, pos.PlanarDistance(vec.New(3, 0, 6)), ArrivalTolerance)

	same, rest := FollowWaypoints(flatSurface{}, pos, nil, 1)
	assert.Equal(t, pos, same)
	assert.Empty(t, rest)
}
