package navmesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/vec"
)

func TestFindPathSameRegion(t *testing.T) {
	m, err := Build(gridPolys(1, 1, 4, nil), DefaultBuildOptions())
	require.NoError(t, err)

	from := vec.New(0.5, 0, 0.5)
	to := vec.New(3.5, 0, 3)
	assert.Equal(t, []vec.Vec3{from, to}, m.FindPath(from, to))
}

func TestFindPathAroundWall(t *testing.T) {
	for _, merge := range []bool{false, true} {
		opts := DefaultBuildOptions()
		opts.MergeConvexRegions = merge

		m, err := Build(gridPolys(5, 5, 2, wallHoles()), opts)
		require.NoError(t, err)

		from := vec.New(1, 0, 1)
		to := vec.New(9, 0, 1)
		path := m.FindPath(from, to)
		require.NotEmpty(t, path, "merge=%v", merge)

		assert.Equal(t, from, path[0], "Путь начинается в запрошенной точке")
		assert.Equal(t, to, path[len(path)-1], "Путь заканчивается в запрошенной точке")
		for i := 1; i < len(path); i++ {
			assert.True(t, segmentInside(m, path[i-1], path[i], 40),
				"Отрезок %v -> %v пересекает границу (merge=%v)", path[i-1], path[i], merge)
		}
		assert.Greater(t, PathLength(path), from.DistanceTo(to), "Путь обходит стену")
		if !merge {
			assert.Less(t, len(path), len(m.RegionChain(from, to)), "Воронка не дает точку на каждый регион")
		}
	}
}

func TestFunnelNotLongerThanCentroidPath(t *testing.T) {
	m, err := Build(gridPolys(5, 5, 2, wallHoles()), noMerge())
	require.NoError(t, err)

	pairs := [][2]vec.Vec3{
		{vec.New(1, 0, 1), vec.New(9, 0, 1)},
		{vec.New(0.5, 0, 7), vec.New(9.5, 0, 3)},
		{vec.New(3, 0, 9), vec.New(7, 0, 0.5)},
	}
	for _, pair := range pairs {
		from, to := pair[0], pair[1]
		chain := m.RegionChain(from, to)
		require.NotEmpty(t, chain)

		raw := []vec.Vec3{from}
		for _, r := range chain {
			raw = append(raw, m.Region(r).Centroid)
		}
		raw = append(raw, to)

		path := m.FindPath(from, to)
		require.NotEmpty(t, path)
		assert.LessOrEqual(t, PathLength(path), PathLength(raw)+1e-9)
	}
}

func TestFindPathUnreachable(t *testing.T) {
	m, err := Build(gridPolys(3, 1, 2, nil), noMerge())
	require.NoError(t, err)

	from := vec.New(0.5, 0, 1)
	to := vec.New(5.5, 0, 1.2)
	require.NotEmpty(t, m.FindPath(from, to))

	target, ok := m.RegionContaining(to, 0.1)
	require.True(t, ok)
	isolated := m.Isolate(target)

	assert.NotPanics(t, func() {
		assert.Empty(t, isolated.FindPath(from, to), "Отрезанный регион недостижим")
	})
	assert.NotEmpty(t, m.FindPath(from, to), "Исходный навмеш не меняется")
	assert.Less(t, isolated.Graph().EdgeCount(), m.Graph().EdgeCount())
}

func TestFindPathOffMesh(t *testing.T) {
	m, err := Build(gridPolys(2, 2, 2, nil), DefaultBuildOptions())
	require.NoError(t, err)

	assert.Empty(t, m.FindPath(vec.New(1, 0, 1), vec.New(8, 0, 8)))

	path := m.FindPathNearest(vec.New(1, 0, 1), vec.New(8, 0, 8))
	require.NotEmpty(t, path)
	assert.True(t, m.Contains(path[len(path)-1]))
}

func TestStringPullStraightCorridor(t *testing.T) {
	corridor := []Portal{
		{Left: vec.New(0, 0, 0), Right: vec.New(0, 0, 0)},
		{Left: vec.New(1, 0, 1), Right: vec.New(1, 0, -1)},
		{Left: vec.New(2, 0, 1), Right: vec.New(2, 0, -1)},
		{Left: vec.New(3, 0, 0), Right: vec.New(3, 0, 0)},
	}
	assert.Equal(t, []vec.Vec3{vec.New(0, 0, 0), vec.New(3, 0, 0)}, StringPull(corridor))
}

func TestStringPullBendsAtCorner(t *testing.T) {
	// Коридор поворачивает налево, угол (2,0,1) должен стать вершиной пути
	corridor := []Portal{
		{Left: vec.New(0, 0, 0), Right: vec.New(0, 0, 0)},
		{Left: vec.New(2, 0, 1), Right: vec.New(2, 0, -1)},
		{Left: vec.New(2, 0, 1), Right: vec.New(4, 0, 1)},
		{Left: vec.New(3, 0, 5), Right: vec.New(3, 0, 5)},
	}
	path := StringPull(corridor)
	require.Len(t, path, 3)
	assert.Equal(t, vec.New(2, 0, 1), path[1])
}

func TestClampMovement(t *testing.T) {
	m, err := Build(gridPolys(5, 5, 2, nil), DefaultBuildOptions())
	require.NoError(t, err)

	start := vec.New(9, 0, 5)

	inside := vec.New(8, 0, 6)
	assert.Equal(t, inside, m.ClampMovement(start, inside), "Шаг внутри сетки не меняется")

	through := vec.New(12, 0, 7)
	got := m.ClampMovement(start, through)
	assert.True(t, m.Contains(got), "Результат остается на навмеше")
	assert.LessOrEqual(t, start.DistanceTo(got), start.DistanceTo(through)+1e-9, "Нет скачка")
	assert.InDelta(t, 9.0, got.X, 1e-9, "Скольжение вдоль стены x=10")
	assert.InDelta(t, 7.0, got.Z, 1e-9)

	corner := vec.New(9.5, 0, 9.5)
	out := vec.New(13, 0, 13)
	got = m.ClampMovement(corner, out)
	assert.True(t, m.Contains(got))
	assert.LessOrEqual(t, corner.DistanceTo(got), corner.DistanceTo(out)+1e-9)
}
