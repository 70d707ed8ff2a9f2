package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/vec"
)

// TestMemoryPositionRepo тестирует in-memory репозиторий позиций
func TestMemoryPositionRepo(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		expected := vec.New(10.5, 1.25, -3)
		require.NoError(t, repo.Save(ctx, 123, expected))

		actual, found, err := repo.Load(ctx, 123)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, expected, actual)
	})

	t.Run("Load Non-Existent User", func(t *testing.T) {
		pos, found, err := repo.Load(ctx, 999)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, vec.Vec3{}, pos)
	})

	t.Run("Update Position", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, 456, vec.New(1, 2, 3)))
		require.NoError(t, repo.Save(ctx, 456, vec.New(4, 5, 6)))

		actual, _, err := repo.Load(ctx, 456)
		require.NoError(t, err)
		assert.Equal(t, vec.New(4, 5, 6), actual)
	})

	t.Run("Invalid Input", func(t *testing.T) {
		assert.Error(t, repo.Save(ctx, 0, vec.Zero))
		assert.Error(t, repo.Save(ctx, 1, vec.New(math.NaN(), 0, 0)))
		assert.Error(t, repo.Save(ctx, 1, vec.New(0, math.Inf(1), 0)))
		_, _, err := repo.Load(ctx, 0)
		assert.Error(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, 789, vec.New(1, 0, 1)))
		require.NoError(t, repo.Delete(ctx, 789))
		_, found, err := repo.Load(ctx, 789)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Error(t, repo.Delete(ctx, 789))
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, repo.Save(cctx, 5, vec.Zero), context.Canceled)
	})
}

func TestMemoryPositionRepoBatchSave(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	require.NoError(t, repo.BatchSave(ctx, nil))
	require.NoError(t, repo.BatchSave(ctx, map[uint64]vec.Vec3{
		1: vec.New(1, 0, 1),
		2: vec.New(2, 0, 2),
	}))
	assert.Equal(t, 2, repo.Count())

	err := repo.BatchSave(ctx, map[uint64]vec.Vec3{
		3: vec.New(3, 0, 3),
		0: vec.New(0, 0, 0),
	})
	assert.Error(t, err)
	assert.Equal(t, 2, repo.Count(), "Ошибочный батч не сохраняется частично")
}

func TestNewPositionRepoFallsBackToMemory(t *testing.T) {
	repo := NewPositionRepo(config.StorageConfig{Backend: "memory"})
	_, ok := repo.(*MemoryPositionRepo)
	assert.True(t, ok)

	repo = NewPositionRepo(config.StorageConfig{Backend: "maria", MariaDSN: "user:pass@tcp(127.0.0.1:1)/none"})
	_, ok = repo.(*MemoryPositionRepo)
	assert.True(t, ok, "Недоступная БД заменяется памятью")
}
