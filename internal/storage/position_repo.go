package storage

import (
	"context"
	"fmt"
	"math"

	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/vec"
)

// PositionRepo определяет интерфейс для сохранения и загрузки позиций игроков.
// Позиции привязаны к UserID (постоянный идентификатор аккаунта), а не к EntityID.
// Это позволяет вернуть игрока в ту же точку при следующем входе.
type PositionRepo interface {
	// Save сохраняет позицию игрока
	Save(ctx context.Context, userID uint64, pos vec.Vec3) error

	// Load загружает позицию игрока. false - первый вход.
	Load(ctx context.Context, userID uint64) (vec.Vec3, bool, error)

	// Delete удаляет сохраненную позицию игрока (для тестов или сброса)
	Delete(ctx context.Context, userID uint64) error

	// BatchSave сохраняет позиции нескольких игроков одновременно (для автосохранения)
	BatchSave(ctx context.Context, positions map[uint64]vec.Vec3) error

	Close() error
}

// validate проверяет идентификатор и координаты
func validate(userID uint64, pos vec.Vec3) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}
	for _, c := range []float64{pos.X, pos.Y, pos.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("недействительная позиция для пользователя %d: %+v", userID, pos)
		}
	}
	return nil
}

// NewPositionRepo создает репозиторий по настройкам.
// Если внешнее хранилище недоступно, используется память.
func NewPositionRepo(cfg config.StorageConfig) PositionRepo {
	log := logging.GetComponentLogger("storage")
	switch cfg.Backend {
	case "redis":
		rc := DefaultRedisConfig()
		if cfg.RedisURL != "" {
			rc.Addr = cfg.RedisURL
		}
		repo, err := NewRedisPositionRepo(rc)
		if err == nil {
			return repo
		}
		log.Warn("Redis недоступен, позиции хранятся в памяти: %v", err)
	case "maria":
		repo, err := NewMariaPositionRepo(cfg.MariaDSN)
		if err == nil {
			return repo
		}
		log.Warn("MariaDB недоступна, позиции хранятся в памяти: %v", err)
	}
	return NewMemoryPositionRepo()
}
