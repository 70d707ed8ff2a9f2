package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/annel0/mmo-sim/internal/vec"
)

// MemoryPositionRepo реализует PositionRepo в памяти.
// Используется как fallback, когда внешнее хранилище недоступно,
// или для CI/локальной разработки без БД.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPositionRepo struct {
	mu   sync.RWMutex
	data map[uint64]vec.Vec3 // userID -> позиция
}

// NewMemoryPositionRepo создает новый репозиторий позиций в памяти.
func NewMemoryPositionRepo() *MemoryPositionRepo {
	return &MemoryPositionRepo{
		data: make(map[uint64]vec.Vec3),
	}
}

// Save сохраняет позицию игрока в памяти.
func (r *MemoryPositionRepo) Save(ctx context.Context, userID uint64, pos vec.Vec3) error {
	if err := validate(userID, pos); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[userID] = pos
	return nil
}

// Load загружает позицию игрока из памяти.
func (r *MemoryPositionRepo) Load(ctx context.Context, userID uint64) (vec.Vec3, bool, error) {
	if userID == 0 {
		return vec.Vec3{}, false, fmt.Errorf("недействительный userID: %d", userID)
	}
	if err := ctx.Err(); err != nil {
		return vec.Vec3{}, false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, exists := r.data[userID]
	return pos, exists, nil
}

// Delete удаляет сохраненную позицию игрока из памяти.
func (r *MemoryPositionRepo) Delete(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.data[userID]; !exists {
		return fmt.Errorf("позиция для пользователя %d не найдена", userID)
	}
	delete(r.data, userID)
	return nil
}

// BatchSave сохраняет позиции нескольких игроков. Либо все, либо ничего.
func (r *MemoryPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Vec3) error {
	if len(positions) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for userID, pos := range positions {
		if err := validate(userID, pos); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, pos := range positions {
		r.data[userID] = pos
	}
	return nil
}

// Count возвращает количество сохраненных позиций (для отладки).
func (r *MemoryPositionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close ничего не делает
func (r *MemoryPositionRepo) Close() error {
	return nil
}
