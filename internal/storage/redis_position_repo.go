package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/vec"
)

// RedisPositionRepo хранит позиции игроков в Redis для быстрого доступа
type RedisPositionRepo struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// PlayerPosition - запись позиции в Redis
type PlayerPosition struct {
	UserID    uint64    `json:"user_id"`
	Position  vec.Vec3  `json:"position"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Addr      string        // Адрес Redis сервера
	Password  string        // Пароль (пустой если не требуется)
	DB        int           // Номер базы данных
	KeyPrefix string        // Префикс для ключей
	TTL       time.Duration // Время жизни записей, 0 - без срока
}

// DefaultRedisConfig возвращает конфигурацию по умолчанию
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "mmo:pos:",
		TTL:       30 * 24 * time.Hour,
	}
}

// NewRedisPositionRepo подключается к Redis и проверяет соединение
func NewRedisPositionRepo(cfg *RedisConfig) (*RedisPositionRepo, error) {
	if cfg == nil {
		cfg = DefaultRedisConfig()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.GetComponentLogger("storage").Info("🔴 Connected to Redis at %s", cfg.Addr)
	return &RedisPositionRepo{client: client, keyPrefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (r *RedisPositionRepo) key(userID uint64) string {
	return r.keyPrefix + strconv.FormatUint(userID, 10)
}

// Save сохраняет позицию игрока
func (r *RedisPositionRepo) Save(ctx context.Context, userID uint64, pos vec.Vec3) error {
	if err := validate(userID, pos); err != nil {
		return err
	}
	data, err := json.Marshal(PlayerPosition{UserID: userID, Position: pos, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Load получает позицию игрока
func (r *RedisPositionRepo) Load(ctx context.Context, userID uint64) (vec.Vec3, bool, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return vec.Vec3{}, false, nil // Позиция не найдена
	} else if err != nil {
		return vec.Vec3{}, false, fmt.Errorf("failed to get position: %w", err)
	}

	var rec PlayerPosition
	if err := json.Unmarshal(data, &rec); err != nil {
		return vec.Vec3{}, false, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return rec.Position, true, nil
}

// Delete удаляет позицию игрока
func (r *RedisPositionRepo) Delete(ctx context.Context, userID uint64) error {
	n, err := r.client.Del(ctx, r.key(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("позиция для пользователя %d не найдена", userID)
	}
	return nil
}

// BatchSave записывает позиции одним пайплайном
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[uint64]vec.Vec3) error {
	if len(positions) == 0 {
		return nil
	}

	now := time.Now().UTC()
	pipe := r.client.Pipeline()
	for userID, pos := range positions {
		if err := validate(userID, pos); err != nil {
			return err
		}
		data, err := json.Marshal(PlayerPosition{UserID: userID, Position: pos, UpdatedAt: now})
		if err != nil {
			return err
		}
		pipe.Set(ctx, r.key(userID), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisPositionRepo) Close() error {
	return r.client.Close()
}
