package eventbus

import (
	"errors"

	"github.com/annel0/mmo-sim/internal/vec"
)

// ErrBusClosed возвращается при публикации в закрытую шину
var ErrBusClosed = errors.New("шина событий закрыта")

// Типы событий жизненного цикла сессии
const (
	TypeEntitySpawned = "EntitySpawned"
	TypeEntityRemoved = "EntityRemoved"
	TypePlayerJoined  = "PlayerJoined"
	TypePlayerLeft    = "PlayerLeft"
)

// EntitySpawned - моб или предмет появился в сессии
type EntitySpawned struct {
	EntityID uint64   `json:"entity_id"`
	Kind     string   `json:"kind"`
	SpawnID  string   `json:"spawn_id"`
	Name     string   `json:"name,omitempty"`
	Position vec.Vec3 `json:"position"`
}

// EntityRemoved - сущность убрана из сессии
type EntityRemoved struct {
	EntityID uint64 `json:"entity_id"`
	Kind     string `json:"kind"`
	Reason   string `json:"reason"`
}

// PlayerJoined - игрок вошел в сессию
type PlayerJoined struct {
	EntityID uint64   `json:"entity_id"`
	UserID   uint64   `json:"user_id"`
	Name     string   `json:"name"`
	Position vec.Vec3 `json:"position"`
}

// PlayerLeft - игрок покинул сессию
type PlayerLeft struct {
	EntityID uint64   `json:"entity_id"`
	UserID   uint64   `json:"user_id"`
	Position vec.Vec3 `json:"position"`
}
