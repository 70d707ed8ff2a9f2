package ai

import (
	"time"

	"github.com/annel0/mmo-sim/internal/vec"
)

// PatrolType задает, как моб выбирает точку патрулирования
type PatrolType string

const (
	PatrolStatic PatrolType = "static" // стоит на месте
	PatrolGlobal PatrolType = "global" // случайная точка всего навмеша
	PatrolArea   PatrolType = "area"   // случайная точка из набора
	PatrolPath   PatrolType = "path"   // точки набора по порядку
)

// AbilityChance - способность моба и ее вес при выборе
type AbilityChance struct {
	ID     string  `yaml:"id" json:"id"`
	Chance float64 `yaml:"chance" json:"chance"`
}

// SpawnDef - описание точки появления, параметризует поведение моба
type SpawnDef struct {
	ID           string          `yaml:"id" json:"id"`
	Name         string          `yaml:"name" json:"name"`
	Patrol       PatrolType      `yaml:"patrol" json:"patrol"`
	Position     vec.Vec3        `yaml:"position" json:"position"`
	Points       []vec.Vec3      `yaml:"points" json:"points,omitempty"`
	Aggressive   bool            `yaml:"aggressive" json:"aggressive"`
	Interactable bool            `yaml:"interactable" json:"interactable"`
	Dialog       string          `yaml:"dialog" json:"dialog,omitempty"`
	Abilities    []AbilityChance `yaml:"abilities" json:"abilities,omitempty"`
	MaxHealth    float64         `yaml:"max_health" json:"max_health"`
	MaxMana      float64         `yaml:"max_mana" json:"max_mana"`
	// Скорость за тик, 0 - значение из настроек
	Speed        float64       `yaml:"speed" json:"speed"`
	RespawnDelay time.Duration `yaml:"respawn_delay" json:"respawn_delay"`
}

// Tuning - общие для всех мобов пороги и таймеры
type Tuning struct {
	AggroDistance       float64
	AttackDistance      float64
	ChaseTimeout        time.Duration
	AttackInterval      time.Duration
	DeathDelay          time.Duration
	IdleMin             time.Duration
	IdleMax             time.Duration
	PatrolAbandonChance float64 // вероятность бросить патруль за тик
	Speed               float64 // единиц за тик
}

// DefaultTuning возвращает значения по умолчанию
func DefaultTuning() Tuning {
	return Tuning{
		AggroDistance:       5,
		AttackDistance:      2.5,
		ChaseTimeout:        8 * time.Second,
		AttackInterval:      1500 * time.Millisecond,
		DeathDelay:          5 * time.Second,
		IdleMin:             time.Second,
		IdleMax:             4 * time.Second,
		PatrolAbandonChance: 0.002,
		Speed:               0.15,
	}
}
