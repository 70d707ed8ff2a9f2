package ai

import (
	"math/rand"
	"time"

	"github.com/annel0/mmo-sim/internal/movement"
	"github.com/annel0/mmo-sim/internal/targeting"
	"github.com/annel0/mmo-sim/internal/vec"
)

// Anim - флаг анимации для клиентов
type Anim string

const (
	AnimIdle   Anim = "idle"
	AnimWalk   Anim = "walk"
	AnimAttack Anim = "attack"
	AnimDeath  Anim = "death"
)

// Navigator - то, что нужно ИИ от навмеша
type Navigator interface {
	movement.Surface
	FindPath(from, to vec.Vec3) []vec.Vec3
	RandomPoint(rng *rand.Rand) vec.Vec3
}

// WorldAPI - интерфейс сессии для состояний ИИ
type WorldAPI interface {
	Nav() Navigator
	Target(id uint64) (targeting.Target, bool)
	// NearestPlayer возвращает ближайшего живого игрока
	NearestPlayer(pos vec.Vec3) (uint64, float64, bool)
	CastAbility(caster *Brain, abilityID string, targetID uint64)
	Despawn(b *Brain)
	Rand() *rand.Rand
	Tuning() Tuning
}

// Brain - моб под управлением конечного автомата
type Brain struct {
	ID        uint64
	Spawn     *SpawnDef
	Position  vec.Vec3
	Rotation  float64
	Health    float64
	MaxHealth float64
	Mana      float64
	MaxMana   float64
	Waypoints []vec.Vec3
	TargetID  uint64

	// Ближайший живой игрок, обновляется каждый тик без цели
	NearestPlayerID   uint64
	NearestPlayerDist float64

	Blocked     bool
	Anim        Anim
	PatrolIndex int
	Despawned   bool

	state State
}

// NewBrain создает моба в точке появления
func NewBrain(id uint64, spawn *SpawnDef) *Brain {
	return &Brain{
		ID:        id,
		Spawn:     spawn,
		Position:  spawn.Position,
		Health:    spawn.MaxHealth,
		MaxHealth: spawn.MaxHealth,
		Mana:      spawn.MaxMana,
		MaxMana:   spawn.MaxMana,
		Anim:      AnimIdle,
	}
}

// State возвращает текущее состояние
func (b *Brain) State() State {
	return b.state
}

// StateName возвращает имя текущего состояния
func (b *Brain) StateName() StateName {
	if b.state == nil {
		return ""
	}
	return b.state.Name()
}

// IsDead сообщает, что моб в состоянии Dead
func (b *Brain) IsDead() bool {
	return b.StateName() == StateDead
}

// Update выполняет один тик автомата
func (b *Brain) Update(w WorldAPI, dt time.Duration) {
	if b.state == nil {
		b.SetState(NewIdleState(), w)
	}
	if b.Health <= 0 && !b.IsDead() {
		b.SetState(NewDeadState(), w)
	}

	if b.TargetID == 0 && !b.IsDead() {
		b.refreshNearest(w)
	}

	next := b.state.Update(b, w, dt)
	if next != b.state {
		b.state.Exit(b, w)
		b.state = next
		b.state.Enter(b, w)
	}
}

// SetState принудительно переключает состояние
func (b *Brain) SetState(s State, w WorldAPI) {
	if b.state != nil {
		b.state.Exit(b, w)
	}
	b.state = s
	if b.state != nil {
		b.state.Enter(b, w)
	}
}

// ApplyDelta применяет изменения здоровья и маны от боевой системы
func (b *Brain) ApplyDelta(health, mana float64, w WorldAPI) {
	if b.IsDead() {
		return
	}
	b.Health = clamp(b.Health+health, 0, b.MaxHealth)
	b.Mana = clamp(b.Mana+mana, 0, b.MaxMana)
	if b.Health <= 0 {
		b.SetState(NewDeadState(), w)
	}
}

// Speed возвращает скорость моба за тик
func (b *Brain) Speed(t Tuning) float64 {
	if b.Spawn != nil && b.Spawn.Speed > 0 {
		return b.Spawn.Speed
	}
	return t.Speed
}

func (b *Brain) refreshNearest(w WorldAPI) {
	id, dist, ok := w.NearestPlayer(b.Position)
	if !ok {
		b.NearestPlayerID = 0
		b.NearestPlayerDist = 0
		return
	}
	b.NearestPlayerID = id
	b.NearestPlayerDist = dist
}

// acquireTarget берет ближайшего игрока в цель, если моб агрессивен и игрок в радиусе агро
func (b *Brain) acquireTarget(t Tuning) bool {
	if b.Spawn == nil || !b.Spawn.Aggressive || b.NearestPlayerID == 0 {
		return false
	}
	if b.NearestPlayerDist > t.AggroDistance {
		return false
	}
	b.TargetID = b.NearestPlayerID
	return true
}

// step двигает моба по маршруту и разворачивает по ходу движения
func (b *Brain) step(w WorldAPI) {
	prev := b.Position
	b.Position, b.Waypoints = movement.FollowWaypoints(w.Nav(), b.Position, b.Waypoints, b.Speed(w.Tuning()))
	if rot, ok := movement.Heading(prev, b.Position); ok {
		b.Rotation = rot
	}
}

func (b *Brain) face(p vec.Vec3) {
	if rot, ok := movement.Heading(b.Position, p); ok {
		b.Rotation = rot
	}
}

// target возвращает живую цель или false
func (b *Brain) target(w WorldAPI) (targeting.Target, bool) {
	if b.TargetID == 0 {
		return nil, false
	}
	t, ok := w.Target(b.TargetID)
	if !ok || !t.Alive() {
		return nil, false
	}
	return t, true
}

// setPath заменяет маршрут, отбрасывая первую точку (текущую позицию)
func (b *Brain) setPath(path []vec.Vec3) bool {
	if len(path) == 0 {
		b.Waypoints = nil
		return false
	}
	b.Waypoints = append(b.Waypoints[:0], path[1:]...)
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
