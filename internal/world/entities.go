package world

import (
	"time"

	"github.com/annel0/mmo-sim/internal/ai"
	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/movement"
	"github.com/annel0/mmo-sim/internal/targeting"
	"github.com/annel0/mmo-sim/internal/vec"
)

// Player - подключенный игрок. Меняется только в горутине тика.
type Player struct {
	ID        uint64
	UserID    uint64
	Name      string
	Pos       vec.Vec3
	Rot       float64
	Health    float64
	MaxHealth float64
	Mana      float64
	MaxMana   float64
	Waypoints []vec.Vec3
	Target    targeting.State
	Items     map[string]int

	resolver  *movement.Resolver
	cooldowns map[string]time.Duration
	deadFor   time.Duration
}

// Alive сообщает, что игрок жив
func (p *Player) Alive() bool {
	return p.Health > 0
}

// Pickup - предмет на карте
type Pickup struct {
	ID  uint64
	Def *content.PickupDef
	Pos vec.Vec3
}

// Цели для контроллера наведения и ИИ

type playerTarget struct{ p *Player }

func (t playerTarget) ID() uint64           { return t.p.ID }
func (t playerTarget) Kind() targeting.Kind { return targeting.KindPlayer }
func (t playerTarget) Position() vec.Vec3   { return t.p.Pos }
func (t playerTarget) IsRemovable() bool    { return false }
func (t playerTarget) Alive() bool          { return t.p.Alive() }

type brainTarget struct{ b *ai.Brain }

func (t brainTarget) ID() uint64           { return t.b.ID }
func (t brainTarget) Kind() targeting.Kind { return targeting.KindBrain }
func (t brainTarget) Position() vec.Vec3   { return t.b.Position }
func (t brainTarget) IsRemovable() bool    { return false }
func (t brainTarget) Alive() bool          { return !t.b.IsDead() && !t.b.Despawned }

type pickupTarget struct{ p *Pickup }

func (t pickupTarget) ID() uint64           { return t.p.ID }
func (t pickupTarget) Kind() targeting.Kind { return targeting.KindPickup }
func (t pickupTarget) Position() vec.Vec3   { return t.p.Pos }
func (t pickupTarget) IsRemovable() bool    { return true }
func (t pickupTarget) Alive() bool          { return true }

// EntityState - состояние сущности в снимке
type EntityState struct {
	ID        uint64   `json:"id"`
	Kind      string   `json:"kind"`
	Name      string   `json:"name,omitempty"`
	Position  vec.Vec3 `json:"pos"`
	Rotation  float64  `json:"rot"`
	Health    float64  `json:"hp,omitempty"`
	MaxHealth float64  `json:"max_hp,omitempty"`
	Mana      float64  `json:"mp,omitempty"`
	MaxMana   float64  `json:"max_mp,omitempty"`
	State     string   `json:"state,omitempty"`
	Anim      string   `json:"anim,omitempty"`
	Item      string   `json:"item,omitempty"`
}

func (p *Player) state() EntityState {
	st := "alive"
	if !p.Alive() {
		st = "dead"
	}
	return EntityState{
		ID:        p.ID,
		Kind:      targeting.KindPlayer.String(),
		Name:      p.Name,
		Position:  p.Pos,
		Rotation:  p.Rot,
		Health:    p.Health,
		MaxHealth: p.MaxHealth,
		Mana:      p.Mana,
		MaxMana:   p.MaxMana,
		State:     st,
	}
}

func brainState(b *ai.Brain) EntityState {
	name := ""
	if b.Spawn != nil {
		name = b.Spawn.Name
	}
	return EntityState{
		ID:        b.ID,
		Kind:      targeting.KindBrain.String(),
		Name:      name,
		Position:  b.Position,
		Rotation:  b.Rotation,
		Health:    b.Health,
		MaxHealth: b.MaxHealth,
		Mana:      b.Mana,
		MaxMana:   b.MaxMana,
		State:     string(b.StateName()),
		Anim:      string(b.Anim),
	}
}

func (p *Pickup) state() EntityState {
	return EntityState{
		ID:       p.ID,
		Kind:     targeting.KindPickup.String(),
		Position: p.Pos,
		Item:     p.Def.Item,
	}
}
