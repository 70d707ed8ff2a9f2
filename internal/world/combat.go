package world

import (
	"time"

	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/vec"
)

// CastRequest - запрос на применение способности
type CastRequest struct {
	CasterID   uint64
	AbilityID  string
	TargetID   uint64 // 0 - без цели
	CasterPos  vec.Vec3
	TargetPos  vec.Vec3
	CasterMana float64
}

// Delta - изменение здоровья и маны одной сущности
type Delta struct {
	EntityID uint64
	Health   float64
	Mana     float64
}

// CastResult - итог применения. Reason заполнен, если OK == false.
type CastResult struct {
	OK       bool
	Reason   string
	Deltas   []Delta
	Cooldown time.Duration
}

// Причины отказа
const (
	ReasonUnknownAbility = "unknown_ability"
	ReasonNoTarget       = "no_target"
	ReasonOutOfRange     = "out_of_range"
	ReasonNoMana         = "no_mana"
	ReasonCooldown       = "cooldown"
	ReasonDead           = "dead"
	ReasonEmptySlot      = "empty_slot"
)

// CombatResolver считает эффект способности. Сессия только применяет дельты.
type CombatResolver interface {
	Cast(req CastRequest) CastResult
}

// AbilityBook - табличный CombatResolver по способностям карты
type AbilityBook struct {
	abilities map[string]content.AbilityDef
}

// NewAbilityBook строит таблицу способностей
func NewAbilityBook(defs []content.AbilityDef) *AbilityBook {
	book := &AbilityBook{abilities: make(map[string]content.AbilityDef, len(defs))}
	for _, d := range defs {
		book.abilities[d.ID] = d
	}
	return book
}

// Ability возвращает описание способности
func (b *AbilityBook) Ability(id string) (content.AbilityDef, bool) {
	d, ok := b.abilities[id]
	return d, ok
}

// Cast проверяет цель, дистанцию и ману и возвращает дельты
func (b *AbilityBook) Cast(req CastRequest) CastResult {
	def, ok := b.abilities[req.AbilityID]
	if !ok {
		return CastResult{Reason: ReasonUnknownAbility}
	}
	if def.Damage > 0 {
		if req.TargetID == 0 {
			return CastResult{Reason: ReasonNoTarget}
		}
		if def.Range > 0 && req.CasterPos.DistanceTo(req.TargetPos) > def.Range {
			return CastResult{Reason: ReasonOutOfRange}
		}
	}
	if req.CasterMana < def.ManaCost {
		return CastResult{Reason: ReasonNoMana}
	}

	res := CastResult{OK: true, Cooldown: def.Cooldown}
	if def.ManaCost > 0 || def.Heal > 0 {
		res.Deltas = append(res.Deltas, Delta{EntityID: req.CasterID, Health: def.Heal, Mana: -def.ManaCost})
	}
	if def.Damage > 0 {
		res.Deltas = append(res.Deltas, Delta{EntityID: req.TargetID, Health: -def.Damage})
	}
	return res
}
