package world

import (
	"math"
	"time"

	"github.com/annel0/mmo-sim/internal/ai"
	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/targeting"
)

// spawnSlot - запись таблицы спавна: либо моб, либо предмет
type spawnSlot struct {
	kind      targeting.Kind
	brain     *ai.SpawnDef
	pickup    *content.PickupDef
	entityID  uint64 // 0 - сущность не активна
	respawnAt time.Duration
}

// Spawner активирует записи таблицы и возвращает убранные сущности через RespawnDelay
type Spawner struct {
	slots    []*spawnSlot
	byEntity map[uint64]*spawnSlot
}

// NewSpawner строит таблицу спавна карты. Все записи появляются на первом тике.
func NewSpawner(def *content.MapDefinition) *Spawner {
	sp := &Spawner{byEntity: make(map[uint64]*spawnSlot)}
	for i := range def.Spawns {
		sp.slots = append(sp.slots, &spawnSlot{kind: targeting.KindBrain, brain: &def.Spawns[i]})
	}
	for i := range def.Pickups {
		sp.slots = append(sp.slots, &spawnSlot{kind: targeting.KindPickup, pickup: &def.Pickups[i]})
	}
	return sp
}

// Tick активирует записи, у которых истекла задержка
func (sp *Spawner) Tick(s *Session) {
	for _, slot := range sp.slots {
		if slot.entityID != 0 || s.clock < slot.respawnAt {
			continue
		}
		switch slot.kind {
		case targeting.KindBrain:
			slot.entityID = s.spawnBrain(slot.brain)
		case targeting.KindPickup:
			slot.entityID = s.spawnPickup(slot.pickup)
		}
		sp.byEntity[slot.entityID] = slot
	}
}

// Removed отмечает, что сущность убрана. false - сущность не из таблицы спавна.
func (sp *Spawner) Removed(entityID uint64, now time.Duration) bool {
	slot, ok := sp.byEntity[entityID]
	if !ok {
		return false
	}
	delete(sp.byEntity, entityID)
	slot.entityID = 0

	var delay time.Duration
	switch slot.kind {
	case targeting.KindBrain:
		delay = slot.brain.RespawnDelay
	case targeting.KindPickup:
		delay = slot.pickup.RespawnDelay
	}
	if delay <= 0 && slot.kind == targeting.KindPickup {
		// Предмет без задержки больше не появляется
		slot.respawnAt = time.Duration(math.MaxInt64)
		return true
	}
	slot.respawnAt = now + delay
	return true
}
