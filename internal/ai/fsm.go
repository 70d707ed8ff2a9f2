package ai

import (
	"time"

	"github.com/annel0/mmo-sim/internal/vec"
)

// StateName - имя состояния, уходит клиентам как тег
type StateName string

const (
	StateIdle   StateName = "idle"
	StatePatrol StateName = "patrol"
	StateChase  StateName = "chase"
	StateAttack StateName = "attack"
	StateDead   StateName = "dead"
)

// State представляет состояние конечного автомата моба.
// Update возвращает следующее состояние, тот же экземпляр означает "остаться".
type State interface {
	Name() StateName
	Enter(b *Brain, w WorldAPI)
	Update(b *Brain, w WorldAPI, dt time.Duration) State
	Exit(b *Brain, w WorldAPI)
}

// === Конкретные состояния ===

// IdleState - стоит на месте случайное время
type IdleState struct {
	Elapsed  time.Duration
	Duration time.Duration
}

// NewIdleState создаёт состояние бездействия
func NewIdleState() *IdleState {
	return &IdleState{}
}

func (s *IdleState) Name() StateName { return StateIdle }

func (s *IdleState) Enter(b *Brain, w WorldAPI) {
	t := w.Tuning()
	s.Elapsed = 0
	s.Duration = t.IdleMin
	if span := t.IdleMax - t.IdleMin; span > 0 {
		s.Duration += time.Duration(w.Rand().Int63n(int64(span) + 1))
	}
	b.Waypoints = nil
	b.Anim = AnimIdle
}

func (s *IdleState) Update(b *Brain, w WorldAPI, dt time.Duration) State {
	if b.acquireTarget(w.Tuning()) {
		return NewChaseState()
	}
	s.Elapsed += dt
	if s.Elapsed >= s.Duration {
		return NewPatrolState()
	}
	return s
}

func (s *IdleState) Exit(b *Brain, w WorldAPI) {}

// PatrolState - идет к точке патрулирования
type PatrolState struct {
	Destination vec.Vec3
	HasTarget   bool
}

// NewPatrolState создаёт состояние патрулирования
func NewPatrolState() *PatrolState {
	return &PatrolState{}
}

func (s *PatrolState) Name() StateName { return StatePatrol }

func (s *PatrolState) Enter(b *Brain, w WorldAPI) {
	s.HasTarget = false
	b.Waypoints = nil

	dest, ok := pickPatrolPoint(b, w)
	if !ok {
		return
	}
	if b.setPath(w.Nav().FindPath(b.Position, dest)) {
		s.Destination = dest
		s.HasTarget = true
		b.Anim = AnimWalk
	}
}

func (s *PatrolState) Update(b *Brain, w WorldAPI, dt time.Duration) State {
	t := w.Tuning()
	if b.acquireTarget(t) {
		return NewChaseState()
	}
	if !s.HasTarget || len(b.Waypoints) == 0 {
		return NewIdleState()
	}
	if w.Rand().Float64() < t.PatrolAbandonChance {
		return NewIdleState()
	}
	b.step(w)
	if len(b.Waypoints) == 0 {
		return NewIdleState()
	}
	return s
}

func (s *PatrolState) Exit(b *Brain, w WorldAPI) {
	b.Waypoints = nil
}

// pickPatrolPoint выбирает точку назначения по типу патруля
func pickPatrolPoint(b *Brain, w WorldAPI) (vec.Vec3, bool) {
	if b.Spawn == nil {
		return vec.Vec3{}, false
	}
	points := b.Spawn.Points
	switch b.Spawn.Patrol {
	case PatrolGlobal:
		return w.Nav().RandomPoint(w.Rand()), true
	case PatrolArea:
		if len(points) == 0 {
			return vec.Vec3{}, false
		}
		return points[w.Rand().Intn(len(points))], true
	case PatrolPath:
		if len(points) == 0 {
			return vec.Vec3{}, false
		}
		p := points[b.PatrolIndex%len(points)]
		b.PatrolIndex = (b.PatrolIndex + 1) % len(points)
		return p, true
	default:
		return vec.Vec3{}, false
	}
}

// ChaseState - преследует цель
type ChaseState struct {
	Elapsed time.Duration
}

// NewChaseState создаёт состояние преследования
func NewChaseState() *ChaseState {
	return &ChaseState{}
}

func (s *ChaseState) Name() StateName { return StateChase }

func (s *ChaseState) Enter(b *Brain, w WorldAPI) {
	s.Elapsed = 0
	b.Waypoints = nil
	b.Anim = AnimWalk
}

func (s *ChaseState) Update(b *Brain, w WorldAPI, dt time.Duration) State {
	t := w.Tuning()
	target, ok := b.target(w)
	if !ok {
		b.TargetID = 0
		return NewPatrolState()
	}

	targetPos := target.Position()
	dist := b.Position.DistanceTo(targetPos)
	if dist < t.AttackDistance {
		return NewAttackState()
	}

	s.Elapsed += dt
	if dist <= t.AggroDistance {
		s.Elapsed = 0
	}
	if s.Elapsed > t.ChaseTimeout {
		b.TargetID = 0
		return NewPatrolState()
	}

	if len(b.Waypoints) == 0 && !b.setPath(w.Nav().FindPath(b.Position, targetPos)) {
		b.TargetID = 0
		return NewPatrolState()
	}
	b.step(w)
	return s
}

func (s *ChaseState) Exit(b *Brain, w WorldAPI) {
	b.Waypoints = nil
}

// AttackState - бьет цель с заданным интервалом
type AttackState struct {
	SinceAttack time.Duration
	Attacks     int
}

// NewAttackState создаёт состояние атаки
func NewAttackState() *AttackState {
	return &AttackState{}
}

func (s *AttackState) Name() StateName { return StateAttack }

func (s *AttackState) Enter(b *Brain, w WorldAPI) {
	s.SinceAttack = 0
	b.Waypoints = nil
	b.Anim = AnimAttack
	if target, ok := b.target(w); ok {
		b.face(target.Position())
		s.attack(b, w)
	}
}

func (s *AttackState) Update(b *Brain, w WorldAPI, dt time.Duration) State {
	t := w.Tuning()
	target, ok := b.target(w)
	if !ok {
		b.TargetID = 0
		return NewPatrolState()
	}
	if b.Position.DistanceTo(target.Position()) > t.AttackDistance {
		return NewChaseState()
	}

	b.face(target.Position())
	s.SinceAttack += dt
	if s.SinceAttack >= t.AttackInterval {
		s.SinceAttack -= t.AttackInterval
		s.attack(b, w)
	}
	return s
}

func (s *AttackState) Exit(b *Brain, w WorldAPI) {}

func (s *AttackState) attack(b *Brain, w WorldAPI) {
	if b.Spawn == nil {
		return
	}
	ability, ok := ChooseAbility(b.Spawn.Abilities, w.Rand())
	if !ok {
		return
	}
	s.Attacks++
	w.CastAbility(b, ability, b.TargetID)
}

// DeadState - терминальное состояние, через DeathDelay моб убирается.
// Тик, в котором моб умер, в задержку не входит.
type DeadState struct {
	Elapsed time.Duration
	entered bool
}

// NewDeadState создаёт состояние смерти
func NewDeadState() *DeadState {
	return &DeadState{}
}

func (s *DeadState) Name() StateName { return StateDead }

func (s *DeadState) Enter(b *Brain, w WorldAPI) {
	s.Elapsed = 0
	s.entered = true
	b.Health = 0
	b.Mana = 0
	b.Blocked = true
	b.Anim = AnimDeath
	b.Waypoints = nil
	b.TargetID = 0
}

func (s *DeadState) Update(b *Brain, w WorldAPI, dt time.Duration) State {
	if b.Despawned {
		return s
	}
	if s.entered {
		s.entered = false
		return s
	}
	s.Elapsed += dt
	if s.Elapsed >= w.Tuning().DeathDelay {
		b.Despawned = true
		w.Despawn(b)
	}
	return s
}

func (s *DeadState) Exit(b *Brain, w WorldAPI) {}
