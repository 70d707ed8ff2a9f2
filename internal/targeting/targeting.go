package targeting

import (
	"github.com/annel0/mmo-sim/internal/vec"
)

// EngageRadius - расстояние, на котором цель атакуется или подбирается
const EngageRadius = 2.5

// Kind - вид цели
type Kind uint8

const (
	KindPlayer Kind = iota + 1
	KindBrain
	KindPickup
)

// String возвращает имя вида цели
func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindBrain:
		return "brain"
	case KindPickup:
		return "pickup"
	default:
		return "unknown"
	}
}

// Target - все, на что можно навести игрока или моба
type Target interface {
	ID() uint64
	Kind() Kind
	Position() vec.Vec3
	// IsRemovable сообщает, что цель исчезает при взаимодействии (подбор)
	IsRemovable() bool
	Alive() bool
}

// Lookup разрешает идентификатор цели в таблице сущностей сессии
type Lookup interface {
	Target(id uint64) (Target, bool)
}

// PathFinder - источник маршрутов
type PathFinder interface {
	FindPathNearest(from, to vec.Vec3) []vec.Vec3
}

// State - выбор цели одного игрока
type State struct {
	TargetID       uint64
	Distance       float64
	AutoAttack     bool
	AttackTargetID uint64
}

// Set наводит игрока на цель. Автоатака по другой цели продолжается до входа в радиус.
func (s *State) Set(id uint64) {
	s.TargetID = id
	s.Distance = 0
}

// Clear сбрасывает цель
func (s *State) Clear() {
	s.TargetID = 0
	s.Distance = 0
}

// StopAttack прекращает автоатаку
func (s *State) StopAttack() {
	s.AutoAttack = false
	s.AttackTargetID = 0
}

// Outcome - результат тика контроллера
type Outcome uint8

const (
	OutcomeNone        Outcome = iota
	OutcomeApproaching         // запрошен или используется маршрут
	OutcomeAttack              // началась автоатака
	OutcomeCollect             // предмет подобран
	OutcomeCancel              // цель ушла из радиуса во время автоатаки
	OutcomeLost                // цель исчезла или недостижима
)

// String возвращает имя результата
func (o Outcome) String() string {
	switch o {
	case OutcomeApproaching:
		return "approaching"
	case OutcomeAttack:
		return "attack"
	case OutcomeCollect:
		return "collect"
	case OutcomeCancel:
		return "cancel"
	case OutcomeLost:
		return "lost"
	default:
		return "none"
	}
}

// Controller решает, с чем взаимодействует игрок. Решений ИИ он не принимает.
type Controller struct {
	Radius float64
	Paths  PathFinder
}

// NewController создает контроллер с радиусом по умолчанию
func NewController(paths PathFinder) *Controller {
	return &Controller{Radius: EngageRadius, Paths: paths}
}

// Tick обновляет дистанцию до цели и при необходимости запрашивает маршрут.
// waypoints - маршрут игрока, может быть заменен или очищен.
func (c *Controller) Tick(st *State, pos vec.Vec3, waypoints *[]vec.Vec3, lookup Lookup) (Outcome, uint64) {
	if st.AutoAttack {
		t, ok := lookup.Target(st.AttackTargetID)
		if !ok || !t.Alive() {
			id := st.AttackTargetID
			st.StopAttack()
			return OutcomeLost, id
		}
		if pos.DistanceTo(t.Position()) > c.Radius {
			id := st.AttackTargetID
			st.StopAttack()
			return OutcomeCancel, id
		}
	}

	if st.TargetID == 0 {
		return OutcomeNone, 0
	}

	t, ok := lookup.Target(st.TargetID)
	if !ok || !t.Alive() {
		id := st.TargetID
		st.Clear()
		*waypoints = nil
		return OutcomeLost, id
	}

	st.Distance = pos.DistanceTo(t.Position())
	if st.Distance <= c.Radius {
		id := st.TargetID
		st.Clear()
		*waypoints = nil
		if t.IsRemovable() {
			return OutcomeCollect, id
		}
		st.AutoAttack = true
		st.AttackTargetID = id
		return OutcomeAttack, id
	}

	if len(*waypoints) == 0 {
		path := c.Paths.FindPathNearest(pos, t.Position())
		if len(path) == 0 {
			id := st.TargetID
			st.Clear()
			return OutcomeLost, id
		}
		*waypoints = path[1:]
	}
	return OutcomeApproaching, st.TargetID
}
