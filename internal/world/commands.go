package world

import (
	"github.com/annel0/mmo-sim/internal/movement"
	"github.com/annel0/mmo-sim/internal/vec"
)

// Command - команда игрока, применяется в начале тика горутиной сессии
type Command interface {
	apply(s *Session)
}

// JoinResult - ответ на Join
type JoinResult struct {
	PlayerID uint64
	Position vec.Vec3
	Err      error
}

// Join добавляет игрока. Position - сохраненная позиция, nil - точка появления карты.
// Reply должен иметь буфер, сессия не ждет читателя.
type Join struct {
	UserID   uint64
	Name     string
	Position *vec.Vec3
	Reply    chan<- JoinResult
}

// Leave убирает игрока и сохраняет его позицию
type Leave struct {
	PlayerID uint64
}

// Input ставит ввод движения в очередь игрока
type Input struct {
	PlayerID uint64
	Input    movement.Input
}

// SetTarget наводит игрока на сущность, 0 сбрасывает цель
type SetTarget struct {
	PlayerID uint64
	TargetID uint64
}

// MoveTo ведет игрока к точке по навмешу
type MoveTo struct {
	PlayerID uint64
	Point    vec.Vec3
}

// ActivateAbility применяет способность из слота панели
type ActivateAbility struct {
	PlayerID uint64
	Slot     int
	TargetID uint64 // 0 - текущая цель игрока
}

func (c Join) apply(s *Session) {
	res := s.join(c)
	if c.Reply != nil {
		select {
		case c.Reply <- res:
		default:
		}
	}
}

func (c Leave) apply(s *Session) {
	if err := s.leave(c.PlayerID); err != nil {
		s.log.Debug("Leave: %v", err)
	}
}

func (c Input) apply(s *Session) {
	p, err := s.player(c.PlayerID)
	if err != nil {
		s.log.Trace("Input: %v", err)
		return
	}
	if !p.resolver.Enqueue(c.Input) {
		s.perTick.dropped++
		s.total.dropped++
		s.log.Trace("Игрок %d: устаревший ввод %d", p.ID, c.Input.Seq)
	}
}

func (c SetTarget) apply(s *Session) {
	p, err := s.player(c.PlayerID)
	if err != nil {
		s.log.Debug("SetTarget: %v", err)
		return
	}
	if !p.Alive() {
		return
	}
	if c.TargetID == 0 || c.TargetID == p.ID {
		p.Target.Clear()
		p.Target.StopAttack()
		p.Waypoints = nil
		return
	}
	p.Target.Set(c.TargetID)
	p.Waypoints = nil
}

func (c MoveTo) apply(s *Session) {
	p, err := s.player(c.PlayerID)
	if err != nil {
		s.log.Debug("MoveTo: %v", err)
		return
	}
	if !p.Alive() {
		return
	}
	p.Target.Clear()
	path := s.paths.FindPathNearest(p.Pos, c.Point)
	if len(path) == 0 {
		s.notify(p.ID, Notice{Code: "no_path"})
		return
	}
	p.Waypoints = path[1:]
}

func (c ActivateAbility) apply(s *Session) {
	p, err := s.player(c.PlayerID)
	if err != nil {
		s.log.Debug("ActivateAbility: %v", err)
		return
	}
	target := c.TargetID
	if target == 0 {
		target = p.Target.TargetID
	}
	if target == 0 {
		target = p.Target.AttackTargetID
	}
	if res := s.activate(p, c.Slot, target); !res.OK {
		s.notify(p.ID, Notice{Code: res.Reason})
	}
}
