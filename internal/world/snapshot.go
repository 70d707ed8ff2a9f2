package world

// Snapshot - авторитетное состояние сессии для одного игрока.
// Entities общий для всех получателей тика и не изменяется после отправки.
type Snapshot struct {
	Session  string        `json:"session"`
	Tick     uint64        `json:"tick"`
	You      uint64        `json:"you"`
	LastSeq  uint32        `json:"last_seq"`
	HasSeq   bool          `json:"has_seq"`
	Target   uint64        `json:"target,omitempty"`
	Distance float64       `json:"target_dist,omitempty"`
	Entities []EntityState `json:"entities"`
}

// Lifecycle - появление или удаление сущности
type Lifecycle struct {
	Type   string      `json:"type"` // spawned | removed
	Entity EntityState `json:"entity"`
	Reason string      `json:"reason,omitempty"`
}

const (
	LifecycleSpawned = "spawned"
	LifecycleRemoved = "removed"
)

// Notice - адресное сообщение игроку (отказ способности, смерть и т.п.)
type Notice struct {
	Code string `json:"code"`
	Text string `json:"text,omitempty"`
}

// Broadcaster доставляет исходящие сообщения. Реализация не должна блокировать тик.
type Broadcaster interface {
	Snapshot(playerID uint64, snap *Snapshot)
	Lifecycle(playerID uint64, ev Lifecycle)
	Notify(playerID uint64, n Notice)
}

// NopBroadcaster ничего не отправляет
type NopBroadcaster struct{}

func (NopBroadcaster) Snapshot(uint64, *Snapshot)  {}
func (NopBroadcaster) Lifecycle(uint64, Lifecycle) {}
func (NopBroadcaster) Notify(uint64, Notice)       {}
