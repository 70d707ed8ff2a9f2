package network

import (
	"sync"

	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/world"
)

// Hub - исходящие сообщения одной сессии. Реализует world.Broadcaster:
// вызывается из горутины тика, кодирует сообщение и ставит кадр в очередь клиента.
type Hub struct {
	session string
	codec   *Codec
	metrics *Metrics
	log     *logging.Logger

	mu      sync.RWMutex
	clients map[uint64]*Client
}

// NewHub создает хаб сессии
func NewHub(session string, codec *Codec, m *Metrics) *Hub {
	return &Hub{
		session: session,
		codec:   codec,
		metrics: m,
		log:     logging.GetNetworkLogger(),
		clients: make(map[uint64]*Client),
	}
}

// Attach связывает игрока с соединением
func (h *Hub) Attach(playerID uint64, c *Client) {
	h.mu.Lock()
	h.clients[playerID] = c
	h.mu.Unlock()
}

// Detach убирает игрока, если он связан именно с этим соединением
func (h *Hub) Detach(playerID uint64, c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[playerID]; ok && cur == c {
		delete(h.clients, playerID)
	}
	h.mu.Unlock()
}

// Len возвращает число связанных игроков
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Snapshot(playerID uint64, s *world.Snapshot) {
	h.send(playerID, MsgTypeSnapshot, s)
}

func (h *Hub) Lifecycle(playerID uint64, ev world.Lifecycle) {
	msgType := MsgTypeSpawned
	if ev.Type == world.LifecycleRemoved {
		msgType = MsgTypeRemoved
	}
	h.send(playerID, msgType, ev)
}

func (h *Hub) Notify(playerID uint64, n world.Notice) {
	h.send(playerID, MsgTypeNotice, n)
}

func (h *Hub) send(playerID uint64, msgType string, data interface{}) {
	h.mu.RLock()
	c, ok := h.clients[playerID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	frame, err := h.codec.EncodeData(msgType, data)
	if err != nil {
		h.log.Error("Сессия %s: кодирование %s: %v", h.session, msgType, err)
		return
	}
	if frame[0] == frameZstd {
		h.metrics.compress()
	}
	c.enqueue(frame)
}
