package network

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Сколько ждать, пока writePump допишет очередь перед закрытием соединения
const flushTimeout = 2 * time.Second

// transport - кадровое соединение конкретного протокола
type transport interface {
	// ReadFrame блокируется до следующего кадра
	ReadFrame() ([]byte, error)
	// WriteFrame отправляет один кадр
	WriteFrame(frame []byte) error
	// Keepalive вызывается writePump по таймеру
	Keepalive() error
	Close() error
	RemoteAddr() string
	Name() string
}

// Client - подключенный клиент. Очередь отправки не блокирует тик:
// при переполнении кадр отбрасывается.
type Client struct {
	id         string
	t          transport
	send       chan []byte
	done       chan struct{}
	writerDone chan struct{}
	metrics    *Metrics
	dropped    atomic.Uint64
	closeOnce  sync.Once
	closed     atomic.Bool

	mu       sync.Mutex
	playerID uint64
	session  string
}

func newClient(t transport, queue int, m *Metrics) *Client {
	if queue <= 0 {
		queue = 256
	}
	return &Client{
		id:         uuid.NewString(),
		t:          t,
		send:       make(chan []byte, queue),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
		metrics:    m,
	}
}

// ID возвращает идентификатор соединения
func (c *Client) ID() string { return c.id }

// PlayerID возвращает id игрока в сессии, 0 - до входа
func (c *Client) PlayerID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// Session возвращает id сессии клиента
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) bind(session string, playerID uint64) {
	c.mu.Lock()
	c.session, c.playerID = session, playerID
	c.mu.Unlock()
}

// Dropped возвращает число отброшенных кадров
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// enqueue ставит кадр в очередь отправки
func (c *Client) enqueue(frame []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.dropped.Add(1)
		c.metrics.drop(c.t.Name())
		return false
	}
}

// writePump пишет кадры из очереди и шлет keepalive раз в interval.
// После закрытия done дописывает то, что уже в очереди.
func (c *Client) writePump(interval time.Duration) {
	defer close(c.writerDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			if !c.write(frame) {
				return
			}
		case <-ticker.C:
			if err := c.t.Keepalive(); err != nil {
				return
			}
		case <-c.done:
			for {
				select {
				case frame := <-c.send:
					if !c.write(frame) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *Client) write(frame []byte) bool {
	if err := c.t.WriteFrame(frame); err != nil {
		return false
	}
	c.metrics.frame(c.t.Name(), "out", len(frame))
	return true
}

// close останавливает отправку, ждет дописывания очереди и закрывает соединение.
// writePump к этому моменту должен быть запущен.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		select {
		case <-c.writerDone:
		case <-time.After(flushTimeout):
		}
		c.t.Close()
	})
}
