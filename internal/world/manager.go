package world

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/logging"
)

// Manager владеет набором сессий процесса
type Manager struct {
	base Options

	mu       sync.RWMutex
	sessions map[string]*Session
	ctx      context.Context
	wg       sync.WaitGroup
}

// NewManager создает менеджер. base - общие зависимости всех сессий.
func NewManager(base Options) *Manager {
	return &Manager{
		base:     base,
		sessions: make(map[string]*Session),
	}
}

// Create создает сессию для карты. Если менеджер уже запущен, сессия стартует сразу.
func (m *Manager) Create(def *content.MapDefinition) (*Session, error) {
	return m.CreateWithID("", def)
}

// CreateWithID создает сессию с заданным идентификатором
func (m *Manager) CreateWithID(id string, def *content.MapDefinition) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		if _, exists := m.sessions[id]; exists {
			return nil, fmt.Errorf("%w: %s", ErrSessionExists, id)
		}
	}

	opts := m.base
	opts.ID = id
	opts.Seed = m.base.Seed + int64(len(m.sessions))
	s, err := NewSession(def, opts)
	if err != nil {
		return nil, err
	}
	m.sessions[s.ID()] = s

	if m.ctx != nil {
		m.run(s)
	}
	return s, nil
}

// Start запускает все сессии. Останавливаются они отменой ctx.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx != nil {
		return
	}
	m.ctx = ctx
	for _, s := range m.sessions {
		m.run(s)
	}
}

func (m *Manager) run(s *Session) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := s.Run(m.ctx); err != nil {
			logging.GetWorldLogger().Error("Сессия %s: %v", s.ID(), err)
		}
	}()
}

// Wait ждет остановки всех сессий
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Get возвращает сессию по id
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// ByMap возвращает первую по id сессию карты
func (m *Manager) ByMap(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *Session
	for _, s := range m.sessions {
		if s.MapName() == name && (found == nil || s.ID() < found.ID()) {
			found = s
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: карта %s", ErrSessionNotFound, name)
	}
	return found, nil
}

// List возвращает снимки состояния всех сессий, отсортированные по id
func (m *Manager) List() []SessionStats {
	m.mu.RLock()
	out := make([]SessionStats, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Stats())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
