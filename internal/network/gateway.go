package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/annel0/mmo-sim/internal/auth"
	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/storage"
	"github.com/annel0/mmo-sim/internal/vec"
	"github.com/annel0/mmo-sim/internal/world"
)

// Sessions - поиск сессий для входа игроков
type Sessions interface {
	ByMap(name string) (*world.Session, error)
}

// GatewayConfig - параметры шлюза
type GatewayConfig struct {
	DefaultMap     string
	AllowAnonymous bool
	SendQueue      int
	JoinTimeout    time.Duration
	Keepalive      time.Duration
	Simulation     config.SimulationConfig
}

// DefaultGatewayConfig собирает параметры шлюза из конфигурации
func DefaultGatewayConfig(cfg *config.Config) GatewayConfig {
	gc := GatewayConfig{
		AllowAnonymous: cfg.Auth.AllowAnonymous,
		SendQueue:      256,
		JoinTimeout:    5 * time.Second,
		Keepalive:      30 * time.Second,
		Simulation:     cfg.Simulation,
	}
	if len(cfg.Maps) > 0 {
		gc.DefaultMap = cfg.Maps[0].Name
	}
	return gc
}

// Hubs хранит хабы сессий. Broadcaster подходит для world.Options.Outbound.
type Hubs struct {
	codec   *Codec
	metrics *Metrics

	mu   sync.Mutex
	hubs map[string]*Hub
}

// NewHubs создает реестр хабов
func NewHubs(codec *Codec, m *Metrics) *Hubs {
	return &Hubs{codec: codec, metrics: m, hubs: make(map[string]*Hub)}
}

// For возвращает хаб сессии, создавая его при первом обращении
func (h *Hubs) For(session string) *Hub {
	h.mu.Lock()
	defer h.mu.Unlock()
	hub, ok := h.hubs[session]
	if !ok {
		hub = NewHub(session, h.codec, h.metrics)
		h.hubs[session] = hub
	}
	return hub
}

// Broadcaster возвращает хаб сессии как world.Broadcaster
func (h *Hubs) Broadcaster(session string) world.Broadcaster {
	return h.For(session)
}

// Gateway ведет соединения клиентов: вход в сессию и перевод сообщений в команды.
// Транспорты (WebSocket, KCP) только доставляют кадры.
type Gateway struct {
	cfg       GatewayConfig
	sessions  Sessions
	hubs      *Hubs
	positions storage.PositionRepo
	codec     *Codec
	metrics   *Metrics
	log       *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	clients map[string]*Client
}

// NewGateway создает шлюз. positions может быть nil.
func NewGateway(cfg GatewayConfig, sessions Sessions, hubs *Hubs, positions storage.PositionRepo) *Gateway {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 5 * time.Second
	}
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gateway{
		cfg:       cfg,
		sessions:  sessions,
		hubs:      hubs,
		positions: positions,
		codec:     hubs.codec,
		metrics:   hubs.metrics,
		log:       logging.GetNetworkLogger(),
		ctx:       ctx,
		cancel:    cancel,
		clients:   make(map[string]*Client),
	}
}

// ConnectedClients возвращает число открытых соединений
func (g *Gateway) ConnectedClients() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// Close закрывает все соединения и ждет их обработчики
func (g *Gateway) Close() {
	g.cancel()
	g.mu.Lock()
	clients := make([]*Client, 0, len(g.clients))
	for _, c := range g.clients {
		clients = append(clients, c)
	}
	g.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	g.wg.Wait()
}

// accept запускает обработку нового соединения
func (g *Gateway) accept(t transport) {
	c := newClient(t, g.cfg.SendQueue, g.metrics)
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		g.serve(c)
	}()
}

// handshakeError - отказ во входе с кодом для клиента
type handshakeError struct {
	code string
	err  error
}

func (e *handshakeError) Error() string { return e.code + ": " + e.err.Error() }
func (e *handshakeError) Unwrap() error { return e.err }

func (g *Gateway) serve(c *Client) {
	name := c.t.Name()
	g.metrics.connected(name, 1)
	g.log.Debug("🔗 %s клиент подключен: %s (%s)", name, c.id, c.t.RemoteAddr())

	go c.writePump(g.cfg.Keepalive)
	defer func() {
		c.close()
		g.mu.Lock()
		delete(g.clients, c.id)
		g.mu.Unlock()
		g.metrics.connected(name, -1)
		g.log.Debug("👋 %s клиент отключен: %s", name, c.id)
	}()

	sess, hub, playerID, err := g.handshake(c)
	if err != nil {
		code := ErrCodeInternal
		var he *handshakeError
		if errors.As(err, &he) {
			code = he.code
		}
		g.sendError(c, code, err.Error())
		g.log.Warn("Вход %s отклонен: %v", c.id, err)
		return
	}
	defer g.leave(sess, hub, playerID, c)

	for {
		frame, err := c.t.ReadFrame()
		if err != nil {
			return
		}
		g.metrics.frame(name, "in", len(frame))

		msg, err := g.codec.Decode(frame)
		if err != nil {
			g.sendError(c, ErrCodeBadMsg, err.Error())
			continue
		}
		if msg.Type == MsgTypePing {
			var req PingRequest
			_ = decodeData(msg, &req)
			g.sendData(c, MsgTypePong, pong(req))
			continue
		}

		cmd, err := toCommand(playerID, msg)
		if err != nil {
			g.sendError(c, ErrCodeBadMsg, err.Error())
			continue
		}
		if err := sess.Submit(cmd); err != nil {
			if errors.Is(err, world.ErrSessionStopped) {
				return
			}
			g.sendError(c, ErrCodeBusy, err.Error())
		}
	}
}

// handshake ждет hello, проверяет токен и добавляет игрока в сессию
func (g *Gateway) handshake(c *Client) (*world.Session, *Hub, uint64, error) {
	frame, err := c.t.ReadFrame()
	if err != nil {
		return nil, nil, 0, err
	}
	g.metrics.frame(c.t.Name(), "in", len(frame))
	msg, err := g.codec.Decode(frame)
	if err != nil {
		return nil, nil, 0, &handshakeError{ErrCodeBadMsg, err}
	}
	if msg.Type != MsgTypeHello {
		return nil, nil, 0, &handshakeError{ErrCodeAuth, fmt.Errorf("ожидалось %s, получено %s", MsgTypeHello, msg.Type)}
	}
	var hello HelloRequest
	if err := decodeData(msg, &hello); err != nil {
		return nil, nil, 0, &handshakeError{ErrCodeBadMsg, err}
	}

	var userID uint64
	name := hello.Name
	switch {
	case hello.Token != "":
		claims, err := auth.ParseJWT(hello.Token)
		if err != nil {
			return nil, nil, 0, &handshakeError{ErrCodeAuth, err}
		}
		userID = claims.UserID
		if name == "" {
			name = claims.Username
		}
	case !g.cfg.AllowAnonymous:
		return nil, nil, 0, &handshakeError{ErrCodeAuth, auth.ErrInvalidToken}
	}

	mapName := hello.Map
	if mapName == "" {
		mapName = g.cfg.DefaultMap
	}
	sess, err := g.sessions.ByMap(mapName)
	if err != nil {
		return nil, nil, 0, &handshakeError{ErrCodeNoMap, err}
	}

	// Сохраненная позиция читается до входа, тик хранилище не ждет
	var saved *vec.Vec3
	if userID != 0 && g.positions != nil {
		ctx, cancel := context.WithTimeout(g.ctx, 3*time.Second)
		pos, ok, err := g.positions.Load(ctx, userID)
		cancel()
		switch {
		case err != nil:
			g.log.Warn("Позиция пользователя %d не загружена: %v", userID, err)
		case ok:
			saved = &pos
		}
	}

	hub := g.hubs.For(sess.ID())
	reply := make(chan world.JoinResult, 1)
	if err := sess.Submit(world.Join{UserID: userID, Name: name, Position: saved, Reply: reply}); err != nil {
		return nil, nil, 0, &handshakeError{ErrCodeBusy, err}
	}

	var res world.JoinResult
	select {
	case res = <-reply:
	case <-time.After(g.cfg.JoinTimeout):
		go g.undoJoin(sess, reply)
		return nil, nil, 0, &handshakeError{ErrCodeJoin, errors.New("сессия не ответила на вход")}
	case <-g.ctx.Done():
		go g.undoJoin(sess, reply)
		return nil, nil, 0, g.ctx.Err()
	}
	if res.Err != nil {
		return nil, nil, 0, &handshakeError{ErrCodeJoin, res.Err}
	}

	// welcome уходит первым, снимки идут только после Attach
	c.bind(sess.ID(), res.PlayerID)
	g.sendData(c, MsgTypeWelcome, WelcomeResponse{
		PlayerID:        res.PlayerID,
		Session:         sess.ID(),
		Map:             sess.MapName(),
		Position:        res.Position,
		TickRate:        g.cfg.Simulation.TickRate,
		Speed:           g.cfg.Simulation.PlayerSpeed,
		HeightSmoothing: g.cfg.Simulation.HeightSmoothing,
	})
	hub.Attach(res.PlayerID, c)
	g.log.Info("Игрок %d (%s, user %d) вошел в %s через %s", res.PlayerID, name, userID, sess.ID(), c.t.Name())
	return sess, hub, res.PlayerID, nil
}

// undoJoin дожидается брошенного входа и убирает игрока, если сессия его все же добавила
func (g *Gateway) undoJoin(sess *world.Session, reply <-chan world.JoinResult) {
	select {
	case res := <-reply:
		if res.Err != nil {
			return
		}
		g.log.Warn("Игрок %d вошел в %s после отказа клиенту, удаляем", res.PlayerID, sess.ID())
		g.removePlayer(sess, res.PlayerID)
	case <-sess.Done():
	}
}

// leave отвязывает соединение и убирает игрока из сессии
func (g *Gateway) leave(sess *world.Session, hub *Hub, playerID uint64, c *Client) {
	hub.Detach(playerID, c)
	g.removePlayer(sess, playerID)
}

func (g *Gateway) removePlayer(sess *world.Session, playerID uint64) {
	for i := 0; i < 50; i++ {
		err := sess.Submit(world.Leave{PlayerID: playerID})
		if !errors.Is(err, world.ErrInboxFull) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	g.log.Error("Игрок %d не удален из %s: очередь переполнена", playerID, sess.ID())
}

func (g *Gateway) sendData(c *Client, msgType string, data interface{}) {
	frame, err := g.codec.EncodeData(msgType, data)
	if err != nil {
		g.log.Error("Кодирование %s: %v", msgType, err)
		return
	}
	c.enqueue(frame)
}

func (g *Gateway) sendError(c *Client, code, text string) {
	g.sendData(c, MsgTypeError, ErrorResponse{Code: code, Text: text})
}
