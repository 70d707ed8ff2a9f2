package world

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/mmo-sim/internal/ai"
	"github.com/annel0/mmo-sim/internal/config"
	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/eventbus"
	"github.com/annel0/mmo-sim/internal/logging"
	"github.com/annel0/mmo-sim/internal/movement"
	"github.com/annel0/mmo-sim/internal/navmesh"
	"github.com/annel0/mmo-sim/internal/storage"
	"github.com/annel0/mmo-sim/internal/targeting"
	"github.com/annel0/mmo-sim/internal/vec"
)

var tracer = otel.Tracer("github.com/annel0/mmo-sim/internal/world")

// Options - зависимости и параметры сессии
type Options struct {
	ID          string // пустой - сгенерировать UUID
	Simulation  config.SimulationConfig
	Tuning      ai.Tuning
	Seed        int64
	Broadcaster Broadcaster
	// Outbound выдает Broadcaster по id сессии, если Broadcaster не задан
	Outbound  func(sessionID string) Broadcaster
	Bus       eventbus.EventBus    // nil - события не публикуются
	Positions storage.PositionRepo // nil - позиции не сохраняются
	Combat    CombatResolver       // nil - AbilityBook карты
	Metrics   *Metrics
}

// DefaultOptions возвращает параметры из конфигурации по умолчанию
func DefaultOptions() Options {
	cfg := config.Default()
	return Options{
		Simulation: cfg.Simulation,
		Tuning:     TuningFromConfig(cfg.AI),
		Seed:       1,
	}
}

// TuningFromConfig переводит секцию ai конфигурации в настройки автомата
func TuningFromConfig(c config.AIConfig) ai.Tuning {
	return ai.Tuning{
		AggroDistance:       c.AggroDistance,
		AttackDistance:      c.AttackDistance,
		ChaseTimeout:        c.ChaseTimeout,
		AttackInterval:      c.AttackInterval,
		DeathDelay:          c.DeathDelay,
		IdleMin:             c.IdleMin,
		IdleMax:             c.IdleMax,
		PatrolAbandonChance: c.PatrolAbandonChance,
		Speed:               c.Speed,
	}
}

// SessionStats - снимок состояния сессии для читателей вне тика
type SessionStats struct {
	ID             string        `json:"id"`
	Map            string        `json:"map"`
	Running        bool          `json:"running"`
	Tick           uint64        `json:"tick"`
	Clock          time.Duration `json:"clock"`
	Players        int           `json:"players"`
	Brains         int           `json:"brains"`
	Pickups        int           `json:"pickups"`
	Regions        int           `json:"regions"`
	LastTick       time.Duration `json:"last_tick"`
	InputsApplied  uint64        `json:"inputs_applied"`
	InputsRejected uint64        `json:"inputs_rejected"`
	InputsDropped  uint64        `json:"inputs_dropped"`
	PathRequests   uint64        `json:"path_requests"`
	EventsDropped  uint64        `json:"events_dropped"`
}

type counters struct {
	applied  uint64
	rejected uint64
	dropped  uint64
	paths    uint64
	events   uint64
}

// Session - один экземпляр карты. Все состояние меняет только горутина тика,
// команды приходят через inbox и применяются в начале тика.
type Session struct {
	id        string
	def       *content.MapDefinition
	nav       *navmesh.NavMesh
	paths     navView
	opts      Options
	params    movement.Params
	targeting *targeting.Controller
	combat    CombatResolver
	out       Broadcaster
	log       *logging.Logger
	rng       *rand.Rand

	inbox   chan Command
	events  chan *eventbus.Envelope
	done    chan struct{}
	running atomic.Bool
	bg      sync.WaitGroup

	players     map[uint64]*Player
	playerOrder []uint64
	brains      map[uint64]*ai.Brain
	brainOrder  []uint64
	pickups     map[uint64]*Pickup
	pickupOrder []uint64
	grid        *SpatialIndex
	spawner     *Spawner
	removed     []*ai.Brain

	nextID  uint64
	tick    uint64
	clock   time.Duration
	runCtx  context.Context
	tickCtx context.Context
	total   counters
	perTick counters

	stats atomic.Pointer[SessionStats]
}

// NewSession строит навмеш карты и готовит сессию. Сущности появляются на первом тике.
func NewSession(def *content.MapDefinition, opts Options) (*Session, error) {
	if def == nil {
		return nil, errors.New("пустое описание карты")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Simulation.TickRate <= 0 {
		opts.Simulation = config.Default().Simulation
	}
	if opts.Broadcaster == nil && opts.Outbound != nil {
		opts.Broadcaster = opts.Outbound(opts.ID)
	}
	if opts.Broadcaster == nil {
		opts.Broadcaster = NopBroadcaster{}
	}

	buildOpts := navmesh.DefaultBuildOptions()
	if opts.Simulation.NavEpsilon > 0 {
		buildOpts.QueryEpsilon = opts.Simulation.NavEpsilon
	}
	nav, err := def.BuildNavMesh(buildOpts)
	if err != nil {
		return nil, err
	}

	combat := opts.Combat
	if combat == nil {
		combat = NewAbilityBook(def.Abilities)
	}

	inboxSize := opts.Simulation.InboxSize
	if inboxSize <= 0 {
		inboxSize = 1024
	}

	s := &Session{
		id:      opts.ID,
		def:     def,
		nav:     nav,
		opts:    opts,
		params:  movement.Params{Speed: opts.Simulation.PlayerSpeed, HeightSmoothing: opts.Simulation.HeightSmoothing},
		combat:  combat,
		out:     opts.Broadcaster,
		log:     logging.GetWorldLogger(),
		rng:     rand.New(rand.NewSource(opts.Seed)),
		inbox:   make(chan Command, inboxSize),
		events:  make(chan *eventbus.Envelope, inboxSize),
		done:    make(chan struct{}),
		players: make(map[uint64]*Player),
		brains:  make(map[uint64]*ai.Brain),
		pickups: make(map[uint64]*Pickup),
		grid:    NewSpatialIndex(opts.Tuning.AggroDistance * 2),
		spawner: NewSpawner(def),
		runCtx:  context.Background(),
	}
	s.paths = navView{NavMesh: nav, s: s}
	s.targeting = targeting.NewController(s.paths)
	s.tickCtx = s.runCtx
	s.publishStats(0)

	s.log.Info("Сессия %s: карта %s, регионов %d, спавнов %d", s.id, def.Name, nav.RegionCount(), len(def.Spawns))
	return s, nil
}

// ID возвращает идентификатор сессии
func (s *Session) ID() string { return s.id }

// MapName возвращает имя карты
func (s *Session) MapName() string { return s.def.Name }

// NavMesh возвращает навмеш сессии. После построения он только читается.
func (s *Session) NavMesh() *navmesh.NavMesh { return s.nav }

// Stats возвращает последний опубликованный снимок состояния
func (s *Session) Stats() SessionStats {
	return *s.stats.Load()
}

// Done закрывается, когда Run завершился
func (s *Session) Done() <-chan struct{} { return s.done }

// Submit ставит команду в очередь без блокировки
func (s *Session) Submit(cmd Command) error {
	select {
	case <-s.done:
		return ErrSessionStopped
	default:
	}
	select {
	case s.inbox <- cmd:
		return nil
	default:
		return ErrInboxFull
	}
}

// Run крутит тик с частотой из настроек до отмены контекста
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("сессия %s уже запущена", s.id)
	}
	defer close(s.done)

	s.runCtx = ctx
	pubDone := s.startPublisher()

	interval := s.opts.Simulation.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("▶️ Сессия %s запущена, тик %v", s.id, interval)
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			close(s.events)
			<-pubDone
			s.bg.Wait()
			s.log.Info("⏹ Сессия %s остановлена на тике %d", s.id, s.tick)
			return nil
		case <-ticker.C:
			s.Tick(interval)
		}
	}
}

// Tick выполняет один шаг симуляции. Вызывается только из одной горутины.
func (s *Session) Tick(dt time.Duration) {
	start := time.Now()
	ctx, span := tracer.Start(s.runCtx, "session.tick", trace.WithAttributes(
		attribute.String("session.id", s.id),
		attribute.Int64("session.tick", int64(s.tick+1)),
	))
	defer span.End()
	s.tickCtx = ctx
	s.perTick = counters{}

	s.tick++
	s.clock += dt

	s.drainInbox()
	s.resolveInputs()
	s.updatePlayers(dt)
	s.updateBrains(dt)
	s.spawner.Tick(s)
	s.broadcastSnapshots()

	elapsed := time.Since(start)
	s.publishStats(elapsed)
	s.opts.Metrics.observeTick(s.id, elapsed, len(s.players), len(s.brains), len(s.pickups))
	s.opts.Metrics.addInputs(s.id, s.perTick.applied, s.perTick.rejected, s.perTick.dropped)
	span.SetAttributes(attribute.Int("session.players", len(s.players)), attribute.Int("session.brains", len(s.brains)))
}

func (s *Session) drainInbox() {
	n := len(s.inbox)
	for i := 0; i < n; i++ {
		cmd := <-s.inbox
		cmd.apply(s)
	}
}

// resolveInputs применяет очереди вводов строго по порядку номеров
func (s *Session) resolveInputs() {
	for _, id := range s.playerOrder {
		p := s.players[id]
		if p.resolver.Pending() == 0 {
			continue
		}

		var surface movement.Surface = s.paths
		if !p.Alive() {
			surface = frozenSurface{s.paths}
		}
		before, _ := p.resolver.Counters()
		pos, rot, n := p.resolver.Resolve(surface, p.Pos, p.Rot, s.opts.Simulation.MaxInputsPerTick)
		after, _ := p.resolver.Counters()

		rejected := after - before
		applied := uint64(n) - rejected
		s.perTick.applied += applied
		s.perTick.rejected += rejected
		s.total.applied += applied
		s.total.rejected += rejected

		if applied > 0 {
			// ручное управление отменяет движение к цели
			p.Waypoints = nil
			p.Target.Clear()
		}
		p.Pos, p.Rot = pos, rot
		s.grid.Update(p.ID, p.Pos)
	}
}

func (s *Session) updatePlayers(dt time.Duration) {
	view := simView{s}
	for _, id := range s.playerOrder {
		p := s.players[id]
		if !p.Alive() {
			s.updateDeadPlayer(p, dt)
			continue
		}

		for ability, left := range p.cooldowns {
			if left -= dt; left <= 0 {
				delete(p.cooldowns, ability)
			} else {
				p.cooldowns[ability] = left
			}
		}

		outcome, targetID := s.targeting.Tick(&p.Target, p.Pos, &p.Waypoints, view)
		switch outcome {
		case targeting.OutcomeCollect:
			s.collect(p, targetID)
		case targeting.OutcomeAttack:
			s.log.Debug("Игрок %d атакует %d", p.ID, targetID)
		case targeting.OutcomeCancel:
			s.notify(p.ID, Notice{Code: "attack_cancelled"})
		case targeting.OutcomeLost:
			s.notify(p.ID, Notice{Code: "target_lost"})
		}

		if len(p.Waypoints) > 0 {
			prev := p.Pos
			p.Pos, p.Waypoints = movement.FollowWaypoints(s.paths, p.Pos, p.Waypoints, s.params.Speed)
			if rot, ok := movement.Heading(prev, p.Pos); ok {
				p.Rot = rot
			}
			s.grid.Update(p.ID, p.Pos)
		}

		if p.Target.AutoAttack {
			s.autoAttack(p)
		}
	}
}

func (s *Session) updateDeadPlayer(p *Player, dt time.Duration) {
	p.deadFor += dt
	if p.deadFor < s.def.Player.RespawnDelay {
		return
	}
	p.deadFor = 0
	p.Health, p.Mana = p.MaxHealth, p.MaxMana
	p.Pos = s.placeOnMesh(s.def.Player.Spawn)
	p.cooldowns = make(map[string]time.Duration)
	s.grid.Update(p.ID, p.Pos)
	s.notify(p.ID, Notice{Code: "respawned"})
}

func (s *Session) updateBrains(dt time.Duration) {
	view := simView{s}
	for _, id := range s.brainOrder {
		s.brains[id].Update(view, dt)
	}
	for _, b := range s.removed {
		s.removeBrain(b, "dead")
	}
	s.removed = s.removed[:0]
}

func (s *Session) broadcastSnapshots() {
	if every := s.opts.Simulation.SnapshotEvery; every > 1 && s.tick%uint64(every) != 0 {
		return
	}
	if len(s.players) == 0 {
		return
	}

	entities := make([]EntityState, 0, len(s.players)+len(s.brains)+len(s.pickups))
	for _, id := range s.playerOrder {
		entities = append(entities, s.players[id].state())
	}
	for _, id := range s.brainOrder {
		entities = append(entities, brainState(s.brains[id]))
	}
	for _, id := range s.pickupOrder {
		entities = append(entities, s.pickups[id].state())
	}

	for _, id := range s.playerOrder {
		p := s.players[id]
		seq, has := p.resolver.LastProcessed()
		s.out.Snapshot(id, &Snapshot{
			Session:  s.id,
			Tick:     s.tick,
			You:      id,
			LastSeq:  seq,
			HasSeq:   has,
			Target:   p.Target.TargetID,
			Distance: p.Target.Distance,
			Entities: entities,
		})
	}
}

func (s *Session) publishStats(elapsed time.Duration) {
	s.stats.Store(&SessionStats{
		ID:             s.id,
		Map:            s.def.Name,
		Running:        s.running.Load(),
		Tick:           s.tick,
		Clock:          s.clock,
		Players:        len(s.players),
		Brains:         len(s.brains),
		Pickups:        len(s.pickups),
		Regions:        s.nav.RegionCount(),
		LastTick:       elapsed,
		InputsApplied:  s.total.applied,
		InputsRejected: s.total.rejected,
		InputsDropped:  s.total.dropped,
		PathRequests:   s.total.paths,
		EventsDropped:  s.total.events,
	})
}

// shutdown сохраняет позиции оставшихся игроков
func (s *Session) shutdown() {
	s.running.Store(false)
	s.publishStats(0)
	s.opts.Metrics.forget(s.id)

	if s.opts.Positions == nil || len(s.players) == 0 {
		return
	}
	positions := make(map[uint64]vec.Vec3, len(s.players))
	for _, p := range s.players {
		if p.UserID != 0 {
			positions[p.UserID] = p.Pos
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.opts.Positions.BatchSave(ctx, positions); err != nil {
		s.log.Warn("Сессия %s: не удалось сохранить позиции: %v", s.id, err)
	}
}

// === Игроки ===

func (s *Session) allocID() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Session) join(c Join) JoinResult {
	for _, p := range s.players {
		if c.UserID != 0 && p.UserID == c.UserID {
			return JoinResult{Err: fmt.Errorf("пользователь %d уже в сессии %s", c.UserID, s.id)}
		}
	}

	pos := s.def.Player.Spawn
	if c.Position != nil && s.nav.Contains(*c.Position) {
		pos = *c.Position
	}
	pos = s.placeOnMesh(pos)

	p := &Player{
		ID:        s.allocID(),
		UserID:    c.UserID,
		Name:      c.Name,
		Pos:       pos,
		Health:    s.def.Player.MaxHealth,
		MaxHealth: s.def.Player.MaxHealth,
		Mana:      s.def.Player.MaxMana,
		MaxMana:   s.def.Player.MaxMana,
		Items:     make(map[string]int),
		resolver:  movement.NewResolver(s.params),
		cooldowns: make(map[string]time.Duration),
	}
	s.players[p.ID] = p
	s.playerOrder = append(s.playerOrder, p.ID)
	s.grid.Update(p.ID, p.Pos)

	s.announce(Lifecycle{Type: LifecycleSpawned, Entity: p.state()}, p.ID)
	s.publish(eventbus.TypePlayerJoined, eventbus.PlayerJoined{EntityID: p.ID, UserID: p.UserID, Name: p.Name, Position: p.Pos})
	s.log.Info("Игрок %d (%s) вошел в сессию %s", p.ID, p.Name, s.id)
	return JoinResult{PlayerID: p.ID, Position: p.Pos}
}

// player ищет игрока сессии по id
func (s *Session) player(id uint64) (*Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d в сессии %s", ErrPlayerNotFound, id, s.id)
	}
	return p, nil
}

func (s *Session) leave(id uint64) error {
	p, err := s.player(id)
	if err != nil {
		return err
	}
	delete(s.players, id)
	s.playerOrder = removeID(s.playerOrder, id)
	s.grid.Remove(id)

	s.announce(Lifecycle{Type: LifecycleRemoved, Entity: p.state(), Reason: "left"}, 0)
	s.publish(eventbus.TypePlayerLeft, eventbus.PlayerLeft{EntityID: p.ID, UserID: p.UserID, Position: p.Pos})
	s.savePosition(p)
	s.log.Info("Игрок %d покинул сессию %s", p.ID, s.id)
	return nil
}

// savePosition сохраняет позицию вне горутины тика
func (s *Session) savePosition(p *Player) {
	repo := s.opts.Positions
	if repo == nil || p.UserID == 0 {
		return
	}
	userID, pos := p.UserID, p.Pos
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.Save(ctx, userID, pos); err != nil {
			s.log.Warn("Не удалось сохранить позицию пользователя %d: %v", userID, err)
		}
	}()
}

func (s *Session) killPlayer(p *Player) {
	p.Health = 0
	p.Target = targeting.State{}
	p.Waypoints = nil
	p.deadFor = 0
	s.notify(p.ID, Notice{Code: "dead"})
	s.log.Debug("Игрок %d погиб", p.ID)
}

func (s *Session) collect(p *Player, pickupID uint64) {
	pk, ok := s.pickups[pickupID]
	if !ok {
		return
	}
	p.Items[pk.Def.Item]++
	s.removePickup(pk, "collected")
	s.notify(p.ID, Notice{Code: "collected", Text: pk.Def.Item})
}

// === Бой ===

// activate применяет способность из слота игрока
func (s *Session) activate(p *Player, slot int, targetID uint64) CastResult {
	if !p.Alive() {
		return CastResult{Reason: ReasonDead}
	}
	if slot < 0 || slot >= len(s.def.Player.Abilities) {
		return CastResult{Reason: ReasonEmptySlot}
	}
	ability := s.def.Player.Abilities[slot]
	if p.cooldowns[ability] > 0 {
		return CastResult{Reason: ReasonCooldown}
	}
	res := s.cast(p.ID, ability, targetID)
	if res.OK && res.Cooldown > 0 {
		p.cooldowns[ability] = res.Cooldown
	}
	return res
}

// autoAttack бьет цель автоатаки первой способностью панели
func (s *Session) autoAttack(p *Player) {
	if len(s.def.Player.Abilities) == 0 {
		return
	}
	ability := s.def.Player.Abilities[0]
	if p.cooldowns[ability] > 0 {
		return
	}
	res := s.cast(p.ID, ability, p.Target.AttackTargetID)
	if !res.OK {
		return
	}
	p.cooldowns[ability] = max(res.Cooldown, s.opts.Tuning.AttackInterval)
}

// cast собирает запрос, передает его CombatResolver и применяет дельты
func (s *Session) cast(casterID uint64, abilityID string, targetID uint64) CastResult {
	req := CastRequest{CasterID: casterID, AbilityID: abilityID, TargetID: targetID}
	switch {
	case s.players[casterID] != nil:
		req.CasterPos, req.CasterMana = s.players[casterID].Pos, s.players[casterID].Mana
	case s.brains[casterID] != nil:
		req.CasterPos, req.CasterMana = s.brains[casterID].Position, s.brains[casterID].Mana
	default:
		return CastResult{Reason: ReasonDead}
	}

	if targetID != 0 {
		t, ok := s.target(targetID)
		if !ok || !t.Alive() || t.Kind() == targeting.KindPickup {
			return CastResult{Reason: ReasonNoTarget}
		}
		req.TargetPos = t.Position()
	}

	res := s.combat.Cast(req)
	if !res.OK {
		return res
	}
	for _, d := range res.Deltas {
		s.applyDelta(d)
	}
	return res
}

func (s *Session) applyDelta(d Delta) {
	if p, ok := s.players[d.EntityID]; ok {
		if !p.Alive() {
			return
		}
		p.Health = clamp(p.Health+d.Health, 0, p.MaxHealth)
		p.Mana = clamp(p.Mana+d.Mana, 0, p.MaxMana)
		if p.Health <= 0 {
			s.killPlayer(p)
		}
		return
	}
	if b, ok := s.brains[d.EntityID]; ok {
		b.ApplyDelta(d.Health, d.Mana, simView{s})
	}
}

// === Мобы и предметы ===

func (s *Session) spawnBrain(def *ai.SpawnDef) uint64 {
	b := ai.NewBrain(s.allocID(), def)
	b.Position = s.placeOnMesh(def.Position)
	b.SetState(ai.NewIdleState(), simView{s})
	s.brains[b.ID] = b
	s.brainOrder = append(s.brainOrder, b.ID)

	s.announce(Lifecycle{Type: LifecycleSpawned, Entity: brainState(b)}, 0)
	s.publish(eventbus.TypeEntitySpawned, eventbus.EntitySpawned{
		EntityID: b.ID, Kind: targeting.KindBrain.String(), SpawnID: def.ID, Name: def.Name, Position: b.Position,
	})
	return b.ID
}

func (s *Session) removeBrain(b *ai.Brain, reason string) {
	if _, ok := s.brains[b.ID]; !ok {
		return
	}
	delete(s.brains, b.ID)
	s.brainOrder = removeID(s.brainOrder, b.ID)
	s.spawner.Removed(b.ID, s.clock)

	s.announce(Lifecycle{Type: LifecycleRemoved, Entity: brainState(b), Reason: reason}, 0)
	s.publish(eventbus.TypeEntityRemoved, eventbus.EntityRemoved{EntityID: b.ID, Kind: targeting.KindBrain.String(), Reason: reason})
}

func (s *Session) spawnPickup(def *content.PickupDef) uint64 {
	pk := &Pickup{ID: s.allocID(), Def: def, Pos: s.placeOnMesh(def.Position)}
	s.pickups[pk.ID] = pk
	s.pickupOrder = append(s.pickupOrder, pk.ID)

	s.announce(Lifecycle{Type: LifecycleSpawned, Entity: pk.state()}, 0)
	s.publish(eventbus.TypeEntitySpawned, eventbus.EntitySpawned{
		EntityID: pk.ID, Kind: targeting.KindPickup.String(), SpawnID: def.ID, Name: def.Item, Position: pk.Pos,
	})
	return pk.ID
}

func (s *Session) removePickup(pk *Pickup, reason string) {
	delete(s.pickups, pk.ID)
	s.pickupOrder = removeID(s.pickupOrder, pk.ID)
	s.spawner.Removed(pk.ID, s.clock)

	s.announce(Lifecycle{Type: LifecycleRemoved, Entity: pk.state(), Reason: reason}, 0)
	s.publish(eventbus.TypeEntityRemoved, eventbus.EntityRemoved{EntityID: pk.ID, Kind: targeting.KindPickup.String(), Reason: reason})
}

// target разрешает id в цель любого вида
func (s *Session) target(id uint64) (targeting.Target, bool) {
	if p, ok := s.players[id]; ok {
		return playerTarget{p}, true
	}
	if b, ok := s.brains[id]; ok {
		return brainTarget{b}, true
	}
	if pk, ok := s.pickups[id]; ok {
		return pickupTarget{pk}, true
	}
	return nil, false
}

// placeOnMesh переносит точку на навмеш и ставит на поверхность
func (s *Session) placeOnMesh(p vec.Vec3) vec.Vec3 {
	return s.nav.SnapHeight(s.nav.NearestPoint(p))
}

// === Исходящие сообщения ===

func (s *Session) notify(playerID uint64, n Notice) {
	s.out.Notify(playerID, n)
}

// announce рассылает событие всем игрокам, кроме exclude
func (s *Session) announce(ev Lifecycle, exclude uint64) {
	for _, id := range s.playerOrder {
		if id != exclude {
			s.out.Lifecycle(id, ev)
		}
	}
}

// publish ставит событие в очередь публикации, тик не ждет шину
func (s *Session) publish(eventType string, payload any) {
	if s.opts.Bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(s.id, eventType, payload)
	if err != nil {
		s.log.Error("Событие %s: %v", eventType, err)
		return
	}
	select {
	case s.events <- ev:
	default:
		s.total.events++
		s.opts.Metrics.eventDropped(s.id)
	}
}

// startPublisher переносит события из очереди в шину до закрытия канала
func (s *Session) startPublisher() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range s.events {
			if s.opts.Bus == nil {
				continue
			}
			if err := s.opts.Bus.Publish(context.Background(), ev); err != nil {
				s.log.Warn("Публикация %s: %v", ev.EventType, err)
			}
		}
	}()
	return done
}

// === Адаптеры ===

// simView - взгляд ИИ и контроллера наведения на сессию
type simView struct{ s *Session }

func (v simView) Nav() ai.Navigator { return v.s.paths }

func (v simView) Target(id uint64) (targeting.Target, bool) { return v.s.target(id) }

func (v simView) NearestPlayer(pos vec.Vec3) (uint64, float64, bool) {
	return v.s.grid.Nearest(pos, func(id uint64) bool {
		p, ok := v.s.players[id]
		return ok && p.Alive()
	})
}

func (v simView) CastAbility(caster *ai.Brain, abilityID string, targetID uint64) {
	if res := v.s.cast(caster.ID, abilityID, targetID); !res.OK {
		v.s.log.Trace("Моб %d: %s не применена (%s)", caster.ID, abilityID, res.Reason)
	}
}

func (v simView) Despawn(b *ai.Brain) { v.s.removed = append(v.s.removed, b) }

func (v simView) Rand() *rand.Rand { return v.s.rng }

func (v simView) Tuning() ai.Tuning { return v.s.opts.Tuning }

// navView - навмеш с учетом запросов маршрутов в метриках и трассировке
type navView struct {
	*navmesh.NavMesh
	s *Session
}

func (v navView) FindPath(from, to vec.Vec3) []vec.Vec3 {
	_, span := tracer.Start(v.s.tickCtx, "navmesh.FindPath")
	defer span.End()
	path := v.NavMesh.FindPath(from, to)
	v.record(span, path)
	return path
}

func (v navView) FindPathNearest(from, to vec.Vec3) []vec.Vec3 {
	_, span := tracer.Start(v.s.tickCtx, "navmesh.FindPathNearest")
	defer span.End()
	path := v.NavMesh.FindPathNearest(from, to)
	v.record(span, path)
	return path
}

func (v navView) record(span trace.Span, path []vec.Vec3) {
	span.SetAttributes(attribute.Int("path.points", len(path)))
	v.s.total.paths++
	v.s.opts.Metrics.pathRequest(v.s.id, len(path) > 0)
}

// frozenSurface отклоняет любое движение
type frozenSurface struct{ movement.Surface }

func (frozenSurface) CheckPath(from, to vec.Vec3) bool { return false }

func removeID(ids []uint64, id uint64) []uint64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
