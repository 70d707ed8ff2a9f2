package world

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/ai"
	"github.com/annel0/mmo-sim/internal/content"
	"github.com/annel0/mmo-sim/internal/eventbus"
	"github.com/annel0/mmo-sim/internal/movement"
	"github.com/annel0/mmo-sim/internal/storage"
	"github.com/annel0/mmo-sim/internal/targeting"
	"github.com/annel0/mmo-sim/internal/vec"
)

const dt = 50 * time.Millisecond

// recorder запоминает все исходящие сообщения сессии
type recorder struct {
	mu        sync.Mutex
	snapshots map[uint64][]*Snapshot
	lifecycle map[uint64][]Lifecycle
	notices   map[uint64][]Notice
}

func newRecorder() *recorder {
	return &recorder{
		snapshots: make(map[uint64][]*Snapshot),
		lifecycle: make(map[uint64][]Lifecycle),
		notices:   make(map[uint64][]Notice),
	}
}

func (r *recorder) Snapshot(id uint64, s *Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[id] = append(r.snapshots[id], s)
}

func (r *recorder) Lifecycle(id uint64, ev Lifecycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycle[id] = append(r.lifecycle[id], ev)
}

func (r *recorder) Notify(id uint64, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices[id] = append(r.notices[id], n)
}

func (r *recorder) last(id uint64) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.snapshots[id]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (r *recorder) codes(id uint64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notices[id] {
		out = append(out, n.Code)
	}
	return out
}

func (r *recorder) spawned(id uint64, kind targeting.Kind) []EntityState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []EntityState
	for _, ev := range r.lifecycle[id] {
		if ev.Type == LifecycleSpawned && ev.Entity.Kind == kind.String() {
			out = append(out, ev.Entity)
		}
	}
	return out
}

func (s *Snapshot) entity(id uint64) (EntityState, bool) {
	for _, e := range s.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return EntityState{}, false
}

// testMap - квадрат 20x20 без мобов и предметов
func testMap() *content.MapDefinition {
	return &content.MapDefinition{
		Name: "square",
		Navmesh: content.NavmeshDef{
			Vertices: []vec.Vec3{vec.New(0, 0, 0), vec.New(20, 0, 0), vec.New(20, 0, 20), vec.New(0, 0, 20)},
			Polygons: [][]int{{0, 1, 2, 3}},
		},
		Player: content.PlayerDef{
			Spawn:        vec.New(2, 0, 2),
			MaxHealth:    100,
			MaxMana:      50,
			Abilities:    []string{"strike", "mend"},
			RespawnDelay: 100 * time.Millisecond,
		},
		Abilities: []content.AbilityDef{
			{ID: "strike", Damage: 10, Range: 3},
			{ID: "mend", Heal: 20, ManaCost: 60, Cooldown: time.Second},
			{ID: "bite", Damage: 500, Range: 3},
		},
	}
}

func testOptions(out Broadcaster) Options {
	opts := DefaultOptions()
	opts.ID = "test"
	opts.Broadcaster = out
	opts.Tuning.AttackInterval = 100 * time.Millisecond
	opts.Tuning.DeathDelay = 100 * time.Millisecond
	return opts
}

func newTestSession(t *testing.T, def *content.MapDefinition) (*Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	s, err := NewSession(def, testOptions(rec))
	require.NoError(t, err)
	return s, rec
}

func join(t *testing.T, s *Session, userID uint64, pos *vec.Vec3) JoinResult {
	t.Helper()
	reply := make(chan JoinResult, 1)
	require.NoError(t, s.Submit(Join{UserID: userID, Name: "hero", Position: pos, Reply: reply}))
	s.Tick(dt)
	select {
	case res := <-reply:
		require.NoError(t, res.Err)
		return res
	default:
		t.Fatal("нет ответа на Join")
		return JoinResult{}
	}
}

func TestJoinPlacesPlayerAtSpawn(t *testing.T) {
	s, rec := newTestSession(t, testMap())

	res := join(t, s, 7, nil)
	assert.Equal(t, vec.New(2, 0, 2), res.Position)

	snap := rec.last(res.PlayerID)
	require.NotNil(t, snap)
	assert.Equal(t, "test", snap.Session)
	assert.Equal(t, res.PlayerID, snap.You)
	assert.False(t, snap.HasSeq)

	me, ok := snap.entity(res.PlayerID)
	require.True(t, ok)
	assert.Equal(t, "player", me.Kind)
	assert.Equal(t, 100.0, me.Health)

	assert.Equal(t, 1, s.Stats().Players)
}

func TestJoinUsesSavedPosition(t *testing.T) {
	s, _ := newTestSession(t, testMap())

	saved := vec.New(10, 0, 12)
	res := join(t, s, 1, &saved)
	assert.Equal(t, saved, res.Position)

	offMesh := vec.New(50, 0, 50)
	res = join(t, s, 2, &offMesh)
	assert.Equal(t, vec.New(2, 0, 2), res.Position, "Позиция вне навмеша заменяется точкой появления")
}

func TestJoinRejectsDuplicateUser(t *testing.T) {
	s, _ := newTestSession(t, testMap())
	join(t, s, 5, nil)

	reply := make(chan JoinResult, 1)
	require.NoError(t, s.Submit(Join{UserID: 5, Reply: reply}))
	s.Tick(dt)
	res := <-reply
	assert.Error(t, res.Err)
	assert.Equal(t, 1, s.Stats().Players)
}

func TestInputsMovePlayerAndAdvanceSeq(t *testing.T) {
	s, rec := newTestSession(t, testMap())
	id := join(t, s, 1, nil).PlayerID

	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 1, Horizontal: 1}}))
	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 2, Horizontal: 1}}))
	s.Tick(dt)

	snap := rec.last(id)
	require.NotNil(t, snap)
	assert.True(t, snap.HasSeq)
	assert.EqualValues(t, 2, snap.LastSeq)
	me, _ := snap.entity(id)
	assert.InDelta(t, 2.5, me.Position.X, 1e-9)
	assert.InDelta(t, 2.0, me.Position.Z, 1e-9)

	// Повтор номера отбрасывается
	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 2, Horizontal: 1}}))
	s.Tick(dt)
	me, _ = rec.last(id).entity(id)
	assert.InDelta(t, 2.5, me.Position.X, 1e-9)

	st := s.Stats()
	assert.EqualValues(t, 2, st.InputsApplied)
	assert.EqualValues(t, 1, st.InputsDropped)
}

func TestRejectedInputStillAdvancesSeq(t *testing.T) {
	def := testMap()
	def.Player.Spawn = vec.New(0.1, 0, 2)
	s, rec := newTestSession(t, def)
	id := join(t, s, 1, nil).PlayerID

	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 1, Horizontal: -1}}))
	s.Tick(dt)

	snap := rec.last(id)
	assert.EqualValues(t, 1, snap.LastSeq)
	me, _ := snap.entity(id)
	assert.InDelta(t, 0.1, me.Position.X, 1e-9, "Шаг за край навмеша отклонен")
	assert.EqualValues(t, 1, s.Stats().InputsRejected)
}

func TestMoveToFollowsPath(t *testing.T) {
	s, rec := newTestSession(t, testMap())
	id := join(t, s, 1, nil).PlayerID

	require.NoError(t, s.Submit(MoveTo{PlayerID: id, Point: vec.New(4, 0, 2)}))
	for i := 0; i < 20; i++ {
		s.Tick(dt)
	}

	me, _ := rec.last(id).entity(id)
	assert.InDelta(t, 4.0, me.Position.X, 1.01)
	assert.Empty(t, s.players[id].Waypoints)
	assert.EqualValues(t, 1, s.Stats().PathRequests)
}

func TestManualInputCancelsMoveTo(t *testing.T) {
	s, _ := newTestSession(t, testMap())
	id := join(t, s, 1, nil).PlayerID

	require.NoError(t, s.Submit(MoveTo{PlayerID: id, Point: vec.New(18, 0, 18)}))
	s.Tick(dt)
	require.NotEmpty(t, s.players[id].Waypoints)

	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 1, Vertical: 1}}))
	s.Tick(dt)
	assert.Empty(t, s.players[id].Waypoints)
}

func TestSpawnerActivatesEntitiesOnFirstTick(t *testing.T) {
	def := testMap()
	def.Spawns = []ai.SpawnDef{{ID: "wolf", Name: "Волк", Patrol: ai.PatrolStatic, Position: vec.New(10, 0, 10), MaxHealth: 20}}
	def.Pickups = []content.PickupDef{{ID: "herb-1", Item: "herb", Position: vec.New(5, 0, 5)}}
	s, rec := newTestSession(t, def)

	id := join(t, s, 1, nil).PlayerID

	st := s.Stats()
	assert.Equal(t, 1, st.Brains)
	assert.Equal(t, 1, st.Pickups)
	assert.Len(t, rec.spawned(id, targeting.KindBrain), 1)
	assert.Len(t, rec.spawned(id, targeting.KindPickup), 1)

	snap := rec.last(id)
	assert.Len(t, snap.Entities, 3)
}

func TestCollectPickup(t *testing.T) {
	def := testMap()
	def.Pickups = []content.PickupDef{{ID: "herb-1", Item: "herb", Position: vec.New(3, 0, 2)}}
	s, rec := newTestSession(t, def)
	id := join(t, s, 1, nil).PlayerID

	pickups := rec.spawned(id, targeting.KindPickup)
	require.Len(t, pickups, 1)

	require.NoError(t, s.Submit(SetTarget{PlayerID: id, TargetID: pickups[0].ID}))
	s.Tick(dt)

	assert.Equal(t, 1, s.players[id].Items["herb"])
	assert.Equal(t, 0, s.Stats().Pickups)
	assert.Contains(t, rec.codes(id), "collected")

	// Предмет без задержки больше не появляется
	for i := 0; i < 10; i++ {
		s.Tick(dt)
	}
	assert.Equal(t, 0, s.Stats().Pickups)
}

func TestAutoAttackKillsBrain(t *testing.T) {
	def := testMap()
	def.Spawns = []ai.SpawnDef{{ID: "dummy", Patrol: ai.PatrolStatic, Position: vec.New(3, 0, 2), MaxHealth: 20, RespawnDelay: time.Hour}}
	s, rec := newTestSession(t, def)
	id := join(t, s, 1, nil).PlayerID

	brains := rec.spawned(id, targeting.KindBrain)
	require.Len(t, brains, 1)
	brainID := brains[0].ID

	require.NoError(t, s.Submit(SetTarget{PlayerID: id, TargetID: brainID}))
	s.Tick(dt)
	assert.True(t, s.players[id].Target.AutoAttack)
	b, _ := rec.last(id).entity(brainID)
	assert.Equal(t, 10.0, b.Health)

	// Интервал автоатаки 100мс: следующий удар через два тика
	s.Tick(dt)
	b, _ = rec.last(id).entity(brainID)
	assert.Equal(t, 10.0, b.Health)
	s.Tick(dt)
	b, _ = rec.last(id).entity(brainID)
	assert.Equal(t, "dead", b.State)

	s.Tick(dt)
	assert.False(t, s.players[id].Target.AutoAttack)
	assert.Contains(t, rec.codes(id), "target_lost")

	// Через DeathDelay моб убирается
	for i := 0; i < 3; i++ {
		s.Tick(dt)
	}
	assert.Equal(t, 0, s.Stats().Brains)
}

func TestKilledBrainRemovedAfterFullDeathDelay(t *testing.T) {
	def := testMap()
	def.Spawns = []ai.SpawnDef{{ID: "dummy", Patrol: ai.PatrolStatic, Position: vec.New(3, 0, 2), MaxHealth: 10, RespawnDelay: time.Hour}}
	rec := newRecorder()
	opts := testOptions(rec)
	opts.Tuning.DeathDelay = 500 * time.Millisecond
	s, err := NewSession(def, opts)
	require.NoError(t, err)

	id := join(t, s, 1, nil).PlayerID
	brainID := rec.spawned(id, targeting.KindBrain)[0].ID

	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id, Slot: 0, TargetID: brainID}))
	s.Tick(dt)
	diedAt := s.Stats().Clock
	b, ok := rec.last(id).entity(brainID)
	require.True(t, ok)
	require.Equal(t, "dead", b.State)

	for s.Stats().Clock-diedAt < opts.Tuning.DeathDelay-dt {
		s.Tick(dt)
	}
	assert.Equal(t, 1, s.Stats().Brains, "За тик до конца задержки моб на месте")

	s.Tick(dt)
	assert.Equal(t, opts.Tuning.DeathDelay, s.Stats().Clock-diedAt)
	assert.Equal(t, 0, s.Stats().Brains)
}

func TestPlayerDeathAndRespawn(t *testing.T) {
	def := testMap()
	def.Spawns = []ai.SpawnDef{{ID: "ogre", Patrol: ai.PatrolStatic, Position: vec.New(4, 0, 2), MaxHealth: 100}}
	s, rec := newTestSession(t, def)
	saved := vec.New(5, 0, 2)
	id := join(t, s, 1, &saved).PlayerID
	brainID := rec.spawned(id, targeting.KindBrain)[0].ID

	res := s.cast(brainID, "bite", id)
	require.True(t, res.OK)
	p := s.players[id]
	assert.False(t, p.Alive())
	assert.Contains(t, rec.codes(id), "dead")

	// Мертвый игрок не двигается, но номер ввода подтверждается
	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 1, Horizontal: 1}}))
	s.Tick(dt)
	snap := rec.last(id)
	assert.EqualValues(t, 1, snap.LastSeq)
	me, _ := snap.entity(id)
	assert.Equal(t, "dead", me.State)
	assert.InDelta(t, 5.0, me.Position.X, 1e-9)

	s.Tick(dt)
	assert.True(t, p.Alive())
	assert.Equal(t, p.MaxHealth, p.Health)
	assert.Equal(t, vec.New(2, 0, 2), p.Pos)
	assert.Contains(t, rec.codes(id), "respawned")
}

func TestActivateAbilityReasons(t *testing.T) {
	s, rec := newTestSession(t, testMap())
	id := join(t, s, 1, nil).PlayerID

	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id, Slot: 5}))
	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id, Slot: 0}))
	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id, Slot: 1}))
	s.Tick(dt)

	assert.Equal(t, []string{ReasonEmptySlot, ReasonNoTarget, ReasonNoMana}, rec.codes(id))
}

func TestActivateAbilityCooldown(t *testing.T) {
	def := testMap()
	def.Abilities[1].ManaCost = 10
	s, rec := newTestSession(t, def)
	id := join(t, s, 1, nil).PlayerID

	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id, Slot: 1}))
	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id, Slot: 1}))
	s.Tick(dt)

	assert.Equal(t, []string{ReasonCooldown}, rec.codes(id))
	p := s.players[id]
	assert.Equal(t, 40.0, p.Mana)
	assert.Equal(t, 100.0, p.Health, "Лечение не превышает максимум")
}

func TestUnknownPlayerCommandsIgnored(t *testing.T) {
	s, rec := newTestSession(t, testMap())
	id := join(t, s, 1, nil).PlayerID

	_, err := s.player(id + 100)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.ErrorIs(t, s.leave(id+100), ErrPlayerNotFound)

	require.NoError(t, s.Submit(Input{PlayerID: id + 100, Input: movement.Input{Seq: 1, Horizontal: 1}}))
	require.NoError(t, s.Submit(ActivateAbility{PlayerID: id + 100, Slot: 0}))
	s.Tick(dt)
	assert.Empty(t, rec.codes(id))
	assert.Equal(t, 1, s.Stats().Players)
	assert.EqualValues(t, 0, s.Stats().InputsApplied)
}

func TestLeaveAnnouncesRemoval(t *testing.T) {
	s, rec := newTestSession(t, testMap())
	a := join(t, s, 1, nil).PlayerID
	b := join(t, s, 2, nil).PlayerID

	require.NoError(t, s.Submit(Leave{PlayerID: b}))
	s.Tick(dt)

	rec.mu.Lock()
	events := rec.lifecycle[a]
	rec.mu.Unlock()
	require.NotEmpty(t, events)
	lastEv := events[len(events)-1]
	assert.Equal(t, LifecycleRemoved, lastEv.Type)
	assert.Equal(t, b, lastEv.Entity.ID)
	assert.Equal(t, 1, s.Stats().Players)
}

func TestSubmitErrors(t *testing.T) {
	opts := testOptions(nil)
	opts.Simulation.InboxSize = 1
	s, err := NewSession(testMap(), opts)
	require.NoError(t, err)

	require.NoError(t, s.Submit(Leave{PlayerID: 1}))
	assert.ErrorIs(t, s.Submit(Leave{PlayerID: 1}), ErrInboxFull)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.Run(ctx))
	assert.ErrorIs(t, s.Submit(Leave{PlayerID: 1}), ErrSessionStopped)
}

func TestRunPublishesEventsAndSavesPositions(t *testing.T) {
	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()
	repo := storage.NewMemoryPositionRepo()

	var mu sync.Mutex
	var types []string
	_, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		mu.Lock()
		types = append(types, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	opts := testOptions(nil)
	opts.Bus = bus
	opts.Positions = repo
	opts.Simulation.TickRate = 100
	s, err := NewSession(testMap(), opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	reply := make(chan JoinResult, 1)
	require.NoError(t, s.Submit(Join{UserID: 42, Name: "hero", Reply: reply}))
	var res JoinResult
	select {
	case res = <-reply:
	case <-time.After(2 * time.Second):
		t.Fatal("нет ответа на Join")
	}
	require.NoError(t, res.Err)

	require.NoError(t, s.Submit(Leave{PlayerID: res.PlayerID}))
	require.Eventually(t, func() bool { return s.Stats().Players == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-s.Done()

	pos, ok, err := repo.Load(context.Background(), 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vec.New(2, 0, 2), pos)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) == 2
	}, 2*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{eventbus.TypePlayerJoined, eventbus.TypePlayerLeft}, types)
	mu.Unlock()
	assert.False(t, s.Stats().Running)
}

func TestShutdownSavesConnectedPlayers(t *testing.T) {
	repo := storage.NewMemoryPositionRepo()
	opts := testOptions(nil)
	opts.Positions = repo
	s, err := NewSession(testMap(), opts)
	require.NoError(t, err)

	saved := vec.New(8, 0, 9)
	reply := make(chan JoinResult, 1)
	require.NoError(t, s.Submit(Join{UserID: 3, Position: &saved, Reply: reply}))
	s.Tick(dt)
	require.NoError(t, (<-reply).Err)

	s.shutdown()
	pos, ok, err := repo.Load(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved, pos)
}

func TestMetricsPerSession(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	opts := testOptions(nil)
	opts.Metrics = m
	s, err := NewSession(testMap(), opts)
	require.NoError(t, err)

	reply := make(chan JoinResult, 1)
	require.NoError(t, s.Submit(Join{UserID: 1, Reply: reply}))
	s.Tick(dt)
	id := (<-reply).PlayerID
	require.NoError(t, s.Submit(Input{PlayerID: id, Input: movement.Input{Seq: 1, Vertical: 1}}))
	s.Tick(dt)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.entities.WithLabelValues("test", "player")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inputs.WithLabelValues("test", "applied")))

	m.forget("test")
	assert.Equal(t, 0, testutil.CollectAndCount(m.entities))
}
