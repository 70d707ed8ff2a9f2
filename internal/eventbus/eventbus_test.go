package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/mmo-sim/internal/vec"
)

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope("demo", TypeEntitySpawned, EntitySpawned{
		EntityID: 7,
		Kind:     "brain",
		SpawnID:  "wolf-1",
		Position: vec.New(1, 2, 3),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "demo", ev.Source)
	assert.Equal(t, TypeEntitySpawned, ev.EventType)

	var payload EntitySpawned
	require.NoError(t, ev.Decode(&payload))
	assert.Equal(t, uint64(7), payload.EntityID)
	assert.Equal(t, vec.New(1, 2, 3), payload.Position)

	other, err := NewEnvelope("demo", TypeEntitySpawned, payload)
	require.NoError(t, err)
	assert.NotEqual(t, ev.ID, other.ID)
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	got := make(chan *Envelope, 4)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeEntitySpawned}}, func(ctx context.Context, ev *Envelope) {
		got <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	removed, err := NewEnvelope("demo", TypeEntityRemoved, EntityRemoved{EntityID: 1})
	require.NoError(t, err)
	spawned, err := NewEnvelope("demo", TypeEntitySpawned, EntitySpawned{EntityID: 2})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), removed))
	require.NoError(t, bus.Publish(context.Background(), spawned))

	select {
	case ev := <-got:
		assert.Equal(t, spawned.ID, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("событие не доставлено")
	}

	select {
	case ev := <-got:
		t.Fatalf("лишнее событие %s", ev.EventType)
	case <-time.After(50 * time.Millisecond):
	}

	assert.Eventually(t, func() bool { return bus.Metrics().Consumed == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, uint64(2), bus.Metrics().Published)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	got := make(chan struct{}, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		got <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, err := NewEnvelope("demo", TypePlayerLeft, PlayerLeft{EntityID: 1})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case <-got:
		t.Fatal("отписанный обработчик вызван")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	ev, err := NewEnvelope("demo", TypePlayerJoined, PlayerJoined{EntityID: 1})
	require.NoError(t, err)
	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
}

type stubBus struct {
	EventBus
	stats Stats
}

func (b *stubBus) Metrics() Stats { return b.stats }

func TestMetricsExporterCollect(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := &stubBus{stats: Stats{Published: 5, Consumed: 3, Dropped: 1, InFlight: 2}}
	me := NewMetricsExporter(bus, reg)

	prev := me.collect(Stats{})
	assert.Equal(t, 5.0, testutil.ToFloat64(me.published))
	assert.Equal(t, 2.0, testutil.ToFloat64(me.inflight))

	bus.stats = Stats{Published: 8, Consumed: 3, Dropped: 1}
	me.collect(prev)
	assert.Equal(t, 8.0, testutil.ToFloat64(me.published), "Счетчик растет на приращение")
	assert.Equal(t, 3.0, testutil.ToFloat64(me.consumed))
	assert.Equal(t, 0.0, testutil.ToFloat64(me.inflight))
}
