package world

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - Prometheus-метрики сессий. Один экземпляр на процесс, метки по id сессии.
//
// Метрики:
// * world_tick_duration_seconds{session}: histogram
// * world_entities{session,kind}: gauge
// * world_inputs_total{session,result}: counter (applied/rejected/dropped)
// * world_path_requests_total{session,result}: counter (found/empty)
// * world_events_dropped_total{session}: counter
type Metrics struct {
	tickDuration *prometheus.HistogramVec
	entities     *prometheus.GaugeVec
	inputs       *prometheus.CounterVec
	paths        *prometheus.CounterVec
	eventsDrop   *prometheus.CounterVec
}

// NewMetrics создаёт метрики и регистрирует их в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tickDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "world",
			Name:      "tick_duration_seconds",
			Help:      "Длительность тика сессии.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"session"}),
		entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "world",
			Name:      "entities",
			Help:      "Количество сущностей в сессии по видам.",
		}, []string{"session", "kind"}),
		inputs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "inputs_total",
			Help:      "Обработанные вводы движения.",
		}, []string{"session", "result"}),
		paths: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "path_requests_total",
			Help:      "Запросы маршрутов к навмешу.",
		}, []string{"session", "result"}),
		eventsDrop: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "world",
			Name:      "events_dropped_total",
			Help:      "События жизненного цикла, не поместившиеся в очередь публикации.",
		}, []string{"session"}),
	}

	reg.MustRegister(m.tickDuration, m.entities, m.inputs, m.paths, m.eventsDrop)
	return m
}

func (m *Metrics) observeTick(session string, d time.Duration, players, brains, pickups int) {
	if m == nil {
		return
	}
	m.tickDuration.WithLabelValues(session).Observe(d.Seconds())
	m.entities.WithLabelValues(session, "player").Set(float64(players))
	m.entities.WithLabelValues(session, "brain").Set(float64(brains))
	m.entities.WithLabelValues(session, "pickup").Set(float64(pickups))
}

func (m *Metrics) addInputs(session string, applied, rejected, dropped uint64) {
	if m == nil {
		return
	}
	if applied > 0 {
		m.inputs.WithLabelValues(session, "applied").Add(float64(applied))
	}
	if rejected > 0 {
		m.inputs.WithLabelValues(session, "rejected").Add(float64(rejected))
	}
	if dropped > 0 {
		m.inputs.WithLabelValues(session, "dropped").Add(float64(dropped))
	}
}

func (m *Metrics) pathRequest(session string, found bool) {
	if m == nil {
		return
	}
	result := "found"
	if !found {
		result = "empty"
	}
	m.paths.WithLabelValues(session, result).Inc()
}

func (m *Metrics) eventDropped(session string) {
	if m == nil {
		return
	}
	m.eventsDrop.WithLabelValues(session).Inc()
}

// forget удаляет метки остановленной сессии
func (m *Metrics) forget(session string) {
	if m == nil {
		return
	}
	m.tickDuration.DeleteLabelValues(session)
	for _, kind := range []string{"player", "brain", "pickup"} {
		m.entities.DeleteLabelValues(session, kind)
	}
	for _, r := range []string{"applied", "rejected", "dropped"} {
		m.inputs.DeleteLabelValues(session, r)
	}
	for _, r := range []string{"found", "empty"} {
		m.paths.DeleteLabelValues(session, r)
	}
	m.eventsDrop.DeleteLabelValues(session)
}
