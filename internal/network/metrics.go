package network

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - метрики сетевого шлюза.
//
// * network_connections{transport}: gauge
// * network_frames_total{transport,direction}: counter
// * network_bytes_total{transport,direction}: counter
// * network_frames_dropped_total{transport}: counter, переполнение очереди отправки
// * network_frames_compressed_total: counter
type Metrics struct {
	connections *prometheus.GaugeVec
	frames      *prometheus.CounterVec
	bytes       *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	compressed  prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "network",
			Name:      "connections",
			Help:      "Активные соединения по транспорту.",
		}, []string{"transport"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "network",
			Name:      "frames_total",
			Help:      "Принятые и отправленные кадры.",
		}, []string{"transport", "direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "network",
			Name:      "bytes_total",
			Help:      "Принятые и отправленные байты.",
		}, []string{"transport", "direction"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "network",
			Name:      "frames_dropped_total",
			Help:      "Кадры, отброшенные из-за переполненной очереди отправки.",
		}, []string{"transport"}),
		compressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "network",
			Name:      "frames_compressed_total",
			Help:      "Кадры, сжатые zstd.",
		}),
	}
	reg.MustRegister(m.connections, m.frames, m.bytes, m.dropped, m.compressed)
	return m
}

func (m *Metrics) connected(transport string, delta float64) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(transport).Add(delta)
}

func (m *Metrics) frame(transport, direction string, size int) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(transport, direction).Inc()
	m.bytes.WithLabelValues(transport, direction).Add(float64(size))
}

func (m *Metrics) drop(transport string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(transport).Inc()
}

func (m *Metrics) compress() {
	if m == nil {
		return
	}
	m.compressed.Inc()
}
