package movement

import "github.com/annel0/mmo-sim/internal/vec"

// Resolver - серверная обработка вводов одного соединения.
// Вводы применяются строго по порядку, устаревшие и повторные отбрасываются.
type Resolver struct {
	params    Params
	queue     []Input
	lastSeen  uint32
	seen      bool
	lastDone  uint32
	processed bool
	rejected  uint64
	dropped   uint64
}

// NewResolver создает обработчик вводов
func NewResolver(params Params) *Resolver {
	return &Resolver{params: params}
}

// Enqueue ставит ввод в очередь. Возвращает false, если номер не больше уже полученного.
func (r *Resolver) Enqueue(in Input) bool {
	if r.seen && in.Seq <= r.lastSeen {
		r.dropped++
		return false
	}
	r.seen = true
	r.lastSeen = in.Seq
	r.queue = append(r.queue, in)
	return true
}

// Pending возвращает число вводов в очереди
func (r *Resolver) Pending() int {
	return len(r.queue)
}

// LastProcessed возвращает номер последнего обработанного ввода
func (r *Resolver) LastProcessed() (uint32, bool) {
	return r.lastDone, r.processed
}

// Counters возвращает число отклоненных шагов и отброшенных вводов
func (r *Resolver) Counters() (rejected, dropped uint64) {
	return r.rejected, r.dropped
}

// Resolve применяет до limit вводов из очереди (limit <= 0 - все).
// Номер ввода фиксируется как обработанный даже если шаг отклонен.
func (r *Resolver) Resolve(surface Surface, pos vec.Vec3, rot float64, limit int) (vec.Vec3, float64, int) {
	n := len(r.queue)
	if limit > 0 && n > limit {
		n = limit
	}
	for _, in := range r.queue[:n] {
		res := Apply(surface, pos, rot, in, r.params)
		pos, rot = res.Position, res.Rotation
		if !res.Accepted {
			r.rejected++
		}
		r.lastDone = in.Seq
		r.processed = true
	}
	r.queue = append(r.queue[:0], r.queue[n:]...)
	return pos, rot, n
}
