package movement

import "github.com/annel0/mmo-sim/internal/vec"

// Predictor - клиентское предсказание движения с последующей сверкой с сервером
type Predictor struct {
	surface  Surface
	params   Params
	position vec.Vec3
	rotation float64
	pending  []Input
	nextSeq  uint32
}

// NewPredictor создает предсказатель в начальной позиции
func NewPredictor(surface Surface, params Params, pos vec.Vec3) *Predictor {
	return &Predictor{
		surface:  surface,
		params:   params,
		position: pos,
		nextSeq:  1,
	}
}

// Position возвращает предсказанную позицию
func (p *Predictor) Position() vec.Vec3 {
	return p.position
}

// Rotation возвращает предсказанный поворот
func (p *Predictor) Rotation() float64 {
	return p.rotation
}

// Pending возвращает копию буфера неподтвержденных вводов
func (p *Predictor) Pending() []Input {
	out := make([]Input, len(p.pending))
	copy(out, p.pending)
	return out
}

// ApplyLocal сразу применяет ввод локально и возвращает его для отправки на сервер
func (p *Predictor) ApplyLocal(h, v float64) Input {
	in := Input{Seq: p.nextSeq, Horizontal: h, Vertical: v}
	p.nextSeq++
	res := Apply(p.surface, p.position, p.rotation, in, p.params)
	p.position, p.rotation = res.Position, res.Rotation
	p.pending = append(p.pending, in)
	return in
}

// Reconcile принимает авторитетное состояние и заново применяет неподтвержденные вводы
func (p *Predictor) Reconcile(authPos vec.Vec3, authRot float64, lastSeq uint32) {
	keep := p.pending[:0]
	for _, in := range p.pending {
		if in.Seq > lastSeq {
			keep = append(keep, in)
		}
	}
	p.pending = keep

	p.position, p.rotation = authPos, authRot
	for _, in := range p.pending {
		res := Apply(p.surface, p.position, p.rotation, in, p.params)
		p.position, p.rotation = res.Position, res.Rotation
	}
}
