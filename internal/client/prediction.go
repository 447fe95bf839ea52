package client

import (
	"github.com/annel0/arena-sync/internal/vec"
)

// Predictor реализует local prediction для собственного персонажа:
// интенты применяются к локальному состоянию мгновенно, без ожидания
// подтверждения сервера. Снимок сервера сравнивается с предсказанием,
// и только при большом расхождении (телепорт, анти-чит) позиция жёстко
// снапается к серверной. Малый дрейф не корректируется вовсе: задержка
// ввода дороже точности позиции.
type Predictor struct {
	threshold float64 // Порог коррекции в мировых единицах

	pos     vec.Vec2
	prevPos vec.Vec2 // Состояние предыдущего шага для блендинга

	corrections uint64
}

// NewPredictor создаёт предиктор с указанным порогом коррекции
func NewPredictor(threshold float64, start vec.Vec2) *Predictor {
	return &Predictor{
		threshold: threshold,
		pos:       start,
		prevPos:   start,
	}
}

// Position возвращает текущее предсказанное положение
func (p *Predictor) Position() vec.Vec2 { return p.pos }

// Corrections возвращает число применённых коррекций
func (p *Predictor) Corrections() uint64 { return p.corrections }

// Step интегрирует движение к цели на одном фиксированном шаге
func (p *Predictor) Step(target vec.Vec2, speed, dt float64) {
	p.prevPos = p.pos

	toTarget := target.Sub(p.pos)
	maxStep := speed * dt
	if toTarget.Length() <= maxStep {
		p.pos = target
		return
	}
	p.pos = p.pos.Add(toTarget.Normalized().Mul(maxStep))
}

// Reconcile сверяет предсказание со снимком сервера. Возвращает true,
// если расхождение превысило порог и позиция снапнута к серверной;
// в пределах порога локальное состояние не меняется вообще.
func (p *Predictor) Reconcile(serverPos vec.Vec2) bool {
	if p.pos.DistanceTo(serverPos) <= p.threshold {
		return false
	}

	p.pos = serverPos
	p.prevPos = serverPos
	p.corrections++
	return true
}

// RenderPosition возвращает визуальное положение: бленд между двумя
// последними состояниями симуляции по остатку аккумулятора
func (p *Predictor) RenderPosition(alpha float64) vec.Vec2 {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return p.prevPos.Lerp(p.pos, alpha)
}
