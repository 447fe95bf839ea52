// Package client реализует клиентскую половину протокола синхронизации:
// цикл с фиксированным шагом, local prediction для собственного персонажа
// и отложенную интерполяцию для удалённых сущностей.
package client

import (
	"time"
)

// Максимальный учитываемый интервал кадра: защита от лавины догоняющих
// шагов после паузы процесса ("spiral of death")
const defaultMaxFrameDelta = 250 * time.Millisecond

// FixedStepLoop — аккумуляторный цикл симуляции. Логика шагает с
// постоянной частотой независимо от частоты кадров; остаток аккумулятора
// отдаётся как вес интерполяции между двумя последними состояниями.
type FixedStepLoop struct {
	step          time.Duration
	maxFrameDelta time.Duration
	accumulator   time.Duration
	lastFrame     time.Time
	started       bool
}

// NewFixedStepLoop создаёт цикл с указанным шагом симуляции
func NewFixedStepLoop(step time.Duration) *FixedStepLoop {
	return &FixedStepLoop{
		step:          step,
		maxFrameDelta: defaultMaxFrameDelta,
	}
}

// Step возвращает шаг симуляции
func (l *FixedStepLoop) Step() time.Duration { return l.step }

// Advance учитывает прошедшее с прошлого кадра время и выполняет
// simulate столько раз, сколько полных шагов накопилось. Возвращает
// дробный остаток аккумулятора — вес блендинга визуального состояния
// локальных объектов (удалённые интерполируются отдельно).
func (l *FixedStepLoop) Advance(now time.Time, simulate func()) float64 {
	if !l.started {
		l.started = true
		l.lastFrame = now
		return 0
	}

	delta := now.Sub(l.lastFrame)
	if delta < 0 {
		delta = 0
	}
	if delta > l.maxFrameDelta {
		delta = l.maxFrameDelta
	}
	l.lastFrame = now
	l.accumulator += delta

	for l.accumulator >= l.step {
		simulate()
		l.accumulator -= l.step
	}

	return float64(l.accumulator) / float64(l.step)
}
