package client

import (
	"sync"
	"time"

	"github.com/annel0/arena-sync/internal/vec"
)

// Sample — один сетевой сэмпл позиции удалённой сущности
type Sample struct {
	Pos vec.Vec2
	At  time.Time // Локальное время получения
}

// InterpolationBuffer хранит ограниченное окно сэмплов удалённой
// сущности и отдаёт отложенную интерполированную позицию. Рендер идёт
// с постоянной задержкой delay позади новейших данных, поэтому между
// двумя известными точками всегда есть что интерполировать — буфер
// никогда не угадывает будущую позицию.
//
// Сетевая горутина добавляет сэмплы, рендер читает; секция короткая.
type InterpolationBuffer struct {
	mu      sync.Mutex
	samples []Sample
	delay   time.Duration // Задержка интерполяции (кратна периоду снимка)
	window  time.Duration // Окно хранения (~1 секунда)
}

// NewInterpolationBuffer создаёт буфер с указанной задержкой и окном
func NewInterpolationBuffer(delay, window time.Duration) *InterpolationBuffer {
	return &InterpolationBuffer{
		delay:  delay,
		window: window,
	}
}

// Push добавляет сэмпл и обрезает окно. Сэмплы приходят по надёжному
// упорядоченному каналу, поэтому времена получения монотонны.
func (b *InterpolationBuffer) Push(pos vec.Vec2, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, Sample{Pos: pos, At: at})

	// Отбрасываем сэмплы старше окна относительно новейшего
	cutoff := at.Add(-b.window)
	firstKept := 0
	for firstKept < len(b.samples)-1 && b.samples[firstKept].At.Before(cutoff) {
		firstKept++
	}
	if firstKept > 0 {
		b.samples = append(b.samples[:0], b.samples[firstKept:]...)
	}
}

// Len возвращает число сэмплов в окне
func (b *InterpolationBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// PositionAt возвращает позицию для рендера в момент now:
// renderTime = now - delay, линейная интерполяция между двумя
// охватывающими сэмплами. За пределами новейшего сэмпла отдаётся
// он сам (экстраполяции нет); при единственном сэмпле — он как есть.
// false — сэмплов ещё нет.
func (b *InterpolationBuffer) PositionAt(now time.Time) (vec.Vec2, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.samples) == 0 {
		return vec.Vec2{}, false
	}
	if len(b.samples) == 1 {
		return b.samples[0].Pos, true
	}

	renderTime := now.Add(-b.delay)

	newest := b.samples[len(b.samples)-1]
	if !renderTime.Before(newest.At) {
		return newest.Pos, true
	}

	oldest := b.samples[0]
	if !renderTime.After(oldest.At) {
		return oldest.Pos, true
	}

	// Ищем пару последовательных сэмплов, охватывающих renderTime
	for i := 1; i < len(b.samples); i++ {
		left, right := b.samples[i-1], b.samples[i]
		if renderTime.After(right.At) {
			continue
		}

		span := right.At.Sub(left.At)
		if span <= 0 {
			return right.Pos, true
		}
		t := float64(renderTime.Sub(left.At)) / float64(span)
		return left.Pos.Lerp(right.Pos, t), true
	}

	return newest.Pos, true
}
