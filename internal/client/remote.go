package client

import (
	"sync"
	"time"

	"github.com/annel0/arena-sync/internal/vec"
)

// RemoteEntities ведёт интерполяционные буферы всех не-локальных
// сетевых сущностей: на каждую — свой буфер, создаваемый при первом
// сэмпле и удаляемый при уничтожении сущности.
type RemoteEntities struct {
	mu      sync.Mutex
	buffers map[string]*InterpolationBuffer
	delay   time.Duration
	window  time.Duration
}

// NewRemoteEntities создаёт реестр удалённых сущностей
func NewRemoteEntities(delay, window time.Duration) *RemoteEntities {
	return &RemoteEntities{
		buffers: make(map[string]*InterpolationBuffer),
		delay:   delay,
		window:  window,
	}
}

// Observe добавляет сэмпл позиции сущности
func (r *RemoteEntities) Observe(id string, pos vec.Vec2, at time.Time) {
	r.mu.Lock()
	buf, ok := r.buffers[id]
	if !ok {
		buf = NewInterpolationBuffer(r.delay, r.window)
		r.buffers[id] = buf
	}
	r.mu.Unlock()

	buf.Push(pos, at)
}

// Remove удаляет буфер уничтоженной сущности. Идемпотентен.
func (r *RemoteEntities) Remove(id string) {
	r.mu.Lock()
	delete(r.buffers, id)
	r.mu.Unlock()
}

// Count возвращает число отслеживаемых сущностей
func (r *RemoteEntities) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// RenderPositions возвращает интерполированные позиции всех сущностей
// на момент now
func (r *RemoteEntities) RenderPositions(now time.Time) map[string]vec.Vec2 {
	r.mu.Lock()
	ids := make([]string, 0, len(r.buffers))
	bufs := make([]*InterpolationBuffer, 0, len(r.buffers))
	for id, buf := range r.buffers {
		ids = append(ids, id)
		bufs = append(bufs, buf)
	}
	r.mu.Unlock()

	positions := make(map[string]vec.Vec2, len(ids))
	for i, buf := range bufs {
		if pos, ok := buf.PositionAt(now); ok {
			positions[ids[i]] = pos
		}
	}
	return positions
}
