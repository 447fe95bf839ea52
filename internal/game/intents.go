// Package game реализует авторитетный тик сервера: единственный
// писатель состояния мира и сессий.
package game

import (
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/vec"
)

// Intent — входное намерение клиента или транспорта. Закрытый набор
// вариантов; каждый потребляется ровно один раз при дренаже очереди.
type Intent interface {
	intentTag()
}

// JoinIntent — новый канал прошёл handshake и ждёт регистрации
type JoinIntent struct {
	SessionID string
	Name      string
	Channel   network.NetChannel
}

// LeaveIntent — канал закрыт или клиент исключён из рассылки
type LeaveIntent struct {
	SessionID string
}

// MoveIntent несёт предсказанную клиентом позицию собственного персонажа
type MoveIntent struct {
	SessionID string
	Pos       vec.Vec2
}

// AttackIntent — запрос урона по цели
type AttackIntent struct {
	SessionID string
	TargetID  string
	Amount    float64
}

func (JoinIntent) intentTag()   {}
func (LeaveIntent) intentTag()  {}
func (MoveIntent) intentTag()   {}
func (AttackIntent) intentTag() {}

// Queue — ограниченная очередь интентов: сетевые горутины кладут
// конкурентно, тик дренирует синхронно на границе. Блокировки таблицы
// объектов из нескольких писателей не нужны.
type Queue struct {
	ch      chan Intent
	metrics *network.Metrics
}

// NewQueue создаёт очередь указанной ёмкости
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch:      make(chan Intent, capacity),
		metrics: network.GetMetrics(),
	}
}

// TryEnqueue ставит интент без блокировки; при переполнении интент
// отбрасывается — клиент просто увидит неизменённое состояние.
func (q *Queue) TryEnqueue(in Intent) bool {
	select {
	case q.ch <- in:
		return true
	default:
		q.metrics.IntentsDropped.Inc()
		return false
	}
}

// Drain забирает все интенты, накопленные к началу тика
func (q *Queue) Drain() []Intent {
	var drained []Intent
	for {
		select {
		case in := <-q.ch:
			drained = append(drained, in)
		default:
			return drained
		}
	}
}
