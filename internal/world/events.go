package world

import (
	"github.com/annel0/arena-sync/internal/vec"
)

// EventType определяет тип события жизненного цикла
type EventType uint8

const (
	EventObjectSpawned   EventType = iota // Объект появился (начальная популяция)
	EventObjectDamaged                    // Объект получил урон
	EventObjectDestroyed                  // Объект уничтожен, ждёт респавна
	EventObjectRespawned                  // Объект возродился
	EventLootDropped                      // Выпал лут
	EventObjectKilled                     // Зачёт убийства для прогрессии
)

// String возвращает строковое представление типа события
func (t EventType) String() string {
	switch t {
	case EventObjectSpawned:
		return "object_spawned"
	case EventObjectDamaged:
		return "object_damaged"
	case EventObjectDestroyed:
		return "object_destroyed"
	case EventObjectRespawned:
		return "object_respawned"
	case EventLootDropped:
		return "loot_dropped"
	case EventObjectKilled:
		return "object_killed"
	default:
		return "unknown"
	}
}

// Event представляет собой интерфейс для всех событий жизненного цикла.
// События возвращаются явным срезом из каждого вызова движка —
// коллбеков и неявного control flow нет.
type Event interface {
	GetType() EventType
}

// SpawnedEvent — объект материализован (спавн или респавн).
// Несёт статические поля шаблона для клиентов, включая поздно подключившихся.
type SpawnedEvent struct {
	Type      EventType // EventObjectSpawned или EventObjectRespawned
	ObjectID  string
	Subtype   string
	Kind      ObjectKind
	Pos       vec.Vec2
	Height    float64
	Health    float64
	MaxHealth float64
}

// GetType возвращает тип события
func (e SpawnedEvent) GetType() EventType { return e.Type }

// DamagedEvent — объект получил урон, но присутствует
type DamagedEvent struct {
	ObjectID  string
	SourceID  string
	Health    float64
	MaxHealth float64
}

// GetType возвращает тип события
func (e DamagedEvent) GetType() EventType { return EventObjectDamaged }

// DestroyedEvent — здоровье достигло нуля, объект стал отсутствующим
type DestroyedEvent struct {
	ObjectID string
	SourceID string // Источник последнего декремента
}

// GetType возвращает тип события
func (e DestroyedEvent) GetType() EventType { return EventObjectDestroyed }

// LootDrop — транзиентное событие выпадения лута.
// Передаётся коллаборатору инвентаря, ядром не хранится.
type LootDrop struct {
	ObjectID string
	SourceID string
	Kind     string
	Quantity int
	Pos      vec.Vec2
	Variant  string // Пусто, если подтип не даёт вариантной награды
}

// GetType возвращает тип события
func (e LootDrop) GetType() EventType { return EventLootDropped }

// KilledEvent — зачёт убийства внешнему коллаборатору прогрессии.
// Кредит получает источник декремента, достигшего нуля.
type KilledEvent struct {
	ObjectID string
	KillerID string
	Reward   int64
}

// GetType возвращает тип события
func (e KilledEvent) GetType() EventType { return EventObjectKilled }
