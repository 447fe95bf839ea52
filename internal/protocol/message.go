// Package protocol определяет закрытый набор сообщений протокола
// синхронизации: типизированные конверты {type, payload} с одним
// вариантом на каждый вид интента/события.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/annel0/arena-sync/internal/vec"
)

// MessageType определяет тип сообщения в конверте
type MessageType string

const (
	// === Клиент -> сервер ===
	MsgHello  MessageType = "hello"  // Представление при подключении
	MsgMove   MessageType = "move"   // Предсказанная клиентом позиция персонажа
	MsgAttack MessageType = "attack" // Запрос урона по цели

	// === Сервер -> клиент ===
	MsgWelcome         MessageType = "welcome"          // Параметры сессии и назначенный персонаж
	MsgCatchUp         MessageType = "catch_up"         // Полное состояние присутствующих объектов
	MsgSnapshot        MessageType = "snapshot"         // Периодический снимок персонажей
	MsgObjectSpawned   MessageType = "object_spawned"   // Объект появился
	MsgObjectDamaged   MessageType = "object_damaged"   // Объект получил урон
	MsgObjectDestroyed MessageType = "object_destroyed" // Объект уничтожен
	MsgObjectRespawned MessageType = "object_respawned" // Объект возродился
	MsgLootDropped     MessageType = "loot_dropped"     // Выпал лут
)

// Envelope — универсальный контейнер сообщения протокола
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode сериализует полезную нагрузку в конверт указанного типа
func Encode(msgType MessageType, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload %s: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// Decode разбирает байты в конверт
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, nil
}

// DecodePayload разбирает полезную нагрузку конверта в указанную структуру
func (e *Envelope) DecodePayload(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("unmarshal payload %s: %w", e.Type, err)
	}
	return nil
}

// === Полезные нагрузки: клиент -> сервер ===

// Hello — первое сообщение клиента
type Hello struct {
	Name string `json:"name"`
}

// Move несёт предсказанную клиентом позицию собственного персонажа.
// Сервер доверяет ей в пределах арены; коррекция только при телепортах.
type Move struct {
	Pos vec.Vec2 `json:"pos"`
}

// Attack — запрос урона по цели
type Attack struct {
	TargetID string  `json:"target_id"`
	Amount   float64 `json:"amount"`
}

// === Полезные нагрузки: сервер -> клиент ===

// Welcome сообщает клиенту параметры сессии. Параметры интерполяции
// и prediction объявляет сервер: клиенты не хардкодят локальную политику.
type Welcome struct {
	CharacterID         string  `json:"character_id"`
	TickRateHz          int     `json:"tick_rate_hz"`
	SnapshotPeriodMs    int64   `json:"snapshot_period_ms"`
	ArenaRadius         float64 `json:"arena_radius"`
	InterpDelayMs       int64   `json:"interp_delay_ms"`
	CorrectionThreshold float64 `json:"correction_threshold"`
	SampleWindowMs      int64   `json:"sample_window_ms"`
}

// ObjectState — полное состояние присутствующего объекта
type ObjectState struct {
	ID        string   `json:"id"`
	Subtype   string   `json:"subtype"`
	Kind      string   `json:"kind"`
	Pos       vec.Vec2 `json:"pos"`
	Height    float64  `json:"height"`
	Health    float64  `json:"health"`
	MaxHealth float64  `json:"max_health"`
}

// CatchUp — стартовый burst полного состояния для нового клиента.
// Отправляется до регистрации в периодической рассылке, поэтому дельты
// после него достаточны для консистентности.
type CatchUp struct {
	Objects []ObjectState `json:"objects"`
}

// CharacterState — позиция и здоровье персонажа в снимке
type CharacterState struct {
	ID        string   `json:"id"`
	Pos       vec.Vec2 `json:"pos"`
	Health    float64  `json:"health"`
	MaxHealth float64  `json:"max_health"`
}

// Snapshot — периодический авторитетный снимок всех присутствующих
// персонажей. Ресурсы и существа меняются редко и синхронизируются
// дискретными событиями, а не снимком.
type Snapshot struct {
	Tick       uint64           `json:"tick"`
	ServerTime int64            `json:"server_time"` // unix ms
	Characters []CharacterState `json:"characters"`
}

// ObjectDamaged — объект получил урон
type ObjectDamaged struct {
	ID        string  `json:"id"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`
}

// ObjectDestroyed — объект стал отсутствующим
type ObjectDestroyed struct {
	ID string `json:"id"`
}

// LootDropped — транзиентное событие лута для коллаборатора инвентаря
type LootDropped struct {
	ObjectID string   `json:"object_id"`
	SourceID string   `json:"source_id"`
	Kind     string   `json:"kind"`
	Quantity int      `json:"quantity"`
	Pos      vec.Vec2 `json:"pos"`
	Variant  string   `json:"variant,omitempty"`
}
