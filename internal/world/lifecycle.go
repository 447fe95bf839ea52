package world

import (
	"math"
	"math/rand"
	"time"

	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/vec"
)

// Разброс позиции лута от объекта, чтобы дропы не складывались визуально
const (
	lootJitterMin = 0.5
	lootJitterMax = 2.0
)

// Engine владеет переходами жизненного цикла объектов:
// Alive -> Destroyed(ожидание респавна) -> Alive.
// Единственный мутатор здоровья и таймеров респавна; время инжектируется
// явным now, поэтому автомат детерминирован и тестируем без реальных пауз.
type Engine struct {
	table  *Table
	rng    *rand.Rand
	logger *logging.Logger
}

// NewEngine создаёт движок жизненного цикла над таблицей объектов
func NewEngine(table *Table, rng *rand.Rand) *Engine {
	return &Engine{
		table:  table,
		rng:    rng,
		logger: logging.GetWorldLogger(),
	}
}

// Table возвращает таблицу объектов движка
func (e *Engine) Table() *Table { return e.table }

// ApplyDamage применяет урон к объекту и возвращает события перехода.
// No-op для отсутствующего объекта: урон, пришедший в том же тике после
// обнуляющего декремента, игнорируется — двойных death-дропов не бывает.
func (e *Engine) ApplyDamage(id string, amount float64, sourceID string, now time.Time) []Event {
	obj, ok := e.table.Get(id)
	if !ok || !obj.Present() || amount <= 0 {
		return nil
	}

	obj.Health -= amount
	obj.ClampHealth()

	events := make([]Event, 0, 4)
	events = append(events, DamagedEvent{
		ObjectID:  obj.ID,
		SourceID:  sourceID,
		Health:    obj.Health,
		MaxHealth: obj.Template.MaxHealth,
	})

	// Per-hit дроп бросается на каждом нанесённом ударе независимо,
	// включая удар, обнуливший здоровье.
	if drop, ok := e.rollHitDrop(obj, sourceID); ok {
		events = append(events, drop)
	}

	if obj.Health <= 0 {
		events = append(events, e.destroy(obj, sourceID, now)...)
	}

	return events
}

// destroy переводит объект в состояние Destroyed: планирует респавн,
// бросает гарантированный death-дроп ровно один раз и зачитывает убийство
// источнику последнего декремента.
func (e *Engine) destroy(obj *Object, sourceID string, now time.Time) []Event {
	respawnAt := now.Add(obj.Template.RespawnDelay)
	obj.RespawnAt = &respawnAt

	events := []Event{DestroyedEvent{ObjectID: obj.ID, SourceID: sourceID}}

	if obj.Template.DeathDrop.Configured() {
		events = append(events, e.rollDeathDrop(obj, sourceID))
	}

	events = append(events, KilledEvent{
		ObjectID: obj.ID,
		KillerID: sourceID,
		Reward:   obj.Template.KillReward,
	})

	e.logger.Debug("объект %s (%s) уничтожен %s, респавн через %v",
		obj.ID, obj.Template.Subtype, sourceID, obj.Template.RespawnDelay)

	return events
}

// Tick возрождает все уничтоженные объекты, чей срок респавна наступил.
// Идемпотентен по отношению к одному уничтожению: RespawnAt сбрасывается
// при возрождении, повторные вызовы объект второй раз не возрождают.
func (e *Engine) Tick(now time.Time) []Event {
	var events []Event
	e.table.ForEach(func(obj *Object) {
		if obj.RespawnAt == nil || obj.RespawnAt.After(now) {
			return
		}
		obj.Health = obj.Template.MaxHealth
		obj.RespawnAt = nil
		events = append(events, SpawnedEvent{
			Type:      EventObjectRespawned,
			ObjectID:  obj.ID,
			Subtype:   obj.Template.Subtype,
			Kind:      obj.Template.Kind,
			Pos:       obj.Pos,
			Height:    obj.Height,
			Health:    obj.Health,
			MaxHealth: obj.Template.MaxHealth,
		})
	})
	return events
}

// rollHitDrop бросает вероятностный per-hit дроп
func (e *Engine) rollHitDrop(obj *Object, sourceID string) (LootDrop, bool) {
	table := obj.Template.HitDrop
	if !table.Configured() || e.rng.Float64() >= table.Chance {
		return LootDrop{}, false
	}
	return e.makeDrop(obj, sourceID, table), true
}

// rollDeathDrop бросает гарантированный death-дроп.
// Вызывается ровно один раз на уничтожение, вероятностного пропуска нет.
func (e *Engine) rollDeathDrop(obj *Object, sourceID string) LootDrop {
	return e.makeDrop(obj, sourceID, obj.Template.DeathDrop)
}

// makeDrop формирует лут: количество равномерно из [min, max] включительно,
// позиция с небольшим случайным смещением от объекта, вариант (если подтип
// даёт вариантную награду) выбирается равномерно из настроенного набора.
func (e *Engine) makeDrop(obj *Object, sourceID string, table DropTable) LootDrop {
	quantity := table.MinQuantity
	if table.MaxQuantity > table.MinQuantity {
		quantity += e.rng.Intn(table.MaxQuantity - table.MinQuantity + 1)
	}

	angle := e.rng.Float64() * 2 * math.Pi
	distance := lootJitterMin + e.rng.Float64()*(lootJitterMax-lootJitterMin)
	pos := obj.Pos.Add(vec.FromPolar(angle, distance))

	variant := ""
	if len(table.Variants) > 0 {
		variant = table.Variants[e.rng.Intn(len(table.Variants))]
	}

	return LootDrop{
		ObjectID: obj.ID,
		SourceID: sourceID,
		Kind:     table.Kind,
		Quantity: quantity,
		Pos:      pos,
		Variant:  variant,
	}
}
