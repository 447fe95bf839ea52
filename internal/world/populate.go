package world

import (
	"math/rand"

	"github.com/google/uuid"

	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/vec"
)

// Populate заполняет таблицу начальной популяцией мира по конфигурации:
// размещает каждый подтип через движок размещения и возвращает события
// спавна для трансляции клиентам. Популяция генерируется заново при каждом
// старте процесса — на диске ничего не хранится.
func Populate(table *Table, cfg config.WorldConfig, rng *rand.Rand) []Event {
	arena := NewHexagon(cfg.ArenaRadius)
	zones := make([]Circle, 0, len(cfg.SafeZones))
	for _, z := range cfg.SafeZones {
		zones = append(zones, Circle{Center: vec.Vec2{X: z.X, Z: z.Z}, Radius: z.Radius})
	}

	placer := NewPlacer(arena, zones, rng)
	heights := NewHeightField(cfg.Seed)

	var events []Event
	for _, sub := range cfg.Population {
		tpl := TemplateFromConfig(sub)
		positions := placer.Place(PlacementSpec{
			Subtype:   sub.Name,
			Count:     sub.Count,
			MinRadius: sub.MinRadius,
			MaxRadius: sub.MaxRadius,
			Spacing:   sub.Spacing,
		})

		for _, pos := range positions {
			obj := &Object{
				ID:       uuid.NewString(),
				Template: tpl,
				Pos:      pos,
				Height:   heights.HeightAt(pos.X, pos.Z),
				Health:   tpl.MaxHealth,
			}
			table.Add(obj)
			events = append(events, SpawnedEvent{
				Type:      EventObjectSpawned,
				ObjectID:  obj.ID,
				Subtype:   tpl.Subtype,
				Kind:      tpl.Kind,
				Pos:       obj.Pos,
				Height:    obj.Height,
				Health:    obj.Health,
				MaxHealth: tpl.MaxHealth,
			})
		}
	}

	return events
}
