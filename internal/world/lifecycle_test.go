package world

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTreeTemplate() *Template {
	return &Template{
		Subtype:      "tree",
		Kind:         KindResourceNode,
		MaxHealth:    150,
		RespawnDelay: 45 * time.Second,
		HitDrop:      DropTable{Kind: "wood", Chance: 1.0, MinQuantity: 1, MaxQuantity: 1},
		DeathDrop:    DropTable{Kind: "wood", MinQuantity: 3, MaxQuantity: 6},
	}
}

func newEngineWithObject(t *testing.T, tpl *Template) (*Engine, *Object) {
	t.Helper()
	table := NewTable()
	obj := &Object{
		ID:       "obj-1",
		Template: tpl,
		Health:   tpl.MaxHealth,
	}
	table.Add(obj)
	return NewEngine(table, rand.New(rand.NewSource(1))), obj
}

// TestApplyDamageFullCycle прогоняет дерево с 150 здоровья через пять
// ударов по 30: гарантированный per-hit дроп на каждом ударе, включая
// добивающий, плюс ровно один death-дроп
func TestApplyDamageFullCycle(t *testing.T) {
	engine, obj := newEngineWithObject(t, newTreeTemplate())
	now := time.Now()

	// События одного удара упорядочены: damaged -> hit-drop -> destroyed -> death-drop
	var hitDrops, deathDrops, destroyed int
	for i := 0; i < 5; i++ {
		events := engine.ApplyDamage("obj-1", 30, "player-1", now)
		require.NotEmpty(t, events)

		seenDestroyed := false
		for _, ev := range events {
			switch ev.(type) {
			case DestroyedEvent:
				seenDestroyed = true
				destroyed++
			case LootDrop:
				if seenDestroyed {
					deathDrops++
				} else {
					hitDrops++
				}
			}
		}
	}

	assert.Equal(t, 5, hitDrops, "per-hit дроп бросается на каждом ударе, включая добивающий")
	assert.Equal(t, 1, deathDrops, "death-дроп ровно один")
	assert.Equal(t, 1, destroyed)
	assert.False(t, obj.Present())
	require.NotNil(t, obj.RespawnAt)
	assert.Equal(t, now.Add(45*time.Second), *obj.RespawnAt)
}

// TestApplyDamageAbsentObjectNoOp проверяет, что урон по уничтоженному
// объекту игнорируется: второго death-дропа не бывает
func TestApplyDamageAbsentObjectNoOp(t *testing.T) {
	engine, obj := newEngineWithObject(t, newTreeTemplate())
	now := time.Now()

	events := engine.ApplyDamage("obj-1", 500, "player-1", now)
	require.NotEmpty(t, events)
	assert.False(t, obj.Present())

	assert.Nil(t, engine.ApplyDamage("obj-1", 30, "player-2", now))
	assert.Nil(t, engine.ApplyDamage("missing", 30, "player-1", now))
	assert.Nil(t, engine.ApplyDamage("obj-1", 0, "player-1", now), "нулевой урон не событие")
	assert.Nil(t, engine.ApplyDamage("obj-1", -10, "player-1", now))
}

// TestHealthClamp проверяет, что здоровье не уходит ниже нуля
func TestHealthClamp(t *testing.T) {
	engine, obj := newEngineWithObject(t, newTreeTemplate())

	events := engine.ApplyDamage("obj-1", 9999, "player-1", time.Now())
	require.NotEmpty(t, events)

	assert.Equal(t, 0.0, obj.Health)
	for _, ev := range events {
		if damaged, ok := ev.(DamagedEvent); ok {
			assert.Equal(t, 0.0, damaged.Health, "клиентам уходит уже ограниченное значение")
		}
	}
}

// TestKillCredit проверяет зачёт убийства последнему атакующему
func TestKillCredit(t *testing.T) {
	tpl := newTreeTemplate()
	tpl.KillReward = 25
	engine, _ := newEngineWithObject(t, tpl)
	now := time.Now()

	engine.ApplyDamage("obj-1", 140, "player-1", now)
	events := engine.ApplyDamage("obj-1", 20, "player-2", now)

	var killed *KilledEvent
	for _, ev := range events {
		if k, ok := ev.(KilledEvent); ok {
			killed = &k
		}
	}
	require.NotNil(t, killed)
	assert.Equal(t, "player-2", killed.KillerID, "убийство зачитывается добившему")
	assert.Equal(t, int64(25), killed.Reward)
}

// TestRespawnBoundary проверяет точную границу срока респавна:
// за миллисекунду до срока объект отсутствует, в сам срок — возрождается
func TestRespawnBoundary(t *testing.T) {
	engine, obj := newEngineWithObject(t, newTreeTemplate())
	killedAt := time.Unix(1000, 0)

	engine.ApplyDamage("obj-1", 150, "player-1", killedAt)
	require.False(t, obj.Present())

	early := killedAt.Add(45*time.Second - time.Millisecond)
	assert.Empty(t, engine.Tick(early), "44999 мс — ещё рано")
	assert.False(t, obj.Present())

	exact := killedAt.Add(45 * time.Second)
	events := engine.Tick(exact)
	require.Len(t, events, 1)

	respawn, ok := events[0].(SpawnedEvent)
	require.True(t, ok)
	assert.Equal(t, EventObjectRespawned, respawn.Type)
	assert.Equal(t, 150.0, respawn.Health, "возрождение с полным здоровьем")

	assert.True(t, obj.Present())
	assert.Nil(t, obj.RespawnAt)
	assert.Equal(t, 150.0, obj.Health)
}

// TestRespawnIdempotent проверяет, что повторные тики после возрождения
// не порождают дублей
func TestRespawnIdempotent(t *testing.T) {
	engine, _ := newEngineWithObject(t, newTreeTemplate())
	killedAt := time.Unix(1000, 0)

	engine.ApplyDamage("obj-1", 150, "player-1", killedAt)

	after := killedAt.Add(time.Minute)
	assert.Len(t, engine.Tick(after), 1)
	assert.Empty(t, engine.Tick(after))
	assert.Empty(t, engine.Tick(after.Add(time.Hour)))
}

// TestHitDropChanceZero проверяет, что ненастроенный per-hit дроп
// никогда не выпадает
func TestHitDropChanceZero(t *testing.T) {
	tpl := newTreeTemplate()
	tpl.HitDrop = DropTable{}
	engine, _ := newEngineWithObject(t, tpl)

	events := engine.ApplyDamage("obj-1", 30, "player-1", time.Now())
	for _, ev := range events {
		_, isDrop := ev.(LootDrop)
		assert.False(t, isDrop)
	}
}

// TestDeathDropQuantityRange проверяет диапазон количества death-дропа
func TestDeathDropQuantityRange(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		table := NewTable()
		tpl := newTreeTemplate()
		table.Add(&Object{ID: "obj-1", Template: tpl, Health: tpl.MaxHealth})
		engine := NewEngine(table, rand.New(rand.NewSource(seed)))

		events := engine.ApplyDamage("obj-1", 150, "player-1", time.Now())
		seenDestroyed := false
		for _, ev := range events {
			switch ev := ev.(type) {
			case DestroyedEvent:
				seenDestroyed = true
			case LootDrop:
				if seenDestroyed {
					assert.GreaterOrEqual(t, ev.Quantity, 3)
					assert.LessOrEqual(t, ev.Quantity, 6)
				}
			}
		}
		require.True(t, seenDestroyed)
	}
}

// TestDeathDropVariants проверяет выбор варианта из настроенного набора
func TestDeathDropVariants(t *testing.T) {
	variants := []string{"fire", "water", "earth", "wind"}
	seen := make(map[string]bool)

	for seed := int64(0); seed < 40; seed++ {
		table := NewTable()
		tpl := &Template{
			Subtype:      "imp",
			Kind:         KindCreature,
			MaxHealth:    90,
			RespawnDelay: 30 * time.Second,
			DeathDrop:    DropTable{Kind: "talisman", MinQuantity: 1, MaxQuantity: 1, Variants: variants},
		}
		table.Add(&Object{ID: "imp-1", Template: tpl, Health: tpl.MaxHealth})
		engine := NewEngine(table, rand.New(rand.NewSource(seed)))

		for _, ev := range engine.ApplyDamage("imp-1", 90, "player-1", time.Now()) {
			if drop, ok := ev.(LootDrop); ok {
				assert.Contains(t, variants, drop.Variant)
				seen[drop.Variant] = true
			}
		}
	}

	assert.Greater(t, len(seen), 1, "разные seed дают разные варианты")
}
