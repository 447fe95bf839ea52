package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("условие не выполнилось за отведённое время")
}

// TestMemoryBusDelivery проверяет доставку события подписчику
func TestMemoryBusDelivery(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var got []*Envelope
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{
		ID:        "ev-1",
		EventType: "loot_dropped",
		Source:    "arena-sync",
	}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	mu.Lock()
	assert.Equal(t, "ev-1", got[0].ID)
	mu.Unlock()

	stats := bus.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
}

// TestMemoryBusFilter проверяет фильтрацию по типу события
func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	var types []string
	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{"object_killed"}},
		func(ctx context.Context, ev *Envelope) {
			mu.Lock()
			types = append(types, ev.EventType)
			mu.Unlock()
		})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "loot_dropped"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "object_killed"}))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(types) == 1
	})

	mu.Lock()
	assert.Equal(t, []string{"object_killed"}, types)
	mu.Unlock()
}

// TestMemoryBusDropsOnFullBuffer проверяет best-effort политику:
// переполненный буфер не блокирует публикацию
func TestMemoryBusDropsOnFullBuffer(t *testing.T) {
	bus := NewMemoryBus(1)

	// Без подписчиков dispatchLoop опустошает буфер; заполняем
	// быстрее, чем он успевает — хотя бы часть публикаций дропнется
	for i := 0; i < 1000; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "loot_dropped"}))
	}

	stats := bus.Metrics()
	assert.Equal(t, uint64(1000), stats.Published+stats.Dropped)
}

// TestUnsubscribeStopsDelivery проверяет отписку
func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus(16)

	var mu sync.Mutex
	count := 0
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}))
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	sub.Unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "b"}))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, count)
	mu.Unlock()
}

// TestDurableNameStable проверяет, что имя durable consumer детерминировано:
// не зависит от порядка типов в фильтре и не содержит точек.
func TestDurableNameStable(t *testing.T) {
	assert.Equal(t, "arena-sync-all", durableName(Filter{}))

	a := durableName(Filter{Types: []string{"loot_dropped", "object_destroyed"}})
	b := durableName(Filter{Types: []string{"object_destroyed", "loot_dropped"}})
	assert.Equal(t, a, b)
	assert.Equal(t, "arena-sync-loot_dropped-object_destroyed", a)

	assert.NotContains(t, durableName(Filter{Types: []string{"loot.dropped"}}), ".")
}
