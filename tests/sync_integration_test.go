package tests

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/game"
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/protocol"
	"github.com/annel0/arena-sync/internal/vec"
	"github.com/annel0/arena-sync/internal/world"
)

// testServer — полный стек сервера на loopback-адресах для интеграционных тестов
type testServer struct {
	server *network.Server
	cancel context.CancelFunc
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	// Компактный мир, чтобы catch-up был детерминированно маленьким
	cfg.World.Population = []config.SubtypeConfig{
		{
			Name: "tree", Kind: "resource_node", Count: 3,
			MinRadius: 60, MaxRadius: 200, Spacing: 25,
			MaxHealth: 150, RespawnDelayMs: 45000,
			DeathDrop: config.DropConfig{Kind: "wood", MinQuantity: 3, MaxQuantity: 6},
		},
	}

	rng := rand.New(rand.NewSource(7))
	table := world.NewTable()
	world.Populate(table, cfg.World, rng)
	engine := world.NewEngine(table, rng)

	intents := game.NewQueue(256)
	gateway := game.NewGateway(intents)
	hub := network.NewHub(func(clientID string) {
		intents.TryEnqueue(game.LeaveIntent{SessionID: clientID})
	})
	loop := game.NewLoop(cfg, table, engine, hub, intents, rng)

	server := network.NewServer("127.0.0.1:0", "127.0.0.1:0", network.DefaultChannelConfig(),
		func(ch network.NetChannel) {
			go gateway.HandleChannel(ch)
		})
	require.NoError(t, server.Start())

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	ts := &testServer{server: server, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		server.Stop()
	})
	return ts
}

// receiveEnvelope читает следующее сообщение с таймаутом
func receiveEnvelope(t *testing.T, ch network.NetChannel, timeout time.Duration) *protocol.Envelope {
	t.Helper()

	type result struct {
		env *protocol.Envelope
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := ch.Receive()
		if err != nil {
			done <- result{err: err}
			return
		}
		env, err := protocol.Decode(raw)
		done <- result{env: env, err: err}
	}()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.env
	case <-time.After(timeout):
		t.Fatal("таймаут ожидания сообщения")
		return nil
	}
}

// waitForType пропускает сообщения до первого указанного типа
func waitForType(t *testing.T, ch network.NetChannel, want protocol.MessageType, timeout time.Duration) *protocol.Envelope {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		env := receiveEnvelope(t, ch, time.Until(deadline))
		if env.Type == want {
			return env
		}
	}
	t.Fatalf("сообщение %s не получено за %v", want, timeout)
	return nil
}

// connect выполняет handshake и возвращает канал с параметрами сессии
func connect(t *testing.T, ts *testServer, name string) (network.NetChannel, protocol.Welcome, protocol.CatchUp) {
	t.Helper()

	ch, err := network.DialTCP(ts.server.TCPAddr(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ch.Close() })

	hello, err := protocol.Encode(protocol.MsgHello, protocol.Hello{Name: name})
	require.NoError(t, err)
	require.NoError(t, ch.Send(hello))

	env := receiveEnvelope(t, ch, 2*time.Second)
	require.Equal(t, protocol.MsgWelcome, env.Type)
	var welcome protocol.Welcome
	require.NoError(t, env.DecodePayload(&welcome))

	env = receiveEnvelope(t, ch, 2*time.Second)
	require.Equal(t, protocol.MsgCatchUp, env.Type)
	var catchUp protocol.CatchUp
	require.NoError(t, env.DecodePayload(&catchUp))

	return ch, welcome, catchUp
}

// TestHandshakeOverTCP проверяет вход по TCP: welcome с параметрами
// синхронизации, затем catch-up с миром
func TestHandshakeOverTCP(t *testing.T) {
	ts := startTestServer(t)

	_, welcome, catchUp := connect(t, ts, "alice")

	assert.NotEmpty(t, welcome.CharacterID)
	assert.Equal(t, 20, welcome.TickRateHz)
	assert.Equal(t, int64(50), welcome.SnapshotPeriodMs)
	assert.Equal(t, 350.0, welcome.ArenaRadius)
	assert.Equal(t, int64(100), welcome.InterpDelayMs)
	assert.Equal(t, 5.0, welcome.CorrectionThreshold)
	assert.Equal(t, int64(1000), welcome.SampleWindowMs)

	require.Len(t, catchUp.Objects, 3, "мир из трёх деревьев")
	for _, obj := range catchUp.Objects {
		assert.Equal(t, "tree", obj.Subtype)
		assert.Equal(t, 150.0, obj.Health)
	}
}

// TestAttackProducesDamageEvent проверяет полный путь интента:
// attack по каналу -> авторитетный тик -> damaged-событие в рассылке
func TestAttackProducesDamageEvent(t *testing.T) {
	ts := startTestServer(t)

	ch, _, catchUp := connect(t, ts, "alice")
	target := catchUp.Objects[0]

	attack, err := protocol.Encode(protocol.MsgAttack, protocol.Attack{
		TargetID: target.ID,
		Amount:   30,
	})
	require.NoError(t, err)
	require.NoError(t, ch.Send(attack))

	env := waitForType(t, ch, protocol.MsgObjectDamaged, 3*time.Second)
	var damaged protocol.ObjectDamaged
	require.NoError(t, env.DecodePayload(&damaged))
	assert.Equal(t, target.ID, damaged.ID)
	assert.Equal(t, 120.0, damaged.Health)
}

// TestMoveReflectedInSnapshot проверяет, что принятая позиция
// возвращается в следующем снимке
func TestMoveReflectedInSnapshot(t *testing.T) {
	ts := startTestServer(t)

	ch, welcome, _ := connect(t, ts, "alice")

	pos := vec.Vec2{X: 42, Z: -17}
	move, err := protocol.Encode(protocol.MsgMove, protocol.Move{Pos: pos})
	require.NoError(t, err)
	require.NoError(t, ch.Send(move))

	// Снимки идут каждый тик; ждём тот, где позиция уже применена
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		env := waitForType(t, ch, protocol.MsgSnapshot, time.Until(deadline))
		var snapshot protocol.Snapshot
		require.NoError(t, env.DecodePayload(&snapshot))

		for _, c := range snapshot.Characters {
			if c.ID == welcome.CharacterID && c.Pos == pos {
				return
			}
		}
	}
	t.Fatal("позиция не отразилась в снимке")
}

// TestSecondClientSeesSpawn проверяет fan-out: подключение второго
// игрока приходит первому событием spawn
func TestSecondClientSeesSpawn(t *testing.T) {
	ts := startTestServer(t)

	chA, welcomeA, _ := connect(t, ts, "alice")
	_, welcomeB, catchUpB := connect(t, ts, "bob")

	// Bob видит персонажа Alice в catch-up
	var sawAlice bool
	for _, obj := range catchUpB.Objects {
		if obj.ID == welcomeA.CharacterID {
			sawAlice = true
			assert.Equal(t, "character", obj.Subtype)
		}
	}
	assert.True(t, sawAlice, "catch-up второго игрока содержит персонажа первого")

	// Alice получает spawn персонажа Bob дельтой
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		env := waitForType(t, chA, protocol.MsgObjectSpawned, time.Until(deadline))
		var state protocol.ObjectState
		require.NoError(t, env.DecodePayload(&state))
		if state.ID == welcomeB.CharacterID {
			return
		}
	}
	t.Fatal("spawn второго игрока не получен первым")
}
