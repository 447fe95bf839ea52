package game

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/protocol"
	"github.com/annel0/arena-sync/internal/vec"
	"github.com/annel0/arena-sync/internal/world"
)

// fakeChannel — канал в память для тестов тика: копит отправленное,
// опционально падает на отправке
type fakeChannel struct {
	sent   [][]byte
	failAt int // Отправка с этим порядковым номером (с нуля) вернёт ошибку; -1 — никогда
	closed bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{failAt: -1}
}

func (f *fakeChannel) Send(data []byte) error {
	if f.closed {
		return network.ErrChannelClosed
	}
	if f.failAt >= 0 && len(f.sent) == f.failAt {
		return network.ErrBufferFull
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeChannel) Receive() ([]byte, error)      { return nil, network.ErrChannelClosed }
func (f *fakeChannel) Close() error                  { f.closed = true; return nil }
func (f *fakeChannel) RemoteAddr() string            { return "fake" }
func (f *fakeChannel) Stats() network.ConnectionStats { return network.ConnectionStats{} }

// decodeSent разбирает отправленные клиенту конверты
func decodeSent(t *testing.T, ch *fakeChannel) []*protocol.Envelope {
	t.Helper()
	envs := make([]*protocol.Envelope, 0, len(ch.sent))
	for _, raw := range ch.sent {
		env, err := protocol.Decode(raw)
		require.NoError(t, err)
		envs = append(envs, env)
	}
	return envs
}

func newTestLoop(t *testing.T) (*Loop, *world.Table, *Queue) {
	t.Helper()
	cfg := config.Default()
	table := world.NewTable()
	engine := world.NewEngine(table, rand.New(rand.NewSource(1)))
	intents := NewQueue(64)
	hub := network.NewHub(func(clientID string) {
		intents.TryEnqueue(LeaveIntent{SessionID: clientID})
	})
	loop := NewLoop(cfg, table, engine, hub, intents, rand.New(rand.NewSource(1)))
	return loop, table, intents
}

// addTree добавляет дерево в таблицу для атак
func addTree(table *world.Table, id string) *world.Object {
	tpl := &world.Template{
		Subtype:      "tree",
		Kind:         world.KindResourceNode,
		MaxHealth:    150,
		RespawnDelay: 45 * time.Second,
	}
	obj := &world.Object{ID: id, Template: tpl, Pos: vec.Vec2{X: 100}, Health: 150}
	table.Add(obj)
	return obj
}

// TestJoinDeliversWelcomeAndCatchUp проверяет последовательность входа:
// welcome, затем полный catch-up без собственного персонажа, затем
// spawn собственного персонажа отдельным событием
func TestJoinDeliversWelcomeAndCatchUp(t *testing.T) {
	loop, table, intents := newTestLoop(t)
	addTree(table, "tree-1")

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})

	now := time.Unix(1000, 0)
	loop.Step(now)

	envs := decodeSent(t, ch)
	require.GreaterOrEqual(t, len(envs), 3)

	assert.Equal(t, protocol.MsgWelcome, envs[0].Type)
	var welcome protocol.Welcome
	require.NoError(t, envs[0].DecodePayload(&welcome))
	assert.NotEmpty(t, welcome.CharacterID)
	assert.Equal(t, 20, welcome.TickRateHz)
	assert.Equal(t, 350.0, welcome.ArenaRadius)
	assert.Equal(t, int64(100), welcome.InterpDelayMs, "задержка интерполяции — два периода снимка")
	assert.Equal(t, 5.0, welcome.CorrectionThreshold)
	assert.Equal(t, int64(1000), welcome.SampleWindowMs)

	assert.Equal(t, protocol.MsgCatchUp, envs[1].Type)
	var catchUp protocol.CatchUp
	require.NoError(t, envs[1].DecodePayload(&catchUp))
	require.Len(t, catchUp.Objects, 1, "catch-up содержит мир до входа, без собственного персонажа")
	assert.Equal(t, "tree-1", catchUp.Objects[0].ID)

	// Spawn собственного персонажа приходит дельтой после catch-up
	var sawOwnSpawn bool
	for _, env := range envs[2:] {
		if env.Type != protocol.MsgObjectSpawned {
			continue
		}
		var state protocol.ObjectState
		require.NoError(t, env.DecodePayload(&state))
		if state.ID == welcome.CharacterID {
			sawOwnSpawn = true
			assert.Equal(t, "character", state.Subtype)
		}
	}
	assert.True(t, sawOwnSpawn)

	assert.Equal(t, 1, loop.SessionCount())
	assert.Equal(t, 2, table.Len())
}

// TestLeaveIdempotent проверяет выход: повторный leave не порождает
// второго события снятия персонажа
func TestLeaveIdempotent(t *testing.T) {
	loop, table, intents := newTestLoop(t)

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})
	loop.Step(time.Unix(1000, 0))
	require.Equal(t, 1, loop.SessionCount())

	intents.TryEnqueue(LeaveIntent{SessionID: "sess-1"})
	intents.TryEnqueue(LeaveIntent{SessionID: "sess-1"})
	loop.Step(time.Unix(1001, 0))

	assert.Equal(t, 0, loop.SessionCount())
	assert.Equal(t, 0, table.Len())

	// Выход несуществующей сессии — no-op
	intents.TryEnqueue(LeaveIntent{SessionID: "ghost"})
	loop.Step(time.Unix(1002, 0))
	assert.Equal(t, 0, loop.SessionCount())
}

// TestMoveValidation проверяет приём валидной позиции и молчаливый
// отброс позиции вне арены
func TestMoveValidation(t *testing.T) {
	loop, table, intents := newTestLoop(t)

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})
	loop.Step(time.Unix(1000, 0))

	envs := decodeSent(t, ch)
	var welcome protocol.Welcome
	require.NoError(t, envs[0].DecodePayload(&welcome))

	valid := vec.Vec2{X: 50, Z: 50}
	intents.TryEnqueue(MoveIntent{SessionID: "sess-1", Pos: valid})
	loop.Step(time.Unix(1001, 0))

	obj, ok := table.Get(welcome.CharacterID)
	require.True(t, ok)
	assert.Equal(t, valid, obj.Pos)

	// Точка далеко за гексагоном радиуса 350 отбрасывается
	intents.TryEnqueue(MoveIntent{SessionID: "sess-1", Pos: vec.Vec2{X: 1000, Z: 1000}})
	loop.Step(time.Unix(1002, 0))
	assert.Equal(t, valid, obj.Pos, "позиция не изменилась")
}

// TestAttackBounds проверяет отброс внедиапазонного урона
func TestAttackBounds(t *testing.T) {
	loop, table, intents := newTestLoop(t)
	tree := addTree(table, "tree-1")

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})
	loop.Step(time.Unix(1000, 0))

	// Невалидные значения урона игнорируются
	intents.TryEnqueue(AttackIntent{SessionID: "sess-1", TargetID: "tree-1", Amount: -5})
	intents.TryEnqueue(AttackIntent{SessionID: "sess-1", TargetID: "tree-1", Amount: 0})
	intents.TryEnqueue(AttackIntent{SessionID: "sess-1", TargetID: "tree-1", Amount: 999})
	intents.TryEnqueue(AttackIntent{SessionID: "sess-1", TargetID: "tree-1", Amount: math.NaN()})
	loop.Step(time.Unix(1001, 0))
	assert.Equal(t, 150.0, tree.Health)

	// Интент от неизвестной сессии тоже
	intents.TryEnqueue(AttackIntent{SessionID: "ghost", TargetID: "tree-1", Amount: 30})
	loop.Step(time.Unix(1002, 0))
	assert.Equal(t, 150.0, tree.Health)

	// Валидный удар применяется
	intents.TryEnqueue(AttackIntent{SessionID: "sess-1", TargetID: "tree-1", Amount: 30})
	loop.Step(time.Unix(1003, 0))
	assert.Equal(t, 120.0, tree.Health)
}

// TestSnapshotContainsOnlyCharacters проверяет состав снимка:
// персонажи присутствуют, деревья синхронизируются событиями
func TestSnapshotContainsOnlyCharacters(t *testing.T) {
	loop, table, intents := newTestLoop(t)
	addTree(table, "tree-1")

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})
	loop.Step(time.Unix(1000, 0))

	ch.sent = nil
	loop.Step(time.Unix(1001, 0))

	envs := decodeSent(t, ch)
	require.NotEmpty(t, envs)

	var snapshot *protocol.Snapshot
	for _, env := range envs {
		if env.Type == protocol.MsgSnapshot {
			var s protocol.Snapshot
			require.NoError(t, env.DecodePayload(&s))
			snapshot = &s
		}
	}
	require.NotNil(t, snapshot)
	require.Len(t, snapshot.Characters, 1)
	assert.Equal(t, time.Unix(1001, 0).UnixMilli(), snapshot.ServerTime)
}

// TestBroadcastFailureDisconnects проверяет политику best-effort:
// клиент с переполненным буфером отключается и его персонаж снимается
// на следующем тике
func TestBroadcastFailureDisconnects(t *testing.T) {
	loop, table, intents := newTestLoop(t)

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})
	loop.Step(time.Unix(1000, 0))
	require.Equal(t, 1, loop.SessionCount())

	// Все дальнейшие отправки падают
	ch.failAt = len(ch.sent)
	loop.Step(time.Unix(1001, 0))

	// hub отключил клиента и поставил leave-интент; следующий тик его применит
	loop.Step(time.Unix(1002, 0))
	assert.Equal(t, 0, loop.SessionCount())
	assert.Equal(t, 0, table.Len())
	assert.True(t, ch.closed)
}

// TestStatusSnapshot проверяет снимок состояния для статусного API
func TestStatusSnapshot(t *testing.T) {
	loop, table, intents := newTestLoop(t)
	addTree(table, "tree-1")
	addTree(table, "tree-2")

	ch := newFakeChannel()
	intents.TryEnqueue(JoinIntent{SessionID: "sess-1", Name: "alice", Channel: ch})
	loop.Step(time.Unix(1000, 0))

	status := loop.Status()
	assert.Equal(t, uint64(1), status.Tick)
	assert.Equal(t, 1, status.Sessions)
	assert.Equal(t, 2, status.Objects["resource_node"])
	assert.Equal(t, 1, status.Objects["character"])
}
