package game

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/eventbus"
	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/protocol"
	"github.com/annel0/arena-sync/internal/vec"
	"github.com/annel0/arena-sync/internal/world"
)

const (
	// Верхняя граница валидного урона одного удара; запросы вне
	// диапазона отбрасываются молча
	maxAttackDamage = 50.0

	characterMaxHealth    = 100.0
	characterRespawnDelay = 5 * time.Second

	eventSource = "arena-sync"
)

// session — состояние подключённого игрока, видимое только тику
type session struct {
	id          string
	name        string
	characterID string
}

// Loop — авторитетный тик сервера. Единственный писатель таблицы
// объектов и сессий: интенты копятся конкурентно, применяются
// синхронно на границе тика. Рассылка работает с готовым снимком,
// никогда с наполовину изменённым состоянием.
type Loop struct {
	cfg     config.SyncConfig
	table   *world.Table
	engine  *world.Engine
	hub     *network.Hub
	intents *Queue

	arena       world.Hexagon
	arenaRadius float64
	spawnZone   config.SafeZoneConfig
	heights     *world.HeightField
	charTpl     *world.Template
	rng         *rand.Rand

	sessions map[string]*session
	tick     uint64
	logger   *logging.Logger

	// Снимок состояния для статусного API: REST-горутина не читает
	// таблицу объектов напрямую, только готовую копию под мьютексом
	statusMu sync.RWMutex
	status   Status
}

// Status — снимок состояния тика для статусного API
type Status struct {
	Tick     uint64         `json:"tick"`
	Sessions int            `json:"sessions"`
	Objects  map[string]int `json:"objects"` // Присутствующие объекты по видам
}

// NewLoop создаёт тик над готовой таблицей мира
func NewLoop(cfg *config.Config, table *world.Table, engine *world.Engine, hub *network.Hub, intents *Queue, rng *rand.Rand) *Loop {
	spawnZone := config.SafeZoneConfig{Radius: 10}
	if len(cfg.World.SafeZones) > 0 {
		spawnZone = cfg.World.SafeZones[0]
	}

	return &Loop{
		cfg:         cfg.Sync,
		table:       table,
		engine:      engine,
		hub:         hub,
		intents:     intents,
		arena:       world.NewHexagon(cfg.World.ArenaRadius),
		arenaRadius: cfg.World.ArenaRadius,
		spawnZone:   spawnZone,
		heights:     world.NewHeightField(cfg.World.Seed),
		charTpl: &world.Template{
			Subtype:      "character",
			Kind:         world.KindCharacter,
			MaxHealth:    characterMaxHealth,
			RespawnDelay: characterRespawnDelay,
		},
		rng:      rng,
		sessions: make(map[string]*session),
		logger:   logging.GetGameLogger(),
	}
}

// Run выполняет тики с фиксированной частотой до отмены контекста
func (l *Loop) Run(ctx context.Context) {
	period := l.cfg.TickPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	l.logger.Info("авторитетный тик запущен: период %v", period)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("авторитетный тик остановлен")
			return
		case <-ticker.C:
			l.Step(time.Now())
		}
	}
}

// Step выполняет один тик с инжектированным временем: дренаж интентов,
// продвижение жизненного цикла, рассылка событий и снимка.
func (l *Loop) Step(now time.Time) {
	var events []world.Event

	for _, in := range l.intents.Drain() {
		switch in := in.(type) {
		case JoinIntent:
			events = append(events, l.handleJoin(in)...)
		case LeaveIntent:
			events = append(events, l.handleLeave(in)...)
		case MoveIntent:
			l.handleMove(in)
		case AttackIntent:
			events = append(events, l.handleAttack(in, now)...)
		}
	}

	events = append(events, l.engine.Tick(now)...)

	l.dispatchEvents(events, now)
	l.broadcastSnapshot(now)
	l.tick++
	l.updateStatus()
}

// updateStatus обновляет снимок для статусного API в конце тика
func (l *Loop) updateStatus() {
	l.statusMu.Lock()
	l.status = Status{
		Tick:     l.tick,
		Sessions: len(l.sessions),
		Objects:  l.table.CountByKind(),
	}
	l.statusMu.Unlock()
}

// Status возвращает снимок состояния последнего завершённого тика.
// Безопасен для вызова из любой горутины.
func (l *Loop) Status() Status {
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	return l.status
}

// Tick возвращает номер текущего тика
func (l *Loop) Tick() uint64 { return l.tick }

// SessionCount возвращает число активных сессий
func (l *Loop) SessionCount() int { return len(l.sessions) }

// handleJoin создаёт персонажа и регистрирует клиента в рассылке.
// Catch-up составляется и отправляется до регистрации, событие спавна
// уходит широковещательно после неё — ни пропуска, ни дубликата.
func (l *Loop) handleJoin(in JoinIntent) []world.Event {
	catchUp, err := l.encodeCatchUp()
	if err != nil {
		l.logger.Error("ошибка сериализации catch-up: %v", err)
		in.Channel.Close()
		return nil
	}

	characterID := uuid.NewString()
	pos := l.spawnPosition()
	obj := &world.Object{
		ID:       characterID,
		Template: l.charTpl,
		Pos:      pos,
		Height:   l.heights.HeightAt(pos.X, pos.Z),
		Health:   l.charTpl.MaxHealth,
	}

	welcome, err := protocol.Encode(protocol.MsgWelcome, protocol.Welcome{
		CharacterID:         characterID,
		TickRateHz:          int(time.Second / l.cfg.TickPeriod()),
		SnapshotPeriodMs:    l.cfg.TickPeriod().Milliseconds(),
		ArenaRadius:         l.arenaRadius,
		InterpDelayMs:       l.cfg.InterpDelay().Milliseconds(),
		CorrectionThreshold: l.cfg.GetCorrectionThreshold(),
		SampleWindowMs:      l.cfg.SampleWindow().Milliseconds(),
	})
	if err != nil {
		l.logger.Error("ошибка сериализации welcome: %v", err)
		in.Channel.Close()
		return nil
	}

	client := &network.Client{
		ID:          in.SessionID,
		Name:        in.Name,
		CharacterID: characterID,
		Channel:     in.Channel,
	}
	if !l.hub.Register(client, welcome, catchUp) {
		return nil
	}

	l.table.Add(obj)
	l.sessions[in.SessionID] = &session{
		id:          in.SessionID,
		name:        in.Name,
		characterID: characterID,
	}

	l.logger.Info("игрок %s (%s) вошёл, персонаж %s", in.Name, in.SessionID, characterID)

	return []world.Event{world.SpawnedEvent{
		Type:      world.EventObjectSpawned,
		ObjectID:  obj.ID,
		Subtype:   l.charTpl.Subtype,
		Kind:      world.KindCharacter,
		Pos:       obj.Pos,
		Height:    obj.Height,
		Health:    obj.Health,
		MaxHealth: l.charTpl.MaxHealth,
	}}
}

// handleLeave снимает сессию и её персонажа. Идемпотентен: интент
// может прийти и от шлюза, и от hub'а при ошибке отправки.
func (l *Loop) handleLeave(in LeaveIntent) []world.Event {
	sess, ok := l.sessions[in.SessionID]
	if !ok {
		return nil
	}

	delete(l.sessions, in.SessionID)
	l.table.Remove(sess.characterID)
	l.hub.Unregister(in.SessionID)

	l.logger.Info("игрок %s вышел, персонаж %s снят", sess.name, sess.characterID)

	return []world.Event{world.DestroyedEvent{ObjectID: sess.characterID}}
}

// handleMove принимает предсказанную клиентом позицию его персонажа.
// Позиция вне арены — невалидный интент, отбрасывается молча.
func (l *Loop) handleMove(in MoveIntent) {
	sess, ok := l.sessions[in.SessionID]
	if !ok {
		return
	}
	obj, ok := l.table.Get(sess.characterID)
	if !ok || !obj.Present() {
		return
	}
	if !l.arena.Contains(in.Pos) {
		return
	}
	obj.Pos = in.Pos
}

// handleAttack применяет урон через движок жизненного цикла
func (l *Loop) handleAttack(in AttackIntent, now time.Time) []world.Event {
	sess, ok := l.sessions[in.SessionID]
	if !ok {
		return nil
	}
	if in.Amount <= 0 || in.Amount > maxAttackDamage || math.IsNaN(in.Amount) {
		return nil
	}
	return l.engine.ApplyDamage(in.TargetID, in.Amount, sess.characterID, now)
}

// dispatchEvents рассылает события клиентам и публикует события
// лута/прогрессии во внешнюю шину
func (l *Loop) dispatchEvents(events []world.Event, now time.Time) {
	for _, ev := range events {
		if msgType, payload, ok := eventToMessage(ev); ok {
			data, err := protocol.Encode(msgType, payload)
			if err != nil {
				l.logger.Error("ошибка сериализации события %s: %v", ev.GetType(), err)
				continue
			}
			l.hub.Broadcast(data)
		}

		switch ev.(type) {
		case world.LootDrop, world.KilledEvent:
			l.publishToBus(ev, now)
		}
	}
}

// broadcastSnapshot составляет и рассылает снимок присутствующих
// персонажей. Потерянный снимок не ретраится: следующий его заменит.
func (l *Loop) broadcastSnapshot(now time.Time) {
	snapshot := protocol.Snapshot{
		Tick:       l.tick,
		ServerTime: now.UnixMilli(),
	}

	l.table.ForEach(func(obj *world.Object) {
		if obj.Template.Kind != world.KindCharacter || !obj.Present() {
			return
		}
		snapshot.Characters = append(snapshot.Characters, protocol.CharacterState{
			ID:        obj.ID,
			Pos:       obj.Pos,
			Health:    obj.Health,
			MaxHealth: obj.Template.MaxHealth,
		})
	})

	data, err := protocol.Encode(protocol.MsgSnapshot, snapshot)
	if err != nil {
		l.logger.Error("ошибка сериализации снимка: %v", err)
		return
	}
	l.hub.Broadcast(data)
}

// encodeCatchUp сериализует полное состояние присутствующих объектов
func (l *Loop) encodeCatchUp() ([]byte, error) {
	var catchUp protocol.CatchUp
	for _, obj := range l.table.Present() {
		catchUp.Objects = append(catchUp.Objects, objectState(obj))
	}
	return protocol.Encode(protocol.MsgCatchUp, catchUp)
}

// spawnPosition выбирает точку появления персонажа в безопасной зоне
func (l *Loop) spawnPosition() vec.Vec2 {
	center := vec.Vec2{X: l.spawnZone.X, Z: l.spawnZone.Z}
	angle := l.rng.Float64() * 2 * math.Pi
	radius := l.rng.Float64() * l.spawnZone.Radius * 0.5
	return center.Add(vec.FromPolar(angle, radius))
}

// publishToBus публикует событие во внешнюю шину для коллаборатора
// инвентаря/прогрессии. Ошибки не фатальны.
func (l *Loop) publishToBus(ev world.Event, now time.Time) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_ = eventbus.Publish(context.Background(), &eventbus.Envelope{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Source:    eventSource,
		EventType: ev.GetType().String(),
		Payload:   payload,
	})
}

// objectState конвертирует объект в протокольное представление
func objectState(obj *world.Object) protocol.ObjectState {
	return protocol.ObjectState{
		ID:        obj.ID,
		Subtype:   obj.Template.Subtype,
		Kind:      obj.Template.Kind.String(),
		Pos:       obj.Pos,
		Height:    obj.Height,
		Health:    obj.Health,
		MaxHealth: obj.Template.MaxHealth,
	}
}

// eventToMessage конвертирует событие жизненного цикла в сообщение
// протокола; false — событие клиентам не рассылается
func eventToMessage(ev world.Event) (protocol.MessageType, interface{}, bool) {
	switch ev := ev.(type) {
	case world.SpawnedEvent:
		msgType := protocol.MsgObjectSpawned
		if ev.Type == world.EventObjectRespawned {
			msgType = protocol.MsgObjectRespawned
		}
		return msgType, protocol.ObjectState{
			ID:        ev.ObjectID,
			Subtype:   ev.Subtype,
			Kind:      ev.Kind.String(),
			Pos:       ev.Pos,
			Height:    ev.Height,
			Health:    ev.Health,
			MaxHealth: ev.MaxHealth,
		}, true
	case world.DamagedEvent:
		return protocol.MsgObjectDamaged, protocol.ObjectDamaged{
			ID:        ev.ObjectID,
			Health:    ev.Health,
			MaxHealth: ev.MaxHealth,
		}, true
	case world.DestroyedEvent:
		return protocol.MsgObjectDestroyed, protocol.ObjectDestroyed{ID: ev.ObjectID}, true
	case world.LootDrop:
		return protocol.MsgLootDropped, protocol.LootDropped{
			ObjectID: ev.ObjectID,
			SourceID: ev.SourceID,
			Kind:     ev.Kind,
			Quantity: ev.Quantity,
			Pos:      ev.Pos,
			Variant:  ev.Variant,
		}, true
	default:
		// KilledEvent уходит только во внешнюю шину прогрессии
		return "", nil, false
	}
}
