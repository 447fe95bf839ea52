package main

import (
	"flag"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/annel0/arena-sync/internal/client"
	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/protocol"
	"github.com/annel0/arena-sync/internal/vec"
)

const (
	frameRate = 60 // Частота кадров клиентской симуляции
	moveSpeed = 12.0
)

// bot — headless-клиент: подключается к серверу, бродит по арене с
// локальным предсказанием и атакует ближайший объект из catch-up
type bot struct {
	channel network.NetChannel
	logger  *logging.Logger
	rng     *rand.Rand

	characterID string
	arenaRadius float64

	fixed     *client.FixedStepLoop
	predictor *client.Predictor
	remotes   *client.RemoteEntities

	// Известные объекты мира: цели для атак
	objects map[string]protocol.ObjectState

	waypoint vec.Vec2
}

func main() {
	var (
		addr     = flag.String("addr", "localhost:7777", "адрес сервера")
		useKCP   = flag.Bool("kcp", false, "подключаться по KCP вместо TCP")
		name     = flag.String("name", "bot", "имя персонажа")
		duration = flag.Duration("duration", 60*time.Second, "длительность сессии")
		attack   = flag.Bool("attack", true, "атаковать объекты мира")
	)
	flag.Parse()

	if err := logging.InitDefaultLogger("bot"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logger := logging.GetComponentLogger("bot")

	// Подключаемся к игровому серверу
	var (
		ch  network.NetChannel
		err error
	)
	if *useKCP {
		ch, err = network.DialKCP(*addr, nil, logger)
	} else {
		ch, err = network.DialTCP(*addr, nil, logger)
	}
	if err != nil {
		log.Fatalf("❌ Ошибка подключения к %s: %v", *addr, err)
	}
	defer ch.Close()

	b := &bot{
		channel: ch,
		logger:  logger,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		objects: make(map[string]protocol.ObjectState),
	}

	if err := b.handshake(*name); err != nil {
		log.Fatalf("❌ Ошибка рукопожатия: %v", err)
	}

	b.run(*duration, *attack)

	logger.Info("сессия завершена: коррекций предсказания %d, удалённых сущностей %d",
		b.predictor.Corrections(), b.remotes.Count())
}

// handshake отправляет hello и ждёт welcome + catch-up
func (b *bot) handshake(name string) error {
	data, err := protocol.Encode(protocol.MsgHello, protocol.Hello{Name: name})
	if err != nil {
		return err
	}
	if err := b.channel.Send(data); err != nil {
		return err
	}

	// Welcome и catch-up приходят до любых других сообщений
	gotCatchUp := false
	for b.characterID == "" || !gotCatchUp {
		raw, err := b.channel.Receive()
		if err != nil {
			return err
		}
		env, err := protocol.Decode(raw)
		if err != nil {
			return err
		}

		switch env.Type {
		case protocol.MsgWelcome:
			var welcome protocol.Welcome
			if err := env.DecodePayload(&welcome); err != nil {
				return err
			}
			b.characterID = welcome.CharacterID
			b.arenaRadius = welcome.ArenaRadius

			// Параметры интерполяции и prediction объявляет сервер:
			// задержка, окно сэмплов и порог коррекции приходят в welcome
			interpDelay := time.Duration(welcome.InterpDelayMs) * time.Millisecond
			sampleWindow := time.Duration(welcome.SampleWindowMs) * time.Millisecond
			b.remotes = client.NewRemoteEntities(interpDelay, sampleWindow)
			b.predictor = client.NewPredictor(welcome.CorrectionThreshold, vec.Vec2{})
			b.fixed = client.NewFixedStepLoop(time.Second / frameRate)

			b.logger.Info("✅ Подключён: персонаж %s, тик сервера %d Гц, арена %.0f",
				welcome.CharacterID, welcome.TickRateHz, welcome.ArenaRadius)

		case protocol.MsgCatchUp:
			var catchUp protocol.CatchUp
			if err := env.DecodePayload(&catchUp); err != nil {
				return err
			}
			for _, obj := range catchUp.Objects {
				b.objects[obj.ID] = obj
			}
			gotCatchUp = true
			b.logger.Info("📦 Catch-up: %d объектов", len(catchUp.Objects))
		}
	}

	b.waypoint = b.randomWaypoint()
	return nil
}

// run крутит клиентский цикл с фиксированным шагом до истечения сессии
func (b *bot) run(duration time.Duration, attack bool) {
	deadline := time.Now().Add(duration)

	// Приём сообщений в отдельной горутине, применение — в кадре
	incoming := make(chan *protocol.Envelope, 256)
	go func() {
		defer close(incoming)
		for {
			raw, err := b.channel.Receive()
			if err != nil {
				return
			}
			env, err := protocol.Decode(raw)
			if err != nil {
				b.logger.Warn("повреждённое сообщение: %v", err)
				continue
			}
			incoming <- env
		}
	}()

	frame := time.NewTicker(time.Second / frameRate)
	defer frame.Stop()

	report := time.NewTicker(10 * time.Second)
	defer report.Stop()

	lastAttack := time.Now()

	for now := range frame.C {
		if now.After(deadline) {
			return
		}

	drain:
		for {
			select {
			case env, ok := <-incoming:
				if !ok {
					b.logger.Warn("соединение закрыто сервером")
					return
				}
				b.apply(env, now)
			default:
				break drain
			}
		}

		// Фиксированный шаг: предсказание движения к вейпоинту
		b.fixed.Advance(now, func() {
			b.predictor.Step(b.waypoint, moveSpeed, b.fixed.Step().Seconds())
		})

		if b.predictor.Position().DistanceTo(b.waypoint) < 1.0 {
			b.waypoint = b.randomWaypoint()
		}

		b.sendMove()

		if attack && now.Sub(lastAttack) > 2*time.Second {
			b.attackNearest()
			lastAttack = now
		}

		select {
		case <-report.C:
			b.logger.Info("позиция (%.1f, %.1f), коррекций %d, удалённых %d",
				b.predictor.Position().X, b.predictor.Position().Z,
				b.predictor.Corrections(), b.remotes.Count())
		default:
		}
	}
}

// apply применяет сообщение сервера к локальному состоянию
func (b *bot) apply(env *protocol.Envelope, now time.Time) {
	switch env.Type {
	case protocol.MsgSnapshot:
		var snapshot protocol.Snapshot
		if err := env.DecodePayload(&snapshot); err != nil {
			b.logger.Warn("снимок не разобран: %v", err)
			return
		}
		for _, c := range snapshot.Characters {
			if c.ID == b.characterID {
				// Своя позиция: сверяем предсказание с сервером
				if b.predictor.Reconcile(c.Pos) {
					b.logger.Debug("коррекция предсказания к (%.1f, %.1f)", c.Pos.X, c.Pos.Z)
				}
				continue
			}
			// Чужие персонажи: в буфер интерполяции
			b.remotes.Observe(c.ID, c.Pos, now)
		}

	case protocol.MsgObjectSpawned, protocol.MsgObjectRespawned:
		var state protocol.ObjectState
		if err := env.DecodePayload(&state); err != nil {
			return
		}
		b.objects[state.ID] = state

	case protocol.MsgObjectDamaged:
		var damaged protocol.ObjectDamaged
		if err := env.DecodePayload(&damaged); err != nil {
			return
		}
		if obj, ok := b.objects[damaged.ID]; ok {
			obj.Health = damaged.Health
			b.objects[damaged.ID] = obj
		}

	case protocol.MsgObjectDestroyed:
		var destroyed protocol.ObjectDestroyed
		if err := env.DecodePayload(&destroyed); err != nil {
			return
		}
		delete(b.objects, destroyed.ID)
		b.remotes.Remove(destroyed.ID)

	case protocol.MsgLootDropped:
		var loot protocol.LootDropped
		if err := env.DecodePayload(&loot); err != nil {
			return
		}
		if loot.SourceID == b.characterID {
			b.logger.Info("💰 Лут: %s x%d %s", loot.Kind, loot.Quantity, loot.Variant)
		}
	}
}

// sendMove отправляет предсказанную позицию; переполненный буфер
// не ошибка — следующий кадр отправит свежую позицию
func (b *bot) sendMove() {
	data, err := protocol.Encode(protocol.MsgMove, protocol.Move{Pos: b.predictor.Position()})
	if err != nil {
		return
	}
	if err := b.channel.Send(data); err != nil && err != network.ErrBufferFull {
		b.logger.Warn("отправка move: %v", err)
	}
}

// attackNearest бьёт ближайший известный объект в радиусе досягаемости
func (b *bot) attackNearest() {
	const reach = 50.0

	var (
		targetID string
		best     = math.MaxFloat64
	)
	pos := b.predictor.Position()
	for id, obj := range b.objects {
		if id == b.characterID {
			continue
		}
		d := pos.DistanceTo(obj.Pos)
		if d < best && d <= reach {
			best = d
			targetID = id
		}
	}
	if targetID == "" {
		return
	}

	data, err := protocol.Encode(protocol.MsgAttack, protocol.Attack{
		TargetID: targetID,
		Amount:   10 + b.rng.Float64()*20,
	})
	if err != nil {
		return
	}
	if err := b.channel.Send(data); err != nil && err != network.ErrBufferFull {
		b.logger.Warn("отправка attack: %v", err)
	}
}

// randomWaypoint выбирает случайную точку внутри вписанной окружности
// арены, чтобы маршрут не выходил за границы гексагона
func (b *bot) randomWaypoint() vec.Vec2 {
	radius := b.arenaRadius * math.Sqrt(3) / 2 * 0.9
	return vec.FromPolar(b.rng.Float64()*2*math.Pi, b.rng.Float64()*radius)
}
