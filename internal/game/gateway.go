package game

import (
	"github.com/google/uuid"

	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/protocol"
)

// Gateway переводит сообщения принятых каналов в интенты тика.
// Некорректные и неизвестные сообщения отбрасываются молча: интенты —
// это идемпотентные запросы клиента, а не команды с подтверждением.
type Gateway struct {
	queue  *Queue
	logger *logging.Logger
}

// NewGateway создаёт шлюз над очередью интентов
func NewGateway(queue *Queue) *Gateway {
	return &Gateway{
		queue:  queue,
		logger: logging.GetNetworkLogger(),
	}
}

// HandleChannel обслуживает один канал: handshake, затем чтение интентов
// до закрытия. Запускается в отдельной горутине на каждое соединение.
func (g *Gateway) HandleChannel(ch network.NetChannel) {
	sessionID := uuid.NewString()

	// Первым сообщением клиент обязан представиться
	data, err := ch.Receive()
	if err != nil {
		ch.Close()
		return
	}
	env, err := protocol.Decode(data)
	if err != nil || env.Type != protocol.MsgHello {
		g.logger.Debug("канал %s: ожидался hello, соединение закрыто", ch.RemoteAddr())
		ch.Close()
		return
	}
	var hello protocol.Hello
	if err := env.DecodePayload(&hello); err != nil {
		ch.Close()
		return
	}

	g.queue.TryEnqueue(JoinIntent{SessionID: sessionID, Name: hello.Name, Channel: ch})

	for {
		data, err := ch.Receive()
		if err != nil {
			// Дисконнект: cleanup идемпотентен, повторный leave безопасен
			g.queue.TryEnqueue(LeaveIntent{SessionID: sessionID})
			return
		}
		g.dispatch(sessionID, data)
	}
}

// dispatch разбирает сообщение и ставит соответствующий интент
func (g *Gateway) dispatch(sessionID string, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		return
	}

	switch env.Type {
	case protocol.MsgMove:
		var move protocol.Move
		if err := env.DecodePayload(&move); err != nil {
			return
		}
		g.queue.TryEnqueue(MoveIntent{SessionID: sessionID, Pos: move.Pos})

	case protocol.MsgAttack:
		var attack protocol.Attack
		if err := env.DecodePayload(&attack); err != nil {
			return
		}
		g.queue.TryEnqueue(AttackIntent{
			SessionID: sessionID,
			TargetID:  attack.TargetID,
			Amount:    attack.Amount,
		})

	default:
		// Неизвестный тип — молча игнорируем
	}
}
