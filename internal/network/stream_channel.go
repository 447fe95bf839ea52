package network

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/arena-sync/internal/logging"
)

// streamChannel реализует NetChannel поверх любого потокового net.Conn
// (TCP-соединение или KCP-сессия). Отправка идёт через буферизованный
// канал и отдельную горутину записи: медленный клиент не блокирует
// вызывающего, переполнение буфера — сигнал отключения.
type streamChannel struct {
	conn   net.Conn
	config *ChannelConfig
	codec  *frameCodec
	logger *logging.Logger

	sendBuffer chan []byte
	recvBuffer chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closed atomic.Bool

	// Статистика
	messagesSent     atomic.Uint64
	messagesReceived atomic.Uint64
	bytesSent        atomic.Uint64
	bytesReceived    atomic.Uint64

	mu           sync.RWMutex
	lastActivity time.Time
	recvErr      error
}

// newStreamChannel оборачивает соединение в канал сообщений
func newStreamChannel(conn net.Conn, config *ChannelConfig, logger *logging.Logger) (*streamChannel, error) {
	if config == nil {
		config = DefaultChannelConfig()
	}
	if logger == nil {
		logger = logging.GetNetworkLogger()
	}
	codec, err := newFrameCodec(config.CompressFrom)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := &streamChannel{
		conn:         conn,
		config:       config,
		codec:        codec,
		logger:       logger,
		sendBuffer:   make(chan []byte, config.BufferSize),
		recvBuffer:   make(chan []byte, config.BufferSize),
		ctx:          ctx,
		cancel:       cancel,
		lastActivity: time.Now(),
	}

	ch.wg.Add(2)
	go ch.sendLoop()
	go ch.receiveLoop()

	return ch, nil
}

// Send ставит сообщение в очередь отправки без блокировки
func (ch *streamChannel) Send(data []byte) error {
	if ch.closed.Load() {
		return ErrChannelClosed
	}

	select {
	case ch.sendBuffer <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Receive блокируется до следующего входящего сообщения или закрытия канала
func (ch *streamChannel) Receive() ([]byte, error) {
	data, ok := <-ch.recvBuffer
	if !ok {
		ch.mu.RLock()
		err := ch.recvErr
		ch.mu.RUnlock()
		if err == nil {
			err = ErrChannelClosed
		}
		return nil, err
	}
	return data, nil
}

// Close закрывает канал и соединение. Идемпотентен.
func (ch *streamChannel) Close() error {
	if !ch.closed.CompareAndSwap(false, true) {
		return nil
	}
	ch.cancel()
	err := ch.conn.Close()
	ch.wg.Wait()
	return err
}

// RemoteAddr возвращает адрес удалённого узла
func (ch *streamChannel) RemoteAddr() string {
	return ch.conn.RemoteAddr().String()
}

// Stats возвращает статистику соединения
func (ch *streamChannel) Stats() ConnectionStats {
	ch.mu.RLock()
	lastActivity := ch.lastActivity
	ch.mu.RUnlock()

	return ConnectionStats{
		MessagesSent:     ch.messagesSent.Load(),
		MessagesReceived: ch.messagesReceived.Load(),
		BytesSent:        ch.bytesSent.Load(),
		BytesReceived:    ch.bytesReceived.Load(),
		LastActivity:     lastActivity,
		Connected:        !ch.closed.Load(),
		RemoteAddr:       ch.conn.RemoteAddr().String(),
	}
}

// sendLoop пишет кадры из буфера в сокет
func (ch *streamChannel) sendLoop() {
	defer ch.wg.Done()

	for {
		select {
		case <-ch.ctx.Done():
			return
		case data := <-ch.sendBuffer:
			if ch.config.WriteTimeout > 0 {
				_ = ch.conn.SetWriteDeadline(time.Now().Add(ch.config.WriteTimeout))
			}
			if err := ch.codec.writeFrame(ch.conn, data); err != nil {
				if !ch.closed.Load() {
					ch.logger.Debug("ошибка записи кадра %s: %v", ch.RemoteAddr(), err)
				}
				ch.cancel()
				return
			}
			ch.messagesSent.Add(1)
			ch.bytesSent.Add(uint64(len(data)))
			ch.touch()
		}
	}
}

// receiveLoop читает кадры из сокета в буфер приёма
func (ch *streamChannel) receiveLoop() {
	defer ch.wg.Done()
	defer close(ch.recvBuffer)

	for {
		data, err := ch.codec.readFrame(ch.conn)
		if err != nil {
			ch.mu.Lock()
			ch.recvErr = err
			ch.mu.Unlock()
			ch.cancel()
			return
		}

		ch.messagesReceived.Add(1)
		ch.bytesReceived.Add(uint64(len(data)))
		ch.touch()

		select {
		case ch.recvBuffer <- data:
		case <-ch.ctx.Done():
			return
		}
	}
}

func (ch *streamChannel) touch() {
	ch.mu.Lock()
	ch.lastActivity = time.Now()
	ch.mu.Unlock()
}
