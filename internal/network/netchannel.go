// Package network предоставляет транспорт игрового протокола:
// надёжные упорядоченные каналы сообщений (TCP, KCP) и fan-out
// рассылку снимков подключённым клиентам.
package network

import (
	"errors"
	"time"
)

// ErrBufferFull возвращается при переполнении буфера отправки.
// Для hub это сигнал отключения клиента: рассылка не блокируется.
var ErrBufferFull = errors.New("send buffer full")

// ErrChannelClosed возвращается при операции над закрытым каналом
var ErrChannelClosed = errors.New("channel closed")

// ConnectionStats содержит статистику соединения
type ConnectionStats struct {
	MessagesSent     uint64
	MessagesReceived uint64
	BytesSent        uint64
	BytesReceived    uint64
	LastActivity     time.Time
	Connected        bool
	RemoteAddr       string
}

// NetChannel — надёжный упорядоченный канал сообщений с одним клиентом.
// Send неблокирующий: при заполненном буфере возвращает ErrBufferFull.
type NetChannel interface {
	Send(data []byte) error
	Receive() ([]byte, error)
	Close() error
	RemoteAddr() string
	Stats() ConnectionStats
}

// ChannelConfig содержит конфигурацию канала
type ChannelConfig struct {
	BufferSize   int           // Глубина буферов отправки/приёма
	WriteTimeout time.Duration // Таймаут записи кадра в сокет
	CompressFrom int           // Минимальный размер кадра для zstd, байт; 0 — без сжатия
}

// DefaultChannelConfig возвращает конфигурацию канала по умолчанию
func DefaultChannelConfig() *ChannelConfig {
	return &ChannelConfig{
		BufferSize:   64,
		WriteTimeout: 10 * time.Second,
		CompressFrom: 4096,
	}
}
