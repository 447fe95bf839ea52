package network

import (
	"net"

	"github.com/annel0/arena-sync/internal/logging"
)

// NewTCPChannel создаёт канал сообщений из принятого TCP-соединения
func NewTCPChannel(conn net.Conn, config *ChannelConfig, logger *logging.Logger) (NetChannel, error) {
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		// Игровой трафик чувствителен к задержке
		_ = tcpConn.SetNoDelay(true)
	}
	return newStreamChannel(conn, config, logger)
}

// DialTCP подключается к серверу по TCP и возвращает канал сообщений
func DialTCP(addr string, config *ChannelConfig, logger *logging.Logger) (NetChannel, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewTCPChannel(conn, config, logger)
}
