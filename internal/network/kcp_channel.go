package network

import (
	"fmt"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/arena-sync/internal/logging"
)

// tuneKCP настраивает KCP параметры для игрового трафика
func tuneKCP(conn *kcp.UDPSession) {
	conn.SetStreamMode(true)
	conn.SetWriteDelay(false)
	conn.SetNoDelay(1, 20, 2, 1) // Агрессивные настройки для игр
	conn.SetWindowSize(512, 512)
	conn.SetMtu(1400)
}

// NewKCPChannel создаёт канал сообщений из принятой KCP-сессии.
// KCP даёт надёжную упорядоченную доставку поверх UDP.
func NewKCPChannel(conn *kcp.UDPSession, config *ChannelConfig, logger *logging.Logger) (NetChannel, error) {
	tuneKCP(conn)
	return newStreamChannel(conn, config, logger)
}

// DialKCP подключается к серверу по KCP и возвращает канал сообщений
func DialKCP(addr string, config *ChannelConfig, logger *logging.Logger) (NetChannel, error) {
	conn, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("kcp dial %s: %w", addr, err)
	}
	tuneKCP(conn)
	return newStreamChannel(conn, config, logger)
}
