package network

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/arena-sync/internal/logging"
)

// Server принимает игровые соединения по TCP и KCP и передаёт
// готовые каналы обработчику. Обработчик отвечает за handshake
// и дальнейший жизненный цикл канала.
type Server struct {
	tcpAddr string
	kcpAddr string
	config  *ChannelConfig
	logger  *logging.Logger

	onChannel func(NetChannel)

	tcpListener net.Listener
	kcpListener *kcp.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer создаёт сервер, слушающий оба транспорта
func NewServer(tcpAddr, kcpAddr string, config *ChannelConfig, onChannel func(NetChannel)) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		tcpAddr:   tcpAddr,
		kcpAddr:   kcpAddr,
		config:    config,
		logger:    logging.GetNetworkLogger(),
		onChannel: onChannel,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start запускает accept-циклы обоих транспортов
func (s *Server) Start() error {
	tcpListener, err := net.Listen("tcp", s.tcpAddr)
	if err != nil {
		return fmt.Errorf("tcp listen %s: %w", s.tcpAddr, err)
	}
	s.tcpListener = tcpListener

	kcpListener, err := kcp.ListenWithOptions(s.kcpAddr, nil, 0, 0)
	if err != nil {
		tcpListener.Close()
		return fmt.Errorf("kcp listen %s: %w", s.kcpAddr, err)
	}
	s.kcpListener = kcpListener

	s.wg.Add(2)
	go s.acceptTCP()
	go s.acceptKCP()

	s.logger.Info("🚀 Игровой сервер слушает TCP %s, KCP %s", s.tcpAddr, s.kcpAddr)
	return nil
}

// TCPAddr возвращает фактический адрес TCP-слушателя; полезен при
// запуске на ":0"
func (s *Server) TCPAddr() string {
	if s.tcpListener == nil {
		return s.tcpAddr
	}
	return s.tcpListener.Addr().String()
}

// Stop останавливает accept-циклы. Уже принятые каналы закрывает hub.
func (s *Server) Stop() {
	s.cancel()
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
	if s.kcpListener != nil {
		s.kcpListener.Close()
	}
	s.wg.Wait()
	s.logger.Info("🛑 Игровой сервер остановлен")
}

// acceptTCP принимает входящие TCP-соединения
func (s *Server) acceptTCP() {
	defer s.wg.Done()

	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("ошибка accept TCP: %v", err)
				continue
			}
		}

		channel, err := NewTCPChannel(conn, s.config, s.logger)
		if err != nil {
			s.logger.Error("ошибка создания TCP канала: %v", err)
			conn.Close()
			continue
		}
		s.onChannel(channel)
	}
}

// acceptKCP принимает входящие KCP-сессии
func (s *Server) acceptKCP() {
	defer s.wg.Done()

	for {
		conn, err := s.kcpListener.AcceptKCP()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Error("ошибка accept KCP: %v", err)
				continue
			}
		}

		channel, err := NewKCPChannel(conn, s.config, s.logger)
		if err != nil {
			s.logger.Error("ошибка создания KCP канала: %v", err)
			conn.Close()
			continue
		}
		s.onChannel(channel)
	}
}
