package network

import (
	"sync"

	"github.com/annel0/arena-sync/internal/logging"
)

// Client — подключённый клиент в наборе рассылки
type Client struct {
	ID          string // Идентификатор сессии
	Name        string
	CharacterID string // Персонаж, которым владеет клиент
	Channel     NetChannel
}

// ClientInfo — снимок клиента для статусного API
type ClientInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CharacterID string `json:"character_id"`
	RemoteAddr  string `json:"remote_addr"`
}

// Hub поддерживает живой набор клиентских каналов и рассылает им
// снимки и события. Рассылка best-effort per-channel: ошибка отправки
// исключает клиента из набора и запускает его cleanup, но никогда
// не блокирует и не срывает рассылку остальным.
//
// Регистрация нового клиента выполняется из авторитетного тика после
// отправки catch-up burst'а: между burst'ом и регистрацией рассылок
// не бывает, поэтому у клиента нет ни пропуска, ни дубликата.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	metrics      *Metrics
	logger       *logging.Logger
	onDisconnect func(clientID string)
}

// NewHub создаёт пустой hub. onDisconnect вызывается при любом
// исключении клиента из набора; обязан быть идемпотентным.
func NewHub(onDisconnect func(clientID string)) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		metrics:      GetMetrics(),
		logger:       logging.GetNetworkLogger(),
		onDisconnect: onDisconnect,
	}
}

// Register отправляет клиенту catch-up burst и добавляет его в набор
// рассылки. При ошибке отправки клиент закрывается и не регистрируется.
func (h *Hub) Register(c *Client, catchUp ...[]byte) bool {
	for _, msg := range catchUp {
		if err := c.Channel.Send(msg); err != nil {
			h.logger.Warn("catch-up не доставлен %s (%s): %v", c.ID, c.Channel.RemoteAddr(), err)
			c.Channel.Close()
			return false
		}
	}

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	h.metrics.ConnectionsTotal.Inc()
	h.metrics.ActiveConnections.Inc()
	h.logger.Info("клиент %s (%s) зарегистрирован, адрес %s", c.ID, c.Name, c.Channel.RemoteAddr())
	return true
}

// Unregister исключает клиента из набора и закрывает его канал.
// Идемпотентен: повторный вызов для уже исключённого клиента безопасен.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	c.Channel.Close()
	h.metrics.ActiveConnections.Dec()
	h.logger.Info("клиент %s отключён", id)
}

// Broadcast рассылает сообщение всем зарегистрированным клиентам.
// Сообщение сериализуется вызывающим один раз; hub только ставит его
// в буферы каналов.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed []*Client
	for _, c := range targets {
		if err := c.Channel.Send(data); err != nil {
			failed = append(failed, c)
			continue
		}
		h.metrics.MessagesSent.Inc()
	}

	h.metrics.BroadcastsTotal.Inc()

	for _, c := range failed {
		h.dropClient(c)
	}
}

// Send отправляет сообщение одному клиенту; ошибка трактуется как дисконнект
func (h *Hub) Send(id string, data []byte) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}

	if err := c.Channel.Send(data); err != nil {
		h.dropClient(c)
		return
	}
	h.metrics.MessagesSent.Inc()
}

// dropClient исключает клиента после ошибки отправки
func (h *Hub) dropClient(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	if !ok {
		return // уже исключён параллельной ошибкой
	}

	c.Channel.Close()
	h.metrics.ActiveConnections.Dec()
	h.metrics.SendFailures.Inc()
	h.logger.Warn("клиент %s исключён из рассылки: буфер переполнен или канал закрыт", c.ID)

	if h.onDisconnect != nil {
		h.onDisconnect(c.ID)
	}
}

// Count возвращает число зарегистрированных клиентов
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Snapshot возвращает информацию о клиентах для статусного API
func (h *Hub) Snapshot() []ClientInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]ClientInfo, 0, len(h.clients))
	for _, c := range h.clients {
		infos = append(infos, ClientInfo{
			ID:          c.ID,
			Name:        c.Name,
			CharacterID: c.CharacterID,
			RemoteAddr:  c.Channel.RemoteAddr(),
		})
	}
	return infos
}
