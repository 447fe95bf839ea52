package network

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics содержит Prometheus-метрики сетевой подсистемы
type Metrics struct {
	ConnectionsTotal  prometheus.Counter
	ActiveConnections prometheus.Gauge
	BroadcastsTotal   prometheus.Counter
	MessagesSent      prometheus.Counter
	SendFailures      prometheus.Counter
	IntentsDropped    prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// GetMetrics возвращает глобальные метрики сети, регистрируя их
// в Prometheus при первом обращении.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arena",
				Subsystem: "network",
				Name:      "connections_total",
				Help:      "Общее число принятых соединений.",
			}),
			ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "arena",
				Subsystem: "network",
				Name:      "connections_active",
				Help:      "Число клиентов в наборе рассылки.",
			}),
			BroadcastsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arena",
				Subsystem: "network",
				Name:      "broadcasts_total",
				Help:      "Число широковещательных рассылок.",
			}),
			MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arena",
				Subsystem: "network",
				Name:      "messages_sent_total",
				Help:      "Число сообщений, поставленных в буферы клиентов.",
			}),
			SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arena",
				Subsystem: "network",
				Name:      "send_failures_total",
				Help:      "Отправок, завершившихся отключением клиента.",
			}),
			IntentsDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "arena",
				Subsystem: "network",
				Name:      "intents_dropped_total",
				Help:      "Интентов, отброшенных из-за переполнения очереди тика.",
			}),
		}
		prometheus.MustRegister(
			metricsInstance.ConnectionsTotal,
			metricsInstance.ActiveConnections,
			metricsInstance.BroadcastsTotal,
			metricsInstance.MessagesSent,
			metricsInstance.SendFailures,
			metricsInstance.IntentsDropped,
		)
	})
	return metricsInstance
}
