package eventbus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/annel0/arena-sync/internal/logging"
)

// MetricsExporter инкапсулирует Prometheus-метрики шины событий
// и периодически обновляет их из Stats реализации.
type MetricsExporter struct {
	bus  EventBus
	quit chan struct{}
	done chan struct{}
	// Prometheus metrics
	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge

	lastStats Stats
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики.
func NewMetricsExporter(bus EventBus) *MetricsExporter {
	me := &MetricsExporter{
		bus:  bus,
		quit: make(chan struct{}),
		done: make(chan struct{}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_published_total",
			Help:      "Общее число опубликованных событий.",
		}),
		consumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_consumed_total",
			Help:      "Общее число доставленных событий подписчикам.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventbus",
			Name:      "messages_dropped_total",
			Help:      "Событий, отброшенных из-за переполнения буфера.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eventbus",
			Name:      "messages_inflight",
			Help:      "Количество событий в очереди (не доставленных).",
		}),
	}

	prometheus.MustRegister(me.published, me.consumed, me.dropped, me.inflight)
	return me
}

// Start запускает периодическое обновление метрик.
func (m *MetricsExporter) Start() {
	go m.loop()
}

// Stop останавливает обновление метрик.
func (m *MetricsExporter) Stop() {
	close(m.quit)
	<-m.done
}

// loop переносит дельты Stats шины в Prometheus-счётчики.
func (m *MetricsExporter) loop() {
	defer close(m.done)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.quit:
			return
		case <-ticker.C:
			stats := m.bus.Metrics()
			m.published.Add(float64(stats.Published - m.lastStats.Published))
			m.consumed.Add(float64(stats.Consumed - m.lastStats.Consumed))
			m.dropped.Add(float64(stats.Dropped - m.lastStats.Dropped))
			m.inflight.Set(float64(stats.InFlight))
			m.lastStats = stats
			logging.Trace("eventbus метрики: published=%d consumed=%d dropped=%d",
				stats.Published, stats.Consumed, stats.Dropped)
		}
	}
}
