package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMiddleware регистрирует HTTP-метрики REST-поверхности арены.
// Маршрут /metrics добавляется отдельно методом RegisterMetricsEndpoint.
//
// Метрики (namespace arena, subsystem rest):
// * arena_rest_request_duration_seconds{group,method,route,status} — histogram
// * arena_rest_requests_inflight — gauge
// * arena_rest_request_errors_total{group,route,class} — counter (4xx/5xx)
type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

// NewPrometheusMiddleware создаёт middleware и регистрирует метрики в дефолтном регистре.
func NewPrometheusMiddleware() *PrometheusMiddleware {
	pm := &PrometheusMiddleware{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "rest",
			Name:      "request_duration_seconds",
			Help:      "Длительность HTTP-запросов к REST-поверхности арены.",
			// Статусная поверхность локальная: хвост дольше секунды уже аномалия
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"group", "method", "route", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "rest",
			Name:      "requests_inflight",
			Help:      "Текущее количество обрабатываемых HTTP-запросов.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "rest",
			Name:      "request_errors_total",
			Help:      "Запросы, завершившиеся ошибкой, по классу статуса.",
		}, []string{"group", "route", "class"}),
	}

	prometheus.MustRegister(pm.reqDuration, pm.reqInflight, pm.reqErrors)
	return pm
}

// apiGroup классифицирует маршрут по назначению: служебные проверки,
// публичный статус, выдача токенов и админ-поверхность учитываются раздельно.
func apiGroup(route string) string {
	switch {
	case strings.HasPrefix(route, "/api/admin"):
		return "admin"
	case strings.HasPrefix(route, "/api/auth"):
		return "auth"
	case strings.HasPrefix(route, "/api/"):
		return "status"
	default:
		return "system" // /health, /metrics и не-матченные пути
	}
}

// Handler возвращает gin.HandlerFunc для router.Use().
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		pm.reqInflight.Inc()
		c.Next()
		pm.reqInflight.Dec()

		route := c.FullPath()
		if route == "" {
			// Не-матченные пути схлопываем в один ряд: иначе сканер
			// чужих URL раздувает кардинальность метрик
			route = "unmatched"
		}
		group := apiGroup(route)
		status := c.Writer.Status()

		pm.reqDuration.WithLabelValues(group, c.Request.Method, route,
			strconv.Itoa(status)).Observe(time.Since(start).Seconds())

		if status >= 400 {
			class := "4xx"
			if status >= 500 {
				class = "5xx"
			}
			pm.reqErrors.WithLabelValues(group, route, class).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics в указанный router.
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
