package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/arena-sync/internal/logging"
)

// slowRequestThreshold — REST-поверхность отдаёт снимки из памяти,
// всё медленнее этого порога заслуживает WARN.
const slowRequestThreshold = 250 * time.Millisecond

// RequestLogger снабжает каждый HTTP-запрос trace-ID и пишет краткие логи.
// Шумные служебные маршруты (health-пробы, скрейп метрик) логируются
// только на уровне TRACE.
type RequestLogger struct {
	quiet map[string]bool
}

func NewRequestLogger() *RequestLogger {
	return &RequestLogger{
		quiet: map[string]bool{
			"/health":  true,
			"/metrics": true,
		},
	}
}

func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Пытаемся извлечь trace-id из OpenTelemetry, если уже создан.
		span := trace.SpanFromContext(c.Request.Context())
		var traceID string
		if span.SpanContext().IsValid() {
			traceID = span.SpanContext().TraceID().String()
		} else {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)

		start := time.Now()
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)

		switch {
		case latency > slowRequestThreshold:
			logging.Warn("[HTTP] 🐢 %s %s %d %s ip=%s trace=%s",
				method, path, status, latency, c.ClientIP(), traceID)
		case rl.quiet[path] && status < 400:
			logging.Trace("[HTTP] %s %s %d %s", method, path, status, latency)
		default:
			logging.Info("[HTTP] %s %s %d %s ip=%s trace=%s",
				method, path, status, latency, c.ClientIP(), traceID)
		}
	}
}
