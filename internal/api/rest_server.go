package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/arena-sync/internal/auth"
	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/eventbus"
	"github.com/annel0/arena-sync/internal/game"
	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/middleware"
	"github.com/annel0/arena-sync/internal/network"
)

// RestServer представляет статусный REST API сервер
type RestServer struct {
	router  *gin.Engine
	srv     *http.Server
	loop    *game.Loop
	hub     *network.Hub
	cfg     *config.Config
	port    string
	metrics *ServerMetrics
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port string          // порт для запуска сервера
	Loop *game.Loop      // авторитетный тик
	Hub  *network.Hub    // активные подключения
	Cfg  *config.Config  // конфигурация сервера
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	loggerMw := middleware.NewRequestLogger()
	router.Use(loggerMw.Handler())

	router.Use(otelgin.Middleware("rest_api"))

	promMw := middleware.NewPrometheusMiddleware()
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		loop:    config.Loop,
		hub:     config.Hub,
		cfg:     config.Cfg,
		port:    config.Port,
		metrics: NewServerMetrics(),
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Группа API
	api := rs.router.Group("/api")

	// Выдача токена (без JWT защиты, требует секрет оператора)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/token", rs.handleToken)
	}

	// Открытая статистика
	api.GET("/status", rs.handleStatus)
	api.GET("/clients", rs.handleClients)

	// Административные эндпоинты (требуют JWT)
	admin := api.Group("/admin")
	admin.Use(rs.jwtMiddleware())
	{
		admin.GET("/eventbus", rs.handleEventBusStats)
		admin.POST("/loglevel", rs.handleSetLogLevel)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет универсальный ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// TokenRequest представляет запрос на выдачу токена
type TokenRequest struct {
	Operator string `json:"operator" binding:"required"`
	Secret   string `json:"secret" binding:"required"`
}

// TokenResponse представляет ответ с токеном
type TokenResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// handleToken выдаёт административный токен по секрету оператора
func (rs *RestServer) handleToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, TokenResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	if !auth.CheckAdminSecret(req.Secret) {
		c.JSON(http.StatusUnauthorized, TokenResponse{
			Success: false,
			Message: "Неверный секрет оператора",
		})
		return
	}

	token, err := auth.GenerateAdminToken(req.Operator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, TokenResponse{
			Success: false,
			Message: "Ошибка генерации токена",
		})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Success: true,
		Token:   token,
		Message: "Токен выдан",
	})
}

// handleStatus возвращает статистику сервера
func (rs *RestServer) handleStatus(c *gin.Context) {
	status := rs.loop.Status()

	memoryMB := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: map[string]interface{}{
			"tick":        status.Tick,
			"sessions":    status.Sessions,
			"objects":     status.Objects,
			"clients":     rs.hub.Count(),
			"tick_rate":   rs.cfg.Sync.TickRateHz,
			"uptime":      rs.metrics.GetUptime(),
			"memory_mb":   fmt.Sprintf("%.2f", memoryMB),
			"cpu_percent": fmt.Sprintf("%.2f", cpuPercent),
			"server_time": time.Now().Unix(),
		},
	})
}

// handleClients возвращает список подключённых клиентов
func (rs *RestServer) handleClients(c *gin.Context) {
	clients := rs.hub.Snapshot()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список клиентов",
		Data: map[string]interface{}{
			"clients": clients,
			"total":   len(clients),
		},
	})
}

// handleEventBusStats возвращает метрики шины событий (только для админов)
func (rs *RestServer) handleEventBusStats(c *gin.Context) {
	bus := eventbus.Global()
	if bus == nil {
		c.JSON(http.StatusOK, GenericResponse{
			Success: true,
			Message: "Шина событий не инициализирована",
		})
		return
	}

	stats := bus.Metrics()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Метрики шины событий",
		Data: map[string]interface{}{
			"published": stats.Published,
			"consumed":  stats.Consumed,
			"dropped":   stats.Dropped,
			"in_flight": stats.InFlight,
		},
	})
}

// LogLevelRequest представляет запрос на смену уровня логирования
type LogLevelRequest struct {
	Component string `json:"component" binding:"required"`
	Console   string `json:"console" binding:"required"`
	File      string `json:"file" binding:"required"`
}

// handleSetLogLevel меняет уровень логирования компонента на лету
func (rs *RestServer) handleSetLogLevel(c *gin.Context) {
	var req LogLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса",
		})
		return
	}

	consoleLevel, err := logging.ParseLevel(req.Console)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	fileLevel, err := logging.ParseLevel(req.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	if err := logging.GetLoggerManager().SetLogLevel(req.Component, consoleLevel, fileLevel); err != nil {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Уровень логирования обновлён",
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Отсутствует токен авторизации",
			})
			c.Abort()
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Неверный формат токена",
			})
			c.Abort()
			return
		}

		operator, ok := auth.ValidateAdminToken(parts[1])
		if !ok {
			c.JSON(http.StatusUnauthorized, GenericResponse{
				Success: false,
				Message: "Недействительный токен",
			})
			c.Abort()
			return
		}

		c.Set("operator", operator)
		c.Next()
	}
}

// Start запускает REST сервер
func (rs *RestServer) Start() error {
	rs.srv = &http.Server{
		Addr:    rs.port,
		Handler: rs.router,
	}
	return rs.srv.ListenAndServe()
}

// Stop останавливает REST сервер
func (rs *RestServer) Stop() error {
	if rs.srv == nil {
		return nil
	}
	return rs.srv.Close()
}
