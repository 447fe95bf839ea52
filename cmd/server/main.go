package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/arena-sync/internal/api"
	"github.com/annel0/arena-sync/internal/config"
	"github.com/annel0/arena-sync/internal/eventbus"
	"github.com/annel0/arena-sync/internal/game"
	"github.com/annel0/arena-sync/internal/logging"
	"github.com/annel0/arena-sync/internal/network"
	"github.com/annel0/arena-sync/internal/observability"
	"github.com/annel0/arena-sync/internal/world"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (иначе ARENA_CONFIG или значения по умолчанию)")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🚀 Запуск Arena Sync Server...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = config.Default()
		logging.Info("Конфигурация не задана, используются значения по умолчанию")
	}

	tcpAddr := fmt.Sprintf(":%d", cfg.Server.GetTCPPort())
	kcpAddr := fmt.Sprintf(":%d", cfg.Server.GetKCPPort())
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())

	logging.Info("📡 Конфигурация сервера: TCP=%s, KCP=%s, REST API=%s, метрики=%s",
		tcpAddr, kcpAddr, restPort, metricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === TELEMETRY ===
	shutdownTelemetry, err := observability.InitTelemetry(ctx, "arena-sync")
	if err != nil {
		// Телеметрия опциональна: без коллектора сервер всё равно работает
		logging.Warn("Телеметрия не инициализирована: %v", err)
		shutdownTelemetry = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.Error("❌ Ошибка подключения к NATS: %v", err)
			log.Fatalf("❌ Ошибка подключения к NATS: %v", err)
		}
		defer jsBus.Close()
		bus = jsBus
		logging.Info("✅ Шина событий: NATS JetStream (%s)", cfg.EventBus.URL)
	} else {
		bus = eventbus.NewMemoryBus(1024)
		logging.Info("✅ Шина событий: in-memory")
	}
	eventbus.Init(bus)

	busMetrics := eventbus.NewMetricsExporter(bus)
	busMetrics.Start()
	defer busMetrics.Stop()

	// === МИР ===
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	logging.Info("🌍 Генерация мира: seed=%d, радиус арены=%.0f", seed, cfg.World.ArenaRadius)

	table := world.NewTable()
	spawned := world.Populate(table, cfg.World, rng)
	logging.Info("✅ Мир заселён: %d объектов", len(spawned))

	engine := world.NewEngine(table, rng)

	// === ИГРОВОЙ ЦИКЛ И СЕТЬ ===
	intents := game.NewQueue(cfg.Sync.GetSendBufferSize() * 4)
	gateway := game.NewGateway(intents)

	hub := network.NewHub(func(clientID string) {
		// Обрыв соединения превращается в интент выхода и
		// обрабатывается тиком наравне с явным отключением
		intents.TryEnqueue(game.LeaveIntent{SessionID: clientID})
	})

	loop := game.NewLoop(cfg, table, engine, hub, intents, rng)

	chanCfg := network.DefaultChannelConfig()
	chanCfg.BufferSize = cfg.Sync.GetSendBufferSize()
	chanCfg.CompressFrom = cfg.Sync.GetCompressCatchUpFrom()

	gameServer := network.NewServer(tcpAddr, kcpAddr, chanCfg, func(ch network.NetChannel) {
		go gateway.HandleChannel(ch)
	})

	if err := gameServer.Start(); err != nil {
		logging.Error("❌ Ошибка запуска игрового сервера: %v", err)
		log.Fatalf("❌ Ошибка запуска игрового сервера: %v", err)
	}

	go loop.Run(ctx)

	// === REST API ===
	restServer := api.NewRestServer(api.Config{
		Port: restPort,
		Loop: loop,
		Hub:  hub,
		Cfg:  cfg,
	})
	go func() {
		if err := restServer.Start(); err != nil && err != http.ErrServerClosed {
			logging.Error("❌ Ошибка REST API: %v", err)
		}
	}()

	// Отдельный эндпоинт Prometheus для скрейпа без REST-прослойки
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("❌ Ошибка сервера метрик: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logging.Info("   🎮 Игровой трафик: TCP %s, KCP %s", tcpAddr, kcpAddr)
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   📊 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	cancel()
	gameServer.Stop()

	if err := restServer.Stop(); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsSrv.Close(); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки телеметрии: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
