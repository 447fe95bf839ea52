package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Sync     SyncConfig     `yaml:"sync"`
	World    WorldConfig    `yaml:"world"`
	EventBus EventBusConfig `yaml:"eventbus"`
}

// ServerConfig содержит сетевые порты сервера
type ServerConfig struct {
	TCPPort     int `yaml:"tcp_port"`
	KCPPort     int `yaml:"kcp_port"`
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

// SyncConfig содержит параметры синхронизации состояния
type SyncConfig struct {
	TickRateHz          int     `yaml:"tick_rate_hz"`           // Частота авторитетного тика (по умолчанию 20)
	InterpDelayTicks    int     `yaml:"interp_delay_ticks"`     // Задержка интерполяции в периодах снимка (по умолчанию 2)
	CorrectionThreshold float64 `yaml:"correction_threshold"`   // Порог коррекции prediction в мировых единицах
	SampleWindowMs      int     `yaml:"sample_window_ms"`       // Окно буфера сэмплов удалённых сущностей
	SendBufferSize      int     `yaml:"send_buffer_size"`       // Размер буфера отправки на клиента
	CompressCatchUpFrom int     `yaml:"compress_catch_up_from"` // Минимальный размер catch-up для zstd, байт
}

// EventBusConfig содержит настройки шины событий
type EventBusConfig struct {
	URL       string `yaml:"url"`    // nats://… ; пусто — in-memory шина
	Stream    string `yaml:"stream"` //
	Retention int    `yaml:"retention_hours"`
}

// WorldConfig описывает арену и популяцию мира
type WorldConfig struct {
	Seed        int64            `yaml:"seed"`
	ArenaRadius float64          `yaml:"arena_radius"` // Радиус описанной окружности гексагона
	SafeZones   []SafeZoneConfig `yaml:"safe_zones"`
	Population  []SubtypeConfig  `yaml:"population"`
}

// SafeZoneConfig описывает круговую зону, запрещённую для спавна
type SafeZoneConfig struct {
	X      float64 `yaml:"x"`
	Z      float64 `yaml:"z"`
	Radius float64 `yaml:"radius"`
}

// SubtypeConfig описывает подтип мировых объектов и его размещение
type SubtypeConfig struct {
	Name           string     `yaml:"name"`
	Kind           string     `yaml:"kind"` // resource_node | creature
	Count          int        `yaml:"count"`
	MinRadius      float64    `yaml:"min_radius"`
	MaxRadius      float64    `yaml:"max_radius"`
	Spacing        float64    `yaml:"spacing"`
	MaxHealth      float64    `yaml:"max_health"`
	RespawnDelayMs int        `yaml:"respawn_delay_ms"`
	HitDrop        DropConfig `yaml:"hit_drop"`
	DeathDrop      DropConfig `yaml:"death_drop"`
	KillReward     int64      `yaml:"kill_reward"` // Награда прогрессии за уничтожение
}

// DropConfig описывает правило выпадения лута
type DropConfig struct {
	Kind        string   `yaml:"kind"`   // Пусто — дроп не настроен
	Chance      float64  `yaml:"chance"` // Для hit-дропа; death-дроп всегда гарантирован
	MinQuantity int      `yaml:"min_quantity"`
	MaxQuantity int      `yaml:"max_quantity"`
	Variants    []string `yaml:"variants"` // Случайный вариант награды (например, элементальный талисман)
}

// GetTCPPort возвращает TCP порт с поддержкой fallback значений
func (s *ServerConfig) GetTCPPort() int {
	return getPortWithEnvFallback(s.TCPPort, "ARENA_TCP_PORT", 7777)
}

// GetKCPPort возвращает KCP порт с поддержкой fallback значений
func (s *ServerConfig) GetKCPPort() int {
	return getPortWithEnvFallback(s.KCPPort, "ARENA_KCP_PORT", 7778)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "ARENA_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "ARENA_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// TickPeriod возвращает период авторитетного тика
func (s *SyncConfig) TickPeriod() time.Duration {
	hz := s.TickRateHz
	if hz <= 0 {
		hz = 20
	}
	return time.Second / time.Duration(hz)
}

// InterpDelay возвращает задержку интерполяции (кратна периоду тика)
func (s *SyncConfig) InterpDelay() time.Duration {
	ticks := s.InterpDelayTicks
	if ticks <= 0 {
		ticks = 2
	}
	return time.Duration(ticks) * s.TickPeriod()
}

// GetCorrectionThreshold возвращает порог коррекции prediction
func (s *SyncConfig) GetCorrectionThreshold() float64 {
	if s.CorrectionThreshold <= 0 {
		return 5.0
	}
	return s.CorrectionThreshold
}

// SampleWindow возвращает окно буфера сэмплов (~1 секунда по умолчанию)
func (s *SyncConfig) SampleWindow() time.Duration {
	if s.SampleWindowMs <= 0 {
		return time.Second
	}
	return time.Duration(s.SampleWindowMs) * time.Millisecond
}

// GetSendBufferSize возвращает размер буфера отправки на клиента.
// Ноль из частично заполненного YAML недопустим: канал нулевой ёмкости
// молча отбрасывал бы каждый интент и каждое сообщение рассылки.
func (s *SyncConfig) GetSendBufferSize() int {
	if s.SendBufferSize <= 0 {
		return 64
	}
	return s.SendBufferSize
}

// GetCompressCatchUpFrom возвращает минимальный размер кадра для zstd
func (s *SyncConfig) GetCompressCatchUpFrom() int {
	if s.CompressCatchUpFrom <= 0 {
		return 4096
	}
	return s.CompressCatchUpFrom
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV ARENA_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ARENA_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("конфиг %s: %w", path, err)
	}

	return &cfg, nil
}

// Default возвращает конфигурацию по умолчанию: гексагональная арена
// с тремя подтипами населения и одной стартовой безопасной зоной.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			TickRateHz:          20,
			InterpDelayTicks:    2,
			CorrectionThreshold: 5.0,
			SampleWindowMs:      1000,
			SendBufferSize:      64,
			CompressCatchUpFrom: 4096,
		},
		World: WorldConfig{
			Seed:        1,
			ArenaRadius: 350,
			SafeZones: []SafeZoneConfig{
				{X: 0, Z: 0, Radius: 40},
			},
			Population: []SubtypeConfig{
				{
					Name: "tree", Kind: "resource_node", Count: 50,
					MinRadius: 60, MaxRadius: 320, Spacing: 25,
					MaxHealth: 150, RespawnDelayMs: 45000,
					HitDrop:   DropConfig{Kind: "wood", Chance: 0.5, MinQuantity: 1, MaxQuantity: 3},
					DeathDrop: DropConfig{Kind: "wood", MinQuantity: 3, MaxQuantity: 6},
				},
				{
					Name: "rock", Kind: "resource_node", Count: 35,
					MinRadius: 60, MaxRadius: 320, Spacing: 30,
					MaxHealth: 220, RespawnDelayMs: 60000,
					HitDrop:   DropConfig{Kind: "stone", Chance: 0.4, MinQuantity: 1, MaxQuantity: 2},
					DeathDrop: DropConfig{Kind: "stone", MinQuantity: 2, MaxQuantity: 5},
				},
				{
					Name: "imp", Kind: "creature", Count: 20,
					MinRadius: 120, MaxRadius: 330, Spacing: 45,
					MaxHealth: 90, RespawnDelayMs: 30000,
					DeathDrop:  DropConfig{Kind: "talisman", MinQuantity: 1, MaxQuantity: 1, Variants: []string{"fire", "water", "earth", "wind"}},
					KillReward: 25,
				},
			},
		},
	}
}
