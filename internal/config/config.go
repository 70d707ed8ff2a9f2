package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера симуляции
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	AI         AIConfig         `yaml:"ai"`
	Maps       []MapConfig      `yaml:"maps"`
	Content    ContentConfig    `yaml:"content"`
	EventBus   EventBusConfig   `yaml:"eventbus"`
	Storage    StorageConfig    `yaml:"storage"`
	Auth       AuthConfig       `yaml:"auth"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	WSPort   int `yaml:"ws_port"`
	KCPPort  int `yaml:"kcp_port"`
	RESTPort int `yaml:"rest_port"`
	// Порог в байтах, после которого кадры сжимаются zstd
	CompressThreshold int `yaml:"compress_threshold"`
}

// SimulationConfig - параметры тика сессии
type SimulationConfig struct {
	TickRate         int     `yaml:"tick_rate"`
	PlayerSpeed      float64 `yaml:"player_speed"`
	SnapshotEvery    int     `yaml:"snapshot_every_ticks"`
	HeightSmoothing  float64 `yaml:"height_smoothing"`
	NavEpsilon       float64 `yaml:"nav_epsilon"`
	InboxSize        int     `yaml:"inbox_size"`
	MaxInputsPerTick int     `yaml:"max_inputs_per_tick"`
}

// AIConfig - настройки поведения мобов
type AIConfig struct {
	AggroDistance       float64       `yaml:"aggro_distance"`
	AttackDistance      float64       `yaml:"attack_distance"`
	ChaseTimeout        time.Duration `yaml:"chase_timeout"`
	AttackInterval      time.Duration `yaml:"attack_interval"`
	DeathDelay          time.Duration `yaml:"death_delay"`
	IdleMin             time.Duration `yaml:"idle_min"`
	IdleMax             time.Duration `yaml:"idle_max"`
	PatrolAbandonChance float64       `yaml:"patrol_abandon_chance"`
	Speed               float64       `yaml:"speed"`
}

// MapConfig описывает карту, для которой запускается сессия
type MapConfig struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
	// Сгенерировать карту шумом вместо чтения файла
	Generate *TerrainConfig `yaml:"generate,omitempty"`
}

type TerrainConfig struct {
	Seed int64   `yaml:"seed"`
	Cols int     `yaml:"cols"`
	Rows int     `yaml:"rows"`
	Cell float64 `yaml:"cell"`
}

type ContentConfig struct {
	BadgerPath string `yaml:"badger_path"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type StorageConfig struct {
	Backend  string `yaml:"backend"` // memory | redis | maria
	RedisURL string `yaml:"redis_url"`
	MariaDSN string `yaml:"maria_dsn"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	// Разрешить вход без токена (dev режим)
	AllowAnonymous bool `yaml:"allow_anonymous"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	MaxSizeMB    int    `yaml:"max_size_mb"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{CompressThreshold: 1024},
		Simulation: SimulationConfig{
			TickRate:         20,
			PlayerSpeed:      0.25,
			SnapshotEvery:    1,
			HeightSmoothing:  0.5,
			NavEpsilon:       0.5,
			InboxSize:        1024,
			MaxInputsPerTick: 8,
		},
		AI: AIConfig{
			AggroDistance:       5,
			AttackDistance:      2.5,
			ChaseTimeout:        8 * time.Second,
			AttackInterval:      1500 * time.Millisecond,
			DeathDelay:          5 * time.Second,
			IdleMin:             time.Second,
			IdleMax:             4 * time.Second,
			PatrolAbandonChance: 0.002,
			Speed:               0.15,
		},
		Maps: []MapConfig{{
			Name:     "demo",
			Generate: &TerrainConfig{Seed: 42, Cols: 16, Rows: 16, Cell: 4},
		}},
		EventBus: EventBusConfig{Stream: "EVENTS", Retention: 24, Buffer: 1024},
		Storage:  StorageConfig{Backend: "memory"},
		Auth:     AuthConfig{AllowAnonymous: true},
		Telemetry: TelemetryConfig{
			Endpoint: "localhost:4318",
			Service:  "mmo-sim",
		},
		Logging: LoggingConfig{Dir: "logs", ConsoleLevel: "info", FileLevel: "debug", MaxSizeMB: 50},
	}
}

// TickInterval возвращает длительность одного тика
func (s SimulationConfig) TickInterval() time.Duration {
	if s.TickRate <= 0 {
		return 50 * time.Millisecond
	}
	return time.Second / time.Duration(s.TickRate)
}

// GetWSPort возвращает порт WebSocket с поддержкой fallback значений
func (s *ServerConfig) GetWSPort() int {
	return getPortWithEnvFallback(s.WSPort, "GAME_WS_PORT", 7777)
}

// GetKCPPort возвращает KCP порт с поддержкой fallback значений
func (s *ServerConfig) GetKCPPort() int {
	return getPortWithEnvFallback(s.KCPPort, "GAME_KCP_PORT", 7778)
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
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

// Validate проверяет согласованность значений
func (c *Config) Validate() error {
	if c.Simulation.TickRate <= 0 {
		return errors.New("simulation.tick_rate должен быть > 0")
	}
	if c.Simulation.PlayerSpeed <= 0 {
		return errors.New("simulation.player_speed должен быть > 0")
	}
	if c.AI.AttackDistance <= 0 || c.AI.AggroDistance < c.AI.AttackDistance {
		return fmt.Errorf("ai: aggro_distance (%.2f) должен быть >= attack_distance (%.2f) > 0",
			c.AI.AggroDistance, c.AI.AttackDistance)
	}
	if c.AI.IdleMax < c.AI.IdleMin {
		return errors.New("ai.idle_max меньше ai.idle_min")
	}
	switch c.Storage.Backend {
	case "", "memory", "redis", "maria":
	default:
		return fmt.Errorf("неизвестный storage.backend %q", c.Storage.Backend)
	}
	for i, m := range c.Maps {
		if m.Name == "" {
			return fmt.Errorf("maps[%d]: пустое имя", i)
		}
		if m.File == "" && m.Generate == nil {
			return fmt.Errorf("maps[%d] %s: нужен file или generate", i, m.Name)
		}
	}
	return nil
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", пытается прочитать путь из ENV GAME_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
