package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath - переменная окружения с путём к файлу конфигурации
const EnvConfigPath = "TILEWORLD_CONFIG"

// Config корневая структура конфигурации клиента.
// Теги yaml и toml совпадают, формат выбирается по расширению файла.
type Config struct {
	Server      ServerConfig      `yaml:"server" toml:"server"`
	World       WorldConfig       `yaml:"world" toml:"world"`
	Codec       CodecConfig       `yaml:"codec" toml:"codec"`
	Definitions DefinitionsConfig `yaml:"definitions" toml:"definitions"`
	Storage     StorageConfig     `yaml:"storage" toml:"storage"`
	Cache       CacheConfig       `yaml:"cache" toml:"cache"`
	EventBus    EventBusConfig    `yaml:"eventbus" toml:"eventbus"`
	API         APIConfig         `yaml:"api" toml:"api"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry" toml:"telemetry"`
}

// ServerConfig - подключение к игровому серверу
type ServerConfig struct {
	URL           string `yaml:"url" toml:"url"`
	Transport     string `yaml:"transport" toml:"transport"` // ws | kcp | tcp
	LocalPlayerID int64  `yaml:"local_player_id" toml:"local_player_id"`
	MaxFrameSize  int    `yaml:"max_frame_size" toml:"max_frame_size"`
}

type WorldConfig struct {
	Dimension      string `yaml:"dimension" toml:"dimension"`
	TicksPerSecond int    `yaml:"ticks_per_second" toml:"ticks_per_second"`
}

type CodecConfig struct {
	EntityIDMode string `yaml:"entity_id_mode" toml:"entity_id_mode"` // legacy | packed
}

type DefinitionsConfig struct {
	// Path - файл таблицы пользовательских определений (yaml/toml); пусто - только встроенные
	Path string `yaml:"path" toml:"path"`
}

type StorageConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Addr       string `yaml:"addr" toml:"addr"`
	DB         int    `yaml:"db" toml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds" toml:"ttl_seconds"`
}

// TTL возвращает время жизни записей кэша
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GetAddr возвращает адрес Redis: config -> env -> default
func (c *CacheConfig) GetAddr() string {
	return getStringWithEnvFallback(c.Addr, "TILEWORLD_REDIS_ADDR", "localhost:6379")
}

type EventBusConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	URL     string `yaml:"url" toml:"url"`
	Stream  string `yaml:"stream" toml:"stream"`
	Buffer  int    `yaml:"buffer" toml:"buffer"`
}

// GetURL возвращает адрес NATS: config -> env -> default
func (e *EventBusConfig) GetURL() string {
	return getStringWithEnvFallback(e.URL, "TILEWORLD_NATS_URL", "nats://127.0.0.1:4222")
}

type APIConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

// GetPort возвращает порт отладочного API с поддержкой fallback значений
func (a *APIConfig) GetPort() int {
	return getPortWithEnvFallback(a.Port, "TILEWORLD_API_PORT", 8088)
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace" toml:"namespace"`
}

type LoggingConfig struct {
	Level     string `yaml:"level" toml:"level"`
	FileLevel string `yaml:"file_level" toml:"file_level"`
	Dir       string `yaml:"dir" toml:"dir"`

	// Components - консольные уровни отдельных компонентов, например codec: debug
	Components map[string]string `yaml:"components" toml:"components"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	ServiceName string `yaml:"service_name" toml:"service_name"`
	Endpoint    string `yaml:"endpoint" toml:"endpoint"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			URL:           "ws://127.0.0.1:8080/ws",
			Transport:     "ws",
			LocalPlayerID: -1,
			MaxFrameSize:  1 << 20,
		},
		World:    WorldConfig{Dimension: "overworld", TicksPerSecond: 20},
		Codec:    CodecConfig{EntityIDMode: "legacy"},
		Storage:  StorageConfig{Path: "data/chunks"},
		Cache:    CacheConfig{TTLSeconds: 300},
		EventBus: EventBusConfig{Stream: "WORLD", Buffer: 256},
		API:      APIConfig{Enabled: true},
		Metrics:  MetricsConfig{Namespace: "tileworld"},
		Logging:  LoggingConfig{Level: "info", FileLevel: "debug", Dir: "logs"},
		Telemetry: TelemetryConfig{
			ServiceName: "tileworld-client",
			Endpoint:    "localhost:4318",
		},
	}
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

func getStringWithEnvFallback(configVal, envVar, defaultVal string) string {
	if configVal != "" {
		return configVal
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultVal
}

// Load читает файл конфигурации поверх значений по умолчанию.
// Если path == "", берёт путь из ENV TILEWORLD_CONFIG; без пути возвращает Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse разбирает конфигурацию в формате yaml или toml поверх Default()
func Parse(data []byte, format string) (*Config, error) {
	cfg := Default()
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return cfg, nil
}
