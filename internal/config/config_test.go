package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "legacy", cfg.Codec.EntityIDMode)
	assert.Equal(t, 20, cfg.World.TicksPerSecond)
}

func TestLoadYAMLFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	data := `
server:
  url: ws://game.local:9000/ws
  transport: kcp
  local_player_id: 42
world:
  dimension: nether
codec:
  entity_id_mode: packed
cache:
  enabled: true
  ttl_seconds: 60
logging:
  components:
    codec: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "kcp", cfg.Server.Transport)
	assert.Equal(t, int64(42), cfg.Server.LocalPlayerID)
	assert.Equal(t, "nether", cfg.World.Dimension)
	assert.Equal(t, "packed", cfg.Codec.EntityIDMode)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, map[string]string{"codec": "debug"}, cfg.Logging.Components)
	// Незаданные поля остаются по умолчанию
	assert.Equal(t, 20, cfg.World.TicksPerSecond)
	assert.Equal(t, "tileworld", cfg.Metrics.Namespace)
}

func TestParseTOML(t *testing.T) {
	data := `
[server]
transport = "tcp"

[storage]
enabled = true
path = "/tmp/chunks"

[telemetry]
enabled = true
service_name = "bot"
`
	cfg, err := Parse([]byte(data), ".toml")
	require.NoError(t, err)
	assert.Equal(t, "tcp", cfg.Server.Transport)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "/tmp/chunks", cfg.Storage.Path)
	assert.Equal(t, "bot", cfg.Telemetry.ServiceName)
	assert.Equal(t, "ws://127.0.0.1:8080/ws", cfg.Server.URL)
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	_, err := Parse([]byte("{}"), ".json")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvFallbacks(t *testing.T) {
	var api APIConfig
	t.Setenv("TILEWORLD_API_PORT", "")
	assert.Equal(t, 8088, api.GetPort())

	t.Setenv("TILEWORLD_API_PORT", "9100")
	assert.Equal(t, 9100, api.GetPort())

	api.Port = 9200
	assert.Equal(t, 9200, api.GetPort())

	var cache CacheConfig
	t.Setenv("TILEWORLD_REDIS_ADDR", "redis:6380")
	assert.Equal(t, "redis:6380", cache.GetAddr())

	bus := EventBusConfig{URL: "nats://bus:4222"}
	assert.Equal(t, "nats://bus:4222", bus.GetURL())
}
