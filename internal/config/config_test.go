package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2.5, cfg.AI.AttackDistance)
	assert.Equal(t, 5.0, cfg.AI.AggroDistance)
	assert.Equal(t, 50*time.Millisecond, cfg.Simulation.TickInterval())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	content := `
simulation:
  tick_rate: 10
ai:
  death_delay: 3s
storage:
  backend: redis
  redis_url: redis://localhost:6379/0
maps:
  - name: forest
    file: maps/forest.yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.TickInterval())
	assert.Equal(t, 3*time.Second, cfg.AI.DeathDelay)
	assert.Equal(t, 2.5, cfg.AI.AttackDistance, "Незаданные поля берутся из значений по умолчанию")
	assert.Equal(t, "redis", cfg.Storage.Backend)
	require.Len(t, cfg.Maps, 1)
	assert.Equal(t, "forest", cfg.Maps[0].Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: mongo\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("GAME_WS_PORT", "9001")
	assert.Equal(t, 9001, s.GetWSPort())
	assert.Equal(t, 7778, s.GetKCPPort())

	s.WSPort = 5000
	assert.Equal(t, 5000, s.GetWSPort(), "Порт из конфига имеет приоритет")
}
