package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phonesim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultCron, cfg.Scheduler.Cron)
	assert.Equal(t, DefaultMinInterval, cfg.Scheduler.MinInterval.Duration())
	assert.Equal(t, DefaultReceiptDriftChance, cfg.Scheduler.ReceiptDriftChance)
	assert.Equal(t, DefaultGroupBurstChance, cfg.Scheduler.GroupBurstChance)
	assert.Equal(t, DefaultPhotoChance, cfg.Phone.PhotoMessaging.Chance)
	assert.Equal(t, "static", cfg.Generation.Backend)
	assert.Equal(t, "./phonesim-data", cfg.Server.DBPath)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  db_path: /tmp/simdata
scheduler:
  cron: "*/5 * * * *"
  min_interval: 45s
  receipt_drift_chance: 0.8
phone:
  characters: [Jake, Mia]
  starter_known_numbers:
    jake: true
  photo_messaging:
    enabled: true
    chance: 0.5
generation:
  backend: openai
  model: gpt-4o-mini
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/simdata", cfg.Server.DBPath)
	assert.Equal(t, "*/5 * * * *", cfg.Scheduler.Cron)
	assert.Equal(t, 45*time.Second, cfg.Scheduler.MinInterval.Duration())
	assert.Equal(t, 0.8, cfg.Scheduler.ReceiptDriftChance)
	assert.Equal(t, []string{"Jake", "Mia"}, cfg.Phone.Characters)
	assert.True(t, cfg.Phone.StarterKnownNumbers["jake"])
	assert.True(t, cfg.Phone.PhotoMessaging.Enabled)
	assert.Equal(t, 0.5, cfg.Phone.PhotoMessaging.Chance)
	assert.Equal(t, "openai", cfg.Generation.Backend)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
scheduler:
  min_interval: 45s
`)
	t.Setenv("PHONESIM_PORT", "7070")
	t.Setenv("PHONESIM_SCHED_MIN_INTERVAL", "5s")
	t.Setenv("PHONESIM_GEN_BACKEND", "openai")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Scheduler.MinInterval.Duration())
	assert.Equal(t, "openai", cfg.Generation.Backend)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCron, cfg.Scheduler.Cron)
}

func TestLoadBadYAMLFails(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationNumericSeconds(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  min_interval: 30
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.MinInterval.Duration())
}

func TestAddr(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, ":8080", cfg.Addr())
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 9000
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}
