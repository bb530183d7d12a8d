package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://ads.empowerlocal.co/adserve/", cfg.AdServe.BaseURL)
	assert.Equal(t, "181918", cfg.AdServe.PlacementID)
	assert.Equal(t, "0x0", cfg.AdServe.Size)
	assert.Equal(t, "CLICK_MACRO_PLACEHOLDER", cfg.AdServe.ClickMacro)
	assert.Equal(t, "article", cfg.Slot.DefaultKeyword)
	assert.False(t, cfg.Slot.DiscardStale)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adslot.yaml")
	data := []byte(`
server:
  port: 9000
  requestTimeout: 2s
slot:
  defaultKeyword: sports
  discardStale: true
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("ADSLOT_SERVER_PORT", "9100")
	t.Setenv("ADSLOT_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "sports", cfg.Slot.DefaultKeyword)
	assert.True(t, cfg.Slot.DiscardStale)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "181918", cfg.AdServe.PlacementID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Topic = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.AdServe.BaseURL = ""
	assert.Error(t, cfg.Validate())

	assert.NoError(t, Default().Validate())
}
