package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	s := cfg.Scoring
	assert.Equal(t, 100, s.Threshold)
	assert.Equal(t, 30, s.Weight(SignalValidFingerprint))
	assert.Equal(t, -50, s.Weight(SignalInstantClick))
	assert.Equal(t, 20, s.Weight(SignalDeliberateClick))
	assert.Equal(t, 2, s.Weight(SignalKeystroke))
	assert.Equal(t, 50, s.PointerWindow)
	assert.Equal(t, 2*time.Second, s.SettleMin)
	assert.Equal(t, 4*time.Second, s.SettleMax)
	assert.Equal(t, 0, s.Weight("unknown_signal"))
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file returns defaults and error", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		require.NotNil(t, cfg)
		assert.Equal(t, 100, cfg.Scoring.Threshold)
	})

	t.Run("overrides from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "checkpoint.yaml")
		data := []byte(`
scoring:
  threshold: 120
  settle_min: 1s
  settle_max: 3s
server:
  listen_addr: ":9090"
  session_ttl: 5m
redis:
  addr: "localhost:6379"
`)
		require.NoError(t, os.WriteFile(path, data, 0o600))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 120, cfg.Scoring.Threshold)
		assert.Equal(t, time.Second, cfg.Scoring.SettleMin)
		assert.Equal(t, 3*time.Second, cfg.Scoring.SettleMax)
		assert.Equal(t, ":9090", cfg.Server.ListenAddr)
		assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
		assert.Equal(t, 50, cfg.Scoring.PointerWindow, "unset keys keep defaults")
	})

	t.Run("invalid settle window", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scoring:\n  settle_min: 4s\n  settle_max: 2s\n"), 0o600))
		_, err := LoadConfig(path)
		assert.ErrorContains(t, err, "settle window")
	})
}
