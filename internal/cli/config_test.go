package cli

import (
	"path/filepath"
	"testing"

	"github.com/harun/queuebot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGatewayConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "queuebot.json")
	cfg := config.DefaultConfig()
	cfg.Telegram.Enabled = false
	cfg.Gateway.Enabled = true
	cfg.Gateway.SharedSecret = "hunter2"
	require.NoError(t, config.NewLoader(path).Save(cfg))
	return path
}

func TestConfigCommand(t *testing.T) {
	t.Run("init writes defaults once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "queuebot.json")

		out, err := execute(t, "config", "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration saved to: "+path)
		assert.FileExists(t, path)

		_, err = execute(t, "config", "init", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("validate", func(t *testing.T) {
		out, err := execute(t, "config", "validate", "--config", writeGatewayConfig(t))
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration is valid")
	})

	t.Run("show masks secrets", func(t *testing.T) {
		out, err := execute(t, "config", "show", "--config", writeGatewayConfig(t))
		require.NoError(t, err)
		assert.NotContains(t, out, "hunter2")
		assert.Contains(t, out, "***")
	})
}
