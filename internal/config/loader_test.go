package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLoader(configPath string) *Loader {
	loader := NewLoader(configPath)
	loader.SetEnvFile("")
	return loader
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
	assert.Equal(t, ".env", loader.envFile)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "nonexistent.json")

		cfg, err := newTestLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, 6, cfg.Queue.MaxSize)
		assert.Equal(t, "!", cfg.Commands.Prefix)
		assert.Equal(t, tmpDir, cfg.DataDir)
	})

	t.Run("load config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")

		testConfig := `{
			"telegram": {"enabled": true, "bot_token": "1:abc"},
			"queue": {"max_size": 3},
			"commands": {"prefix": "q!"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := newTestLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, "1:abc", cfg.Telegram.BotToken)
		assert.Equal(t, 3, cfg.Queue.MaxSize)
		assert.Equal(t, "q!", cfg.Commands.Prefix)
		// untouched sections keep their defaults
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, 8080, cfg.Gateway.Port)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"queue": {"max_size": 3}}`), 0644))

		t.Setenv("QUEUEBOT_QUEUE_MAX_SIZE", "9")
		t.Setenv("QUEUEBOT_TELEGRAM_BOT_TOKEN", "2:xyz")

		cfg, err := newTestLoader(configPath).Load()

		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Queue.MaxSize)
		assert.Equal(t, "2:xyz", cfg.Telegram.BotToken)
	})

	t.Run("dotenv file", func(t *testing.T) {
		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, ".env")
		require.NoError(t, os.WriteFile(envPath, []byte("QUEUEBOT_COMMANDS_PREFIX=?\n"), 0644))
		t.Cleanup(func() { _ = os.Unsetenv("QUEUEBOT_COMMANDS_PREFIX") })

		loader := NewLoader(filepath.Join(tmpDir, "config.json"))
		loader.SetEnvFile(envPath)
		cfg, err := loader.Load()

		require.NoError(t, err)
		assert.Equal(t, "?", cfg.Commands.Prefix)
	})

	t.Run("missing dotenv file is ignored", func(t *testing.T) {
		tmpDir := t.TempDir()
		loader := NewLoader(filepath.Join(tmpDir, "config.json"))
		loader.SetEnvFile(filepath.Join(tmpDir, "missing.env"))

		_, err := loader.Load()
		assert.NoError(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "invalid.json")
		require.NoError(t, os.WriteFile(configPath, []byte("invalid json"), 0644))

		_, err := newTestLoader(configPath).Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})
}

func TestLoaderSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "queuebot.json")

	cfg := validConfig()
	cfg.Queue.MaxSize = 4
	cfg.Gateway.Enabled = true

	loader := newTestLoader(configPath)
	require.NoError(t, loader.Save(cfg))
	assert.FileExists(t, configPath)

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Queue.MaxSize)
	assert.True(t, loaded.Gateway.Enabled)
	assert.Equal(t, cfg.Telegram.BotToken, loaded.Telegram.BotToken)
}

func TestGetConfigPath(t *testing.T) {
	t.Run("custom path", func(t *testing.T) {
		assert.Equal(t, "/custom/path.json", NewLoader("/custom/path.json").GetConfigPath())
	})

	t.Run("default path", func(t *testing.T) {
		path := NewLoader("").GetConfigPath()
		assert.Contains(t, path, filepath.Join(".queuebot", "queuebot.json"))
	})
}
