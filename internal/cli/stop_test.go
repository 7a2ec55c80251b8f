package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		out, err := execute(t, "stop", "--help")
		require.NoError(t, err)

		assert.Contains(t, out, "Stop the queuebot daemon gracefully")
		assert.Contains(t, out, "timeout")
	})

	t.Run("not running", func(t *testing.T) {
		err := stopDaemon(&cobra.Command{}, filepath.Join(t.TempDir(), "queuebot.pid"), time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not running")
	})
}

func TestStartCommand(t *testing.T) {
	t.Run("help text", func(t *testing.T) {
		out, err := execute(t, "start", "--help")
		require.NoError(t, err)
		assert.Contains(t, out, "Start the queuebot daemon")
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		t.Setenv("QUEUEBOT_TELEGRAM_BOT_TOKEN", "")
		path := filepath.Join(t.TempDir(), "queuebot.json")

		_, err := execute(t, "start", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})
}
