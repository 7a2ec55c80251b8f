package daemon

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleManager(t *testing.T) {
	d := createTestDaemon(t)
	lm := NewLifecycleManager(d)

	require.NoError(t, lm.Start())

	pid, err := lm.GetPID()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.True(t, lm.IsRunning())

	require.NoError(t, lm.Stop())
	assert.False(t, lm.IsRunning())

	// removing twice is fine
	require.NoError(t, lm.Stop())
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing", func(t *testing.T) {
		_, err := ReadPID(filepath.Join(dir, "none.pid"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("trailing newline", func(t *testing.T) {
		path := filepath.Join(dir, "ok.pid")
		require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(42)+"\n"), 0644))

		pid, err := ReadPID(path)
		require.NoError(t, err)
		assert.Equal(t, 42, pid)
	})

	t.Run("garbage", func(t *testing.T) {
		path := filepath.Join(dir, "bad.pid")
		require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

		_, err := ReadPID(path)
		assert.Error(t, err)
		assert.False(t, ProcessRunning(path))
	})
}
