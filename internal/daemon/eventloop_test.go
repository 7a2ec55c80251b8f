package daemon

import (
	"testing"

	"github.com/harun/queuebot/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_StartStop(t *testing.T) {
	d := createTestDaemon(t)
	loop := NewEventLoop(d, "@every 1h")

	require.NoError(t, loop.Start())
	assert.True(t, loop.running)

	// second start is a no-op
	require.NoError(t, loop.Start())

	loop.Stop()
	assert.False(t, loop.running)
	loop.Stop()
}

func TestEventLoop_EmptyScheduleDisabled(t *testing.T) {
	d := createTestDaemon(t)
	loop := NewEventLoop(d, "")

	require.NoError(t, loop.Start())
	assert.False(t, loop.running)
	loop.Stop()
}

func TestEventLoop_InvalidSchedule(t *testing.T) {
	d := createTestDaemon(t)
	loop := NewEventLoop(d, "every tuesday")

	err := loop.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule stats job")
}

func TestEventLoop_ProcessTasks(t *testing.T) {
	d := createTestDaemon(t)
	d.registry.Enqueue("ranked", queue.Participant{ID: "a"})

	assert.NotPanics(t, func() {
		NewEventLoop(d, "@every 1h").processTasks()
	})
}
