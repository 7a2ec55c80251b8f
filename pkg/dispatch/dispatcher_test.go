package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/harun/queuebot/pkg/commandqueue"
	"github.com/harun/queuebot/pkg/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, maxSize int) *Dispatcher {
	t.Helper()

	lanes := commandqueue.New(zerolog.Nop())
	t.Cleanup(func() { _ = lanes.Close() })

	d, err := New(Config{
		Registry: queue.NewRegistry(maxSize),
		Lanes:    lanes,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return d
}

func actor(id string) queue.Participant {
	return queue.Participant{ID: id, DisplayName: "user" + id}
}

func run(t *testing.T, d *Dispatcher, text string, who queue.Participant) Outcome {
	t.Helper()
	cmd, err := Parse(text, "!", who)
	require.NoError(t, err)
	out, err := d.Dispatch(context.Background(), cmd)
	require.NoError(t, err)
	return out
}

func TestNew(t *testing.T) {
	t.Run("registry required", func(t *testing.T) {
		_, err := New(Config{Lanes: commandqueue.New(zerolog.Nop())})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "registry is required")
	})

	t.Run("lanes required", func(t *testing.T) {
		_, err := New(Config{Registry: queue.NewRegistry(3)})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "command queue is required")
	})
}

func TestDispatch_Add(t *testing.T) {
	d := newTestDispatcher(t, 3)

	out := run(t, d, "!add Q", actor("1"))
	assert.NoError(t, out.Err)
	assert.Equal(t, queue.Added, out.Enqueue.Status)
	assert.Equal(t, "q", out.Enqueue.Queue)

	out = run(t, d, "!add q", actor("1"))
	assert.Equal(t, queue.AlreadyQueued, out.Enqueue.Status)

	run(t, d, "!add q", actor("2"))
	out = run(t, d, "!add q", actor("3"))
	assert.Equal(t, queue.AddedAndFilled, out.Enqueue.Status)
	assert.Equal(t, 0, d.Registry().Len())
}

func TestDispatch_MissingQueueName(t *testing.T) {
	d := newTestDispatcher(t, 3)

	for _, text := range []string{"!add", "!remove"} {
		out := run(t, d, text, actor("1"))
		assert.ErrorIs(t, out.Err, ErrMissingQueueName, text)
	}
	assert.Equal(t, 0, d.Registry().Len())
}

func TestDispatch_Remove(t *testing.T) {
	d := newTestDispatcher(t, 6)

	out := run(t, d, "!remove ghost", actor("1"))
	assert.Equal(t, queue.NotFoundOrEmpty, out.Dequeue.Status)

	run(t, d, "!add duo", actor("1"))
	run(t, d, "!add duo", actor("2"))

	out = run(t, d, "!remove DUO", actor("9"))
	assert.Equal(t, queue.Removed, out.Dequeue.Status)
	assert.Equal(t, "1", out.Dequeue.Participant.ID)
	assert.False(t, out.Dequeue.Retired)

	out = run(t, d, "!remove duo", actor("9"))
	assert.Equal(t, "2", out.Dequeue.Participant.ID)
	assert.True(t, out.Dequeue.Retired)
}

func TestDispatch_Status(t *testing.T) {
	d := newTestDispatcher(t, 6)

	out := run(t, d, "!status", actor("1"))
	assert.Empty(t, out.Snapshots)

	out = run(t, d, "!status missing", actor("1"))
	assert.Empty(t, out.Snapshots)

	run(t, d, "!add alpha", actor("1"))
	run(t, d, "!add beta", actor("2"))
	run(t, d, "!add alpha", actor("3"))

	out = run(t, d, "!status ALPHA", actor("1"))
	require.Len(t, out.Snapshots, 1)
	assert.Equal(t, "alpha", out.Snapshots[0].Name)
	assert.Equal(t, 2, out.Snapshots[0].Len())

	out = run(t, d, "!status", actor("1"))
	require.Len(t, out.Snapshots, 2)
	assert.Equal(t, "alpha", out.Snapshots[0].Name)
	assert.Equal(t, "beta", out.Snapshots[1].Name)
}

func TestDispatch_Unknown(t *testing.T) {
	d := newTestDispatcher(t, 6)

	out := run(t, d, "!view q", actor("1"))
	assert.ErrorIs(t, out.Err, ErrUnknownCommand)
	assert.Equal(t, 0, d.Registry().Len())
}

func TestDispatch_ConcurrentCommandsKeepInvariants(t *testing.T) {
	d := newTestDispatcher(t, 4)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("q%d", i%3)
			cmd := NewCommand("!", "add", []string{name}, actor(fmt.Sprint(i)))
			_, err := d.Dispatch(context.Background(), cmd)
			assert.NoError(t, err)
			if i%5 == 0 {
				_, err = d.Dispatch(context.Background(), NewCommand("!", "remove", []string{name}, actor("mod")))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for _, snap := range d.Registry().DescribeAll() {
		assert.GreaterOrEqual(t, snap.Len(), 1)
		assert.Less(t, snap.Len(), 4)
	}
}

func TestDispatch_ClosedLanes(t *testing.T) {
	lanes := commandqueue.New(zerolog.Nop())
	require.NoError(t, lanes.Close())

	d, err := New(Config{Registry: queue.NewRegistry(3), Lanes: lanes, Logger: zerolog.Nop()})
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), NewCommand("!", "add", []string{"q"}, actor("1")))
	assert.ErrorIs(t, err, commandqueue.ErrClosed)
}
