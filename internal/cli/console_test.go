package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/harun/queuebot/pkg/commandqueue"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/harun/queuebot/pkg/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T, maxSize int) (*console, *bytes.Buffer) {
	t.Helper()

	lanes := commandqueue.New(zerolog.Nop())
	t.Cleanup(func() { _ = lanes.Close() })

	d, err := dispatch.New(dispatch.Config{
		Registry: queue.NewRegistry(maxSize),
		Lanes:    lanes,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return newConsole(d, "!", "ana", out), out
}

func TestConsole_Session(t *testing.T) {
	c, out := newTestConsole(t, 3)

	script := strings.Join([]string{
		"add ranked",
		"as bo",
		"!add Ranked",
		"status ranked",
		"remove",
		"!",
		"dance",
		"",
		"quit",
		"add later",
	}, "\n")

	require.NoError(t, c.Run(context.Background(), strings.NewReader(script)))

	got := out.String()
	assert.Contains(t, got, `Added ana to the "ranked" queue.`)
	assert.Contains(t, got, "Acting as bo")
	assert.Contains(t, got, `Added bo to the "ranked" queue.`)
	assert.Contains(t, got, "Queue - ranked  🟢🟢⚪")
	assert.Contains(t, got, "Player 1")
	assert.Contains(t, got, "Please specify a queue name. Usage: remove <queue_name>")
	assert.Contains(t, got, "Unknown command. Try !add, !remove, or !status")
	assert.Contains(t, got, "Unknown command. Try add, remove, or status")
	assert.NotContains(t, got, "later")
}

func TestConsole_FillAnnouncesNotice(t *testing.T) {
	c, out := newTestConsole(t, 2)

	require.NoError(t, c.Run(context.Background(), strings.NewReader("add duo\nas bo\nadd duo\nstatus\n")))

	got := out.String()
	assert.Contains(t, got, `** The "duo" queue is now full and will be removed. **`)
	assert.Contains(t, got, "There are no queues available.")
}

func TestConsole_EmptyQueueEmbed(t *testing.T) {
	out := &bytes.Buffer{}
	renderEmbed(out, dispatch.NewPresenter("", nil).Embed(queue.Snapshot{Name: "idle", Capacity: 2}))

	assert.Contains(t, out.String(), "Queue - idle  ⚪⚪")
	assert.Contains(t, out.String(), "Queue is empty")
}

func TestConsole_CancelledContext(t *testing.T) {
	c, out := newTestConsole(t, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, c.Run(ctx, strings.NewReader("add ranked\n")))
	assert.Empty(t, out.String())
}
