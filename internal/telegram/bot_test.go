package telegram

import (
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/queuebot/internal/config"
	"github.com/harun/queuebot/internal/logger"
	"github.com/harun/queuebot/pkg/commandqueue"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/harun/queuebot/pkg/queue"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	ChatID  int64
	Text    string
	ReplyTo int
}

// fakeSender records outgoing messages instead of calling the Bot API
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	requests []tgbotapi.Chattable
	err      error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, sentMessage{ChatID: msg.ChatID, Text: msg.Text, ReplyTo: msg.ReplyToMessageID})
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func createTestBot(t *testing.T) (*Bot, *fakeSender) {
	t.Helper()

	sender := &fakeSender{}
	api := &tgbotapi.BotAPI{Self: tgbotapi.User{ID: 42, UserName: "queuebot", IsBot: true}}
	bot := newBot(api, sender, &config.TelegramConfig{Enabled: true, BotToken: "1:test"}, zerolog.Nop())
	return bot, sender
}

func createTestDispatcher(t *testing.T, maxSize int) *dispatch.Dispatcher {
	t.Helper()

	lanes := commandqueue.New(zerolog.Nop())
	t.Cleanup(func() { _ = lanes.Close() })

	d, err := dispatch.New(dispatch.Config{
		Registry: queue.NewRegistry(maxSize),
		Lanes:    lanes,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return d
}

func textUpdate(userID int64, username, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: userID, UserName: username, FirstName: username},
			Chat:      &tgbotapi.Chat{ID: 500, Type: "group"},
			Text:      text,
		},
	}
}

func commandUpdate(userID int64, username, text, command string) tgbotapi.Update {
	update := textUpdate(userID, username, text)
	update.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: len(command) + 1},
	}
	return update
}

type recordingHandler struct {
	commands []tgbotapi.Update
	messages []tgbotapi.Update
}

func (r *recordingHandler) HandleCommand(update tgbotapi.Update) error {
	r.commands = append(r.commands, update)
	return nil
}

func (r *recordingHandler) HandleMessage(update tgbotapi.Update) error {
	r.messages = append(r.messages, update)
	return nil
}

func TestNew(t *testing.T) {
	log := logger.Nop()

	t.Run("nil config", func(t *testing.T) {
		bot, err := New(nil, log)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("empty bot token", func(t *testing.T) {
		bot, err := New(&config.TelegramConfig{Enabled: true}, log)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "bot token is required")
	})
}

func TestHandleUpdate_Routing(t *testing.T) {
	bot, _ := createTestBot(t)
	rec := &recordingHandler{}
	bot.SetCommandHandler(rec)
	bot.SetMessageHandler(rec)

	require.NoError(t, bot.handleUpdate(commandUpdate(1, "ana", "/add ranked", "add")))
	require.NoError(t, bot.handleUpdate(textUpdate(1, "ana", "!add ranked")))

	assert.Len(t, rec.commands, 1)
	assert.Len(t, rec.messages, 1)
}

func TestHandleUpdate_IgnoresBots(t *testing.T) {
	bot, _ := createTestBot(t)
	rec := &recordingHandler{}
	bot.SetCommandHandler(rec)
	bot.SetMessageHandler(rec)

	update := textUpdate(7, "otherbot", "!add ranked")
	update.Message.From.IsBot = true
	require.NoError(t, bot.handleUpdate(update))

	require.NoError(t, bot.handleUpdate(tgbotapi.Update{}))

	assert.Empty(t, rec.commands)
	assert.Empty(t, rec.messages)
}

func TestSendMessage(t *testing.T) {
	bot, sender := createTestBot(t)

	require.NoError(t, bot.SendMessage(500, "hello"))
	require.NoError(t, bot.SendMessageWithReply(500, "pong", 3))

	assert.Equal(t, []sentMessage{
		{ChatID: 500, Text: "hello"},
		{ChatID: 500, Text: "pong", ReplyTo: 3},
	}, sender.messages())

	sender.err = errors.New("network down")
	err := bot.SendMessage(500, "lost")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to send message")
}

func TestGetBotInfo(t *testing.T) {
	bot, _ := createTestBot(t)

	info := bot.GetBotInfo()
	assert.Equal(t, "queuebot", info["username"])
	assert.Equal(t, int64(42), info["id"])
	assert.False(t, info["running"].(bool))
}

func TestStopWhenNotRunning(t *testing.T) {
	bot, _ := createTestBot(t)

	err := bot.Stop()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestValidateToken(t *testing.T) {
	err := ValidateToken("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

// compile-time checks
var (
	_ Sender     = (*tgbotapi.BotAPI)(nil)
	_ Dispatcher = (*dispatch.Dispatcher)(nil)
)
