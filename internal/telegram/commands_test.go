package telegram

import (
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleCommand_Add(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 6), "!")

	err := commands.HandleCommand(commandUpdate(1, "ana", "/add Ranked", "add"))
	require.NoError(t, err)

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `Added @ana to the "ranked" queue.`, msgs[0].Text)
	assert.Equal(t, 10, msgs[0].ReplyTo)
}

func TestHandleCommand_MissingNameUsesSlashHint(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 6), "!")

	require.NoError(t, commands.HandleCommand(commandUpdate(1, "ana", "/remove", "remove")))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Please specify a queue name. Usage: /remove <queue_name>", msgs[0].Text)
}

func TestHandleCommand_BotSuffix(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 6), "!")

	update := commandUpdate(1, "ana", "/add@queuebot duo", "add@queuebot")
	require.NoError(t, commands.HandleCommand(update))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, `Added @ana to the "duo" queue.`, msgs[0].Text)
}

func TestHandleCommand_FillAnnouncesToChat(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 2), "!")

	require.NoError(t, commands.HandleCommand(commandUpdate(1, "ana", "/add duo", "add")))
	require.NoError(t, commands.HandleCommand(commandUpdate(2, "bo", "/add duo", "add")))

	msgs := sender.messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, `Added @bo to the "duo" queue.`, msgs[1].Text)
	assert.Equal(t, 10, msgs[1].ReplyTo)
	assert.Equal(t, `The "duo" queue is now full and will be removed.`, msgs[2].Text)
	assert.Zero(t, msgs[2].ReplyTo)
}

func TestHandleCommand_StatusPostsCards(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 3), "!")

	require.NoError(t, commands.HandleCommand(commandUpdate(1, "ana", "/add alpha", "add")))
	require.NoError(t, commands.HandleCommand(commandUpdate(2, "", "/add beta", "add")))
	require.NoError(t, commands.HandleCommand(commandUpdate(3, "cy", "/status", "status")))

	msgs := sender.messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "Queue - alpha\n🟢⚪⚪\nPlayer 1: @ana", msgs[2].Text)
	assert.Equal(t, "Queue - beta\n🟢⚪⚪\nPlayer 1: 2", msgs[3].Text)
}

func TestHandleCommand_Unknown(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 6), "!")

	require.NoError(t, commands.HandleCommand(commandUpdate(1, "ana", "/start", "start")))

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Unknown command. Try /add, /remove, or /status", msgs[0].Text)
}

func TestHandleCommand_SendFailure(t *testing.T) {
	bot, sender := createTestBot(t)
	sender.err = errors.New("forbidden")
	commands := NewCommands(bot, createTestDispatcher(t, 6), "!")

	err := commands.HandleCommand(commandUpdate(1, "ana", "/add q", "add"))
	assert.Error(t, err)
}

func TestSetCommands(t *testing.T) {
	bot, sender := createTestBot(t)
	commands := NewCommands(bot, createTestDispatcher(t, 6), "!")

	require.NoError(t, commands.SetCommands())
	require.Len(t, sender.requests, 1)

	cfg, ok := sender.requests[0].(tgbotapi.SetMyCommandsConfig)
	require.True(t, ok)
	assert.Len(t, cfg.Commands, 3)
}

func TestParticipant(t *testing.T) {
	t.Run("username wins", func(t *testing.T) {
		p := participant(&tgbotapi.User{ID: 9, UserName: "ana", FirstName: "Ana"})
		assert.Equal(t, "tg:9", p.ID)
		assert.Equal(t, "@ana", p.DisplayName)
	})

	t.Run("full name without username", func(t *testing.T) {
		p := participant(&tgbotapi.User{ID: 9, FirstName: "Ana", LastName: "Lima"})
		assert.Equal(t, "Ana Lima", p.DisplayName)
	})

	t.Run("mention falls back to raw id", func(t *testing.T) {
		assert.Equal(t, "9", mention(participant(&tgbotapi.User{ID: 9})))
	})
}
