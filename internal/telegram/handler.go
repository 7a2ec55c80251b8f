package telegram

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/rs/zerolog"
)

// Handler picks prefixed commands ("!add ranked") out of ordinary chat text
type Handler struct {
	commands *Commands
	prefix   string
	logger   zerolog.Logger
}

// NewHandler creates a new message handler
func NewHandler(commands *Commands, prefix string) *Handler {
	return &Handler{
		commands: commands,
		prefix:   prefix,
		logger:   commands.bot.logger.With().Str("module", "handler").Logger(),
	}
}

// HandleMessage processes incoming messages. Text without the prefix is ignored.
func (h *Handler) HandleMessage(update tgbotapi.Update) error {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	actor := participant(msg.From)

	cmd, err := dispatch.Parse(msg.Text, h.prefix, actor)
	switch {
	case errors.Is(err, dispatch.ErrNotCommand):
		return nil
	case errors.Is(err, dispatch.ErrEmptyCommand):
		// a bare prefix is answered like any other unknown command
		cmd = dispatch.NewCommand(h.prefix, "", nil, actor)
	case err != nil:
		return err
	}

	h.logger.Debug().
		Int64("chat_id", msg.Chat.ID).
		Str("user", actor.ID).
		Bool("is_group", msg.Chat.IsGroup() || msg.Chat.IsSuperGroup()).
		Msg("Prefixed command received")

	return h.commands.Execute(CommandContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Actor:     actor,
		Command:   cmd,
	})
}
