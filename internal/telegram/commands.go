package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/queuebot/internal/observability"
	"github.com/harun/queuebot/internal/tracing"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/harun/queuebot/pkg/queue"
	"github.com/rs/zerolog"
)

const (
	transportName = "telegram"
	slashPrefix   = "/"
	idPrefix      = "tg:"
)

// Dispatcher applies parsed commands to the queue registry
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd dispatch.Command) (dispatch.Outcome, error)
}

// Commands turns Telegram slash commands into queue commands and sends the
// rendered replies back to the chat
type Commands struct {
	bot        *Bot
	dispatcher Dispatcher
	presenter  *dispatch.Presenter
	logger     zerolog.Logger
}

// CommandContext contains command metadata
type CommandContext struct {
	ChatID    int64
	MessageID int
	Actor     queue.Participant
	Command   dispatch.Command
}

// NewCommands creates a new command handler. prefix is the text prefix shown
// in usage hints for commands that did not arrive as slash commands.
func NewCommands(bot *Bot, dispatcher Dispatcher, prefix string) *Commands {
	return &Commands{
		bot:        bot,
		dispatcher: dispatcher,
		presenter:  dispatch.NewPresenter(prefix, mention),
		logger:     bot.logger.With().Str("module", "commands").Logger(),
	}
}

// HandleCommand processes "/add ranked" style commands
func (c *Commands) HandleCommand(update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}

	msg := update.Message
	actor := participant(msg.From)
	cmd := dispatch.NewCommand(slashPrefix, msg.Command(), strings.Fields(msg.CommandArguments()), actor)

	return c.Execute(CommandContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Actor:     actor,
		Command:   cmd,
	})
}

// Execute dispatches a parsed command and delivers the reply
func (c *Commands) Execute(cc CommandContext) error {
	ctx := tracing.NewCommandContext(context.Background(), transportName, cc.Actor.ID)
	logger := tracing.LoggerFromContext(ctx, c.logger)

	logger.Debug().
		Int64("chat_id", cc.ChatID).
		Str("command", cc.Command.Name).
		Strs("args", cc.Command.Args).
		Msg("Command received")

	outcome, err := c.dispatcher.Dispatch(ctx, cc.Command)
	if err != nil {
		return fmt.Errorf("failed to dispatch %s command: %w", cc.Command.Name, err)
	}

	return c.send(cc, c.presenter.Render(outcome))
}

// send replies to the actor and posts notices and status cards to the chat
func (c *Commands) send(cc CommandContext, reply dispatch.Reply) error {
	if reply.Text != "" {
		if err := c.bot.SendMessageWithReply(cc.ChatID, reply.Text, cc.MessageID); err != nil {
			observability.RecordReplyError(transportName)
			return err
		}
	}

	if reply.Notice != "" {
		if err := c.bot.SendMessage(cc.ChatID, reply.Notice); err != nil {
			observability.RecordReplyError(transportName)
			return err
		}
	}

	for _, embed := range reply.Embeds {
		if err := c.bot.SendMessage(cc.ChatID, embed.PlainText()); err != nil {
			observability.RecordReplyError(transportName)
			return err
		}
	}

	return nil
}

// SetCommands publishes the command list shown in Telegram clients
func (c *Commands) SetCommands() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "add", Description: "Join a queue: /add <queue_name>"},
		tgbotapi.BotCommand{Command: "remove", Description: "Remove the first player: /remove <queue_name>"},
		tgbotapi.BotCommand{Command: "status", Description: "Show one queue or all queues"},
	)
	if _, err := c.bot.sender.Request(cfg); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Info().Int("count", 3).Msg("Bot commands updated")
	return nil
}

// participant maps a Telegram user to a queue participant. IDs are namespaced
// so they never collide with gateway actors.
func participant(u *tgbotapi.User) queue.Participant {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.UserName != "" {
		name = "@" + u.UserName
	}
	return queue.Participant{
		ID:          idPrefix + strconv.FormatInt(u.ID, 10),
		DisplayName: name,
	}
}

func mention(p queue.Participant) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return strings.TrimPrefix(p.ID, idPrefix)
}
