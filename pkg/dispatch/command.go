package dispatch

import (
	"errors"
	"strings"

	"github.com/harun/queuebot/pkg/queue"
)

var (
	// ErrNotCommand is returned by Parse for text that does not start with the prefix.
	ErrNotCommand = errors.New("message is not a command")
	// ErrEmptyCommand is returned by Parse for a bare prefix.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrMissingQueueName marks add/remove commands issued without a queue name.
	ErrMissingQueueName = errors.New("queue name is required")
	// ErrUnknownCommand marks command names with no registry operation.
	ErrUnknownCommand = errors.New("unknown command")
)

// Kind identifies the registry operation a command maps to.
type Kind int

const (
	KindUnknown Kind = iota
	KindAdd
	KindRemove
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// ParseKind maps a command token to its Kind, ignoring case.
func ParseKind(name string) Kind {
	switch strings.ToLower(name) {
	case "add":
		return KindAdd
	case "remove":
		return KindRemove
	case "status":
		return KindStatus
	default:
		return KindUnknown
	}
}

// Command is one parsed instruction from a transport.
type Command struct {
	Kind  Kind
	Name  string // command token as typed, lowercased
	Args  []string
	Actor queue.Participant
	// Prefix is how the command was introduced ("!" or "/"), echoed in usage hints.
	Prefix string
}

// NewCommand builds a Command from an already split name and argument list.
func NewCommand(prefix, name string, args []string, actor queue.Participant) Command {
	name = strings.ToLower(name)
	return Command{
		Kind:   ParseKind(name),
		Name:   name,
		Args:   args,
		Actor:  actor,
		Prefix: prefix,
	}
}

// Parse splits text of the form "<prefix><name> [args...]" into a Command.
func Parse(text, prefix string, actor queue.Participant) (Command, error) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return Command{}, ErrNotCommand
	}

	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}

	return NewCommand(prefix, fields[0], fields[1:], actor), nil
}

// QueueName returns the normalized first argument, or "" when absent.
func (c Command) QueueName() string {
	if len(c.Args) == 0 {
		return ""
	}
	return queue.NormalizeName(c.Args[0])
}
