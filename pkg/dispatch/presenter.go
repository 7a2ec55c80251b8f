package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harun/queuebot/pkg/queue"
	"github.com/samber/lo"
)

const (
	occupiedIcon = "🟢"
	freeIcon     = "⚪"
	embedColor   = "#0099ff"
	blankName    = "\u200b"
)

// Field is one name/value pair of an Embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Embed is a structured status card for one queue.
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
}

// PlainText renders the embed for transports without rich messages.
func (e Embed) PlainText() string {
	var b strings.Builder
	b.WriteString(e.Title)
	b.WriteString("\n")
	b.WriteString(e.Description)
	for _, f := range e.Fields {
		b.WriteString("\n")
		if strings.TrimSpace(f.Name) == "" || f.Name == blankName {
			b.WriteString(f.Value)
			continue
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, f.Value)
	}
	return b.String()
}

// Reply is what a transport sends back for one command.
type Reply struct {
	// Text answers the actor directly.
	Text string `json:"text,omitempty"`
	// Notice is announced to the whole channel.
	Notice string `json:"notice,omitempty"`
	// Embeds are status cards posted to the channel.
	Embeds []Embed `json:"embeds,omitempty"`
}

// IsEmpty reports whether the reply has nothing to send.
func (r Reply) IsEmpty() bool {
	return r.Text == "" && r.Notice == "" && len(r.Embeds) == 0
}

// MentionFunc formats a participant reference inside status cards.
type MentionFunc func(queue.Participant) string

// DefaultMention renders the chat-style "<@id>" reference.
func DefaultMention(p queue.Participant) string {
	return "<@" + p.ID + ">"
}

// Presenter turns dispatch outcomes into replies.
type Presenter struct {
	prefix  string
	mention MentionFunc
}

// NewPresenter creates a Presenter. prefix is used in hints when a command
// does not carry its own; a nil mention uses DefaultMention.
func NewPresenter(prefix string, mention MentionFunc) *Presenter {
	if mention == nil {
		mention = DefaultMention
	}
	return &Presenter{prefix: prefix, mention: mention}
}

// Render builds the reply for o.
func (p *Presenter) Render(o Outcome) Reply {
	prefix := o.Command.Prefix
	if prefix == "" {
		prefix = p.prefix
	}

	switch {
	case errors.Is(o.Err, ErrMissingQueueName):
		return Reply{Text: fmt.Sprintf("Please specify a queue name. Usage: %s%s <queue_name>", prefix, o.Command.Kind)}
	case o.Err != nil:
		return Reply{Text: fmt.Sprintf("Unknown command. Try %[1]sadd, %[1]sremove, or %[1]sstatus", prefix)}
	}

	switch o.Command.Kind {
	case KindAdd:
		return p.enqueued(o.Enqueue)
	case KindRemove:
		return p.dequeued(o.Dequeue)
	case KindStatus:
		return p.status(o.Command.QueueName(), o.Snapshots)
	}

	return Reply{}
}

func (p *Presenter) enqueued(res queue.EnqueueResult) Reply {
	switch res.Status {
	case queue.AlreadyQueued:
		return Reply{Text: fmt.Sprintf(`You are already in the "%s" queue.`, res.Queue)}
	case queue.Full:
		return Reply{Text: fmt.Sprintf(`The "%s" queue is full (max %d users).`, res.Queue, res.Capacity)}
	case queue.AddedAndFilled:
		return Reply{
			Text:   fmt.Sprintf(`Added %s to the "%s" queue.`, displayName(res.Participant), res.Queue),
			Notice: fmt.Sprintf(`The "%s" queue is now full and will be removed.`, res.Queue),
		}
	default:
		return Reply{Text: fmt.Sprintf(`Added %s to the "%s" queue.`, displayName(res.Participant), res.Queue)}
	}
}

func (p *Presenter) dequeued(res queue.DequeueResult) Reply {
	if res.Status != queue.Removed {
		return Reply{Text: fmt.Sprintf(`The "%s" queue is empty or doesn't exist.`, res.Queue)}
	}
	return Reply{Text: fmt.Sprintf(`Removed %s from the "%s" queue.`, displayName(res.Participant), res.Queue)}
}

func (p *Presenter) status(name string, snaps []queue.Snapshot) Reply {
	if len(snaps) == 0 {
		if name == "" {
			return Reply{Text: "There are no queues available."}
		}
		return Reply{Text: fmt.Sprintf(`The "%s" queue doesn't exist.`, name)}
	}

	return Reply{Embeds: lo.Map(snaps, func(s queue.Snapshot, _ int) Embed {
		return p.Embed(s)
	})}
}

// Embed renders one queue as a status card: a filled dot per occupant, an
// empty dot per free slot and a numbered field per participant.
func (p *Presenter) Embed(s queue.Snapshot) Embed {
	embed := Embed{
		Title:       "Queue - " + s.Name,
		Description: strings.Repeat(occupiedIcon, s.Len()) + strings.Repeat(freeIcon, s.Free()),
		Color:       embedColor,
	}

	if s.Len() == 0 {
		embed.Fields = []Field{{Name: blankName, Value: "Queue is empty"}}
		return embed
	}

	embed.Fields = lo.Map(s.Participants, func(member queue.Participant, i int) Field {
		return Field{
			Name:   fmt.Sprintf("Player %d", i+1),
			Value:  p.mention(member),
			Inline: true,
		}
	})
	return embed
}

func displayName(p queue.Participant) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}
