package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/harun/queuebot/internal/tracing"
	"github.com/harun/queuebot/pkg/commandqueue"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/harun/queuebot/pkg/queue"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const consoleTransport = "console"

var consoleActor string

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run queue commands from standard input",
	Long: `Run an in-process queue registry fed from standard input.
Each line is one command, with or without the configured prefix:

  add <queue>      join a queue
  remove <queue>   serve the front of a queue
  status [queue]   show one or all queues
  as <id>          act as another participant
  quit             leave the console`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleActor, "as", defaultConsoleActor(), "participant id commands are issued as")
	rootCmd.AddCommand(consoleCmd)
}

func defaultConsoleActor() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "console"
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	lanes := commandqueue.New(log.Component("commandqueue"))
	defer lanes.Close()

	dispatcher, err := dispatch.New(dispatch.Config{
		Registry: queue.NewRegistry(cfg.Queue.MaxSize),
		Lanes:    lanes,
		Logger:   log.Component("dispatch"),
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	c := newConsole(dispatcher, cfg.Commands.Prefix, consoleActor, cmd.OutOrStdout())
	return c.Run(cmd.Context(), cmd.InOrStdin())
}

// console is a line oriented command source writing replies to out
type console struct {
	dispatcher *dispatch.Dispatcher
	presenter  *dispatch.Presenter
	prefix     string
	actor      queue.Participant
	out        io.Writer
}

func newConsole(dispatcher *dispatch.Dispatcher, prefix, actorID string, out io.Writer) *console {
	return &console{
		dispatcher: dispatcher,
		presenter: dispatch.NewPresenter("", func(p queue.Participant) string {
			return p.DisplayName
		}),
		prefix: prefix,
		actor:  queue.Participant{ID: actorID, DisplayName: actorID},
		out:    out,
	}
}

// Run executes lines from in until EOF, "quit" or context cancellation
func (c *console) Run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		done, err := c.handleLine(ctx, scanner.Text())
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}

func (c *console) handleLine(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil
	case "as":
		if len(fields) < 2 {
			fmt.Fprintf(c.out, "Acting as %s\n", c.actor.ID)
			return false, nil
		}
		c.actor = queue.Participant{ID: fields[1], DisplayName: fields[1]}
		fmt.Fprintf(c.out, "Acting as %s\n", c.actor.ID)
		return false, nil
	}

	cmd, err := c.parse(line)
	if err != nil {
		return false, err
	}

	ctx = tracing.NewCommandContext(ctx, consoleTransport, c.actor.ID)
	outcome, err := c.dispatcher.Dispatch(ctx, cmd)
	if err != nil {
		return false, err
	}

	c.print(c.presenter.Render(outcome))
	return false, nil
}

// parse accepts both "!add q" and "add q"
func (c *console) parse(line string) (dispatch.Command, error) {
	if c.prefix != "" && strings.HasPrefix(line, c.prefix) {
		cmd, err := dispatch.Parse(line, c.prefix, c.actor)
		if errors.Is(err, dispatch.ErrEmptyCommand) {
			return dispatch.NewCommand(c.prefix, "", nil, c.actor), nil
		}
		return cmd, err
	}

	fields := strings.Fields(line)
	return dispatch.NewCommand("", fields[0], fields[1:], c.actor), nil
}

func (c *console) print(reply dispatch.Reply) {
	if reply.Text != "" {
		fmt.Fprintln(c.out, reply.Text)
	}
	if reply.Notice != "" {
		fmt.Fprintf(c.out, "** %s **\n", reply.Notice)
	}
	for _, embed := range reply.Embeds {
		renderEmbed(c.out, embed)
	}
}

// renderEmbed draws a status card as a titled table
func renderEmbed(out io.Writer, embed dispatch.Embed) {
	fmt.Fprintf(out, "%s  %s\n", embed.Title, embed.Description)

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Slot", "Participant"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	for _, field := range embed.Fields {
		if field.Inline {
			table.Append([]string{field.Name, field.Value})
			continue
		}
		table.Append([]string{"-", field.Value})
	}

	table.Render()
}
