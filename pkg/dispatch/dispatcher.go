package dispatch

import (
	"context"
	"fmt"

	"github.com/harun/queuebot/internal/observability"
	"github.com/harun/queuebot/internal/tracing"
	"github.com/harun/queuebot/pkg/commandqueue"
	"github.com/harun/queuebot/pkg/queue"
	"github.com/rs/zerolog"
)

// Outcome is the registry's answer to a Command, ready for a Presenter.
type Outcome struct {
	Command   Command
	Enqueue   queue.EnqueueResult
	Dequeue   queue.DequeueResult
	Snapshots []queue.Snapshot
	// Err is ErrMissingQueueName or ErrUnknownCommand when the command
	// never reached the registry.
	Err error
}

// Config wires a Dispatcher.
type Config struct {
	Registry *queue.Registry
	Lanes    *commandqueue.CommandQueue
	Logger   zerolog.Logger
}

// Dispatcher routes commands to registry operations.
type Dispatcher struct {
	registry *queue.Registry
	lanes    *commandqueue.CommandQueue
	logger   zerolog.Logger
}

// New creates a Dispatcher.
func New(cfg Config) (*Dispatcher, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("queue registry is required")
	}
	if cfg.Lanes == nil {
		return nil, fmt.Errorf("command queue is required")
	}

	return &Dispatcher{
		registry: cfg.Registry,
		lanes:    cfg.Lanes,
		logger:   cfg.Logger.With().Str("component", "dispatch").Logger(),
	}, nil
}

// Registry returns the registry commands are applied to.
func (d *Dispatcher) Registry() *queue.Registry {
	return d.registry
}

// Dispatch applies cmd to the registry. Operations naming a queue run in that
// queue's lane so they apply in delivery order. The returned error is only
// set for infrastructure failures (closed lanes, cancelled context).
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	name := cmd.QueueName()
	if name != "" {
		ctx = tracing.WithQueue(ctx, name)
	}
	logger := tracing.LoggerFromContext(ctx, d.logger)

	observability.RecordCommand(cmd.Kind.String(), tracing.GetTransport(ctx))
	logger.Debug().
		Str("command", cmd.Name).
		Strs("args", cmd.Args).
		Msg("Command received")

	outcome := Outcome{Command: cmd}

	switch cmd.Kind {
	case KindAdd:
		if name == "" {
			outcome.Err = ErrMissingQueueName
			return outcome, nil
		}
		res, err := d.inLane(ctx, name, func() interface{} {
			return d.registry.Enqueue(name, cmd.Actor)
		})
		if err != nil {
			return outcome, err
		}
		outcome.Enqueue = res.(queue.EnqueueResult)
		d.recordEnqueue(ctx, logger, outcome.Enqueue)

	case KindRemove:
		if name == "" {
			outcome.Err = ErrMissingQueueName
			return outcome, nil
		}
		res, err := d.inLane(ctx, name, func() interface{} {
			return d.registry.Dequeue(name)
		})
		if err != nil {
			return outcome, err
		}
		outcome.Dequeue = res.(queue.DequeueResult)
		d.recordDequeue(ctx, logger, cmd.Actor, outcome.Dequeue)

	case KindStatus:
		if name == "" {
			outcome.Snapshots = d.registry.DescribeAll()
			return outcome, nil
		}
		res, err := d.inLane(ctx, name, func() interface{} {
			snap, ok := d.registry.Describe(name)
			if !ok {
				return []queue.Snapshot{}
			}
			return []queue.Snapshot{snap}
		})
		if err != nil {
			return outcome, err
		}
		outcome.Snapshots = res.([]queue.Snapshot)

	default:
		outcome.Err = ErrUnknownCommand
	}

	return outcome, nil
}

func (d *Dispatcher) inLane(ctx context.Context, name string, fn func() interface{}) (interface{}, error) {
	res, err := d.lanes.Enqueue(ctx, "queue:"+name, func(context.Context) (interface{}, error) {
		return fn(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run command for queue %q: %w", name, err)
	}
	return res, nil
}

func (d *Dispatcher) recordEnqueue(ctx context.Context, logger zerolog.Logger, res queue.EnqueueResult) {
	observability.RecordEnqueue(res.Status.String())
	d.publishStats()

	if res.Created {
		observability.RecordQueueAudit(ctx, "queue_created", res.Queue, res.Participant.ID, map[string]interface{}{
			"capacity": res.Capacity,
		})
		logger.Info().Int("capacity", res.Capacity).Msg("Queue created")
	}

	switch res.Status {
	case queue.Added:
		logger.Info().
			Str("participant", res.Participant.ID).
			Int("position", res.Position).
			Msg("Participant enqueued")
	case queue.AddedAndFilled:
		observability.RecordRetirement("filled")
		observability.RecordQueueAudit(ctx, "queue_filled", res.Queue, res.Participant.ID, nil)
		logger.Info().
			Str("participant", res.Participant.ID).
			Int("capacity", res.Capacity).
			Msg("Queue filled and retired")
	default:
		logger.Debug().
			Str("participant", res.Participant.ID).
			Str("status", res.Status.String()).
			Msg("Enqueue rejected")
	}
}

func (d *Dispatcher) recordDequeue(ctx context.Context, logger zerolog.Logger, actor queue.Participant, res queue.DequeueResult) {
	observability.RecordDequeue(res.Status.String())
	d.publishStats()

	if res.Status != queue.Removed {
		logger.Debug().Msg("Dequeue on missing queue")
		return
	}

	logger.Info().
		Str("participant", res.Participant.ID).
		Str("requested_by", actor.ID).
		Msg("Participant dequeued")

	if res.Retired {
		observability.RecordRetirement("emptied")
		observability.RecordQueueAudit(ctx, "queue_emptied", res.Queue, actor.ID, map[string]interface{}{
			"last_participant": res.Participant.ID,
		})
		logger.Info().Msg("Queue emptied and retired")
	}
}

func (d *Dispatcher) publishStats() {
	observability.SetRegistryStats(d.registry.Len(), d.registry.Waiting())
}
