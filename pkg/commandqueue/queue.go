package commandqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harun/queuebot/internal/observability"
	"github.com/harun/queuebot/internal/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrClosed is returned by Enqueue after Close has been called.
var ErrClosed = errors.New("command queue is closed")

// Task is a unit of work executed inside a lane.
type Task func(ctx context.Context) (interface{}, error)

type taskRecord struct {
	id         string
	task       Task
	ctx        context.Context
	enqueuedAt time.Time
	result     chan taskResult
}

type taskResult struct {
	value interface{}
	err   error
}

// laneState is the pending work of one lane. A lane present in the map
// always has exactly one drain goroutine attached.
type laneState struct {
	queue   []*taskRecord
	running bool
}

// CommandQueue serializes tasks per lane.
type CommandQueue struct {
	mu        sync.Mutex
	lanes     map[string]*laneState
	taskIDSeq uint64
	closed    bool
	wg        sync.WaitGroup
	logger    zerolog.Logger
}

// New creates a CommandQueue.
func New(logger zerolog.Logger) *CommandQueue {
	observability.EnsureRegistered()

	return &CommandQueue{
		lanes:  make(map[string]*laneState),
		logger: logger.With().Str("component", "commandqueue").Logger(),
	}
}

// Enqueue appends task to lane and blocks until it has run.
// A task whose context is done before its turn is skipped with ctx.Err().
func (cq *CommandQueue) Enqueue(ctx context.Context, lane string, task Task) (interface{}, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cq.mu.Lock()
	if cq.closed {
		cq.mu.Unlock()
		return nil, ErrClosed
	}

	cq.taskIDSeq++
	record := &taskRecord{
		id:         fmt.Sprintf("%s-%d", lane, cq.taskIDSeq),
		task:       task,
		ctx:        ctx,
		enqueuedAt: time.Now(),
		result:     make(chan taskResult, 1),
	}

	ls, exists := cq.lanes[lane]
	if !exists {
		ls = &laneState{}
		cq.lanes[lane] = ls
		cq.wg.Add(1)
		go cq.drain(lane, ls)
	}
	ls.queue = append(ls.queue, record)
	pending := len(ls.queue)
	active := len(cq.lanes)
	cq.mu.Unlock()

	observability.SetActiveLanes(active)
	logger := tracing.LoggerFromContext(ctx, cq.logger)
	logger.Debug().
		Str("lane", lane).
		Str("task_id", record.id).
		Int("pending", pending).
		Msg("Task enqueued")

	res := <-record.result
	return res.value, res.err
}

// drain runs the lane's tasks in order and removes the lane once it is idle.
func (cq *CommandQueue) drain(lane string, ls *laneState) {
	defer cq.wg.Done()

	for {
		cq.mu.Lock()
		if len(ls.queue) == 0 {
			delete(cq.lanes, lane)
			active := len(cq.lanes)
			cq.mu.Unlock()
			observability.SetActiveLanes(active)
			return
		}
		record := ls.queue[0]
		ls.queue[0] = nil
		ls.queue = ls.queue[1:]
		ls.running = true
		cq.mu.Unlock()

		cq.execute(lane, record)

		cq.mu.Lock()
		ls.running = false
		cq.mu.Unlock()
	}
}

func (cq *CommandQueue) execute(lane string, record *taskRecord) {
	wait := time.Since(record.enqueuedAt)

	if err := record.ctx.Err(); err != nil {
		record.result <- taskResult{err: err}
		observability.RecordLaneTask(wait, 0, false)
		return
	}

	ctx, span := tracing.StartSpan(
		record.ctx,
		"queuebot.commandqueue",
		"commandqueue.execute",
		attribute.String("lane", lane),
		attribute.String("task_id", record.id),
	)
	defer span.End()

	logger := tracing.LoggerFromContext(ctx, cq.logger)
	start := time.Now()

	value, err := cq.run(ctx, record.task)
	duration := time.Since(start)

	record.result <- taskResult{value: value, err: err}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().
			Str("lane", lane).
			Str("task_id", record.id).
			Dur("duration", duration).
			Err(err).
			Msg("Task failed")
	} else {
		logger.Debug().
			Str("lane", lane).
			Str("task_id", record.id).
			Dur("wait", wait).
			Dur("duration", duration).
			Msg("Task completed")
	}

	observability.RecordLaneTask(wait, duration, err == nil)
}

// run converts a panicking task into an error so the lane keeps draining.
func (cq *CommandQueue) run(ctx context.Context, task Task) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}

// Pending returns the number of tasks waiting in lane, excluding a running one.
func (cq *CommandQueue) Pending(lane string) int {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	if ls, ok := cq.lanes[lane]; ok {
		return len(ls.queue)
	}
	return 0
}

// ActiveLanes returns the number of lanes with pending or running work.
func (cq *CommandQueue) ActiveLanes() int {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return len(cq.lanes)
}

// GetStats returns pending and running counts per active lane.
func (cq *CommandQueue) GetStats() map[string]map[string]int {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	stats := make(map[string]map[string]int, len(cq.lanes))
	for lane, ls := range cq.lanes {
		running := 0
		if ls.running {
			running = 1
		}
		stats[lane] = map[string]int{
			"queued":  len(ls.queue),
			"running": running,
		}
	}
	return stats
}

// Close stops accepting tasks and waits for every lane to drain.
func (cq *CommandQueue) Close() error {
	cq.mu.Lock()
	cq.closed = true
	cq.mu.Unlock()

	cq.wg.Wait()
	return nil
}
