package daemon

import (
	"fmt"
	"sync"

	"github.com/harun/queuebot/internal/observability"
	"github.com/robfig/cron/v3"
)

// EventLoop runs periodic maintenance on a cron schedule
type EventLoop struct {
	daemon   *Daemon
	schedule string
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewEventLoop creates a new event loop. An empty schedule disables it.
func NewEventLoop(d *Daemon, schedule string) *EventLoop {
	return &EventLoop{
		daemon:   d,
		schedule: schedule,
	}
}

// Start registers the stats job and starts the scheduler
func (e *EventLoop) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.schedule == "" {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(e.schedule, e.processTasks); err != nil {
		return fmt.Errorf("failed to schedule stats job %q: %w", e.schedule, err)
	}
	c.Start()

	e.cron = c
	e.running = true

	e.daemon.logger.Info().Str("schedule", e.schedule).Msg("Event loop started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish
func (e *EventLoop) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	<-e.cron.Stop().Done()
	e.running = false

	e.daemon.logger.Info().Msg("Event loop stopped")
}

// processTasks refreshes gauges, logs busy lanes and pushes a stats event
func (e *EventLoop) processTasks() {
	logger := e.daemon.logger.GetZerolog()

	queues := e.daemon.registry.Len()
	waiting := e.daemon.registry.Waiting()
	observability.SetRegistryStats(queues, waiting)
	observability.SetActiveLanes(e.daemon.queue.ActiveLanes())

	stats := e.daemon.queue.GetStats()
	for lane, laneStats := range stats {
		if laneStats["queued"] > 0 || laneStats["running"] > 0 {
			logger.Debug().
				Str("lane", lane).
				Int("queued", laneStats["queued"]).
				Int("running", laneStats["running"]).
				Msg("Lane stats")
		}
	}

	logger.Debug().Int("queues", queues).Int("waiting", waiting).Msg("Registry stats")

	if e.daemon.gatewayServer != nil {
		e.daemon.gatewayServer.Broadcast("registry.stats", map[string]interface{}{
			"queues":  queues,
			"waiting": waiting,
		})
	}
}
