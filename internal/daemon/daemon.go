package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/harun/queuebot/internal/config"
	"github.com/harun/queuebot/internal/logger"
	"github.com/harun/queuebot/internal/observability"
	"github.com/harun/queuebot/internal/telegram"
	"github.com/harun/queuebot/internal/tracing"
	"github.com/harun/queuebot/pkg/commandqueue"
	"github.com/harun/queuebot/pkg/dispatch"
	"github.com/harun/queuebot/pkg/gateway"
	"github.com/harun/queuebot/pkg/queue"
)

const stopTimeout = 5 * time.Second

// Daemon represents the queuebot service
type Daemon struct {
	config *config.Config
	logger *logger.Logger

	// Core modules
	registry   *queue.Registry
	queue      *commandqueue.CommandQueue
	dispatcher *dispatch.Dispatcher

	// Transports
	gatewayServer *gateway.Server
	telegramBot   *telegram.Bot
	telegramCmd   *telegram.Commands

	// Internal
	eventLoop *EventLoop
	lifecycle *LifecycleManager

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// Status describes the running daemon
type Status struct {
	Running   bool
	Uptime    time.Duration
	StartTime time.Time
	Queues    int
	Waiting   int
}

var newTelegramBot = func(cfg *config.TelegramConfig, log *logger.Logger) (*telegram.Bot, error) {
	return telegram.New(cfg, log)
}

// New creates a new daemon instance
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if !cfg.Telegram.Enabled && !cfg.Gateway.Enabled {
		return nil, fmt.Errorf("no transport enabled: enable telegram or gateway")
	}

	observability.EnsureRegistered()

	d := &Daemon{
		config: cfg,
		logger: log,
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName, cfg.Tracing.SampleRatio); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing, continuing without it")
		} else {
			d.tracingEnabled = true
		}
	}

	if err := d.initializeCoreModules(); err != nil {
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize core modules: %w", err)
	}

	if err := d.initializeServices(); err != nil {
		_ = d.queue.Close()
		d.shutdownTracing()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	d.eventLoop = NewEventLoop(d, cfg.Stats.Schedule)
	d.lifecycle = NewLifecycleManager(d)

	return d, nil
}

// initializeCoreModules creates the registry, the lanes and the dispatcher
func (d *Daemon) initializeCoreModules() error {
	zl := d.logger.GetZerolog()

	if d.config.DataDir != "" {
		auditPath := filepath.Join(d.config.DataDir, "audit.log")
		if err := observability.InitAuditLogger(auditPath); err != nil {
			zl.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
		} else {
			zl.Info().Str("path", auditPath).Msg("Audit logger initialized")
		}
	}

	d.registry = queue.NewRegistry(d.config.Queue.MaxSize)
	zl.Info().Int("max_size", d.registry.MaxSize()).Msg("Queue registry initialized")

	d.queue = commandqueue.New(zl)

	dispatcher, err := dispatch.New(dispatch.Config{
		Registry: d.registry,
		Lanes:    d.queue,
		Logger:   zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	d.dispatcher = dispatcher

	return nil
}

// initializeServices creates the enabled transports
func (d *Daemon) initializeServices() error {
	zl := d.logger.GetZerolog()

	if d.config.Gateway.Enabled {
		server, err := gateway.NewServer(gateway.Config{
			Host:         d.config.Gateway.Host,
			Port:         d.config.Gateway.Port,
			SharedSecret: d.config.Gateway.SharedSecret,
			Metrics:      d.config.Metrics.Enabled,
			Dispatcher:   d.dispatcher,
			Logger:       zl,
		})
		if err != nil {
			return fmt.Errorf("failed to create gateway server: %w", err)
		}
		d.gatewayServer = server
	}

	if d.config.Telegram.Enabled {
		bot, err := newTelegramBot(&d.config.Telegram, d.logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}

		d.telegramBot = bot
		d.telegramCmd = telegram.NewCommands(bot, d.dispatcher, d.config.Commands.Prefix)
		bot.SetCommandHandler(d.telegramCmd)
		bot.SetMessageHandler(telegram.NewHandler(d.telegramCmd, d.config.Commands.Prefix))
	}

	return nil
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	logger := tracing.LoggerFromContext(
		tracing.WithTraceID(context.Background(), tracing.NewTraceID()),
		d.logger.GetZerolog(),
	)
	logger.Info().Msg("Starting queuebot daemon")

	if err := d.lifecycle.Start(); err != nil {
		d.markStopped()
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	if d.gatewayServer != nil {
		if err := d.gatewayServer.Start(); err != nil {
			d.markStopped()
			_ = d.lifecycle.Stop()
			return fmt.Errorf("failed to start gateway server: %w", err)
		}
		logger.Info().Str("addr", d.gatewayServer.Addr()).Msg("Gateway server started")
	}

	if d.telegramBot != nil {
		if err := d.telegramCmd.SetCommands(); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish Telegram command list")
		}
		if err := d.telegramBot.Start(); err != nil {
			d.markStopped()
			if d.gatewayServer != nil {
				_ = d.gatewayServer.Stop()
			}
			_ = d.lifecycle.Stop()
			return fmt.Errorf("failed to start telegram bot: %w", err)
		}
	}

	if err := d.eventLoop.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start stats job")
	}

	logger.Info().Msg("Daemon started successfully")

	return nil
}

func (d *Daemon) markStopped() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

// Stop stops the daemon service gracefully
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	logger := tracing.LoggerFromContext(
		tracing.WithTraceID(context.Background(), tracing.NewTraceID()),
		d.logger.GetZerolog(),
	)
	logger.Info().Msg("Stopping queuebot daemon")

	// Transports first, then the lanes they feed
	if d.telegramBot != nil {
		if err := d.telegramBot.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop telegram bot")
		}
	}

	if d.gatewayServer != nil {
		if err := d.gatewayServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop gateway server")
		}
	}

	d.eventLoop.Stop()

	if err := d.queue.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close command queue")
	}

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.shutdownTracing()

	if err := observability.GetAuditLogger().Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close audit logger")
	}

	logger.Info().
		Int("queues_dropped", d.registry.Len()).
		Int("participants_dropped", d.registry.Waiting()).
		Msg("Daemon stopped successfully")

	return nil
}

func (d *Daemon) shutdownTracing() {
	if !d.tracingEnabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
		d.logger.Error().Err(err).Msg("Failed to shutdown tracing")
	}
	d.tracingEnabled = false
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
		Queues:  d.registry.Len(),
		Waiting: d.registry.Waiting(),
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Wait blocks until SIGINT or SIGTERM, then stops the daemon
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	d.logger.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetDispatcher returns the command dispatcher
func (d *Daemon) GetDispatcher() *dispatch.Dispatcher {
	return d.dispatcher
}

// GetGatewayServer returns the gateway server, nil when disabled
func (d *Daemon) GetGatewayServer() *gateway.Server {
	return d.gatewayServer
}

// GetTelegramBot returns the Telegram bot, nil when disabled
func (d *Daemon) GetTelegramBot() *telegram.Bot {
	return d.telegramBot
}
