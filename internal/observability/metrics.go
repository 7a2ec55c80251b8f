package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	commandsTotal    *prometheus.CounterVec
	enqueueTotal     *prometheus.CounterVec
	dequeueTotal     *prometheus.CounterVec
	retirementsTotal *prometheus.CounterVec
	liveQueues       prometheus.Gauge
	waiting          prometheus.Gauge

	laneWait     prometheus.Histogram
	laneDuration *prometheus.HistogramVec
	activeLanes  prometheus.Gauge

	replyErrorsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			commandsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "queuebot_commands_total",
					Help: "Commands received by kind and transport.",
				},
				[]string{"kind", "transport"},
			),
			enqueueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "queuebot_enqueue_total",
					Help: "Enqueue operations by outcome.",
				},
				[]string{"status"},
			),
			dequeueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "queuebot_dequeue_total",
					Help: "Dequeue operations by outcome.",
				},
				[]string{"status"},
			),
			retirementsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "queuebot_queue_retirements_total",
					Help: "Queues removed from the registry by reason (filled, emptied).",
				},
				[]string{"reason"},
			),
			liveQueues: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "queuebot_live_queues",
					Help: "Queues currently held by the registry.",
				},
			),
			waiting: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "queuebot_waiting_participants",
					Help: "Participants waiting across all live queues.",
				},
			),
			laneWait: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "queuebot_lane_wait_seconds",
					Help:    "Time a command spent waiting for its lane.",
					Buckets: prometheus.DefBuckets,
				},
			),
			laneDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "queuebot_lane_task_duration_seconds",
					Help:    "Lane task execution duration by status.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"status"},
			),
			activeLanes: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "queuebot_active_lanes",
					Help: "Lanes with pending or running tasks.",
				},
			),
			replyErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "queuebot_reply_errors_total",
					Help: "Replies that could not be delivered, by transport.",
				},
				[]string{"transport"},
			),
		}

		prometheus.MustRegister(
			m.commandsTotal,
			m.enqueueTotal,
			m.dequeueTotal,
			m.retirementsTotal,
			m.liveQueues,
			m.waiting,
			m.laneWait,
			m.laneDuration,
			m.activeLanes,
			m.replyErrorsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordCommand(kind, transport string) {
	getMetrics().commandsTotal.WithLabelValues(kind, transport).Inc()
}

func RecordEnqueue(status string) {
	getMetrics().enqueueTotal.WithLabelValues(status).Inc()
}

func RecordDequeue(status string) {
	getMetrics().dequeueTotal.WithLabelValues(status).Inc()
}

func RecordRetirement(reason string) {
	getMetrics().retirementsTotal.WithLabelValues(reason).Inc()
}

// SetRegistryStats publishes the current registry size.
func SetRegistryStats(liveQueues, waiting int) {
	m := getMetrics()
	m.liveQueues.Set(float64(liveQueues))
	m.waiting.Set(float64(waiting))
}

func RecordLaneTask(wait, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.laneWait.Observe(wait.Seconds())
	m.laneDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func SetActiveLanes(count int) {
	getMetrics().activeLanes.Set(float64(count))
}

func RecordReplyError(transport string) {
	getMetrics().replyErrorsTotal.WithLabelValues(transport).Inc()
}
