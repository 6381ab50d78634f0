// Package metrics declares the process's Prometheus collectors.
// Everything here registers itself with the default registry via
// promauto at package init — callers just reference the variables.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Acquisition metrics

	// AcquireTriggersAcquired tracks total triggers promoted to ACQUIRED.
	AcquireTriggersAcquired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "acquire",
			Name:      "triggers_acquired_total",
			Help:      "Total triggers promoted from WAITING to ACQUIRED",
		},
		[]string{"job_type"},
	)

	// AcquireRoundDuration tracks how long one AcquireNextTriggers call takes.
	AcquireRoundDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "triggerstore",
			Subsystem: "acquire",
			Name:      "round_duration_seconds",
			Help:      "Time to complete one acquisition round, including retries",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// AcquireRetries tracks how many retry iterations a round needed.
	AcquireRetries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "triggerstore",
			Subsystem: "acquire",
			Name:      "retries",
			Help:      "Number of retry iterations an acquisition round needed",
			Buckets:   []float64{0, 1, 2, 3},
		},
	)

	// AcquireGatedRejections tracks candidates rejected by JobAllowed.
	AcquireGatedRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "acquire",
			Name:      "gated_rejections_total",
			Help:      "Total acquisition candidates rejected by the concurrency gate",
		},
		[]string{"job_type", "reason"}, // reason: disallow_any, disallow_group, limit
	)

	// Fire/complete metrics

	// FireTriggersFired tracks trigger firings, by resulting post-fire state.
	FireTriggersFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "fire",
			Name:      "triggers_fired_total",
			Help:      "Total triggers fired, labeled by the post-fire state they were stored in",
		},
		[]string{"job_type", "post_fire_state"}, // waiting, blocked, complete
	)

	// FireSiblingsBlocked tracks siblings swept to BLOCKED/PAUSED_BLOCKED.
	FireSiblingsBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "fire",
			Name:      "siblings_blocked_total",
			Help:      "Total sibling triggers swept into BLOCKED or PAUSED_BLOCKED",
		},
		[]string{"job_type"},
	)

	// CompleteSiblingsReleased tracks siblings swept back to WAITING/PAUSED.
	CompleteSiblingsReleased = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "complete",
			Name:      "siblings_released_total",
			Help:      "Total sibling triggers swept back to WAITING or PAUSED on completion",
		},
		[]string{"job_type"},
	)

	// Queue-state gauges, refreshed on every publish

	// QueueStateWaiting tracks the last-published waiting trigger count.
	QueueStateWaiting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "triggerstore",
			Subsystem: "queue",
			Name:      "waiting_triggers",
			Help:      "Waiting trigger count as of the last queue-state event",
		},
	)

	// QueueStateBlocked tracks the last-published blocked trigger count.
	QueueStateBlocked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "triggerstore",
			Subsystem: "queue",
			Name:      "blocked_triggers",
			Help:      "Blocked trigger count as of the last queue-state event",
		},
	)

	// QueueStateExecuting tracks the last-published executing count.
	QueueStateExecuting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "triggerstore",
			Subsystem: "queue",
			Name:      "executing_jobs",
			Help:      "Executing job count as of the last queue-state event",
		},
	)

	// QueuePublishErrors tracks queue-state publish failures (logged and
	// swallowed at the call site, still worth alerting on).
	QueuePublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "queue",
			Name:      "publish_errors_total",
			Help:      "Total queue-state publish failures",
		},
		[]string{"sink"}, // nats, local_handler
	)

	// HTTP admin surface metrics

	// HTTPRequestsTotal tracks HTTP API requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "triggerstore",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP admin API requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP API request duration.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "triggerstore",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP admin API request duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
