package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "support_relay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Inbound turns by routing action (ai_reply, escalated, awaiting_agent, fallback)
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "routing",
			Name:      "inbound_messages_total",
			Help:      "Inbound customer messages handled, by routing action",
		},
		[]string{"action"},
	)

	InboundDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "support_relay",
			Subsystem: "routing",
			Name:      "inbound_duration_seconds",
			Help:      "Time to handle one inbound message end to end",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "gateway",
			Name:      "deliveries_total",
			Help:      "Outbound deliveries by result (success or failure category)",
		},
		[]string{"result"},
	)

	NotificationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "notifier",
			Name:      "failures_total",
			Help:      "Real-time notifications that could not be published",
		},
		[]string{"event"},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "conversation",
			Name:      "status_transitions_total",
			Help:      "Conversation status changes",
		},
		[]string{"to", "source"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "support_relay",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Inbound tasks waiting to be processed",
		},
	)

	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "queue",
			Name:      "tasks_total",
			Help:      "Inbound tasks processed, by outcome",
		},
		[]string{"outcome"},
	)

	ReaperClosedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "reaper",
			Name:      "closed_total",
			Help:      "Conversations closed for inactivity",
		},
	)

	ReaperFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "support_relay",
			Subsystem: "reaper",
			Name:      "failures_total",
			Help:      "Stale conversations the reaper could not close",
		},
	)

	ActiveObservers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "support_relay",
			Subsystem: "realtime",
			Name:      "connections",
			Help:      "Open real-time connections",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordInbound records a handled inbound message.
func RecordInbound(action string, duration time.Duration) {
	InboundMessagesTotal.WithLabelValues(action).Inc()
	InboundDuration.Observe(duration.Seconds())
}

// RecordDelivery records an outbound delivery result.
func RecordDelivery(result string) {
	DeliveriesTotal.WithLabelValues(result).Inc()
}

// RecordNotificationFailure records a notification that was dropped.
func RecordNotificationFailure(event string) {
	NotificationsFailedTotal.WithLabelValues(event).Inc()
}

// RecordStatusTransition records a conversation status change.
func RecordStatusTransition(to, source string) {
	StatusTransitionsTotal.WithLabelValues(to, source).Inc()
}

// RecordTask records a processed queue task.
func RecordTask(outcome string) {
	TasksTotal.WithLabelValues(outcome).Inc()
}

// SetQueueDepth sets the number of waiting tasks.
func SetQueueDepth(depth int64) {
	QueueDepth.Set(float64(depth))
}

// RecordSweep records one reaper run.
func RecordSweep(closed, failed int) {
	ReaperClosedTotal.Add(float64(closed))
	ReaperFailuresTotal.Add(float64(failed))
}
