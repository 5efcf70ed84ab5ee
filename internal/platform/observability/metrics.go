package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_messages_received_total",
		Help: "The total number of inbound chat messages by filter result",
	}, []string{"result"})

	FilterViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_filter_violations_total",
		Help: "The total number of messages deleted on sight by reason",
	}, []string{"reason"})

	BufferedChats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moderator_buffered_chats",
		Help: "Number of chats with a non-empty buffer",
	})

	BufferedMessages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moderator_buffered_messages",
		Help: "Number of messages waiting in chat buffers",
	})

	BufferedBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "moderator_buffered_bytes",
		Help: "Total text bytes waiting in chat buffers",
	})

	BufferDrained = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderator_buffer_drained_messages_total",
		Help: "The total number of messages returned by buffer drains",
	})

	BufferEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderator_buffer_evicted_messages_total",
		Help: "The total number of buffered messages dropped by retention",
	})

	ReviewRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_review_requests_total",
		Help: "The total number of review requests by trigger",
	}, []string{"trigger"})

	PersistenceFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_persistence_flush_total",
		Help: "The total number of buffer journal flushes by status",
	}, []string{"status"})

	PersistencePending = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "moderator_persistence_pending",
		Help: "Number of buffer writes waiting for the next flush",
	}, []string{"op"})

	ModerationActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_actions_total",
		Help: "The total number of recorded moderation actions by kind",
	}, []string{"kind"})

	EscalationRecommendations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_escalation_recommendations_total",
		Help: "The total number of escalation recommendations returned",
	}, []string{"recommendation"})

	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_gateway_errors_total",
		Help: "The total number of failed platform calls by operation",
	}, []string{"op"})

	GatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moderator_gateway_request_duration_seconds",
		Help:    "Duration of platform moderation calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	ToolCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderator_tool_calls_total",
		Help: "The total number of exposed tool invocations by tool and status",
	}, []string{"tool", "status"})
)
