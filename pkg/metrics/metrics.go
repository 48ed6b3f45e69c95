package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by the metric groups.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultAborted = "aborted"
	ResultTimeout = "timeout"
	ResultStale   = "stale"
	ResultStatus  = "bad_status"
)

// Channel metrics
var (
	ConnectAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsock_connect_attempts_total",
			Help: "Total number of channel connection attempts",
		},
		[]string{"channel", "result"},
	)

	ChannelState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatsock_channel_state",
			Help: "Current channel state (0=closed, 1=connecting, 2=open)",
		},
		[]string{"channel"},
	)

	ReconnectsScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsock_reconnects_scheduled_total",
			Help: "Total number of delayed reconnects scheduled for the authenticated channel",
		},
	)

	CloseTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsock_close_total",
			Help: "Total number of channel resource closes by close code",
		},
		[]string{"channel", "code"},
	)

	Online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsock_online",
			Help: "Whether the manager believes the network is reachable (1) or not (0)",
		},
	)
)

// Keepalive metrics
var (
	KeepAliveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsock_keepalive_total",
			Help: "Total number of keepalive probes by result",
		},
		[]string{"result"},
	)

	KeepAliveRTT = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatsock_keepalive_rtt_seconds",
			Help:    "Round trip time of successful keepalive probes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Traffic metrics
var (
	InboundRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsock_inbound_requests_total",
			Help: "Total number of server-initiated requests by type",
		},
		[]string{"type"},
	)

	InboundQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsock_inbound_queue_length",
			Help: "Number of inbound requests waiting for a handler",
		},
	)

	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsock_fetch_total",
			Help: "Total number of fetches by channel and result",
		},
		[]string{"channel", "result"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsock_fetch_duration_seconds",
			Help:    "Duration of fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel"},
	)
)
