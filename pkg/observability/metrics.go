package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics handles application metrics and monitoring
type Metrics struct {
	registry *prometheus.Registry

	ActiveConnections prometheus.Gauge
	MessagesReceived  *prometheus.CounterVec
	MessagesSent      prometheus.Counter
	MessagesFailed    prometheus.Counter
	UndoExecuted      prometheus.Counter
	UndoRequeued      prometheus.Counter
	HistoryPruned     prometheus.Counter
	SnapshotWrites    *prometheus.CounterVec
}

// NewMetrics creates the metric set registered on a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_active_connections",
			Help:      "Number of currently connected WebSocket clients.",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_received_total",
			Help:      "Inbound WebSocket messages, by message type.",
		}, []string{"type"}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_sent_total",
			Help:      "Outbound WebSocket messages successfully queued.",
		}),
		MessagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_messages_failed_total",
			Help:      "Outbound WebSocket messages dropped due to slow clients.",
		}),
		UndoExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_executed_total",
			Help:      "Undo requests whose inverse was applied.",
		}),
		UndoRequeued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "undo_requeued_total",
			Help:      "Undo requests re-queued because the document diverged.",
		}),
		HistoryPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_entries_pruned_total",
			Help:      "History entries removed by the retention sweep.",
		}),
		SnapshotWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_writes_total",
			Help:      "Snapshot file writes, by kind and status.",
		}, []string{"kind", "status"}),
	}

	registry.MustRegister(
		m.ActiveConnections,
		m.MessagesReceived,
		m.MessagesSent,
		m.MessagesFailed,
		m.UndoExecuted,
		m.UndoRequeued,
		m.HistoryPruned,
		m.SnapshotWrites,
	)

	return m
}

// Handler exposes the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
