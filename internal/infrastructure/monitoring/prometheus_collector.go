package monitoring

import (
	"talentwire/internal/core/domain"
	"talentwire/pkg/circuitbreaker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements the metrics hooks of the gateway, hub and
// fan-out engine on prometheus.
type PrometheusCollector struct {
	connectionsActive  prometheus.Gauge
	connectionsTotal   prometheus.Counter
	handshakesRejected *prometheus.CounterVec
	roomsOpen          prometheus.Gauge
	roomMembers        prometheus.Gauge

	inboundMessages *prometheus.CounterVec
	broadcastsTotal *prometheus.CounterVec
	slowClientDrops prometheus.Counter

	insightsTotal       *prometheus.CounterVec
	fraudAlertsTotal    *prometheus.CounterVec
	droppedMessages     *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec

	breakerState *prometheus.GaugeVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talentwire_connections_active",
			Help: "Number of live websocket connections",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_connections_total",
			Help: "Total websocket connections accepted",
		}),

		handshakesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_handshakes_rejected_total",
			Help: "Handshakes rejected before upgrade",
		}, []string{"reason"}),

		roomsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talentwire_rooms_open",
			Help: "Rooms with at least one local member",
		}),

		roomMembers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "talentwire_room_members",
			Help: "Connections currently joined to a room on this instance",
		}),

		inboundMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_inbound_messages_total",
			Help: "Inbound websocket messages by type",
		}, []string{"type"}),

		broadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_broadcasts_total",
			Help: "Room broadcasts by event type",
		}, []string{"event"}),

		slowClientDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "talentwire_slow_client_drops_total",
			Help: "Connections dropped because the send buffer saturated",
		}),

		insightsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_insights_total",
			Help: "Insights processed by category and severity",
		}, []string{"category", "severity"}),

		fraudAlertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_fraud_alerts_total",
			Help: "Fraud alerts promoted by alert type",
		}, []string{"type"}),

		droppedMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_dropped_result_messages_total",
			Help: "Analysis result messages dropped by reason",
		}, []string{"reason"}),

		persistenceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "talentwire_persistence_failures_total",
			Help: "Persistence failures tolerated in degraded delivery mode",
		}, []string{"kind"}),

		breakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "talentwire_breaker_state",
			Help: "Circuit breaker state per dependency (0=closed, 1=open, 2=half-open)",
		}, []string{"dependency"}),
	}
}

// --- gateway.ServerMetrics ---

func (p *PrometheusCollector) ConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) ConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RecordInboundMessage(msgType string) {
	p.inboundMessages.WithLabelValues(msgType).Inc()
}

func (p *PrometheusCollector) RecordRejectedHandshake(reason string) {
	p.handshakesRejected.WithLabelValues(reason).Inc()
}

// --- gateway.HubMetrics ---

func (p *PrometheusCollector) ClientJoined() {
	p.roomMembers.Inc()
}

func (p *PrometheusCollector) ClientLeft() {
	p.roomMembers.Dec()
}

func (p *PrometheusCollector) SetOpenRooms(n int) {
	p.roomsOpen.Set(float64(n))
}

func (p *PrometheusCollector) RecordBroadcast(eventType string) {
	p.broadcastsTotal.WithLabelValues(eventType).Inc()
}

func (p *PrometheusCollector) RecordSlowClientDrop() {
	p.slowClientDrops.Inc()
}

// --- services.InsightMetrics ---

func (p *PrometheusCollector) RecordInsight(category domain.InsightCategory, severity domain.Severity) {
	p.insightsTotal.WithLabelValues(string(category), string(severity)).Inc()
}

func (p *PrometheusCollector) RecordFraudAlert(alertType domain.InsightType) {
	p.fraudAlertsTotal.WithLabelValues(string(alertType)).Inc()
}

func (p *PrometheusCollector) RecordDroppedMessage(reason string) {
	p.droppedMessages.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordPersistenceFailure(kind string) {
	p.persistenceFailures.WithLabelValues(kind).Inc()
}

// ObserveBreakerState mirrors a breaker transition into the state gauge.
// Wired as the registry's OnStateChange callback.
func (p *PrometheusCollector) ObserveBreakerState(name string, from, to circuitbreaker.State) {
	p.breakerState.WithLabelValues(name).Set(float64(to))
}
