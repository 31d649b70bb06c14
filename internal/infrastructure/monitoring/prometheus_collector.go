package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exposes the relay's operational metrics. It registers
// against the given registry so tests can use an isolated one.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	roomsActive       prometheus.Gauge

	eventsIngestedTotal *prometheus.CounterVec
	eventsDroppedTotal  prometheus.Counter
	signalsRelayedTotal *prometheus.CounterVec
	uploadsTotal        *prometheus.CounterVec

	eventAppendDuration prometheus.Histogram
}

func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)

	return &PrometheusCollector{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "proctorhub_connections_active",
			Help: "Number of live participant connections",
		}),

		roomsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "proctorhub_rooms_active",
			Help: "Number of sessions with at least one connected participant",
		}),

		eventsIngestedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proctorhub_events_ingested_total",
			Help: "Detection events durably appended to the event log",
		}, []string{"type"}),

		eventsDroppedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "proctorhub_events_dropped_total",
			Help: "Detection events rejected because the durable append failed",
		}),

		signalsRelayedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proctorhub_signals_relayed_total",
			Help: "Negotiation payloads relayed, by targeting mode",
		}, []string{"mode"}),

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proctorhub_recording_uploads_total",
			Help: "Recording uploads, by outcome",
		}, []string{"outcome"}),

		eventAppendDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "proctorhub_event_append_duration_seconds",
			Help:    "Durable append latency for detection events",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (c *PrometheusCollector) ConnOpened() { c.connectionsActive.Inc() }
func (c *PrometheusCollector) ConnClosed() { c.connectionsActive.Dec() }

func (c *PrometheusCollector) SetRoomCount(n int) { c.roomsActive.Set(float64(n)) }

func (c *PrometheusCollector) EventIngested(eventType string) {
	c.eventsIngestedTotal.WithLabelValues(eventType).Inc()
}

func (c *PrometheusCollector) EventDropped() { c.eventsDroppedTotal.Inc() }

func (c *PrometheusCollector) SignalRelayed(targeted bool) {
	mode := "room"
	if targeted {
		mode = "targeted"
	}
	c.signalsRelayedTotal.WithLabelValues(mode).Inc()
}

func (c *PrometheusCollector) RecordUpload(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.uploadsTotal.WithLabelValues(outcome).Inc()
}

func (c *PrometheusCollector) ObserveAppend(d time.Duration) {
	c.eventAppendDuration.Observe(d.Seconds())
}
