package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	sessionsConnected prometheus.Gauge
	streamsActive     prometheus.Gauge

	statusEventsTotal    *prometheus.CounterVec
	statusDiscardedTotal prometheus.Counter

	transportCommandsTotal *prometheus.CounterVec

	highlightConfigDuration prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		sessionsConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "facestream_sessions_connected",
			Help: "Number of currently connected device sessions",
		}),

		streamsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "facestream_streams_active",
			Help: "Number of sessions whose last reported status is active",
		}),

		statusEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facestream_status_events_total",
			Help: "Status events received from the device transport",
		}, []string{"status"}),

		statusDiscardedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facestream_status_events_discarded_total",
			Help: "Status events discarded because the user had no live session",
		}),

		transportCommandsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facestream_transport_commands_total",
			Help: "Stream commands issued to device channels",
		}, []string{"command", "outcome"}),

		highlightConfigDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "facestream_highlight_config_duration_seconds",
			Help:    "Duration of highlighting service configuration calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
	}
}

func (c *PrometheusCollector) SessionConnected()    { c.sessionsConnected.Inc() }
func (c *PrometheusCollector) SessionDisconnected() { c.sessionsConnected.Dec() }

func (c *PrometheusCollector) StreamStarted() { c.streamsActive.Inc() }
func (c *PrometheusCollector) StreamStopped() { c.streamsActive.Dec() }

func (c *PrometheusCollector) RecordStatusEvent(status string) {
	c.statusEventsTotal.WithLabelValues(status).Inc()
}

func (c *PrometheusCollector) RecordStatusDiscarded() {
	c.statusDiscardedTotal.Inc()
}

func (c *PrometheusCollector) RecordTransportCommand(command string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.transportCommandsTotal.WithLabelValues(command, outcome).Inc()
}

func (c *PrometheusCollector) ObserveHighlightConfig(d time.Duration) {
	c.highlightConfigDuration.Observe(d.Seconds())
}
