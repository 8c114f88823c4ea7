package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	cycles     *prometheus.CounterVec
	fetched    prometheus.Counter
	forwarded  prometheus.Counter
	sendErrors prometheus.Counter
	cycleDur   prometheus.Histogram
	watermark  prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_cycles_total", Help: "Polling cycles by outcome",
		}, []string{"outcome"}),
		fetched: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_notifications_fetched_total", Help: "Notifications fetched from the source",
		}),
		forwarded: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_notifications_forwarded_total", Help: "Notifications delivered to the sink",
		}),
		sendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "relay_send_errors_total", Help: "Failed deliveries",
		}),
		cycleDur: f.NewHistogram(prometheus.HistogramOpts{
			Name: "relay_cycle_duration_seconds", Help: "Polling cycle duration",
			Buckets: prometheus.DefBuckets,
		}),
		watermark: f.NewGauge(prometheus.GaugeOpts{
			Name: "relay_watermark_timestamp_seconds", Help: "Current fetch watermark as unix time",
		}),
	}
}
