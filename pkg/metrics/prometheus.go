package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	alerts         *prometheus.CounterVec
	storeRows      prometheus.Gauge
	persistErrors  prometheus.Counter
	broadcasts     *prometheus.CounterVec
	providerErrors *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		alerts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_alerts_total",
				Help: "Webhook alerts by outcome",
			},
			[]string{"result"},
		),
		storeRows: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "signaldesk_store_rows",
				Help: "Rows currently held by the alert store",
			},
		),
		persistErrors: f.NewCounter(
			prometheus.CounterOpts{
				Name: "signaldesk_persist_errors_total",
				Help: "Failed alert document loads and saves",
			},
		),
		broadcasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_broadcasts_total",
				Help: "Broadcasts by event and result",
			},
			[]string{"event", "result"},
		),
		providerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signaldesk_provider_errors_total",
				Help: "Market data fetch failures by operation",
			},
			[]string{"op"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signaldesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordAlert(result string) {
	r.alerts.WithLabelValues(result).Inc()
}

func (r *Recorder) SetStoreRows(n int) {
	r.storeRows.Set(float64(n))
}

func (r *Recorder) RecordPersistError() {
	r.persistErrors.Inc()
}

func (r *Recorder) RecordBroadcast(event string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.broadcasts.WithLabelValues(event, result).Inc()
}

func (r *Recorder) RecordProviderError(op string) {
	r.providerErrors.WithLabelValues(op).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
