package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

const (
	namespace = "s3_relay"
)

// Results of a relayed item.
const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// New creates the relay's collectors and registers them with registerer.
func New(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		items: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Total number of queue messages handled, by result and failure reason",
			},
			[]string{"result", "reason"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "item_duration_seconds",
				Help:      "Time spent handling a single queue message",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		batches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_total",
				Help:      "Total number of batches handled",
			},
		),
	}
	registerer.MustRegister(metrics.items, metrics.duration, metrics.batches)
	return metrics
}

// RegisterCredentialExpiry exports the expiry of the cached credential as a
// unix timestamp, or zero when nothing is cached.
func RegisterCredentialExpiry(registerer prometheus.Registerer, expiration func() (time.Time, bool)) {
	registerer.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "credential_expiry_timestamp_seconds",
			Help:      "Expiry of the cached assumed role credential",
		},
		func() float64 {
			expiry, ok := expiration()
			if !ok {
				return 0
			}
			return float64(expiry.Unix())
		},
	))
}

// ObserveItem records the result of one message. Nil Metrics record nothing.
func (metrics *Metrics) ObserveItem(result, reason string, elapsed time.Duration) {
	if metrics == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	metrics.items.WithLabelValues(result, reason).Inc()
	metrics.duration.Observe(elapsed.Seconds())
}

// ObserveBatch records one handled batch.
func (metrics *Metrics) ObserveBatch() {
	if metrics == nil {
		return
	}
	metrics.batches.Inc()
}

// Metrics holds the collectors updated by the batch handler.
type Metrics struct {
	items    *prometheus.CounterVec
	duration prometheus.Histogram
	batches  prometheus.Counter
}
