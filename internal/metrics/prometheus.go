// Package metrics exposes pipeline outcomes as Prometheus series.
package metrics

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements pipeline.Metrics using Prometheus.
type Recorder struct {
	runsTotal        *prometheus.CounterVec
	signalsTotal     prometheus.Counter
	dispatchTotal    *prometheus.CounterVec
	providerFailures *prometheus.CounterVec
	lastPrice        prometheus.Gauge
	lastBandWidth    prometheus.Gauge
	runDuration      prometheus.Histogram
}

// New registers the recorder's collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "squeeze_runs_total",
				Help: "Completed pipeline runs by status",
			},
			[]string{"status"},
		),
		signalsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "squeeze_signals_total",
			Help: "Runs whose evaluation produced a signal",
		}),
		dispatchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "squeeze_dispatch_total",
				Help: "Alert dispatch outcomes",
			},
			[]string{"outcome"},
		),
		providerFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "squeeze_provider_failures_total",
				Help: "Market data provider failures",
			},
			[]string{"provider"},
		),
		lastPrice: f.NewGauge(prometheus.GaugeOpts{
			Name: "squeeze_last_price",
			Help: "Close of the most recent evaluated bar",
		}),
		lastBandWidth: f.NewGauge(prometheus.GaugeOpts{
			Name: "squeeze_last_band_width",
			Help: "Band width of the most recent evaluation",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "squeeze_run_duration_seconds",
			Help:    "Wall time of one pipeline run",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordRun records a finished run.
func (r *Recorder) RecordRun(status string, elapsed time.Duration) {
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.Observe(elapsed.Seconds())
}

// RecordEvaluation records the latest price and band width. Non-finite widths are skipped.
func (r *Recorder) RecordEvaluation(price, bandWidth float64, signal bool) {
	r.lastPrice.Set(price)
	if !math.IsNaN(bandWidth) && !math.IsInf(bandWidth, 0) {
		r.lastBandWidth.Set(bandWidth)
	}
	if signal {
		r.signalsTotal.Inc()
	}
}

// RecordDispatch records an alert outcome: sent, failed, cooldown or not_configured.
func (r *Recorder) RecordDispatch(outcome string) {
	r.dispatchTotal.WithLabelValues(outcome).Inc()
}

// RecordProviderFailure records a failed fetch from provider.
func (r *Recorder) RecordProviderFailure(provider string) {
	r.providerFailures.WithLabelValues(provider).Inc()
}
