// Package metrics provides Prometheus metrics for the analysis service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Analysis kinds used as label values.
const (
	KindPrescription = "prescription"
	KindPill         = "pill"
)

// Metrics holds all application metrics
type Metrics struct {
	Analyses          *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	OCRPasses         *prometheus.CounterVec
	ClassifierBreaker prometheus.Gauge
	ModelsReady       *prometheus.GaugeVec
	registry          prometheus.Gatherer
}

// New creates all metrics and registers them with reg. A nil reg uses a
// fresh private registry, so tests never collide with the global one.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}

	m := &Metrics{
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medscan_analyses_total",
			Help: "Total analyses by kind and outcome",
		}, []string{"kind", "outcome"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "medscan_analysis_duration_seconds",
			Help:    "Analysis duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		OCRPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "medscan_ocr_passes_total",
			Help: "OCR engine invocations by pass",
		}, []string{"pass"}),
		ClassifierBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "medscan_classifier_breaker_state",
			Help: "Classifier circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		ModelsReady: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "medscan_models_ready",
			Help: "1 when the models for a kind are loaded",
		}, []string{"kind"}),
		registry: gatherer,
	}

	reg.MustRegister(
		m.Analyses,
		m.AnalysisDuration,
		m.OCRPasses,
		m.ClassifierBreaker,
		m.ModelsReady,
	)
	return m
}

// Observe records one finished analysis.
func (m *Metrics) Observe(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Analyses.WithLabelValues(kind, outcome).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// OCRPass counts one engine invocation.
func (m *Metrics) OCRPass(pass string) {
	if m == nil {
		return
	}
	m.OCRPasses.WithLabelValues(pass).Inc()
}

// SetReady flips the readiness gauge for kind.
func (m *Metrics) SetReady(kind string, ready bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ready {
		v = 1
	}
	m.ModelsReady.WithLabelValues(kind).Set(v)
}

// SetBreakerState maps a breaker state name onto the gauge.
func (m *Metrics) SetBreakerState(state string) {
	if m == nil {
		return
	}
	switch state {
	case "open":
		m.ClassifierBreaker.Set(1)
	case "half-open":
		m.ClassifierBreaker.Set(2)
	default:
		m.ClassifierBreaker.Set(0)
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
