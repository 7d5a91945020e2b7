// Package metrics exposes pipeline counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process. Each instance owns its
// registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	questions *prometheus.CounterVec
	verdicts  *prometheus.CounterVec
	answers   *prometheus.CounterVec
	mentions  *prometheus.CounterVec
	stageTime *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		questions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factlink_questions_total",
			Help: "Questions processed by result",
		}, []string{"result"}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factlink_verdicts_total",
			Help: "Verification verdicts",
		}, []string{"verdict"}),
		answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factlink_answers_total",
			Help: "Extracted answers by kind",
		}, []string{"kind"}),
		mentions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "factlink_entities_linked_total",
			Help: "Linked entities after deduplication",
		}, []string{"source"}),
		stageTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "factlink_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"stage"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Question records a processed question. result is "ok", "skipped" or "failed".
func (m *Metrics) Question(result string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(result).Inc()
}

func (m *Metrics) Verdict(v string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(v).Inc()
}

func (m *Metrics) AnswerKind(kind string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(kind).Inc()
}

func (m *Metrics) Linked(source string, n int) {
	if m == nil {
		return
	}
	m.mentions.WithLabelValues(source).Add(float64(n))
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageTime.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
