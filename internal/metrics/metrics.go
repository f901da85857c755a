// Package metrics exposes Prometheus counters and histograms for the HTTP
// surface, summarization outcomes and model calls.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry; instances never share collectors.
type Metrics struct {
	reg *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	summaries      *prometheus.CounterVec
	summaryLatency prometheus.Histogram
	llmCalls       *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposum_http_requests_total",
			Help: "HTTP requests by path, method and status code.",
		}, []string{"path", "method", "code"}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposum_summaries_total",
			Help: "Summarization requests by outcome (ok or error kind).",
		}, []string{"outcome"}),
		summaryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reposum_summary_duration_seconds",
			Help:    "Wall time of one summarization.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reposum_llm_calls_total",
			Help: "Model calls by client and result.",
		}, []string{"client", "result"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reposum_llm_call_duration_seconds",
			Help:    "Latency of one model call, retries included.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"client"}),
	}
	m.reg.MustRegister(
		m.httpRequests, m.summaries, m.summaryLatency, m.llmCalls, m.llmLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveHTTP(path, method string, code int) {
	m.httpRequests.WithLabelValues(path, method, strconv.Itoa(code)).Inc()
}

// ObserveSummary records one finished summarization. outcome is "ok" or
// the error kind.
func (m *Metrics) ObserveSummary(outcome string, elapsed time.Duration) {
	m.summaries.WithLabelValues(outcome).Inc()
	m.summaryLatency.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveLLMCall(client string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.llmCalls.WithLabelValues(client, result).Inc()
	m.llmLatency.WithLabelValues(client).Observe(elapsed.Seconds())
}
