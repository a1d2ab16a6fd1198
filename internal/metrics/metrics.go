// Package metrics exposes prometheus collectors for wakes, model calls,
// tool calls and visitor submissions.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/curtiv3/gpthome-refurbished/internal/types"
)

const namespace = "gpthome"

// Collectors owns one registry. It satisfies the observer interfaces of the
// wake, tools and perception packages.
type Collectors struct {
	registry *prometheus.Registry

	wakesTotal     *prometheus.CounterVec
	wakeTurns      prometheus.Histogram
	wakeDuration   prometheus.Histogram
	toolCallsTotal *prometheus.CounterVec
	modelCalls     *prometheus.CounterVec
	modelLatency   *prometheus.HistogramVec
	modelTokens    *prometheus.CounterVec
	visitorsTotal  *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Collectors{
		registry: reg,
		wakesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "wake",
			Name:      "cycles_total",
			Help:      "Finished wake cycles by outcome.",
		}, []string{"outcome"}),
		wakeTurns: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "wake",
			Name:      "turns",
			Help:      "Model turns per wake cycle.",
			Buckets:   prometheus.LinearBuckets(1, 2, 8),
		}),
		wakeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "wake",
			Name:      "duration_seconds",
			Help:      "Wall time of a wake cycle.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		toolCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Tool calls by tool and result.",
		}, []string{"tool", "ok"}),
		modelCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "requests_total",
			Help:      "Model requests by provider and result.",
		}, []string{"provider", "ok"}),
		modelLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "request_duration_seconds",
			Help:      "Model request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		modelTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "tokens_total",
			Help:      "Tokens consumed by direction.",
		}, []string{"provider", "direction"}),
		visitorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visitor",
			Name:      "submissions_total",
			Help:      "Visitor submissions by result.",
		}, []string{"result"}),
	}
}

// ObserveWake records a finished wake.
func (c *Collectors) ObserveWake(outcome string, turns int, elapsed time.Duration) {
	c.wakesTotal.WithLabelValues(outcome).Inc()
	c.wakeTurns.Observe(float64(turns))
	c.wakeDuration.Observe(elapsed.Seconds())
}

// ObserveToolCall records one tool call.
func (c *Collectors) ObserveToolCall(tool string, ok bool) {
	c.toolCallsTotal.WithLabelValues(tool, strconv.FormatBool(ok)).Inc()
}

// ObserveModelCall records one model request.
func (c *Collectors) ObserveModelCall(provider string, elapsed time.Duration, usage types.UsageMetadata, err error) {
	c.modelCalls.WithLabelValues(provider, strconv.FormatBool(err == nil)).Inc()
	c.modelLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
	if err == nil {
		c.modelTokens.WithLabelValues(provider, "input").Add(float64(usage.InputTokens))
		c.modelTokens.WithLabelValues(provider, "output").Add(float64(usage.OutputTokens))
	}
}

// ObserveVisitor records a visitor submission result such as "accepted",
// "rejected", "rate_limited" or "blocked".
func (c *Collectors) ObserveVisitor(result string) {
	c.visitorsTotal.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
