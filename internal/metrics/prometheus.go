package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements pricebus.Metrics plus the fusion and MCP counters using Prometheus.
type Recorder struct {
	cacheLookups     *prometheus.CounterVec
	coalesced        *prometheus.CounterVec
	upstream         *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	rateLimitRetries *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	omitted          *prometheus.CounterVec
	fusion           *prometheus.CounterVec
	mcpCalls         *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Recorder{
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_price_cache_lookups_total",
				Help: "Price cache lookups by result",
			},
			[]string{"result"},
		),
		coalesced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_price_coalesced_total",
				Help: "Callers that shared an in-flight ticker request",
			},
			[]string{"symbol"},
		),
		upstream: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_ticker_requests_total",
				Help: "Outbound ticker requests by HTTP status",
			},
			[]string{"status"},
		),
		upstreamLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strategydesk_ticker_request_duration_seconds",
				Help:    "Duration of outbound ticker requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		rateLimitRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_ticker_rate_limited_total",
				Help: "Ticker responses with status 429",
			},
			[]string{"symbol"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_price_snapshot_fallbacks_total",
				Help: "Prices served from persisted snapshots",
			},
			[]string{"symbol"},
		),
		omitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_price_omitted_total",
				Help: "Symbols left out of a price response",
			},
			[]string{"symbol"},
		),
		fusion: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_fusion_computations_total",
				Help: "Fused score computations by outcome",
			},
			[]string{"outcome"},
		),
		mcpCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strategydesk_mcp_calls_total",
				Help: "MCP requests by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

func (r *Recorder) CacheHit(symbol string) {
	r.cacheLookups.WithLabelValues("hit").Inc()
}

func (r *Recorder) CacheMiss(symbol string) {
	r.cacheLookups.WithLabelValues("miss").Inc()
}

func (r *Recorder) Coalesced(symbol string) {
	r.coalesced.WithLabelValues(symbol).Inc()
}

// UpstreamRequest records one ticker round trip. status is the HTTP status
// text, or "error" when no response arrived.
func (r *Recorder) UpstreamRequest(status string, seconds float64) {
	r.upstream.WithLabelValues(status).Inc()
	r.upstreamLatency.Observe(seconds)
}

func (r *Recorder) RateLimited(symbol string) {
	r.rateLimitRetries.WithLabelValues(symbol).Inc()
}

func (r *Recorder) SnapshotFallback(symbol string) {
	r.fallbacks.WithLabelValues(symbol).Inc()
}

func (r *Recorder) Omitted(symbol string) {
	r.omitted.WithLabelValues(symbol).Inc()
}

// FusionComputed counts one fusion run. outcome is "ok", "empty" or "degraded".
func (r *Recorder) FusionComputed(outcome string) {
	r.fusion.WithLabelValues(outcome).Inc()
}

func (r *Recorder) MCPCall(operation, outcome string) {
	r.mcpCalls.WithLabelValues(operation, outcome).Inc()
}
