// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons for MatchCandidatesSkipped.
const (
	SkipReasonNoProfile  = "no_profile"
	SkipReasonError      = "error"
	SkipReasonTimeout    = "timeout"
	SkipReasonSkipped    = "skipped_by_user"
	SkipReasonReported   = "reported_by_user"
	SkipReasonInterested = "already_interested"
	SkipReasonBudget     = "budget"
)

var (
	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_requests_total",
			Help: "Match requests by outcome",
		},
		[]string{"outcome"},
	)

	MatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_duration_seconds",
			Help:    "End-to-end duration of match requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	MatchCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_candidates",
			Help:    "Active candidates considered per match request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	MatchCandidatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_candidates_skipped_total",
			Help: "Candidates dropped before scoring, by reason",
		},
		[]string{"reason"},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Failed store calls by store and operation",
		},
		[]string{"store", "operation"},
	)

	MalformedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_malformed_records_total",
			Help: "Stored records rejected at decode time",
		},
		[]string{"store"},
	)

	ProfileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_cache_hits_total",
			Help: "Profile lookups served from Redis",
		},
	)

	ProfileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "profile_cache_misses_total",
			Help: "Profile lookups that fell through to PostgreSQL",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
