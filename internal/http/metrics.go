package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	policyDecisionsTotal *prometheus.CounterVec
	tokensRevokedTotal   prometheus.Counter
)

// RegisterMetrics initializes the collectors once and returns the /metrics
// handler. Safe to call more than once; later calls reuse the first registry.
func RegisterMetrics(registry prometheus.Registerer) (http.Handler, error) {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total processed HTTP requests",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "In-flight requests by method and path",
		}, []string{"method", "path"})

		policyDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "policy_decisions_total",
			Help: "Scope policy decisions by effect",
		}, []string{"effect"})

		tokensRevokedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tokens_revoked_total",
			Help: "Tokens revoked, individually or by filter",
		})

		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			policyDecisionsTotal, tokensRevokedTotal,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}
	return promhttp.Handler(), nil
}

func registerCollector(r prometheus.Registerer, c prometheus.Collector) error {
	if err := r.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// CountDecision records a PDP outcome for a scope.
func CountDecision(effect string) {
	if policyDecisionsTotal != nil {
		policyDecisionsTotal.WithLabelValues(effect).Inc()
	}
}

// CountRevocations records n revoked tokens.
func CountRevocations(n int64) {
	if tokensRevokedTotal != nil {
		tokensRevokedTotal.Add(float64(n))
	}
}

// WithMetrics records request counts, latency and in-flight gauge. pattern
// is the route template, not the raw path, to keep cardinality bounded.
func WithMetrics(next http.Handler, pattern string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if httpRequestsTotal == nil {
			next.ServeHTTP(w, r)
			return
		}
		g := httpInflight.WithLabelValues(r.Method, pattern)
		g.Inc()
		defer g.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
	})
}
