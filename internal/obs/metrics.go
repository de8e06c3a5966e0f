package obs

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Milliseconds. Most routes answer from memory or redis.
var latencyBucketsMs = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 1000}

// HTTPMetrics groups the per-route HTTP collectors.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	ResBytes *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers the HTTP collectors on reg.
func NewHTTPMetrics(namespace string, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP latency in milliseconds.",
			Buckets:   latencyBucketsMs,
		}, []string{"method", "route"}),
		ResBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_bytes",
			Help:      "HTTP response body size.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 6),
		}, []string{"route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "HTTP requests currently being served.",
		}),
	}
	m.ReqTotal = register(reg, m.ReqTotal)
	m.ReqDur = register(reg, m.ReqDur)
	m.ResBytes = register(reg, m.ResBytes)
	m.InFlight = register(reg, m.InFlight)
	return m
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// DomainMetrics groups the pricing and feed collectors.
type DomainMetrics struct {
	PriceQuotes    *prometheus.CounterVec
	DiscountsDepth prometheus.Histogram
	Swipes         *prometheus.CounterVec
	FeedEmpty      prometheus.Counter
	FeedSessions   prometheus.Gauge
}

// NewDomainMetrics registers the domain collectors on reg, reusing collectors
// that are already registered under the same name.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &DomainMetrics{
		PriceQuotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_quotes_total",
			Help:      "Price label computations by outcome.",
		}, []string{"result"}),
		DiscountsDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "price_quote_discounts",
			Help:      "Number of discount applications per price label.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		Swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swipes_total",
			Help:      "Persisted swipes by verdict.",
		}, []string{"verdict"}),
		FeedEmpty: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_empty_total",
			Help:      "Feed requests answered with an exhausted feed.",
		}),
		FeedSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_sessions_active",
			Help:      "Feed sessions currently held in memory.",
		}),
	}
	m.PriceQuotes = register(reg, m.PriceQuotes)
	m.DiscountsDepth = register(reg, m.DiscountsDepth)
	m.Swipes = register(reg, m.Swipes)
	m.FeedEmpty = register(reg, m.FeedEmpty)
	m.FeedSessions = register(reg, m.FeedSessions)
	return m
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
			return c
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
	return c
}
