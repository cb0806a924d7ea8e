// Package telemetry provides the Prometheus metrics recorded by the API.
package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"say-something/internal/domain"
)

const namespace = "say_something"

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	SuggestionsCreated   prometheus.Counter
	SuggestionsCompleted prometheus.Counter
	AuthRejections       *prometheus.CounterVec
	Publishes            *prometheus.CounterVec
	StoreErrors          *prometheus.CounterVec
	UpstreamDuration     *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SuggestionsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "suggestions_created_total",
			Help: "Suggestions persisted.",
		}),
		SuggestionsCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "suggestions_completed_total",
			Help: "Suggestions marked completed.",
		}),
		AuthRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "auth_rejections_total",
			Help: "Requests rejected by token verification or role checks.",
		}, []string{"reason"}),
		Publishes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "broadcast_publishes_total",
			Help: "Broadcast publish attempts by event and result.",
		}, []string{"event", "result"}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "store_errors_total",
			Help: "Suggestion table failures by operation.",
		}, []string{"op"}),
		UpstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "upstream_request_duration_seconds",
			Help:    "Outbound Twitch request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint", "code"}),
	}
}

func (m *Metrics) SuggestionCreated() {
	if m != nil {
		m.SuggestionsCreated.Inc()
	}
}

func (m *Metrics) SuggestionCompleted() {
	if m != nil {
		m.SuggestionsCompleted.Inc()
	}
}

func (m *Metrics) AuthRejected(reason string) {
	if m != nil {
		m.AuthRejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) PublishResult(event domain.EventType, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Publishes.WithLabelValues(string(event), result).Inc()
}

func (m *Metrics) StoreError(op string) {
	if m != nil {
		m.StoreErrors.WithLabelValues(op).Inc()
	}
}

// ObserveRequest satisfies twitch.RequestObserver.
func (m *Metrics) ObserveRequest(endpoint string, status int, d time.Duration) {
	if m != nil {
		m.UpstreamDuration.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
