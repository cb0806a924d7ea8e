package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"say-something/internal/domain"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SuggestionCreated()
	m.SuggestionCreated()
	m.SuggestionCompleted()
	m.AuthRejected("forbidden")
	m.StoreError("create")
	m.PublishResult(domain.EventSendPhrase, nil)
	m.PublishResult(domain.EventSendPhrase, errors.New("boom"))

	require.Equal(t, 2.0, testutil.ToFloat64(m.SuggestionsCreated))
	require.Equal(t, 1.0, testutil.ToFloat64(m.SuggestionsCompleted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.AuthRejections.WithLabelValues("forbidden")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("create")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Publishes.WithLabelValues("SEND_PHRASE_EVENT", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Publishes.WithLabelValues("SEND_PHRASE_EVENT", "failed")))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRequest("extension_pubsub", 204, 15*time.Millisecond)
	require.Equal(t, 1, testutil.CollectAndCount(m.UpstreamDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.SuggestionCreated()
		m.SuggestionCompleted()
		m.AuthRejected("x")
		m.StoreError("x")
		m.PublishResult(domain.EventCompletedPhrase, nil)
		m.ObserveRequest("x", 0, time.Second)
	})
}
