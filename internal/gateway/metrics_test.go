package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RequestOutcomes(t *testing.T) {
	pub := &fakePublisher{}
	l := newTestListener(t, pub)
	m := l.Metrics()

	l.Handle(jsonRequest(`{"a":1}`))
	l.Handle(jsonRequest(`[true]`))
	l.Handle(jsonRequest(`nope`))
	l.Handle(InboundRequest{Method: http.MethodGet})
	l.Handle(InboundRequest{Method: http.MethodPost, ContentType: "text/plain"})
	l.Handle(InboundRequest{Method: http.MethodPost, ContentType: "application/json", ContentLength: 4096})
	drain(t, l)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("malformed_json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("bad_method")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("bad_content_type")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("too_large")))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.publishes.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.publishes.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.publishInflight))
	assert.Equal(t, uint64(2), histogramCount(t, m, "json2mqtt_request_bytes"))
	assert.Equal(t, uint64(2), histogramCount(t, m, "json2mqtt_publish_duration_seconds"))
}

func histogramCount(t *testing.T, m *Metrics, name string) uint64 {
	t.Helper()

	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestMetrics_PublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("down")}
	l := newTestListener(t, pub)

	l.Handle(jsonRequest(`{"a":1}`))
	drain(t, l)

	m := l.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.publishInflight))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, name := range []string{
		"json2mqtt_requests_total",
		"json2mqtt_publish_total",
		"json2mqtt_publish_inflight",
		"go_goroutines",
	} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
	assert.Contains(t, body, `outcome="too_large"`)
}

func TestMetrics_SharedAcrossListeners(t *testing.T) {
	m := NewMetrics()
	a, err := NewListener(Deps{Publisher: &fakePublisher{}, Topic: "a", MaxPayload: 10, Logger: testLogger(nil), Metrics: m})
	require.NoError(t, err)
	b, err := NewListener(Deps{Publisher: &fakePublisher{}, Topic: "b", MaxPayload: 10, Logger: testLogger(nil), Metrics: m})
	require.NoError(t, err)

	a.Handle(InboundRequest{Method: http.MethodGet})
	b.Handle(InboundRequest{Method: http.MethodGet})

	assert.Same(t, m, a.Metrics())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("bad_method")))
}
