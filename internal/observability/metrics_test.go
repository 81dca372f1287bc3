package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/diceroll/internal/config"
)

func testMetrics() *Metrics {
	return NewMetrics(config.MetricsConfig{Enabled: true, Namespace: "test"}, prometheus.NewRegistry())
}

func TestMetrics_ObserveRoll(t *testing.T) {
	m := testMetrics()

	m.ObserveRoll(StatusOK, time.Millisecond, 12)
	m.ObserveRoll(StatusOK, time.Millisecond, 3)
	m.ObserveRoll(StatusInvalid, time.Microsecond, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rollsTotal.WithLabelValues(StatusOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rollsTotal.WithLabelValues(StatusInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rollsTotal.WithLabelValues(StatusFailed)))
}

func TestMetrics_Sessions(t *testing.T) {
	m := testMetrics()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsActive))
}

func TestMetrics_NilRegistry(t *testing.T) {
	m := NewMetrics(config.MetricsConfig{Namespace: "test"}, nil)
	require.NotNil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := testMetrics()
	m.ObserveRoll(StatusOK, time.Millisecond, 7)
	m.ObserveRoll(StatusOK, time.Millisecond, 9)
	m.ObserveRoll(StatusFailed, time.Millisecond, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_rolls_total")
	assert.Contains(t, rec.Body.String(), "test_roll_duration_seconds")
	assert.Contains(t, rec.Body.String(), "test_roll_value_count 2", "failed rolls are not recorded as values")
}
