package metric

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)
	require.NotNil(t, r.Core())
	require.NotNil(t, r.Prometheus())
}

func TestCore_RecordServiceState(t *testing.T) {
	r := NewRegistry()
	core := r.Core()

	core.RecordServiceState("session-store", 4)
	value := testutil.ToFloat64(core.ServiceState.WithLabelValues("session-store"))
	assert.Equal(t, 4.0, value)

	core.RecordServiceState("session-store", 6)
	value = testutil.ToFloat64(core.ServiceState.WithLabelValues("session-store"))
	assert.Equal(t, 6.0, value)
}

func TestCore_RecordHealthStatus(t *testing.T) {
	r := NewRegistry()
	core := r.Core()

	tests := []struct {
		state string
		want  float64
	}{
		{"healthy", 1.0},
		{"degraded", 0.5},
		{"unhealthy", 0.0},
		{"garbage", 0.0},
	}

	for _, tt := range tests {
		core.RecordHealthStatus("svc", tt.state)
		value := testutil.ToFloat64(core.HealthStatus.WithLabelValues("svc"))
		assert.Equal(t, tt.want, value, "state %q", tt.state)
	}
}

func TestCore_RecordError(t *testing.T) {
	r := NewRegistry()
	core := r.Core()

	core.RecordError("svc", "start_failed")
	core.RecordError("svc", "start_failed")
	core.RecordError("svc", "stop_failed")

	assert.Equal(t, 2.0, testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("svc", "start_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("svc", "stop_failed")))
}

func TestCore_RecordTransaction(t *testing.T) {
	r := NewRegistry()
	core := r.Core()

	core.RecordTransaction("svc", "committed")
	core.RecordTransaction("svc", "rolled_back")
	core.RecordTransaction("svc", "committed")

	assert.Equal(t, 2.0, testutil.ToFloat64(core.TransactionsTotal.WithLabelValues("svc", "committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.TransactionsTotal.WithLabelValues("svc", "rolled_back")))
}

func TestCore_RecordLifecycleDuration(t *testing.T) {
	r := NewRegistry()
	core := r.Core()

	core.RecordLifecycleDuration("svc", "initialize", 150*time.Millisecond)
	core.RecordLifecycleDuration("svc", "initialize", 250*time.Millisecond)

	count := testutil.CollectAndCount(core.LifecycleDuration)
	assert.Equal(t, 1, count) // one labelled series
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.Core().RecordServiceState("svc", 2)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tutorkit_service_state")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
