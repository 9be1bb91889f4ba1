package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceError_Error(t *testing.T) {
	cause := stderrors.New("connection refused")

	err := NewInitializationFailed("session-store", cause)
	assert.Contains(t, err.Error(), "session-store")
	assert.Contains(t, err.Error(), "initialization failed")
	assert.Contains(t, err.Error(), "connection refused")

	// no cause, no message falls back to the kind
	bare := &ServiceError{Kind: KindServiceNotFound, Service: "x"}
	assert.Equal(t, "x: service_not_found", bare.Error())
}

func TestServiceError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := NewStartFailed("engine", cause)

	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("outer: %w", err)
	var se *ServiceError
	require.ErrorAs(t, wrapped, &se)
	assert.Equal(t, KindStartFailed, se.Kind)
	assert.ErrorIs(t, wrapped, cause)
}

func TestConstructors_KindsAndSeverities(t *testing.T) {
	cause := stderrors.New("cause")

	tests := []struct {
		err      *ServiceError
		kind     Kind
		severity Severity
	}{
		{NewInitializationFailed("s", cause), KindInitializationFailed, SeverityHigh},
		{NewStartFailed("s", cause), KindStartFailed, SeverityHigh},
		{NewStopFailed("s", cause), KindStopFailed, SeverityHigh},
		{NewInvalidStateTransition("s", cause), KindInvalidStateTransition, SeverityLow},
		{NewDependencyMissing("s", "dep"), KindDependencyMissing, SeverityMedium},
		{NewHealthCheckFailed("s", cause), KindHealthCheckFailed, SeverityMedium},
		{NewTransactionFailed("s", "tx-1", cause), KindTransactionFailed, SeverityMedium},
		{NewServiceNotFound("s"), KindServiceNotFound, SeverityLow},
		{NewDuplicateRegistration("s"), KindDuplicateRegistration, SeverityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.kind, tt.err.Kind, "kind for %s", tt.kind)
		assert.Equal(t, tt.severity, tt.err.Severity, "severity for %s", tt.kind)
		assert.Equal(t, "s", tt.err.Service)
	}
}

func TestNewDependencyMissing_NamesDependency(t *testing.T) {
	err := NewDependencyMissing("user-manager", "session-store")
	assert.Contains(t, err.Error(), `"session-store"`)
}

func TestNewTransactionFailed_NamesTransaction(t *testing.T) {
	err := NewTransactionFailed("engine", "engine-abc123", stderrors.New("rollback"))
	assert.Contains(t, err.Error(), "engine-abc123")
	assert.Equal(t, KindTransactionFailed, err.Kind)
}

func TestKindOf(t *testing.T) {
	err := NewStopFailed("s", stderrors.New("x"))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindStopFailed, kind)

	// works through wrapping
	kind, ok = KindOf(fmt.Errorf("outer: %w", err))
	require.True(t, ok)
	assert.Equal(t, KindStopFailed, kind)

	_, ok = KindOf(stderrors.New("plain"))
	assert.False(t, ok)

	_, ok = KindOf(nil)
	assert.False(t, ok)
}

func TestIsKind(t *testing.T) {
	err := NewServiceNotFound("ghost")
	assert.True(t, IsKind(err, KindServiceNotFound))
	assert.False(t, IsKind(err, KindStartFailed))
	assert.False(t, IsKind(stderrors.New("plain"), KindServiceNotFound))
}

func TestSeverityOf(t *testing.T) {
	assert.Equal(t, SeverityHigh, SeverityOf(NewStartFailed("s", nil)))
	assert.Equal(t, SeverityLow, SeverityOf(stderrors.New("plain")))
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "low", SeverityLow.String())
	assert.Equal(t, "medium", SeverityMedium.String())
	assert.Equal(t, "high", SeverityHigh.String())
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "unknown", Severity(42).String())
}
