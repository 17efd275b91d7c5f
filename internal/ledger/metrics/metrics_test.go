package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordOperations(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveOperation("mint", "ok", 0.002)
	m.ObserveOperation("mint", "not_authorized", 0.001)
	m.IncIssued(3)
	m.IncRevoked()
	m.IncTransferAttempt()
	m.ObserveBatchSize(3)
	m.IncRoleChange("ISSUER_ROLE", "granted")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("mint", "ok")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.CredentialsIssued))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CredentialsRevoked))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransferAttempts))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RoleChanges.WithLabelValues("ISSUER_ROLE", "granted")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("mint", "ok", 0)
		m.IncIssued(1)
		m.IncRevoked()
		m.IncTransferAttempt()
		m.ObserveBatchSize(1)
		m.IncRoleChange("ADMIN_ROLE", "granted")
	})
}
