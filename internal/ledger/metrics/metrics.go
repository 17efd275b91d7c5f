package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for ledger operations.
type Metrics struct {
	Operations         *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	TransferAttempts   prometheus.Counter
	BatchSize          prometheus.Histogram
	RoleChanges        *prometheus.CounterVec
}

// New registers collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shebuilds_ledger_operations_total",
			Help: "Ledger operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shebuilds_ledger_operation_duration_seconds",
			Help:    "Duration of ledger operations",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		CredentialsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_credentials_issued_total",
			Help: "Credentials minted",
		}),
		CredentialsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_credentials_revoked_total",
			Help: "Credentials revoked",
		}),
		TransferAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "shebuilds_soulbound_transfer_attempts_total",
			Help: "Blocked transfer attempts on existing credentials",
		}),
		BatchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shebuilds_batch_mint_size",
			Help:    "Number of credentials per successful batch mint",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
		}),
		RoleChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shebuilds_role_changes_total",
			Help: "Effective role grants and revocations",
		}, []string{"role", "change"}),
	}
}

func (m *Metrics) ObserveOperation(operation, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncIssued(n int) {
	if m == nil {
		return
	}
	m.CredentialsIssued.Add(float64(n))
}

func (m *Metrics) IncRevoked() {
	if m == nil {
		return
	}
	m.CredentialsRevoked.Inc()
}

func (m *Metrics) IncTransferAttempt() {
	if m == nil {
		return
	}
	m.TransferAttempts.Inc()
}

func (m *Metrics) ObserveBatchSize(n int) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(n))
}

func (m *Metrics) IncRoleChange(role, change string) {
	if m == nil {
		return
	}
	m.RoleChanges.WithLabelValues(role, change).Inc()
}
