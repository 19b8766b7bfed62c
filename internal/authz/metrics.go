package authz

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sakif/utility-lineups/internal/apperror"
)

// Metrics counts gate decisions by operation and outcome. Outcome is
// "allowed" or the lower-cased denial kind.
type Metrics struct {
	decisions *prometheus.CounterVec
}

// NewMetrics registers the gate's collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lineups",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization gate decisions by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}
	reg.MustRegister(m.decisions)
	return m
}

const outcomeAllowed = "allowed"

func outcomeOf(err error) string {
	if err == nil {
		return outcomeAllowed
	}
	switch apperror.KindOf(err) {
	case apperror.KindNotAuthenticated:
		return "not_authenticated"
	case apperror.KindVerificationRequired:
		return "verification_required"
	case apperror.KindNotFound:
		return "not_found"
	case apperror.KindAccessDenied:
		return "access_denied"
	}
	return "error"
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(operation, outcomeOf(err)).Inc()
}
