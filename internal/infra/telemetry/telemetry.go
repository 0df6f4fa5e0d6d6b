package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
)

const namespace = "iam"

// Reset workflow stages recorded by AuthMetrics.ResetStage.
const (
	ResetStageRequested    = "requested"
	ResetStageDelivered    = "delivered"
	ResetStageUnknownEmail = "unknown_email"
	ResetStageFailed       = "delivery_failed"
	ResetStageCompleted    = "completed"
	ResetStageRejected     = "rejected"
)

// AuthMetrics counts authentication outcomes.
type AuthMetrics struct {
	signins    *prometheus.CounterVec
	signups    *prometheus.CounterVec
	rejections *prometheus.CounterVec
	resets     *prometheus.CounterVec
}

// NewAuthMetrics registers the counters with reg. A nil reg leaves them
// unregistered, which is convenient in tests.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		signins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signin_total",
			Help:      "Sign-in attempts by result.",
		}, []string{"result"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signup_total",
			Help:      "Sign-up attempts by result.",
		}, []string{"result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "gate_rejections_total",
			Help:      "Requests rejected by the authentication or authorization gate, by reason.",
		}, []string{"reason"}),
		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_reset_total",
			Help:      "Password reset workflow transitions by stage.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.signins, m.signups, m.rejections, m.resets)
	}
	return m
}

// Signin records a sign-in outcome derived from err.
func (m *AuthMetrics) Signin(err error) {
	if m == nil {
		return
	}
	m.signins.WithLabelValues(outcome(err)).Inc()
}

// Signup records a sign-up outcome derived from err.
func (m *AuthMetrics) Signup(err error) {
	if m == nil {
		return
	}
	m.signups.WithLabelValues(outcome(err)).Inc()
}

// GateRejection records why a protected request was refused.
func (m *AuthMetrics) GateRejection(err error) {
	if m == nil || err == nil {
		return
	}
	de := domain.AsError(err)
	reason := de.Kind.String()
	if de.Reason != "" {
		reason = string(de.Reason)
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// ResetStage records a reset workflow transition.
func (m *AuthMetrics) ResetStage(stage string) {
	if m == nil {
		return
	}
	m.resets.WithLabelValues(stage).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return domain.AsError(err).Kind.String()
}
