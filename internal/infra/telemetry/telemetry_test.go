package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/infra/config"
)

func TestAuthMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuthMetrics(reg)

	m.Signin(nil)
	m.Signin(domain.Unauthenticated(domain.ReasonBadCredentials, "nope"))
	m.Signin(errors.New("db down"))
	m.Signup(domain.Conflict("taken", nil))

	if got := testutil.ToFloat64(m.signins.WithLabelValues("success")); got != 1 {
		t.Fatalf("success signins = %v", got)
	}
	if got := testutil.ToFloat64(m.signins.WithLabelValues("authentication")); got != 1 {
		t.Fatalf("rejected signins = %v", got)
	}
	if got := testutil.ToFloat64(m.signins.WithLabelValues("internal")); got != 1 {
		t.Fatalf("internal signins = %v", got)
	}
	if got := testutil.ToFloat64(m.signups.WithLabelValues("conflict")); got != 1 {
		t.Fatalf("conflict signups = %v", got)
	}

	m.GateRejection(domain.Unauthenticated(domain.ReasonPasswordChanged, "stale"))
	m.GateRejection(domain.Forbidden("no"))
	m.GateRejection(nil)

	if got := testutil.ToFloat64(m.rejections.WithLabelValues("password_changed")); got != 1 {
		t.Fatalf("password_changed rejections = %v", got)
	}
	if got := testutil.ToFloat64(m.rejections.WithLabelValues("authorization")); got != 1 {
		t.Fatalf("authorization rejections = %v", got)
	}

	m.ResetStage(ResetStageRequested)
	m.ResetStage(ResetStageRequested)
	if got := testutil.ToFloat64(m.resets.WithLabelValues(ResetStageRequested)); got != 2 {
		t.Fatalf("reset requested = %v", got)
	}

	if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 {
		t.Fatalf("registry gather: n=%d err=%v", n, err)
	}
}

func TestNilAuthMetricsIsSafe(t *testing.T) {
	var m *AuthMetrics
	m.Signin(nil)
	m.Signup(nil)
	m.GateRejection(errors.New("x"))
	m.ResetStage(ResetStageCompleted)
}

func TestTracerProviderWithoutExporter(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetrySettings{SamplingRate: 1}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider: %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	if !span.SpanContext().IsValid() {
		t.Fatal("expected a sampled span")
	}
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
