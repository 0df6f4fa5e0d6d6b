package interceptors

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGRPCMetricsRecordsOutcomeCodes(t *testing.T) {
	metrics, err := NewGRPCMetrics(GRPCMetricsOptions{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("new grpc metrics: %v", err)
	}
	interceptor := metrics.UnaryServerInterceptor()

	ok := &grpc.UnaryServerInfo{FullMethod: "/natours.iam.v1.SessionService/VerifySession"}
	if _, err := interceptor(context.Background(), struct{}{}, ok, func(ctx context.Context, req interface{}) (interface{}, error) {
		return "ok", nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	denied := &grpc.UnaryServerInfo{FullMethod: "/natours.iam.v1.SessionService/WhoAmI"}
	if _, err := interceptor(context.Background(), struct{}{}, denied, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unauthenticated, "no session")
	}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	service := "natours.iam.v1.SessionService"
	if got := testutil.ToFloat64(metrics.requests.With(prometheus.Labels{"service": service, "method": "VerifySession", "code": codes.OK.String()})); got != 1 {
		t.Fatalf("expected one OK call, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.requests.With(prometheus.Labels{"service": service, "method": "WhoAmI", "code": codes.Unauthenticated.String()})); got != 1 {
		t.Fatalf("expected one unauthenticated call, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.inFlight.WithLabelValues(service)); got != 0 {
		t.Fatalf("expected in-flight gauge 0, got %f", got)
	}
}

func TestSplitFullMethod(t *testing.T) {
	cases := map[string][2]string{
		"/natours.iam.v1.SessionService/WhoAmI": {"natours.iam.v1.SessionService", "WhoAmI"},
		"":                                      {"unknown", "unknown"},
		"/broken":                               {"unknown", "unknown"},
	}
	for in, want := range cases {
		service, method := splitFullMethod(in)
		if service != want[0] || method != want[1] {
			t.Fatalf("splitFullMethod(%q) = %q, %q", in, service, method)
		}
	}
}
