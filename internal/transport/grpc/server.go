package transportgrpc

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/SwagatoSarowar/Natours/internal/transport/grpc/interceptors"
)

// ServerDependencies encapsulates services required by the gRPC server layer.
type ServerDependencies struct {
	Auth       grpcinterceptors.Authenticator
	Recorder   grpcinterceptors.RejectionRecorder
	Registerer prometheus.Registerer
	Logger     *zap.Logger
}

// Server bundles the gRPC server with its health reporter.
type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer wires SessionService, health and reflection. VerifySession and
// the health and reflection services are public; everything else requires a
// bearer session in metadata.
func NewServer(deps ServerDependencies) (*Server, error) {
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: deps.Registerer})
	if err != nil {
		return nil, fmt.Errorf("init grpc metrics: %w", err)
	}

	authInterceptor := grpcinterceptors.NewAuthInterceptor(deps.Auth, grpcinterceptors.AuthOptions{
		Logger:   logger,
		Recorder: deps.Recorder,
		AllowMethods: []string{
			VerifySessionMethod,
			healthpb.Health_Check_FullMethodName,
			healthpb.Health_Watch_FullMethodName,
		},
	})

	server := grpc.NewServer(
		grpcinterceptors.TracingServerOption(grpcinterceptors.TracingOptions{
			IgnoreMethods: []string{healthpb.Health_Check_FullMethodName, healthpb.Health_Watch_FullMethodName},
		}),
		grpc.ChainUnaryInterceptor(
			metrics.UnaryServerInterceptor(),
			authInterceptor.UnaryServerInterceptor(),
		),
	)

	RegisterSessionServiceServer(server, NewSessionServer(deps.Auth, logger))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(SessionServiceName, healthpb.HealthCheckResponse_SERVING)

	reflection.Register(server)

	return &Server{Server: server, Health: healthServer}, nil
}
