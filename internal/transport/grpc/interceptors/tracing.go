package interceptors

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/stats"
)

// TracingOptions customises server span creation. Zero values fall back to
// the global provider and propagator.
type TracingOptions struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
	// IgnoreMethods are not traced, such as health checks.
	IgnoreMethods []string
}

// NewTracingHandler returns the otelgrpc stats handler for the server.
func NewTracingHandler(opts TracingOptions) stats.Handler {
	options := make([]otelgrpc.Option, 0, 3)
	if opts.TracerProvider != nil {
		options = append(options, otelgrpc.WithTracerProvider(opts.TracerProvider))
	}
	if opts.Propagators != nil {
		options = append(options, otelgrpc.WithPropagators(opts.Propagators))
	}
	if len(opts.IgnoreMethods) > 0 {
		ignored := make(map[string]struct{}, len(opts.IgnoreMethods))
		for _, m := range opts.IgnoreMethods {
			ignored[m] = struct{}{}
		}
		options = append(options, otelgrpc.WithFilter(func(info *stats.RPCTagInfo) bool {
			_, skip := ignored[info.FullMethodName]
			return !skip
		}))
	}
	return otelgrpc.NewServerHandler(options...)
}

// TracingServerOption installs NewTracingHandler on a server.
func TracingServerOption(opts TracingOptions) grpc.ServerOption {
	return grpc.StatsHandler(NewTracingHandler(opts))
}
