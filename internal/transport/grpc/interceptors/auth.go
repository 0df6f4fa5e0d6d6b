package interceptors

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

const authorizationKey = "authorization"

// Authenticator resolves a session token to a live identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Identity, domain.SessionClaims, error)
}

// RejectionRecorder observes gate failures.
type RejectionRecorder interface {
	GateRejection(err error)
}

// AuthOptions fine-tunes interceptor behaviour.
type AuthOptions struct {
	// AllowMethods are served without a session.
	AllowMethods []string
	Logger       *zap.Logger
	Recorder     RejectionRecorder
}

// AuthInterceptor runs the session gate on every method not explicitly
// allowed and attaches the identity to the handler context.
type AuthInterceptor struct {
	auth     Authenticator
	logger   *zap.Logger
	recorder RejectionRecorder
	allow    map[string]struct{}
}

// NewAuthInterceptor constructs a new AuthInterceptor instance.
func NewAuthInterceptor(auth Authenticator, opts AuthOptions) *AuthInterceptor {
	allow := make(map[string]struct{}, len(opts.AllowMethods))
	for _, method := range opts.AllowMethods {
		if method = strings.TrimSpace(method); method != "" {
			allow[method] = struct{}{}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthInterceptor{auth: auth, logger: logger, recorder: opts.Recorder, allow: allow}
}

// UnaryServerInterceptor returns a gRPC unary interceptor that enforces session authentication.
func (ai *AuthInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if ai == nil || ai.auth == nil {
			return handler(ctx, req)
		}
		if _, ok := ai.allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		identity, _, err := ai.auth.Authenticate(ctx, BearerFromMetadata(ctx))
		if err != nil {
			if ai.recorder != nil {
				ai.recorder.GateRejection(err)
			}
			de := domain.AsError(err)
			ai.logger.Warn("gRPC authentication failed",
				zap.String("method", info.FullMethod),
				zap.String("reason", string(de.Reason)),
			)
			return nil, StatusFromError(err)
		}

		return handler(usecase.WithIdentity(ctx, identity), req)
	}
}

// BearerFromMetadata returns the bearer token from the authorization
// metadata, or "" when absent or not a bearer credential.
func BearerFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(authorizationKey)
	if len(values) == 0 {
		return ""
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(values[0]), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// StatusFromError converts a domain error into a gRPC status.
func StatusFromError(err error) error {
	de := domain.AsError(err)
	if de == nil {
		return nil
	}
	message := de.Message
	if !de.Operational() {
		message = "Something went wrong"
	}

	code := codes.Internal
	switch de.Kind {
	case domain.KindValidation:
		code = codes.InvalidArgument
	case domain.KindAuthentication:
		code = codes.Unauthenticated
	case domain.KindAuthorization:
		code = codes.PermissionDenied
	case domain.KindNotFound:
		code = codes.NotFound
	case domain.KindConflict:
		code = codes.AlreadyExists
	case domain.KindTransientDelivery:
		code = codes.Unavailable
	}
	return status.Error(code, message)
}
