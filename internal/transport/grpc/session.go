package transportgrpc

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/SwagatoSarowar/Natours/internal/core/domain"
	"github.com/SwagatoSarowar/Natours/internal/transport/grpc/interceptors"
	"github.com/SwagatoSarowar/Natours/internal/usecase"
)

const (
	SessionServiceName  = "natours.iam.v1.SessionService"
	VerifySessionMethod = "/" + SessionServiceName + "/VerifySession"
	WhoAmIMethod        = "/" + SessionServiceName + "/WhoAmI"
)

// SessionServiceServer lets sibling services check session tokens without
// sharing the signing secret.
type SessionServiceServer interface {
	// VerifySession runs the full session gate for a token and reports the
	// outcome in the response body rather than as a gRPC error.
	VerifySession(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error)
	// WhoAmI returns the caller identified by the bearer token in metadata.
	WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error)
}

// SessionServiceDesc describes natours.iam.v1.SessionService using protobuf
// well-known types for its messages.
var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VerifySession", Handler: verifySessionHandler},
		{MethodName: "WhoAmI", Handler: whoAmIHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "natours/iam/v1/session.proto",
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&SessionServiceDesc, srv)
}

func verifySessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).VerifySession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifySessionMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServiceServer).VerifySession(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func whoAmIHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServiceServer).WhoAmI(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: WhoAmIMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SessionServiceServer).WhoAmI(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SessionServer implements SessionServiceServer on top of the auth service.
type SessionServer struct {
	auth   interceptors.Authenticator
	logger *zap.Logger
}

// NewSessionServer constructs a SessionServer.
func NewSessionServer(auth interceptors.Authenticator, logger *zap.Logger) *SessionServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionServer{auth: auth, logger: logger}
}

func (s *SessionServer) VerifySession(ctx context.Context, token *wrapperspb.StringValue) (*structpb.Struct, error) {
	identity, claims, err := s.auth.Authenticate(ctx, token.GetValue())
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) || !de.Operational() {
			s.logger.Error("verify session failed", zap.Error(err))
			return nil, status.Error(codes.Internal, "Something went wrong")
		}
		return structpb.NewStruct(map[string]interface{}{
			"valid":  false,
			"reason": string(de.Reason),
			"error":  de.Message,
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"valid":      true,
		"subject_id": identity.ID,
		"role":       string(identity.Role),
		"email":      identity.Email,
		"issued_at":  claims.IssuedAt.UTC().Format(time.RFC3339Nano),
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}

func (s *SessionServer) WhoAmI(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	identity, ok := usecase.IdentityFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "You are not logged in. Please log in to get access")
	}

	fields := map[string]interface{}{
		"id":    identity.ID,
		"name":  identity.Name,
		"email": identity.Email,
		"role":  string(identity.Role),
	}
	if identity.Photo != nil {
		fields["photo"] = *identity.Photo
	}
	return structpb.NewStruct(fields)
}

// SessionServiceClient calls natours.iam.v1.SessionService.
type SessionServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewSessionServiceClient wraps a client connection.
func NewSessionServiceClient(cc grpc.ClientConnInterface) *SessionServiceClient {
	return &SessionServiceClient{cc: cc}
}

func (c *SessionServiceClient) VerifySession(ctx context.Context, token string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, VerifySessionMethod, wrapperspb.String(token), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SessionServiceClient) WhoAmI(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, WhoAmIMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
