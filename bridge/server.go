package bridge

import (
	"context"
	"net"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"go.viam.com/boofbridge/logging"
)

// ServiceName is the gRPC service the transport registers.
const ServiceName = "boofbridge.v1.BridgeService"

const (
	methodInvoke    = "/" + ServiceName + "/Invoke"
	methodGetField  = "/" + ServiceName + "/GetField"
	methodSetField  = "/" + ServiceName + "/SetField"
	methodConstruct = "/" + ServiceName + "/Construct"
)

type bridgeServer interface {
	Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetField(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetField(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Construct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(
	fullMethod string,
	call func(srv bridgeServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error),
) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error,
		interceptor grpc.UnaryServerInterceptor,
	) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(bridgeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(bridgeServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var bridgeServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*bridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Invoke", Handler: unaryHandler(methodInvoke, bridgeServer.Invoke)},
		{MethodName: "GetField", Handler: unaryHandler(methodGetField, bridgeServer.GetField)},
		{MethodName: "SetField", Handler: unaryHandler(methodSetField, bridgeServer.SetField)},
		{MethodName: "Construct", Handler: unaryHandler(methodConstruct, bridgeServer.Construct)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "boofbridge/v1/bridge.proto",
}

// Server serves a Dispatcher over gRPC.
type Server struct {
	server *grpc.Server
}

// NewServer returns a server for d. Call Serve to start accepting connections.
func NewServer(d Dispatcher, logger logging.Logger) *Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
		logging.UnaryServerInterceptor,
		debugLogInterceptor(logger),
	)))
	s.RegisterService(&bridgeServiceDesc, &service{d: d})
	return &Server{server: s}
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// Stop waits for in-flight calls to finish, then stops the server.
func (s *Server) Stop() {
	s.server.GracefulStop()
}

func debugLogInterceptor(logger logging.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			logger.CDebugw(ctx, "bridge call failed", "method", info.FullMethod, "error", err)
		} else {
			logger.CDebugw(ctx, "bridge call", "method", info.FullMethod)
		}
		return resp, err
	}
}

type service struct {
	d Dispatcher
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Unknown, err.Error())
}

func (s *service) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := invokeRequestFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, err := s.d.Invoke(ctx, r.target, r.method, r.args...)
	if err != nil {
		return nil, toStatus(err)
	}
	return replyToProto(v), nil
}

func (s *service) GetField(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := fieldRequestFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	v, err := s.d.GetField(ctx, r.target, r.name)
	if err != nil {
		return nil, toStatus(err)
	}
	return replyToProto(v), nil
}

func (s *service) SetField(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := fieldRequestFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.d.SetField(ctx, r.target, r.name, r.value); err != nil {
		return nil, toStatus(err)
	}
	return replyToProto(NullValue()), nil
}

func (s *service) Construct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := constructRequestFromProto(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	h, err := s.d.Construct(ctx, r.class, r.args...)
	if err != nil {
		return nil, toStatus(err)
	}
	return replyToProto(HandleValue(h)), nil
}
