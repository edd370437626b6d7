package bridge

import (
	"context"
	"time"

	grpc_retry "github.com/grpc-ecosystem/go-grpc-middleware/retry"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"go.viam.com/boofbridge/logging"
)

const (
	pingAttempts = 3
	pingBackoff  = 50 * time.Millisecond
)

type grpcBridge struct {
	conn   *grpc.ClientConn
	logger logging.Logger
}

// Dial returns a Bridge to the gRPC server at address. The connection is established lazily, so
// a missing server surfaces as ErrConnection from the first call, typically Ping.
func Dial(ctx context.Context, address string, logger logging.Logger, opts ...grpc.DialOption) (Bridge, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(
			// Retries are opt-in per call; only Ping asks for them.
			grpc_retry.UnaryClientInterceptor(grpc_retry.WithMax(0)),
			logging.UnaryClientInterceptor,
		),
	}, opts...)
	conn, err := grpc.NewClient(address, dialOpts...)
	if err != nil {
		return nil, errors.Wrapf(ErrConnection, "dial %s: %v", address, err)
	}
	logger.CDebugw(ctx, "bridge client created", "address", address)
	return &grpcBridge{conn: conn, logger: logger}, nil
}

func (gb *grpcBridge) call(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (Value, error) {
	reply := new(structpb.Struct)
	if err := gb.conn.Invoke(ctx, method, req, reply, opts...); err != nil {
		return Value{}, fromStatus(method, err)
	}
	v, err := replyFromProto(reply)
	if err != nil {
		return Value{}, errors.Wrapf(err, "malformed reply from %s", method)
	}
	return v, nil
}

func fromStatus(method string, err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return errors.Wrap(ErrConnection, st.Message())
	case codes.Canceled:
		return errors.Wrap(context.Canceled, st.Message())
	case codes.DeadlineExceeded:
		return errors.Wrap(context.DeadlineExceeded, st.Message())
	default:
		return &RemoteError{Method: method, Code: st.Code(), Message: st.Message()}
	}
}

func (gb *grpcBridge) Invoke(ctx context.Context, target Handle, method string, args ...Value) (Value, error) {
	return gb.call(ctx, methodInvoke, invokeRequest{target: target, method: method, args: args}.toProto())
}

func (gb *grpcBridge) GetField(ctx context.Context, target Handle, name string) (Value, error) {
	return gb.call(ctx, methodGetField, fieldRequest{target: target, name: name}.toProto())
}

func (gb *grpcBridge) SetField(ctx context.Context, target Handle, name string, value Value) error {
	_, err := gb.call(ctx, methodSetField, fieldRequest{target: target, name: name, value: value}.toProto())
	return err
}

func (gb *grpcBridge) Construct(ctx context.Context, class string, args ...Value) (Handle, error) {
	v, err := gb.call(ctx, methodConstruct, constructRequest{class: class, args: args}.toProto())
	if err != nil {
		return Handle{}, err
	}
	return v.AsHandle()
}

func (gb *grpcBridge) Ping(ctx context.Context) error {
	req := invokeRequest{target: EntryPoint, method: MethodNothing}.toProto()
	_, err := gb.call(ctx, methodInvoke, req,
		grpc_retry.WithMax(pingAttempts),
		grpc_retry.WithCodes(codes.Unavailable),
		grpc_retry.WithBackoff(grpc_retry.BackoffLinear(pingBackoff)),
	)
	return err
}

func (gb *grpcBridge) Close() error {
	return gb.conn.Close()
}
