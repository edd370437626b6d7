package logging

import (
	"context"

	"go.viam.com/utils"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type debugKeyType struct{}

// debugMetadataKey carries the debug key of a bridge call from client to worker.
const debugMetadataKey = "boofbridge-debug"

// EnableDebugMode returns a context in which CDebug calls log regardless of logger level. key
// tags the calls made under it; an empty key picks a random one.
func EnableDebugMode(ctx context.Context, key string) context.Context {
	if key == "" {
		key = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugKeyType{}, key)
}

// DebugKey returns the key ctx was put in debug mode with, or "" if it is not in debug mode.
func DebugKey(ctx context.Context) string {
	key, _ := ctx.Value(debugKeyType{}).(string)
	return key
}

// UnaryClientInterceptor sends the debug key of a call along to the worker.
func UnaryClientInterceptor(
	ctx context.Context,
	method string,
	req, reply interface{},
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if key := DebugKey(ctx); key != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, debugMetadataKey, key)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// UnaryServerInterceptor puts a call in debug mode when its client was.
func UnaryServerInterceptor(
	ctx context.Context,
	req interface{},
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (interface{}, error) {
	if keys := metadata.ValueFromIncomingContext(ctx, debugMetadataKey); len(keys) == 1 {
		ctx = EnableDebugMode(ctx, keys[0])
	}
	return handler(ctx, req)
}
