// Package bridge is the RPC contract between the local process and the remote worker: invoke a
// method on a remote handle, get or set one of its fields, or construct a new remote object.
// Transports are provided for in-process dispatch and for gRPC.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
)

// ErrConnection is returned when the remote side cannot be reached.
var ErrConnection = errors.New("bridge connection failed")

// RemoteError is an error raised by the remote side while serving a call.
type RemoteError struct {
	Method  string
	Code    codes.Code
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error in %s (%v): %s", e.Method, e.Code, e.Message)
}

// Dispatcher serves bridge calls. The remote worker implements it; every Bridge forwards to one.
type Dispatcher interface {
	Invoke(ctx context.Context, target Handle, method string, args ...Value) (Value, error)
	GetField(ctx context.Context, target Handle, name string) (Value, error)
	SetField(ctx context.Context, target Handle, name string, value Value) error
	// Construct creates an object from its fully qualified class name.
	Construct(ctx context.Context, class string, args ...Value) (Handle, error)
}

// A Bridge is a connection to a remote Dispatcher.
type Bridge interface {
	Dispatcher

	// Ping performs the no-op round trip used to check that the remote side is alive.
	Ping(ctx context.Context) error
	Close() error
}

// MethodNothing is the no-op method on the entry point.
const MethodNothing = "nothing"

type localBridge struct {
	mu     sync.RWMutex
	d      Dispatcher
	closed bool
}

// NewLocal returns a Bridge that calls d directly in this process.
func NewLocal(d Dispatcher) Bridge {
	return &localBridge{d: d}
}

func (lb *localBridge) dispatcher() (Dispatcher, error) {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	if lb.closed {
		return nil, errors.Wrap(ErrConnection, "bridge closed")
	}
	return lb.d, nil
}

func (lb *localBridge) Invoke(ctx context.Context, target Handle, method string, args ...Value) (Value, error) {
	d, err := lb.dispatcher()
	if err != nil {
		return Value{}, err
	}
	return d.Invoke(ctx, target, method, args...)
}

func (lb *localBridge) GetField(ctx context.Context, target Handle, name string) (Value, error) {
	d, err := lb.dispatcher()
	if err != nil {
		return Value{}, err
	}
	return d.GetField(ctx, target, name)
}

func (lb *localBridge) SetField(ctx context.Context, target Handle, name string, value Value) error {
	d, err := lb.dispatcher()
	if err != nil {
		return err
	}
	return d.SetField(ctx, target, name, value)
}

func (lb *localBridge) Construct(ctx context.Context, class string, args ...Value) (Handle, error) {
	d, err := lb.dispatcher()
	if err != nil {
		return Handle{}, err
	}
	return d.Construct(ctx, class, args...)
}

func (lb *localBridge) Ping(ctx context.Context) error {
	_, err := lb.Invoke(ctx, EntryPoint, MethodNothing)
	return err
}

func (lb *localBridge) Close() error {
	lb.mu.Lock()
	lb.closed = true
	lb.mu.Unlock()
	return nil
}
