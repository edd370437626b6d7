// Package worker is a Go implementation of the remote side of the bridge. It serves the same
// entry point, shared memory view and list calls the JVM gateway does, storing lists and images
// as raw encoded elements, so that the data plane can be exercised without a JVM.
package worker

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/logging"
	"go.viam.com/boofbridge/shmem"
)

// Entry point methods and fields.
const (
	MethodGetBuildDate        = "getBuildDate"
	MethodSetBuildDate        = "setBuildDate"
	MethodGetPublicFields     = "getPublicFields"
	MethodIsConfigClass       = "isConfigClass"
	MethodInitializeMmap      = "initializeMmap"
	MethodInitializeMmapBytes = "initializeMmapBytes"
	MethodSetMaxThreads       = "setMaxThreads"
	MethodGetMaxThreads       = "getMaxThreads"
	MethodGetProcessID        = "getProcessID"
	MethodShutdown            = "shutdown"
	MethodToString            = "toString"
	MethodClear               = "clear"

	FieldMmap = "mmap"
)

// Class names of objects the worker hands out.
const (
	ClassArrayList     = "java.util.ArrayList"
	ClassMemoryMapped  = "pyboof.BoofMemoryMapped"
	ClassGrayU8        = "boofcv.struct.image.GrayU8"
	ClassGrayF32       = "boofcv.struct.image.GrayF32"
	ClassInterleavedU8 = "boofcv.struct.image.InterleavedU8"
)

var (
	// ErrNoSuchObject is returned for handles the worker does not know.
	ErrNoSuchObject = errors.New("no such object")
	// ErrNoSuchMethod is returned for methods an object does not have.
	ErrNoSuchMethod = errors.New("no such method")
	// ErrNoSuchField is returned for fields an object does not have.
	ErrNoSuchField = errors.New("no such field")
	// ErrNoSharedMemory is returned for transfers before initializeMmap was called.
	ErrNoSharedMemory = errors.New("shared memory not initialized")
)

const megabyte = 1024 * 1024

// Worker dispatches bridge calls against an in-memory object table.
type Worker struct {
	mu     sync.Mutex
	logger logging.Logger

	objects map[uint64]interface{}
	nextID  uint64

	buildDate  string
	maxThreads int
	region     *shmem.Region
	view       bridge.Handle

	onShutdown func()
}

var _ bridge.Dispatcher = (*Worker)(nil)

// New returns a worker with an empty object table.
func New(buildDate string, logger logging.Logger) *Worker {
	return &Worker{
		logger:     logger,
		objects:    map[uint64]interface{}{},
		nextID:     bridge.EntryPoint.ID + 1,
		buildDate:  buildDate,
		maxThreads: 1,
	}
}

// OnShutdown registers f to be called, in its own goroutine, when a client invokes shutdown.
func (w *Worker) OnShutdown(f func()) {
	w.mu.Lock()
	w.onShutdown = f
	w.mu.Unlock()
}

// Close unmaps the shared memory region, if any.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.region == nil {
		return nil
	}
	err := w.region.Close()
	w.region = nil
	return err
}

func (w *Worker) add(class string, obj interface{}) bridge.Handle {
	id := w.nextID
	w.nextID++
	w.objects[id] = obj
	_, isConfig := obj.(*configObject)
	return bridge.Handle{ID: id, Class: class, Config: isConfig}
}

func (w *Worker) lookup(h bridge.Handle) (interface{}, error) {
	obj, ok := w.objects[h.ID]
	if !ok {
		return nil, errors.Wrapf(ErrNoSuchObject, "%v", h)
	}
	return obj, nil
}

func (w *Worker) handleOf(id uint64) bridge.Handle {
	switch obj := w.objects[id].(type) {
	case *list:
		return bridge.Handle{ID: id, Class: ClassArrayList}
	case *configObject:
		return bridge.Handle{ID: id, Class: obj.class, Config: true}
	case *imageObject:
		return bridge.Handle{ID: id, Class: obj.class()}
	case *view:
		return bridge.Handle{ID: id, Class: ClassMemoryMapped}
	}
	return bridge.Handle{ID: id}
}

// Invoke implements bridge.Dispatcher.
func (w *Worker) Invoke(ctx context.Context, target bridge.Handle, method string, args ...bridge.Value) (bridge.Value, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logger.CDebugw(ctx, "invoke", "target", target, "method", method, "args", len(args))

	if target.ID == bridge.EntryPoint.ID {
		return w.invokeEntryPoint(ctx, method, args)
	}
	obj, err := w.lookup(target)
	if err != nil {
		return bridge.Value{}, err
	}
	if method == MethodToString {
		return bridge.StringValue(fmt.Sprintf("%v", obj)), nil
	}
	switch o := obj.(type) {
	case *list:
		return o.invoke(method)
	case *view:
		return w.invokeView(o, method, args)
	}
	return bridge.Value{}, errors.Wrapf(ErrNoSuchMethod, "%s on %v", method, target)
}

func (w *Worker) invokeEntryPoint(ctx context.Context, method string, args []bridge.Value) (bridge.Value, error) {
	switch method {
	case bridge.MethodNothing:
		return bridge.NullValue(), nil
	case MethodGetBuildDate:
		return bridge.StringValue(w.buildDate), nil
	case MethodSetBuildDate:
		s, err := stringArg(args, 0)
		if err != nil {
			return bridge.Value{}, err
		}
		w.buildDate = s
		return bridge.NullValue(), nil
	case MethodGetPublicFields:
		h, err := handleArg(args, 0)
		if err != nil {
			return bridge.Value{}, err
		}
		return w.publicFields(h)
	case MethodIsConfigClass:
		h, err := handleArg(args, 0)
		if err != nil {
			return bridge.Value{}, err
		}
		obj, err := w.lookup(h)
		if err != nil {
			return bridge.Value{}, err
		}
		_, ok := obj.(*configObject)
		return bridge.BoolValue(ok), nil
	case MethodInitializeMmap, MethodInitializeMmapBytes:
		path, err := stringArg(args, 0)
		if err != nil {
			return bridge.Value{}, err
		}
		size, err := intArg(args, 1)
		if err != nil {
			return bridge.Value{}, err
		}
		if method == MethodInitializeMmap {
			size *= megabyte
		}
		return bridge.NullValue(), w.initializeMmap(path, int(size))
	case MethodSetMaxThreads:
		n, err := intArg(args, 0)
		if err != nil {
			return bridge.Value{}, err
		}
		if n < 1 {
			return bridge.Value{}, errors.Errorf("thread count must be positive, got %d", n)
		}
		w.maxThreads = int(n)
		return bridge.NullValue(), nil
	case MethodGetMaxThreads:
		return bridge.IntValue(int64(w.maxThreads)), nil
	case MethodGetProcessID:
		return bridge.IntValue(int64(os.Getpid())), nil
	case MethodShutdown:
		if w.onShutdown != nil {
			go w.onShutdown()
		}
		return bridge.NullValue(), nil
	}
	return bridge.Value{}, errors.Wrapf(ErrNoSuchMethod, "%s on entry point", method)
}

func (w *Worker) initializeMmap(path string, size int) error {
	if w.region != nil {
		if err := w.region.Close(); err != nil {
			w.logger.Warnw("failed to close previous region", "path", w.region.Path(), "error", err)
		}
		delete(w.objects, w.view.ID)
		w.region = nil
	}
	region, err := shmem.Create(path, size)
	if err != nil {
		return err
	}
	w.region = region
	w.view = w.add(ClassMemoryMapped, &view{})
	w.logger.Infow("shared memory initialized", "path", path, "bytes", size)
	return nil
}

func (w *Worker) publicFields(h bridge.Handle) (bridge.Value, error) {
	if h.ID == bridge.EntryPoint.ID {
		return bridge.StringsValue([]string{FieldMmap}), nil
	}
	obj, err := w.lookup(h)
	if err != nil {
		return bridge.Value{}, err
	}
	if c, ok := obj.(*configObject); ok {
		return bridge.StringsValue(lo.Map(c.fields, func(f configField, _ int) string { return f.name })), nil
	}
	return bridge.StringsValue([]string{}), nil
}

// GetField implements bridge.Dispatcher.
func (w *Worker) GetField(ctx context.Context, target bridge.Handle, name string) (bridge.Value, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if target.ID == bridge.EntryPoint.ID {
		if name != FieldMmap {
			return bridge.Value{}, errors.Wrapf(ErrNoSuchField, "%s on entry point", name)
		}
		if w.region == nil {
			return bridge.Value{}, ErrNoSharedMemory
		}
		return bridge.HandleValue(w.view), nil
	}
	obj, err := w.lookup(target)
	if err != nil {
		return bridge.Value{}, err
	}
	c, ok := obj.(*configObject)
	if !ok {
		return bridge.Value{}, errors.Wrapf(ErrNoSuchField, "%s on %v", name, target)
	}
	return c.get(name)
}

// SetField implements bridge.Dispatcher.
func (w *Worker) SetField(ctx context.Context, target bridge.Handle, name string, value bridge.Value) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	obj, err := w.lookup(target)
	if err != nil {
		return err
	}
	c, ok := obj.(*configObject)
	if !ok {
		return errors.Wrapf(ErrNoSuchField, "%s on %v", name, target)
	}
	if value.Kind() == bridge.KindHandle {
		h, _ := value.AsHandle()
		if _, err := w.lookup(h); err != nil {
			return err
		}
	}
	return c.set(name, value)
}

// Construct implements bridge.Dispatcher.
func (w *Worker) Construct(ctx context.Context, class string, args ...bridge.Value) (bridge.Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if class == ClassArrayList {
		return w.add(ClassArrayList, &list{}), nil
	}
	if newConfig, ok := configClasses[class]; ok {
		return w.add(class, newConfig(w)), nil
	}
	return bridge.Handle{}, errors.Errorf("unknown class %q", class)
}

func arg(args []bridge.Value, i int) (bridge.Value, error) {
	if i >= len(args) {
		return bridge.Value{}, errors.Errorf("missing argument %d", i)
	}
	return args[i], nil
}

func stringArg(args []bridge.Value, i int) (string, error) {
	v, err := arg(args, i)
	if err != nil {
		return "", err
	}
	return v.AsString()
}

func intArg(args []bridge.Value, i int) (int64, error) {
	v, err := arg(args, i)
	if err != nil {
		return 0, err
	}
	return v.AsInt()
}

func handleArg(args []bridge.Value, i int) (bridge.Handle, error) {
	v, err := arg(args, i)
	if err != nil {
		return bridge.Handle{}, err
	}
	return v.AsHandle()
}
