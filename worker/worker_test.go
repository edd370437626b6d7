package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/boofbridge/bridge"
	"go.viam.com/boofbridge/logging"
	"go.viam.com/boofbridge/shmem"
	"go.viam.com/boofbridge/transfer"
	"go.viam.com/boofbridge/wire"
)

func newTestWorker(t *testing.T) (*Worker, bridge.Bridge) {
	t.Helper()
	w := New("2024-01-01", logging.NewTestLogger(t))
	t.Cleanup(func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	})
	return w, bridge.NewLocal(w)
}

func TestEntryPoint(t *testing.T) {
	ctx := context.Background()
	_, b := newTestWorker(t)

	test.That(t, b.Ping(ctx), test.ShouldBeNil)

	v, err := b.Invoke(ctx, bridge.EntryPoint, MethodGetBuildDate)
	test.That(t, err, test.ShouldBeNil)
	date, err := v.AsString()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, date, test.ShouldEqual, "2024-01-01")

	_, err = b.Invoke(ctx, bridge.EntryPoint, MethodSetBuildDate, bridge.StringValue("2025-02-02"))
	test.That(t, err, test.ShouldBeNil)
	v, err = b.Invoke(ctx, bridge.EntryPoint, MethodGetBuildDate)
	test.That(t, err, test.ShouldBeNil)
	date, _ = v.AsString()
	test.That(t, date, test.ShouldEqual, "2025-02-02")

	v, err = b.Invoke(ctx, bridge.EntryPoint, MethodGetProcessID)
	test.That(t, err, test.ShouldBeNil)
	pid, err := v.AsInt()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pid, test.ShouldEqual, int64(os.Getpid()))

	_, err = b.Invoke(ctx, bridge.EntryPoint, MethodSetMaxThreads, bridge.IntValue(4))
	test.That(t, err, test.ShouldBeNil)
	v, err = b.Invoke(ctx, bridge.EntryPoint, MethodGetMaxThreads)
	test.That(t, err, test.ShouldBeNil)
	threads, _ := v.AsInt()
	test.That(t, threads, test.ShouldEqual, int64(4))
	_, err = b.Invoke(ctx, bridge.EntryPoint, MethodSetMaxThreads, bridge.IntValue(0))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = b.Invoke(ctx, bridge.EntryPoint, "fly")
	test.That(t, errors.Is(err, ErrNoSuchMethod), test.ShouldBeTrue)
	_, err = b.Invoke(ctx, bridge.EntryPoint, MethodSetBuildDate)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestShutdownHook(t *testing.T) {
	w, b := newTestWorker(t)
	called := make(chan struct{})
	w.OnShutdown(func() { close(called) })

	_, err := b.Invoke(context.Background(), bridge.EntryPoint, MethodShutdown)
	test.That(t, err, test.ShouldBeNil)
	<-called
}

func TestInitializeMmap(t *testing.T) {
	ctx := context.Background()
	_, b := newTestWorker(t)

	_, err := b.GetField(ctx, bridge.EntryPoint, FieldMmap)
	test.That(t, errors.Is(err, ErrNoSharedMemory), test.ShouldBeTrue)

	path := filepath.Join(t.TempDir(), "mmap")
	_, err = b.Invoke(ctx, bridge.EntryPoint, MethodInitializeMmap, bridge.StringValue(path), bridge.IntValue(1))
	test.That(t, err, test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldEqual, int64(1024*1024))

	v, err := b.GetField(ctx, bridge.EntryPoint, FieldMmap)
	test.That(t, err, test.ShouldBeNil)
	first, err := v.AsHandle()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first.Class, test.ShouldEqual, ClassMemoryMapped)

	_, err = b.Invoke(ctx, bridge.EntryPoint, MethodInitializeMmapBytes, bridge.StringValue(path), bridge.IntValue(256))
	test.That(t, err, test.ShouldBeNil)
	info, err = os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldEqual, int64(256))

	v, err = b.GetField(ctx, bridge.EntryPoint, FieldMmap)
	test.That(t, err, test.ShouldBeNil)
	second, _ := v.AsHandle()
	test.That(t, second.ID, test.ShouldNotEqual, first.ID)

	_, err = b.Invoke(ctx, first, transfer.MethodReadList)
	test.That(t, errors.Is(err, ErrNoSuchObject), test.ShouldBeTrue)
}

func TestConfigObjects(t *testing.T) {
	ctx := context.Background()
	_, b := newTestWorker(t)

	h, err := b.Construct(ctx, ClassConfigFastHessian)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Config, test.ShouldBeTrue)

	v, err := b.Invoke(ctx, bridge.EntryPoint, MethodIsConfigClass, bridge.HandleValue(h))
	test.That(t, err, test.ShouldBeNil)
	isConfig, _ := v.AsBool()
	test.That(t, isConfig, test.ShouldBeTrue)

	v, err = b.Invoke(ctx, bridge.EntryPoint, MethodGetPublicFields, bridge.HandleValue(h))
	test.That(t, err, test.ShouldBeNil)
	fields, err := v.AsStrings()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fields, test.ShouldResemble, []string{
		"extract", "maxFeaturesPerScale", "initialSampleStep", "initialSize", "numberScalesPerOctave", "numberOfOctaves",
	})

	v, err = b.GetField(ctx, h, "extract")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v.IsConfig(), test.ShouldBeTrue)
	extract, _ := v.AsHandle()
	test.That(t, extract.Class, test.ShouldEqual, ClassConfigExtract)

	test.That(t, b.SetField(ctx, extract, "radius", bridge.IntValue(5)), test.ShouldBeNil)
	test.That(t, b.SetField(ctx, extract, "threshold", bridge.IntValue(3)), test.ShouldBeNil)
	v, err = b.GetField(ctx, extract, "threshold")
	test.That(t, err, test.ShouldBeNil)
	threshold, err := v.AsFloat()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, threshold, test.ShouldEqual, 3.0)

	err = b.SetField(ctx, extract, "radius", bridge.StringValue("big"))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = b.GetField(ctx, extract, "nope")
	test.That(t, errors.Is(err, ErrNoSuchField), test.ShouldBeTrue)

	other, err := b.Construct(ctx, ClassConfigExtract)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.SetField(ctx, h, "extract", bridge.HandleValue(other)), test.ShouldBeNil)
	speed, err := b.Construct(ctx, ClassConfigSurfSpeed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.SetField(ctx, h, "extract", bridge.HandleValue(speed)), test.ShouldNotBeNil)

	v, err = b.Invoke(ctx, other, MethodToString)
	test.That(t, err, test.ShouldBeNil)
	s, _ := v.AsString()
	test.That(t, s, test.ShouldStartWith, "ConfigExtract{radius=2")

	_, err = b.Construct(ctx, "boofcv.Missing")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestListObjects(t *testing.T) {
	ctx := context.Background()
	_, b := newTestWorker(t)

	h, err := b.Construct(ctx, ClassArrayList)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.Config, test.ShouldBeFalse)

	v, err := b.Invoke(ctx, bridge.EntryPoint, MethodGetPublicFields, bridge.HandleValue(h))
	test.That(t, err, test.ShouldBeNil)
	fields, _ := v.AsStrings()
	test.That(t, fields, test.ShouldBeEmpty)

	v, err = b.Invoke(ctx, h, transfer.MethodSize)
	test.That(t, err, test.ShouldBeNil)
	size, _ := v.AsInt()
	test.That(t, size, test.ShouldEqual, int64(0))

	_, err = b.Invoke(ctx, h, "sort")
	test.That(t, errors.Is(err, ErrNoSuchMethod), test.ShouldBeTrue)
}

func TestReadListRejectsMixedTags(t *testing.T) {
	ctx := context.Background()
	_, b := newTestWorker(t)

	path := filepath.Join(t.TempDir(), "mmap")
	_, err := b.Invoke(ctx, bridge.EntryPoint, MethodInitializeMmapBytes, bridge.StringValue(path), bridge.IntValue(1024))
	test.That(t, err, test.ShouldBeNil)
	v, err := b.GetField(ctx, bridge.EntryPoint, FieldMmap)
	test.That(t, err, test.ShouldBeNil)
	viewHandle, _ := v.AsHandle()

	region, err := shmem.Open(path)
	test.That(t, err, test.ShouldBeNil)
	defer region.Close()
	ch := transfer.NewChannel(region, b, viewHandle, logging.NewTestLogger(t))

	dst, err := b.Construct(ctx, ClassArrayList)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, transfer.Send(ctx, ch, wire.ArrayU8, dst, []uint8{1, 2}), test.ShouldBeNil)
	err = transfer.Send(ctx, ch, wire.ArrayS8, dst, []int8{1})
	test.That(t, errors.Is(err, wire.ErrProtocolMismatch), test.ShouldBeTrue)

	_, err = transfer.ReceiveN(ctx, ch, wire.ArrayS8, dst, 2)
	test.That(t, errors.Is(err, wire.ErrProtocolMismatch), test.ShouldBeTrue)

	_, err = b.Invoke(ctx, dst, MethodClear)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, transfer.Send(ctx, ch, wire.ArrayS8, dst, []int8{-1}), test.ShouldBeNil)
}
