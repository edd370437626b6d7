package wire

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func roundTrip[E any](t *testing.T, c ElementCodec[E], elems []E) {
	t.Helper()
	b, err := EncodeBlock(c, elems)
	test.That(t, err, test.ShouldBeNil)
	dof, err := c.DOF(elems)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(b), test.ShouldEqual, c.Tag().HeaderSize()+len(elems)*c.ElementSize(dof))

	got, err := DecodeBlock(c, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldHaveLength, len(elems))
	if len(elems) > 0 {
		test.That(t, got, test.ShouldResemble, elems)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Run("arrays", func(t *testing.T) {
		roundTrip(t, ArrayS8, []int8{-128, -1, 0, 1, 127})
		roundTrip(t, ArrayU8, []uint8{0, 1, 255})
		roundTrip(t, ArrayS16, []int16{math.MinInt16, -2, 0, math.MaxInt16})
		roundTrip(t, ArrayU16, []uint16{0, 1, math.MaxUint16})
		roundTrip(t, ArrayS32, []int32{math.MinInt32, 0, math.MaxInt32})
		roundTrip(t, ArrayS64, []int64{math.MinInt64, -7, math.MaxInt64})
		roundTrip(t, ArrayF32, []float32{-1.5, 0, float32(math.Pi), math.MaxFloat32})
		roundTrip(t, ArrayF64, []float64{-1e300, 0, math.Pi, math.Inf(1)})
	})

	t.Run("points", func(t *testing.T) {
		roundTrip(t, Point2DU16, []Point2D[uint16]{{1, 2}, {math.MaxUint16, 0}})
		roundTrip(t, Point2DS16, []Point2D[int16]{{-1, 2}, {3, -4}})
		roundTrip(t, Point2DS32, []Point2D[int32]{{-100000, 2}, {3, 100000}})
		roundTrip(t, Point2DF32, []Point2D[float32]{{1.25, -2.5}})
		roundTrip(t, Point2DF64, []Point2D[float64]{{1.0, 2.34}, {-23.4, 934.123}})
		roundTrip(t, Point3DF32, []Point3D[float32]{{1, 2, 3}, {-4, -5, -6}})
		roundTrip(t, Point3DF64, []Point3D[float64]{{0.1, 0.2, 0.3}})
	})

	t.Run("tuples", func(t *testing.T) {
		roundTrip(t, TupleF64, [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
		roundTrip(t, TupleF32, [][]float32{{1.5}, {-2.5}})
	})

	t.Run("pairs", func(t *testing.T) {
		roundTrip(t, AssociatedPairF64, []AssociatedPair{
			{P1: r2.Point{X: 1, Y: 2}, P2: r2.Point{X: 3, Y: 4}},
			{P1: r2.Point{X: -0.5, Y: 100}, P2: r2.Point{X: 7, Y: 8}},
		})
	})

	t.Run("empty", func(t *testing.T) {
		roundTrip(t, ArrayU8, []uint8{})
		roundTrip(t, ArrayF64, nil)
		roundTrip(t, Point2DF64, nil)
		roundTrip(t, Point3DF32, nil)
		roundTrip(t, AssociatedPairF64, nil)
		roundTrip(t, TupleF64, nil)
	})
}

func TestPrimitiveArrayScenario(t *testing.T) {
	b, err := EncodeBlock(ArrayU8, []uint8{1, 0, 255, 100, 199})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldResemble, []byte{0x00, 0x0E, 0x00, 0x00, 0x00, 0x05, 0x01, 0x00, 0xFF, 0x64, 0xC7})

	got, err := DecodeBlock(ArrayU8, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []uint8{1, 0, 255, 100, 199})
}

func TestBigEndian(t *testing.T) {
	b, err := EncodeBlock(Point2DF64, []Point2D[float64]{{X: 1, Y: -2}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldResemble, []byte{
		0x00, 0x06, 0x00, 0x00, 0x00, 0x01,
		0x3F, 0xF0, 0, 0, 0, 0, 0, 0,
		0xC0, 0x00, 0, 0, 0, 0, 0, 0,
	})

	again, err := EncodeBlock(Point2DF64, []Point2D[float64]{{X: 1, Y: -2}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, b)

	b, err = EncodeBlock(ArrayS16, []int16{-2, 258})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b[ListHeaderSize:], test.ShouldResemble, []byte{0xFF, 0xFE, 0x01, 0x02})
}

func TestTupleHeader(t *testing.T) {
	b, err := EncodeBlock(TupleF64, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b[:TupleHeaderSize], test.ShouldResemble, []byte{0x00, 0x0A, 0, 0, 0, 3, 0, 0, 0, 2})

	b, err = EncodeBlock(TupleF64, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldResemble, []byte{0x00, 0x0A, 0, 0, 0, 0, 0, 0, 0, 0})

	_, err = EncodeBlock(TupleF64, [][]float64{{1, 2}, {3}})
	test.That(t, errors.Is(err, ErrShape), test.ShouldBeTrue)
	_, err = EncodeBlock(TupleF32, [][]float32{{}})
	test.That(t, errors.Is(err, ErrShape), test.ShouldBeTrue)
}

func TestTagMismatchFailsClosed(t *testing.T) {
	b, err := EncodeBlock(ArrayU8, []uint8{1, 2, 3})
	test.That(t, err, test.ShouldBeNil)

	got, err := DecodeBlock(ArrayS8, b)
	test.That(t, errors.Is(err, ErrProtocolMismatch), test.ShouldBeTrue)
	test.That(t, got, test.ShouldBeNil)

	b, err = EncodeBlock(Point2DF32, []Point2D[float32]{{1, 2}})
	test.That(t, err, test.ShouldBeNil)
	_, err = DecodeBlock(Point2DF64, b)
	test.That(t, errors.Is(err, ErrProtocolMismatch), test.ShouldBeTrue)
}

func TestTruncated(t *testing.T) {
	b, err := EncodeBlock(ArrayF64, []float64{1, 2, 3})
	test.That(t, err, test.ShouldBeNil)

	_, err = DecodeBlock(ArrayF64, b[:len(b)-1])
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)
	_, err = DecodeBlock(ArrayF64, b[:4])
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)
	_, err = DecodeBlock(ArrayF64, nil)
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)
}

func TestHostileHeader(t *testing.T) {
	// Count and dof at their largest multiply past any int.
	b := []byte{0, byte(TagListTupleF64), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	h, err := ReadHeader(b, TagListTupleF64)
	test.That(t, err, test.ShouldBeNil)
	_, err = h.PayloadSize()
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)
	_, err = DecodeBlock(TupleF64, b)
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)
	_, err = AppendElements(nil, TupleF64, Header{Tag: TagListTupleF64, Count: 1 << 31, DOF: 1 << 29}, nil)
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)

	// Large but representable counts fail on length before anything is allocated.
	_, err = DecodeBlock(ArrayF64, []byte{0, byte(TagArrayF64), 0x80, 0, 0, 0})
	test.That(t, errors.Is(err, ErrTruncated), test.ShouldBeTrue)

	_, err = Header{Tag: TagArrayU8, Count: -1}.PayloadSize()
	test.That(t, errors.Is(err, ErrShape), test.ShouldBeTrue)
}

func TestChunkAppend(t *testing.T) {
	buf := make([]byte, 0, 64)
	b, err := AppendChunk(buf, TupleF64, [][]float64{{1, 2}}, 2)
	test.That(t, err, test.ShouldBeNil)
	h, err := ReadHeader(b, TagListTupleF64)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h, test.ShouldResemble, Header{Tag: TagListTupleF64, Count: 1, DOF: 2})
	n, err := h.PayloadSize()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 16)

	got, err := AppendElements([][]float64{{0, 0}}, TupleF64, h, b[h.Size():])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, [][]float64{{0, 0}, {1, 2}})
}

func TestGeometryConversions(t *testing.T) {
	p := Point2D[int16]{X: 3, Y: -4}
	test.That(t, p.R2(), test.ShouldResemble, r2.Point{X: 3, Y: -4})
	test.That(t, Point2DFromR2(r2.Point{X: 1.5, Y: 2}), test.ShouldResemble, Point2D[float64]{1.5, 2})

	v := Point3D[float32]{X: 1, Y: 2, Z: 3}
	test.That(t, v.R3(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, Point3DFromR3(r3.Vector{X: 4, Y: 5, Z: 6}), test.ShouldResemble, Point3D[float64]{4, 5, 6})
}

func TestTags(t *testing.T) {
	test.That(t, TagArrayU8.String(), test.ShouldEqual, "ARRAY_U8")
	test.That(t, TagListAssociatedPairF64.String(), test.ShouldEqual, "LIST_ASSOCIATEDPAIR_F64")
	test.That(t, Tag(99).String(), test.ShouldEqual, "Tag(99)")
	test.That(t, int(TagArrayU8), test.ShouldEqual, 14)
	test.That(t, int(TagArrayF64), test.ShouldEqual, 19)

	test.That(t, TagImageF32.Family(), test.ShouldEqual, FamilyImage)
	test.That(t, TagListTupleF32.HeaderSize(), test.ShouldEqual, TupleHeaderSize)
	test.That(t, TagListPoint3DF64.ElementSize(0), test.ShouldEqual, 24)
	test.That(t, TagListTupleF64.ElementSize(64), test.ShouldEqual, 512)
	test.That(t, Tag(99).Family(), test.ShouldEqual, FamilyUnknown)
	test.That(t, Tag(99).Valid(), test.ShouldBeFalse)

	_, err := AppendHeader(nil, Header{Tag: TagImageU8})
	test.That(t, err, test.ShouldNotBeNil)
}
