package wire

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Point2D is a 2D point with components of type T.
type Point2D[T Number] struct {
	X, Y T
}

// R2 converts p to an r2.Point.
func (p Point2D[T]) R2() r2.Point {
	return r2.Point{X: float64(p.X), Y: float64(p.Y)}
}

// Point2DFromR2 converts an r2.Point to a float64 Point2D.
func Point2DFromR2(p r2.Point) Point2D[float64] {
	return Point2D[float64]{X: p.X, Y: p.Y}
}

// Point3D is a 3D point with components of type T.
type Point3D[T Number] struct {
	X, Y, Z T
}

// R3 converts p to an r3.Vector.
func (p Point3D[T]) R3() r3.Vector {
	return r3.Vector{X: float64(p.X), Y: float64(p.Y), Z: float64(p.Z)}
}

// Point3DFromR3 converts an r3.Vector to a float64 Point3D.
func Point3DFromR3(v r3.Vector) Point3D[float64] {
	return Point3D[float64]{X: v.X, Y: v.Y, Z: v.Z}
}

// AssociatedPair is a correspondence between a point in one view and a point in another.
type AssociatedPair struct {
	P1, P2 r2.Point
}

// Primitive array codecs.
var (
	ArrayS8  ElementCodec[int8]    = arrayCodec[int8]{TagArrayS8, scalarS8}
	ArrayU8  ElementCodec[uint8]   = arrayCodec[uint8]{TagArrayU8, scalarU8}
	ArrayS16 ElementCodec[int16]   = arrayCodec[int16]{TagArrayS16, scalarS16}
	ArrayU16 ElementCodec[uint16]  = arrayCodec[uint16]{TagArrayU16, scalarU16}
	ArrayS32 ElementCodec[int32]   = arrayCodec[int32]{TagArrayS32, scalarS32}
	ArrayS64 ElementCodec[int64]   = arrayCodec[int64]{TagArrayS64, scalarS64}
	ArrayF32 ElementCodec[float32] = arrayCodec[float32]{TagArrayF32, scalarF32}
	ArrayF64 ElementCodec[float64] = arrayCodec[float64]{TagArrayF64, scalarF64}
)

// Point list codecs.
var (
	Point2DU16 ElementCodec[Point2D[uint16]]  = point2DCodec[uint16]{TagListPoint2DU16, scalarU16}
	Point2DS16 ElementCodec[Point2D[int16]]   = point2DCodec[int16]{TagListPoint2DS16, scalarS16}
	Point2DS32 ElementCodec[Point2D[int32]]   = point2DCodec[int32]{TagListPoint2DS32, scalarS32}
	Point2DF32 ElementCodec[Point2D[float32]] = point2DCodec[float32]{TagListPoint2DF32, scalarF32}
	Point2DF64 ElementCodec[Point2D[float64]] = point2DCodec[float64]{TagListPoint2DF64, scalarF64}

	Point3DF32 ElementCodec[Point3D[float32]] = point3DCodec[float32]{TagListPoint3DF32, scalarF32}
	Point3DF64 ElementCodec[Point3D[float64]] = point3DCodec[float64]{TagListPoint3DF64, scalarF64}
)

// Tuple and correspondence codecs.
var (
	TupleF32 ElementCodec[[]float32] = tupleCodec[float32]{TagListTupleF32, scalarF32}
	TupleF64 ElementCodec[[]float64] = tupleCodec[float64]{TagListTupleF64, scalarF64}

	AssociatedPairF64 ElementCodec[AssociatedPair] = pairCodec{}
)

type arrayCodec[T Number] struct {
	tag Tag
	s   scalar[T]
}

func (c arrayCodec[T]) Tag() Tag                { return c.tag }
func (c arrayCodec[T]) ElementSize(int) int     { return c.s.width }
func (c arrayCodec[T]) DOF([]T) (int, error)    { return 0, nil }
func (c arrayCodec[T]) Put(dst []byte, v T)     { c.s.put(dst, v) }
func (c arrayCodec[T]) Get(src []byte, _ int) T { return c.s.get(src) }

type point2DCodec[T Number] struct {
	tag Tag
	s   scalar[T]
}

func (c point2DCodec[T]) Tag() Tag                      { return c.tag }
func (c point2DCodec[T]) ElementSize(int) int           { return 2 * c.s.width }
func (c point2DCodec[T]) DOF([]Point2D[T]) (int, error) { return 0, nil }

func (c point2DCodec[T]) Put(dst []byte, p Point2D[T]) {
	c.s.put(dst, p.X)
	c.s.put(dst[c.s.width:], p.Y)
}

func (c point2DCodec[T]) Get(src []byte, _ int) Point2D[T] {
	return Point2D[T]{X: c.s.get(src), Y: c.s.get(src[c.s.width:])}
}

type point3DCodec[T Number] struct {
	tag Tag
	s   scalar[T]
}

func (c point3DCodec[T]) Tag() Tag                      { return c.tag }
func (c point3DCodec[T]) ElementSize(int) int           { return 3 * c.s.width }
func (c point3DCodec[T]) DOF([]Point3D[T]) (int, error) { return 0, nil }

func (c point3DCodec[T]) Put(dst []byte, p Point3D[T]) {
	c.s.put(dst, p.X)
	c.s.put(dst[c.s.width:], p.Y)
	c.s.put(dst[2*c.s.width:], p.Z)
}

func (c point3DCodec[T]) Get(src []byte, _ int) Point3D[T] {
	return Point3D[T]{X: c.s.get(src), Y: c.s.get(src[c.s.width:]), Z: c.s.get(src[2*c.s.width:])}
}

type tupleCodec[T Number] struct {
	tag Tag
	s   scalar[T]
}

func (c tupleCodec[T]) Tag() Tag                { return c.tag }
func (c tupleCodec[T]) ElementSize(dof int) int { return dof * c.s.width }

// DOF is taken from the first tuple; every other tuple must match it.
func (c tupleCodec[T]) DOF(tuples [][]T) (int, error) {
	if len(tuples) == 0 {
		return 0, nil
	}
	dof := len(tuples[0])
	if dof == 0 {
		return 0, errors.Wrap(ErrShape, "tuples must have at least one field")
	}
	for i, t := range tuples {
		if len(t) != dof {
			return 0, errors.Wrapf(ErrShape, "tuple %d has %d fields, expected %d", i, len(t), dof)
		}
	}
	return dof, nil
}

func (c tupleCodec[T]) Put(dst []byte, t []T) {
	for i, v := range t {
		c.s.put(dst[i*c.s.width:], v)
	}
}

func (c tupleCodec[T]) Get(src []byte, dof int) []T {
	t := make([]T, dof)
	for i := range t {
		t[i] = c.s.get(src[i*c.s.width:])
	}
	return t
}

type pairCodec struct{}

func (pairCodec) Tag() Tag                          { return TagListAssociatedPairF64 }
func (pairCodec) ElementSize(int) int               { return 32 }
func (pairCodec) DOF([]AssociatedPair) (int, error) { return 0, nil }

func (pairCodec) Put(dst []byte, p AssociatedPair) {
	scalarF64.put(dst, p.P1.X)
	scalarF64.put(dst[8:], p.P1.Y)
	scalarF64.put(dst[16:], p.P2.X)
	scalarF64.put(dst[24:], p.P2.Y)
}

func (pairCodec) Get(src []byte, _ int) AssociatedPair {
	return AssociatedPair{
		P1: r2.Point{X: scalarF64.get(src), Y: scalarF64.get(src[8:])},
		P2: r2.Point{X: scalarF64.get(src[16:]), Y: scalarF64.get(src[24:])},
	}
}
