// Package wire defines the block format written into the shared memory region: a big-endian
// header carrying a type tag and counts, followed by fixed-width elements.
package wire

//go:generate stringer -type=Tag -linecomment

// Tag identifies the shape and element type of a block. The ordinals are shared with the remote
// worker and must never be reordered.
type Tag uint16

// Known tags.
const (
	TagImageU8               Tag = iota // IMAGE_U8
	TagImageF32                         // IMAGE_F32
	TagListPoint2DU16                   // LIST_POINT2D_U16
	TagListPoint2DS16                   // LIST_POINT2D_S16
	TagListPoint2DS32                   // LIST_POINT2D_S32
	TagListPoint2DF32                   // LIST_POINT2D_F32
	TagListPoint2DF64                   // LIST_POINT2D_F64
	TagListPoint3DF32                   // LIST_POINT3D_F32
	TagListPoint3DF64                   // LIST_POINT3D_F64
	TagListTupleF32                     // LIST_TUPLE_F32
	TagListTupleF64                     // LIST_TUPLE_F64
	TagListAssociatedPairF32            // LIST_ASSOCIATEDPAIR_F32
	TagListAssociatedPairF64            // LIST_ASSOCIATEDPAIR_F64
	TagArrayS8                          // ARRAY_S8
	TagArrayU8                          // ARRAY_U8
	TagArrayS16                         // ARRAY_S16
	TagArrayU16                         // ARRAY_U16
	TagArrayS32                         // ARRAY_S32
	TagArrayF32                         // ARRAY_F32
	TagArrayF64                         // ARRAY_F64
	TagArrayS64                         // ARRAY_S64

	numTags = iota
)

// Family groups tags that share a header layout and element shape.
type Family int

// Tag families.
const (
	FamilyUnknown Family = iota
	FamilyImage
	FamilyPoint2D
	FamilyPoint3D
	FamilyTuple
	FamilyAssociatedPair
	FamilyArray
)

// Header sizes in bytes.
const (
	ListHeaderSize  = 6
	TupleHeaderSize = 10
	ImageHeaderSize = 14
)

type tagInfo struct {
	family Family
	width  int
}

var tagInfos = [numTags]tagInfo{
	TagImageU8:               {FamilyImage, 1},
	TagImageF32:              {FamilyImage, 4},
	TagListPoint2DU16:        {FamilyPoint2D, 2},
	TagListPoint2DS16:        {FamilyPoint2D, 2},
	TagListPoint2DS32:        {FamilyPoint2D, 4},
	TagListPoint2DF32:        {FamilyPoint2D, 4},
	TagListPoint2DF64:        {FamilyPoint2D, 8},
	TagListPoint3DF32:        {FamilyPoint3D, 4},
	TagListPoint3DF64:        {FamilyPoint3D, 8},
	TagListTupleF32:          {FamilyTuple, 4},
	TagListTupleF64:          {FamilyTuple, 8},
	TagListAssociatedPairF32: {FamilyAssociatedPair, 4},
	TagListAssociatedPairF64: {FamilyAssociatedPair, 8},
	TagArrayS8:               {FamilyArray, 1},
	TagArrayU8:               {FamilyArray, 1},
	TagArrayS16:              {FamilyArray, 2},
	TagArrayU16:              {FamilyArray, 2},
	TagArrayS32:              {FamilyArray, 4},
	TagArrayF32:              {FamilyArray, 4},
	TagArrayF64:              {FamilyArray, 8},
	TagArrayS64:              {FamilyArray, 8},
}

// Valid reports whether t is a known tag.
func (t Tag) Valid() bool {
	return int(t) < numTags
}

// Family returns the family of t, or FamilyUnknown.
func (t Tag) Family() Family {
	if !t.Valid() {
		return FamilyUnknown
	}
	return tagInfos[t].family
}

// Width returns the size in bytes of one scalar component of an element.
func (t Tag) Width() int {
	if !t.Valid() {
		return 0
	}
	return tagInfos[t].width
}

// HeaderSize returns the size of the header that precedes blocks of this tag.
func (t Tag) HeaderSize() int {
	switch t.Family() {
	case FamilyImage:
		return ImageHeaderSize
	case FamilyTuple:
		return TupleHeaderSize
	case FamilyUnknown:
		return 0
	case FamilyPoint2D, FamilyPoint3D, FamilyAssociatedPair, FamilyArray:
		return ListHeaderSize
	}
	return 0
}

// ElementSize returns the encoded size of one list element. dof is only consulted for tuples.
func (t Tag) ElementSize(dof int) int {
	switch t.Family() {
	case FamilyPoint2D:
		return 2 * t.Width()
	case FamilyPoint3D:
		return 3 * t.Width()
	case FamilyTuple:
		return dof * t.Width()
	case FamilyAssociatedPair:
		return 4 * t.Width()
	case FamilyArray, FamilyImage:
		return t.Width()
	case FamilyUnknown:
		return 0
	}
	return 0
}
