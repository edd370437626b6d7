package wire

import (
	"image"

	"github.com/pkg/errors"
)

// GrayF32 is a single band image of 32-bit float pixels stored row-major.
type GrayF32 struct {
	Width, Height int
	Pix           []float32
}

// NewGrayF32 returns a zeroed width x height image.
func NewGrayF32(width, height int) *GrayF32 {
	return &GrayF32{Width: width, Height: height, Pix: make([]float32, width*height)}
}

// At returns the pixel at (x, y).
func (g *GrayF32) At(x, y int) float32 {
	return g.Pix[y*g.Width+x]
}

// Set sets the pixel at (x, y).
func (g *GrayF32) Set(x, y int, v float32) {
	g.Pix[y*g.Width+x] = v
}

// InterleavedU8 is a multi-band 8-bit image with the bands of each pixel stored together.
type InterleavedU8 struct {
	Width, Height, Bands int
	Pix                  []uint8
}

// NewInterleavedU8 returns a zeroed image.
func NewInterleavedU8(width, height, bands int) *InterleavedU8 {
	return &InterleavedU8{Width: width, Height: height, Bands: bands, Pix: make([]uint8, width*height*bands)}
}

// EncodeGray writes img as an IMAGE_U8 block with one band. Only the pixels inside img.Rect
// are written.
func EncodeGray(img *image.Gray) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	dst := AppendImageHeader(make([]byte, 0, ImageHeaderSize+w*h),
		ImageHeader{Tag: TagImageU8, Width: w, Height: h, Bands: 1})
	for y := 0; y < h; y++ {
		start := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		dst = append(dst, img.Pix[start:start+w]...)
	}
	return dst
}

// DecodeGray parses an IMAGE_U8 block with exactly one band.
func DecodeGray(src []byte) (*image.Gray, error) {
	h, payload, err := readImage(src, TagImageU8)
	if err != nil {
		return nil, err
	}
	if h.Bands != 1 {
		return nil, errors.Wrapf(ErrShape, "expected 1 band, found %d", h.Bands)
	}
	img := image.NewGray(image.Rect(0, 0, h.Width, h.Height))
	copy(img.Pix, payload)
	return img, nil
}

// EncodeGrayF32 writes img as an IMAGE_F32 block.
func EncodeGrayF32(img *GrayF32) []byte {
	dst := AppendImageHeader(make([]byte, 0, ImageHeaderSize+4*len(img.Pix)),
		ImageHeader{Tag: TagImageF32, Width: img.Width, Height: img.Height, Bands: 1})
	start := len(dst)
	dst = grow(dst, 4*img.Width*img.Height)
	for i, v := range img.Pix[:img.Width*img.Height] {
		scalarF32.put(dst[start+4*i:], v)
	}
	return dst
}

// DecodeGrayF32 parses an IMAGE_F32 block with exactly one band.
func DecodeGrayF32(src []byte) (*GrayF32, error) {
	h, payload, err := readImage(src, TagImageF32)
	if err != nil {
		return nil, err
	}
	if h.Bands != 1 {
		return nil, errors.Wrapf(ErrShape, "expected 1 band, found %d", h.Bands)
	}
	img := NewGrayF32(h.Width, h.Height)
	for i := range img.Pix {
		img.Pix[i] = scalarF32.get(payload[4*i:])
	}
	return img, nil
}

// EncodeInterleaved writes img as an IMAGE_U8 block with img.Bands bands.
func EncodeInterleaved(img *InterleavedU8) []byte {
	n := img.Width * img.Height * img.Bands
	dst := AppendImageHeader(make([]byte, 0, ImageHeaderSize+n),
		ImageHeader{Tag: TagImageU8, Width: img.Width, Height: img.Height, Bands: img.Bands})
	return append(dst, img.Pix[:n]...)
}

// DecodeInterleaved parses an IMAGE_U8 block with any number of bands.
func DecodeInterleaved(src []byte) (*InterleavedU8, error) {
	h, payload, err := readImage(src, TagImageU8)
	if err != nil {
		return nil, err
	}
	if h.Bands < 1 {
		return nil, errors.Wrapf(ErrShape, "image has %d bands", h.Bands)
	}
	img := NewInterleavedU8(h.Width, h.Height, h.Bands)
	copy(img.Pix, payload)
	return img, nil
}

func readImage(src []byte, want Tag) (ImageHeader, []byte, error) {
	h, err := ReadImageHeader(src, want)
	if err != nil {
		return ImageHeader{}, nil, err
	}
	need, err := h.PayloadSize()
	if err != nil {
		return ImageHeader{}, nil, err
	}
	payload := src[ImageHeaderSize:]
	if len(payload) < need {
		return ImageHeader{}, nil, errors.Wrapf(ErrTruncated, "%dx%dx%d %v image needs %d bytes, have %d",
			h.Width, h.Height, h.Bands, h.Tag, need, len(payload))
	}
	return h, payload[:need], nil
}
