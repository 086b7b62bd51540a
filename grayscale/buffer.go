package grayscale

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// BytesPerPixel is the number of samples per pixel in a PixelBuffer (R, G, B, A).
const BytesPerPixel = 4

// ErrInvalidBuffer is returned when a PixelBuffer violates its sample-count
// invariant.
var ErrInvalidBuffer = errors.New("grayscale: invalid pixel buffer")

// PixelBuffer is a decoded raster image.
//
// Pix holds Width*Height*4 samples, row-major, with interleaved
// non-premultiplied red, green, blue and alpha channels.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a zeroed (fully transparent) buffer.
func NewPixelBuffer(width, height int) (*PixelBuffer, error) {
	n, err := sampleCount(width, height)
	if err != nil {
		return nil, err
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, n),
	}, nil
}

func sampleCount(width, height int) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, width, height)
	}
	if width > math.MaxInt/BytesPerPixel/height {
		return 0, fmt.Errorf("%w: dimensions %dx%d overflow", ErrInvalidBuffer, width, height)
	}
	return width * height * BytesPerPixel, nil
}

// Validate checks the sample-count invariant.
func (b *PixelBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	n, err := sampleCount(b.Width, b.Height)
	if err != nil {
		return err
	}
	if len(b.Pix) != n {
		return fmt.Errorf(
			"%w: %dx%d needs %d samples, got %d",
			ErrInvalidBuffer,
			b.Width,
			b.Height,
			n,
			len(b.Pix),
		)
	}
	return nil
}

// Clone returns a deep copy of b.
func (b *PixelBuffer) Clone() *PixelBuffer {
	if b == nil {
		return nil
	}
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &PixelBuffer{
		Width:  b.Width,
		Height: b.Height,
		Pix:    pix,
	}
}

// Image returns an *image.NRGBA view sharing b's samples.
//
// Writes through the returned image are visible in b and vice versa.
func (b *PixelBuffer) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * BytesPerPixel,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// FromImage rasterizes img onto an off-screen surface sized exactly to its
// bounds and reads the samples back as a PixelBuffer.
//
// The surface starts fully transparent and img is drawn with draw.Src, so no
// scaling, cropping or blending happens. The surface's backing array is handed
// over to the returned buffer and the surface itself is dropped.
func FromImage(img image.Image) (*PixelBuffer, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidBuffer)
	}
	bounds := img.Bounds()
	buf, err := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	surface := buf.Image()
	draw.Draw(surface, surface.Bounds(), img, bounds.Min, draw.Src)
	return buf, nil
}
