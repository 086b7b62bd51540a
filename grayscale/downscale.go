package grayscale

import (
	"math"

	"golang.org/x/image/draw"
)

// Downscale downscales buf to be able to fit in fit x fit preserving the
// original aspect ratio.
//
// If fit <= 0 or if the original image is already smaller than fit x fit,
// the original buffer will be returned as-is.
//
// It's only meant for previews, the result is resampled and no longer
// satisfies the exact averaging guarantees of Transform.
func Downscale(buf *PixelBuffer, fit int) (*PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	if fit <= 0 || (buf.Width <= fit && buf.Height <= fit) {
		return buf, nil
	}
	ratio := min(
		float64(fit)/float64(buf.Width),
		float64(fit)/float64(buf.Height),
	)
	out, err := NewPixelBuffer(
		max(1, int(math.Round(float64(buf.Width)*ratio))),
		max(1, int(math.Round(float64(buf.Height)*ratio))),
	)
	if err != nil {
		return nil, err
	}
	dst := out.Image()
	src := buf.Image()
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out, nil
}
