// Package grayscale reduces decoded images to gray and encodes the result.
package grayscale // import "go.yhsif.com/img2gray/grayscale"

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Rows handled between context checks in TransformContext.
const checkRows = 256

// Transform grayscales buf in place.
//
// Every pixel's red, green and blue samples are replaced by the unweighted
// mean of the three, truncated toward zero. Alpha is left untouched.
//
// It's not a luma-weighted conversion: output is byte-for-byte what
// floor((R+G+B)/3) gives, so an already gray pixel is a fixed point and
// applying Transform twice is the same as applying it once.
func Transform(buf *PixelBuffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	average(buf.Pix)
	return nil
}

// Grayscale is like Transform, except that it leaves buf alone and returns a
// new buffer.
func Grayscale(buf *PixelBuffer) (*PixelBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	out := buf.Clone()
	average(out.Pix)
	return out, nil
}

// TransformContext is the parallel version of Transform.
//
// Rows are split into contiguous shards processed by up to workers goroutines
// (GOMAXPROCS if workers <= 0). The output is identical to Transform's.
//
// If ctx is canceled before all shards are done ctx.Err() is returned and the
// content of buf is unspecified.
func TransformContext(ctx context.Context, buf *PixelBuffer, workers int) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, buf.Height)

	stride := buf.Width * BytesPerPixel
	shardRows := (buf.Height + workers - 1) / workers
	group, ctx := errgroup.WithContext(ctx)
	for start := 0; start < buf.Height; start += shardRows {
		end := min(start+shardRows, buf.Height)
		group.Go(func() error {
			for y := start; y < end; y += checkRows {
				if err := ctx.Err(); err != nil {
					return err
				}
				last := min(y+checkRows, end)
				average(buf.Pix[y*stride : last*stride])
			}
			return nil
		})
	}
	return group.Wait()
}

func average(pix []uint8) {
	for i := 0; i+BytesPerPixel <= len(pix); i += BytesPerPixel {
		s := pix[i : i+BytesPerPixel : i+BytesPerPixel]
		avg := uint8((uint16(s[0]) + uint16(s[1]) + uint16(s[2])) / 3)
		s[0] = avg
		s[1] = avg
		s[2] = avg
	}
}
