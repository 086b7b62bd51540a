package img2gray

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"go.yhsif.com/img2gray/grayscale"
	"go.yhsif.com/img2gray/logger"
	"go.yhsif.com/img2gray/refs"
)

// DecodeArgs defines the args used by Decode function.
type DecodeArgs struct {
	// The image to decode, required.
	Source SourceImage

	// Registry to track the ephemeral source reference with, optional.
	Refs *refs.Registry

	// Largest accepted width*height, checked against the image header before
	// any pixel memory is allocated. <= 0 means DefaultMaxPixels.
	MaxPixels int64
}

// DefaultMaxPixels is the pixel limit used when DecodeArgs.MaxPixels is not
// positive. It's about 256 MiB of samples.
const DefaultMaxPixels = 64 << 20

// Decode decodes the source image into a pixel buffer.
//
// It acquires an ephemeral reference to the source bytes, reads the natural
// dimensions of the image, rasterizes it without scaling or cropping, and
// reads the samples back. The reference is released before Decode returns,
// on every path.
//
// Every failure caused by the data itself (empty, unsupported or corrupt) is
// returned as *DecodeError and matches ErrUnsupportedFormat. If ctx is done
// before the pixels are read back, ctx.Err() is returned. A partial buffer is
// never returned.
//
// Note that only the formats registered via blank imports in this package
// (gif, jpeg, png, bmp, tiff, webp) can be decoded.
func Decode(ctx context.Context, args DecodeArgs) (*grayscale.PixelBuffer, error) {
	src := args.Source
	if err := src.Validate(); err != nil {
		return nil, err
	}
	mimeType := src.ResolvedMimeType()
	maxPixels := args.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	fail := func(err error) error {
		return &DecodeError{
			Filename: src.Filename,
			MimeType: mimeType,
			Err:      err,
		}
	}

	var buf *grayscale.PixelBuffer
	err := args.Refs.Scope(refs.KindSource, mimeType, src.Data, func(ref *refs.Ref) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(ref.Bytes()))
		if err != nil {
			return fail(err)
		}
		if cfg.Width <= 0 || cfg.Height <= 0 {
			return fail(fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
		}
		if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
			return fail(fmt.Errorf(
				"%w: %dx%d is over %d pixels",
				ErrTooManyPixels,
				cfg.Width,
				cfg.Height,
				maxPixels,
			))
		}
		logger.For(ctx).DebugContext(
			ctx,
			"img2gray.Decode: decoding",
			"ref", ref.URI(),
			"format", format,
			"width", cfg.Width,
			"height", cfg.Height,
		)

		img, _, err := image.Decode(bytes.NewReader(ref.Bytes()))
		if err != nil {
			return fail(err)
		}
		if size := img.Bounds().Size(); size.X != cfg.Width || size.Y != cfg.Height {
			return fail(fmt.Errorf(
				"decoded size %v does not match header size %dx%d",
				size,
				cfg.Width,
				cfg.Height,
			))
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		decoded, err := grayscale.FromImage(img)
		if err != nil {
			return fail(err)
		}
		buf = decoded
		return nil
	})
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) || errors.Is(err, ctx.Err()) {
			return nil, err
		}
		return nil, fmt.Errorf("img2gray.Decode: %w", err)
	}
	return buf, nil
}
