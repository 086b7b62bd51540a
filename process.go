package img2gray

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"go.yhsif.com/img2gray/grayscale"
	"go.yhsif.com/img2gray/logger"
	"go.yhsif.com/img2gray/refs"
)

// EncodeArgs defines the args used by Encode function.
type EncodeArgs struct {
	// The (already grayscaled) buffer to encode, required.
	Buffer *grayscale.PixelBuffer

	// Original filename of the source image.
	Filename string

	// If PreviewFit > 0, Artifact.Preview is downscaled to fit in
	// PreviewFit x PreviewFit. Data is always at original resolution.
	PreviewFit int
}

// Encode encodes buf into an unpublished Artifact.
//
// It fails with an error matching grayscale.ErrInvalidBuffer if the buffer
// violates its sample-count invariant, and never returns a partial artifact.
func Encode(args EncodeArgs) (*Artifact, error) {
	if err := args.Buffer.Validate(); err != nil {
		return nil, err
	}
	data, err := grayscale.ToPNG(args.Buffer)
	if err != nil {
		return nil, fmt.Errorf("img2gray.Encode: %w", err)
	}
	art := &Artifact{
		ID:       uuid.NewString(),
		Filename: OutputFilename(args.Filename),
		Width:    args.Buffer.Width,
		Height:   args.Buffer.Height,
		Data:     data.Bytes(),
	}
	art.Preview = art.Data
	preview, err := grayscale.Downscale(args.Buffer, args.PreviewFit)
	if err != nil {
		return nil, fmt.Errorf("img2gray.Encode: preview: %w", err)
	}
	if preview != args.Buffer {
		encoded, err := grayscale.ToPNG(preview)
		if err != nil {
			return nil, fmt.Errorf("img2gray.Encode: preview: %w", err)
		}
		art.Preview = encoded.Bytes()
	}
	return art, nil
}

// ProcessArgs defines the args used by Process function.
type ProcessArgs struct {
	// The image to convert, required.
	Source SourceImage

	// If non-nil, the source reference is tracked in it during decode, and the
	// returned artifact is published to it.
	Refs *refs.Registry

	// Number of goroutines used by the grayscale transform, <= 0 means
	// GOMAXPROCS.
	Workers int

	// See EncodeArgs.PreviewFit.
	PreviewFit int

	// See DecodeArgs.MaxPixels.
	MaxPixels int64
}

// Process runs the whole pipeline: decode, grayscale, encode.
func Process(ctx context.Context, args ProcessArgs) (art *Artifact, err error) {
	defer func(start time.Time) {
		attrs := []any{
			slog.Duration("took", time.Since(start)),
			slog.String("filename", args.Source.Filename),
			slog.String("input-size", humanize.IBytes(uint64(len(args.Source.Data)))),
		}
		level := slog.LevelDebug
		if err != nil {
			attrs = append(attrs, slog.Any("err", err))
			level = slog.LevelError
		} else {
			attrs = append(
				attrs,
				slog.String("id", art.ID),
				slog.String("output", art.Filename),
				slog.String("size", humanize.IBytes(uint64(art.Len()))),
			)
		}
		logger.For(ctx).Log(ctx, level, "img2gray.Process finished", attrs...)
	}(time.Now())

	buf, err := Decode(ctx, DecodeArgs{
		Source:    args.Source,
		Refs:      args.Refs,
		MaxPixels: args.MaxPixels,
	})
	if err != nil {
		return nil, err
	}
	if err := grayscale.TransformContext(ctx, buf, args.Workers); err != nil {
		return nil, err
	}
	art, err = Encode(EncodeArgs{
		Buffer:     buf,
		Filename:   args.Source.Filename,
		PreviewFit: args.PreviewFit,
	})
	if err != nil {
		return nil, err
	}
	if args.Refs != nil {
		if err := art.Publish(args.Refs); err != nil {
			return nil, fmt.Errorf("img2gray.Process: %w", err)
		}
	}
	return art, nil
}
