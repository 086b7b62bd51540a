package img2gray

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"go.yhsif.com/img2gray/refs"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 40),
				G: uint8(y * 40),
				B: uint8((x + y) * 20),
				A: 255,
			})
		}
	}
	return img
}

func encodeTestImage(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	default:
		t.Fatalf("unknown format %q", format)
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatalf("Encoding %s failed: %v", format, err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	img := testImage(5, 3)
	for _, c := range []struct {
		format   string
		mimeType string
	}{
		{format: "png", mimeType: "image/png"},
		{format: "gif", mimeType: "image/gif"},
		{format: "jpeg", mimeType: "image/jpeg"},
		{format: "png", mimeType: ""},
		{format: "jpeg", mimeType: "image/jpeg; charset=binary"},
		{format: "png", mimeType: "IMAGE/PNG"},
	} {
		t.Run(c.format+"/"+c.mimeType, func(t *testing.T) {
			reg := refs.NewRegistry()
			buf, err := Decode(context.Background(), DecodeArgs{
				Source: SourceImage{
					Data:     encodeTestImage(t, c.format, img),
					MimeType: c.mimeType,
					Filename: "test." + c.format,
				},
				Refs: reg,
			})
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if buf.Width != 5 || buf.Height != 3 {
				t.Errorf("Decode got %dx%d, want 5x3", buf.Width, buf.Height)
			}
			if err := buf.Validate(); err != nil {
				t.Errorf("Decoded buffer is invalid: %v", err)
			}
			if n := reg.Live(""); n != 0 {
				t.Errorf("%d refs still live after Decode", n)
			}
		})
	}
}

func TestDecodeLossless(t *testing.T) {
	img := testImage(4, 4)
	buf, err := Decode(context.Background(), DecodeArgs{
		Source: SourceImage{
			Data:     encodeTestImage(t, "png", img),
			MimeType: "image/png",
		},
	})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(buf.Pix, img.Pix) {
		t.Errorf("Decode got %v, want %v", buf.Pix, img.Pix)
	}
}

func TestDecodeFailures(t *testing.T) {
	pngData := encodeTestImage(t, "png", testImage(2, 2))
	for _, c := range []struct {
		label string
		src   SourceImage
	}{
		{
			label: "zero-byte-png",
			src:   SourceImage{Data: []byte{}, MimeType: "image/png"},
		},
		{
			label: "nil-data",
			src:   SourceImage{MimeType: "image/png"},
		},
		{
			label: "unsupported-mime",
			src:   SourceImage{Data: pngData, MimeType: "application/pdf"},
		},
		{
			label: "text",
			src:   SourceImage{Data: []byte("hello, world")},
		},
		{
			label: "truncated",
			src:   SourceImage{Data: pngData[:len(pngData)/2], MimeType: "image/png"},
		},
		{
			label: "corrupt-header",
			src:   SourceImage{Data: append([]byte("\x89PNG\r\n\x1a\n"), 0, 0, 0), MimeType: "image/png"},
		},
	} {
		t.Run(c.label, func(t *testing.T) {
			reg := refs.NewRegistry()
			buf, err := Decode(context.Background(), DecodeArgs{
				Source: c.src,
				Refs:   reg,
			})
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Decode got error %v, want %v", err, ErrUnsupportedFormat)
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("Decode error %v is not a *DecodeError", err)
			}
			if buf != nil {
				t.Errorf("Decode returned a buffer on failure: %dx%d", buf.Width, buf.Height)
			}
			if n := reg.Live(""); n != 0 {
				t.Errorf("%d refs still live after Decode", n)
			}
		})
	}
}

// pngHeader returns a PNG signature followed by a single RGBA IHDR chunk
// claiming w x h, with no pixel data.
func pngHeader(w, h uint32) []byte {
	chunk := make([]byte, 4+13)
	copy(chunk, "IHDR")
	binary.BigEndian.PutUint32(chunk[4:], w)
	binary.BigEndian.PutUint32(chunk[8:], h)
	chunk[12] = 8 // bit depth
	chunk[13] = 6 // truecolor with alpha

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(chunk)
	binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodePixelLimit(t *testing.T) {
	pngData := encodeTestImage(t, "png", testImage(10, 10))
	for _, c := range []struct {
		label     string
		data      []byte
		maxPixels int64
		ok        bool
	}{
		{
			label: "huge-header-default-limit",
			data:  pngHeader(65535, 65535),
		},
		{
			label:     "huge-header-no-pixel-data",
			data:      pngHeader(1<<20, 1),
			maxPixels: 1 << 19,
		},
		{
			label:     "over-limit",
			data:      pngData,
			maxPixels: 99,
		},
		{
			label:     "at-limit",
			data:      pngData,
			maxPixels: 100,
			ok:        true,
		},
	} {
		t.Run(c.label, func(t *testing.T) {
			reg := refs.NewRegistry()
			buf, err := Decode(context.Background(), DecodeArgs{
				Source:    SourceImage{Data: c.data, MimeType: "image/png"},
				Refs:      reg,
				MaxPixels: c.maxPixels,
			})
			if n := reg.Live(""); n != 0 {
				t.Errorf("%d refs still live after Decode", n)
			}
			if c.ok {
				if err != nil {
					t.Fatalf("Decode failed: %v", err)
				}
				if buf.Width != 10 || buf.Height != 10 {
					t.Errorf("Decode got %dx%d, want 10x10", buf.Width, buf.Height)
				}
				return
			}
			if !errors.Is(err, ErrTooManyPixels) {
				t.Errorf("Decode got error %v, want %v", err, ErrTooManyPixels)
			}
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("Decode error %v should match %v", err, ErrUnsupportedFormat)
			}
			if buf != nil {
				t.Errorf("Decode returned a buffer over the limit: %dx%d", buf.Width, buf.Height)
			}
		})
	}
}

func TestDecodeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reg := refs.NewRegistry()
	buf, err := Decode(ctx, DecodeArgs{
		Source: SourceImage{
			Data:     encodeTestImage(t, "png", testImage(2, 2)),
			MimeType: "image/png",
		},
		Refs: reg,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Decode got error %v, want %v", err, context.Canceled)
	}
	if errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Cancellation should not be reported as %v", ErrUnsupportedFormat)
	}
	if buf != nil {
		t.Error("Decode returned a buffer after cancellation")
	}
	if n := reg.Live(""); n != 0 {
		t.Errorf("%d refs still live after Decode", n)
	}
}

func TestResolvedMimeType(t *testing.T) {
	pngData := encodeTestImage(t, "png", testImage(1, 1))
	for _, c := range []struct {
		label string
		src   SourceImage
		want  string
	}{
		{
			label: "declared",
			src:   SourceImage{Data: pngData, MimeType: "image/jpeg"},
			want:  "image/jpeg",
		},
		{
			label: "params",
			src:   SourceImage{Data: pngData, MimeType: "image/png; foo=bar"},
			want:  "image/png",
		},
		{
			label: "sniffed",
			src:   SourceImage{Data: pngData},
			want:  "image/png",
		},
		{
			label: "malformed",
			src:   SourceImage{Data: pngData, MimeType: "/"},
			want:  "image/png",
		},
		{
			label: "empty",
			src:   SourceImage{},
			want:  "",
		},
		{
			label: "bmp",
			src:   SourceImage{Data: []byte("BM\x00\x00\x00\x00")},
			want:  "image/bmp",
		},
		{
			label: "tiff-little-endian",
			src:   SourceImage{Data: []byte("II*\x00\x08\x00\x00\x00")},
			want:  "image/tiff",
		},
		{
			label: "tiff-big-endian",
			src:   SourceImage{Data: []byte("MM\x00*\x00\x00\x00\x08")},
			want:  "image/tiff",
		},
		{
			label: "unknown",
			src:   SourceImage{Data: []byte{0, 1, 2, 3}},
			want:  "application/octet-stream",
		},
	} {
		t.Run(c.label, func(t *testing.T) {
			if got := c.src.ResolvedMimeType(); got != c.want {
				t.Errorf("ResolvedMimeType got %q, want %q", got, c.want)
			}
		})
	}
}
