package grayscale

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
)

func randomBuffer(t *testing.T, width, height int, seed uint64) *PixelBuffer {
	t.Helper()
	buf, err := NewPixelBuffer(width, height)
	if err != nil {
		t.Fatalf("NewPixelBuffer(%d, %d) failed: %v", width, height, err)
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for i := range buf.Pix {
		buf.Pix[i] = uint8(r.UintN(256))
	}
	return buf
}

func TestTransformScenario(t *testing.T) {
	buf := &PixelBuffer{
		Width:  2,
		Height: 1,
		Pix: []uint8{
			255, 0, 0, 255,
			0, 255, 0, 128,
		},
	}
	if err := Transform(buf); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	want := []uint8{
		85, 85, 85, 255,
		85, 85, 85, 128,
	}
	if !bytes.Equal(buf.Pix, want) {
		t.Errorf("Transform got %v, want %v", buf.Pix, want)
	}
}

func TestTransformTruncates(t *testing.T) {
	for _, c := range []struct {
		r, g, b uint8
		want    uint8
	}{
		{r: 1, g: 1, b: 0, want: 0},
		{r: 1, g: 1, b: 1, want: 1},
		{r: 2, g: 2, b: 1, want: 1},
		{r: 255, g: 255, b: 254, want: 254},
		{r: 255, g: 255, b: 255, want: 255},
		{r: 0, g: 0, b: 255, want: 85},
		{r: 100, g: 150, b: 201, want: 150},
	} {
		t.Run(fmt.Sprintf("%d-%d-%d", c.r, c.g, c.b), func(t *testing.T) {
			buf := &PixelBuffer{Width: 1, Height: 1, Pix: []uint8{c.r, c.g, c.b, 7}}
			if err := Transform(buf); err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			want := []uint8{c.want, c.want, c.want, 7}
			if !bytes.Equal(buf.Pix, want) {
				t.Errorf("got %v, want %v", buf.Pix, want)
			}
		})
	}
}

func TestTransformProperties(t *testing.T) {
	orig := randomBuffer(t, 37, 23, 42)
	buf := orig.Clone()
	if err := Transform(buf); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if buf.Width != orig.Width || buf.Height != orig.Height || len(buf.Pix) != len(orig.Pix) {
		t.Fatalf("dimensions changed: %dx%d/%d -> %dx%d/%d",
			orig.Width, orig.Height, len(orig.Pix), buf.Width, buf.Height, len(buf.Pix))
	}
	for i := 0; i < len(buf.Pix); i += BytesPerPixel {
		before := orig.Pix[i : i+4]
		after := buf.Pix[i : i+4]
		if after[3] != before[3] {
			t.Errorf("pixel %d: alpha changed %d -> %d", i/4, before[3], after[3])
		}
		if after[0] != after[1] || after[1] != after[2] {
			t.Errorf("pixel %d: channels differ after transform: %v", i/4, after)
		}
		if before[0] == before[1] && before[1] == before[2] && !bytes.Equal(before, after) {
			t.Errorf("pixel %d: gray pixel changed %v -> %v", i/4, before, after)
		}
	}

	again := buf.Clone()
	if err := Transform(again); err != nil {
		t.Fatalf("second Transform failed: %v", err)
	}
	if !bytes.Equal(again.Pix, buf.Pix) {
		t.Error("Transform is not idempotent")
	}
}

func TestGrayscaleLeavesSource(t *testing.T) {
	orig := randomBuffer(t, 8, 8, 7)
	snapshot := orig.Clone()
	out, err := Grayscale(orig)
	if err != nil {
		t.Fatalf("Grayscale failed: %v", err)
	}
	if !bytes.Equal(orig.Pix, snapshot.Pix) {
		t.Error("Grayscale modified its input")
	}
	if err := Transform(snapshot); err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if !bytes.Equal(out.Pix, snapshot.Pix) {
		t.Error("Grayscale and Transform disagree")
	}
}

func TestTransformContextMatchesTransform(t *testing.T) {
	for _, c := range []struct {
		width, height, workers int
	}{
		{width: 1, height: 1, workers: 4},
		{width: 3, height: 1000, workers: 3},
		{width: 640, height: 7, workers: 16},
		{width: 17, height: 513, workers: 0},
		{width: 5, height: 5, workers: 1},
	} {
		t.Run(fmt.Sprintf("%dx%d-%d", c.width, c.height, c.workers), func(t *testing.T) {
			want := randomBuffer(t, c.width, c.height, uint64(c.width*c.height))
			got := want.Clone()
			if err := Transform(want); err != nil {
				t.Fatalf("Transform failed: %v", err)
			}
			if err := TransformContext(context.Background(), got, c.workers); err != nil {
				t.Fatalf("TransformContext failed: %v", err)
			}
			if !bytes.Equal(got.Pix, want.Pix) {
				t.Error("TransformContext output differs from Transform")
			}
		})
	}
}

func TestTransformContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf := randomBuffer(t, 4, 4, 1)
	if err := TransformContext(ctx, buf, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("TransformContext with canceled context got %v, want %v", err, context.Canceled)
	}
}

func TestInvalidBuffer(t *testing.T) {
	for _, c := range []struct {
		label string
		buf   *PixelBuffer
	}{
		{label: "nil", buf: nil},
		{label: "zero-width", buf: &PixelBuffer{Width: 0, Height: 1}},
		{label: "negative-height", buf: &PixelBuffer{Width: 1, Height: -1}},
		{label: "short", buf: &PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 15)}},
		{label: "long", buf: &PixelBuffer{Width: 2, Height: 2, Pix: make([]uint8, 17)}},
		{label: "overflow", buf: &PixelBuffer{Width: 1 << 62, Height: 1 << 62}},
	} {
		t.Run(c.label, func(t *testing.T) {
			var snapshot []uint8
			if c.buf != nil {
				snapshot = append([]uint8(nil), c.buf.Pix...)
			}
			if err := Transform(c.buf); !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("Transform got %v, want %v", err, ErrInvalidBuffer)
			}
			if c.buf != nil && !bytes.Equal(c.buf.Pix, snapshot) {
				t.Error("Transform wrote into an invalid buffer")
			}
			if _, err := Grayscale(c.buf); !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("Grayscale got %v, want %v", err, ErrInvalidBuffer)
			}
			if err := TransformContext(context.Background(), c.buf, 2); !errors.Is(err, ErrInvalidBuffer) {
				t.Errorf("TransformContext got %v, want %v", err, ErrInvalidBuffer)
			}
			if out, err := ToPNG(c.buf); !errors.Is(err, ErrInvalidBuffer) || out != nil {
				t.Errorf("ToPNG got (%v, %v), want (nil, %v)", out, err, ErrInvalidBuffer)
			}
		})
	}
}
