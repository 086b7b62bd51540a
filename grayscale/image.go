package grayscale

import (
	"bytes"
	"fmt"
	"image/png"
	"sync"
)

// PNGMimeType is the content type of ToPNG output.
const PNGMimeType = "image/png"

var encoder = png.Encoder{
	CompressionLevel: png.DefaultCompression,
	BufferPool:       new(bufferPool),
}

type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *bufferPool) Put(b *png.EncoderBuffer) {
	p.pool.Put(b)
}

// ToPNG encodes buf losslessly at its original resolution.
func ToPNG(buf *PixelBuffer) (*bytes.Buffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	out := new(bytes.Buffer)
	if err := encoder.Encode(out, buf.Image()); err != nil {
		return nil, fmt.Errorf("grayscale.ToPNG: %w", err)
	}
	return out, nil
}
