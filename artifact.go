package img2gray

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"path"
	"strings"
	"sync"

	"go.yhsif.com/img2gray/grayscale"
	"go.yhsif.com/img2gray/refs"
)

// Output filename convention: OutputPrefix + original filename + OutputExt.
const (
	OutputPrefix = "grayscale-"
	OutputExt    = ".png"

	// Used when the original filename is empty.
	DefaultBaseName = "image"
)

// ErrAlreadyPublished is returned by Artifact.Publish when the artifact
// already has a live reference.
var ErrAlreadyPublished = errors.New("img2gray: artifact already published")

// OutputFilename returns the download filename for an original filename.
//
// Any directory part of name is dropped, the extension is kept:
// "photo.jpg" becomes "grayscale-photo.jpg.png".
func OutputFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	switch name {
	case "", ".", "/":
		name = DefaultBaseName
	}
	return OutputPrefix + name + OutputExt
}

// Artifact is an encoded grayscale image ready for preview and download.
type Artifact struct {
	// Unique id of this artifact.
	ID string

	// Suggested download filename, see OutputFilename.
	Filename string

	// Dimensions of the encoded image, always the same as the source.
	Width  int
	Height int

	// PNG encoded image at original resolution.
	Data []byte

	// PNG encoded preview, downscaled if requested. Could be Data itself.
	Preview []byte

	mu  sync.Mutex
	ref *refs.Ref
}

// ContentType returns the content type of Data and Preview.
func (a *Artifact) ContentType() string {
	return grayscale.PNGMimeType
}

// Len returns the size of Data in bytes.
func (a *Artifact) Len() int {
	return len(a.Data)
}

// WriteTo implements io.WriterTo.
func (a *Artifact) WriteTo(w io.Writer) (int64, error) {
	return bytes.NewReader(a.Data).WriteTo(w)
}

// DataURI returns the preview as a data: URI, suitable for inline rendering.
func (a *Artifact) DataURI() string {
	preview := a.Preview
	if preview == nil {
		preview = a.Data
	}
	var sb strings.Builder
	sb.WriteString("data:")
	sb.WriteString(a.ContentType())
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(preview))
	return sb.String()
}

// Publish acquires the renderable reference to Data from reg.
//
// The artifact owns the reference until Release.
func (a *Artifact) Publish(reg *refs.Registry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ref != nil && !a.ref.Released() {
		return ErrAlreadyPublished
	}
	ref, err := reg.Acquire(refs.KindOutput, a.ContentType(), a.Data)
	if err != nil {
		return err
	}
	a.ref = ref
	return nil
}

// Ref returns the renderable reference, nil if the artifact was never
// published.
func (a *Artifact) Ref() *refs.Ref {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ref
}

// Release revokes the renderable reference, if any.
func (a *Artifact) Release() {
	a.mu.Lock()
	ref := a.ref
	a.mu.Unlock()
	ref.Release()
}
