package img2gray

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.yhsif.com/immutable"

	// Decoders available to Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedMimeTypes lists the source types Decode accepts.
var SupportedMimeTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

var supportedMimeTypes = immutable.SetLiteral(SupportedMimeTypes...)

// ErrUnsupportedFormat is matched (via errors.Is) by every error Decode
// returns for data it can't turn into a pixel buffer.
var ErrUnsupportedFormat = errors.New("img2gray: unsupported format")

// ErrTooManyPixels is wrapped by the DecodeError returned for images whose
// header dimensions exceed the pixel limit.
var ErrTooManyPixels = errors.New("img2gray: image has too many pixels")

// DecodeError describes a failed decode.
type DecodeError struct {
	Filename string
	MimeType string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf(
		"img2gray: unable to decode %q (%s): %v",
		e.Filename,
		e.MimeType,
		e.Err,
	)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes every DecodeError match ErrUnsupportedFormat.
func (e *DecodeError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// SourceImage is a user supplied image file.
type SourceImage struct {
	// Raw file content, required.
	Data []byte `validate:"required,min=1"`

	// Declared content type, for example "image/png".
	//
	// Parameters are ignored. If it's empty the type is sniffed from Data.
	MimeType string `validate:"omitempty,max=255"`

	// Original filename, used to derive the output filename.
	Filename string `validate:"omitempty,max=1024"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural requirements of s.
//
// It does not check whether Data can actually be decoded.
func (s SourceImage) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &DecodeError{
			Filename: s.Filename,
			MimeType: s.MimeType,
			Err:      err,
		}
	}
	mimeType := s.ResolvedMimeType()
	if !supportedMimeTypes.Contains(mimeType) {
		return &DecodeError{
			Filename: s.Filename,
			MimeType: mimeType,
			Err:      fmt.Errorf("mime type %q is not one of %v", mimeType, SupportedMimeTypes),
		}
	}
	return nil
}

// ResolvedMimeType returns the media type of s without parameters, sniffing
// it from Data when MimeType is empty or malformed.
func (s SourceImage) ResolvedMimeType() string {
	if mediaType, _, err := mime.ParseMediaType(s.MimeType); err == nil {
		return strings.ToLower(mediaType)
	}
	if len(s.Data) == 0 {
		return ""
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(s.Data))
	if mediaType == sniffUnknown {
		for _, m := range extraSignatures {
			if bytes.HasPrefix(s.Data, m.sig) {
				return m.mimeType
			}
		}
	}
	return mediaType
}

const sniffUnknown = "application/octet-stream"

// Signatures of supported formats http.DetectContentType doesn't know.
var extraSignatures = []struct {
	sig      []byte
	mimeType string
}{
	{sig: []byte("II*\x00"), mimeType: "image/tiff"},
	{sig: []byte("MM\x00*"), mimeType: "image/tiff"},
}
