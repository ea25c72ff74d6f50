package encode

import (
	"fmt"
	"image"
)

// FormatID constants identify an exported frame's image format. They
// exist alongside Format()'s string form so callers that want a
// compact, comparable tag (e.g. a manifest written next to a batch
// export) don't have to string-match.
const (
	FormatUnknown = 0
	FormatPNG     = 1
	FormatJPEG    = 2
	FormatWebP    = 3
)

// Encoder encodes one reconstructed layer frame into an image file's
// bytes.
type Encoder interface {
	// Encode encodes a frame image to bytes in the target format.
	Encode(img image.Image) ([]byte, error)

	// Format returns the format name (e.g. "jpeg", "png", "webp").
	Format() string

	// FormatID returns the compact FormatID constant for this encoder.
	FormatID() uint8

	// FileExtension returns the appropriate file extension.
	FileExtension() string
}

// NewEncoder creates an encoder for the given format and quality.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch format {
	case "jpeg", "jpg":
		return &JPEGEncoder{Quality: quality}, nil
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return newWebPEncoder(quality)
	default:
		return nil, fmt.Errorf("unsupported image format: %q (supported: jpeg, png, webp)", format)
	}
}
