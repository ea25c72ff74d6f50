package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/gen2brain/webp"
)

// WebPEncoder encodes frames as WebP using gen2brain/webp, a pure-Go
// binding that runs libwebp compiled to WASM via wazero — no CGo or
// system libwebp dependency required at build time, matching the
// library's own pitch as a drop-in replacement for the CGo bindings
// this encoder used to require.
type WebPEncoder struct {
	Quality int
}

func newWebPEncoder(quality int) (Encoder, error) {
	if quality <= 0 {
		quality = 85
	}
	return &WebPEncoder{Quality: quality}, nil
}

func (e *WebPEncoder) Encode(img image.Image) ([]byte, error) {
	rgba := imageToRGBA(img)
	if rgba.Bounds().Dx() == 0 || rgba.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("webp: empty image")
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, rgba, webp.Options{Quality: float32(e.Quality)}); err != nil {
		return nil, fmt.Errorf("webp: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *WebPEncoder) Format() string        { return "webp" }
func (e *WebPEncoder) FormatID() uint8       { return FormatWebP }
func (e *WebPEncoder) FileExtension() string { return ".webp" }

// DecodeWebP decodes WebP image bytes via gen2brain/webp.
func DecodeWebP(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("webp: empty data")
	}
	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("webp: decode: %w", err)
	}
	return img, nil
}

func imageToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}
