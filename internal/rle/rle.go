// Package rle decodes (and, for test fixtures, encodes) the pixel
// run-length format TVPaint uses for full-image and tile payloads.
//
// It looks superficially like PackBits, but the band boundaries and the
// repeat-count arithmetic are specific to this format, and neither the
// standard library nor any nearby compression package implements this
// exact framing, so it is hand-rolled.
package rle

import "github.com/tvpio/tvpp/internal/tvperr"

const bytesPerPixel = 4

// Decode expands an RLE byte stream into exactly w*h*4 bytes of RGBA
// (or ABGR, depending on project version — this package is agnostic to
// channel order and simply moves bytes).
//
// Per byte b at the current position:
//   - b <= 0x7B: literal run, copy the next (b+1)*4 bytes verbatim.
//   - b >= 0x85: repeat run, replicate the next 4 bytes (257-b) times.
//   - 0x7C..0x84: reserved. If b is the last byte of the stream this is
//     a normal (if unusual) stop marker; anywhere else it is a decode
//     error. The original decoder silently no-ops here, which never
//     triggers in practice against real files — callers should treat
//     divergence here as evidence of a corrupt or unsupported stream.
func Decode(data []byte, w, h int) ([]byte, error) {
	want := w * h * bytesPerPixel
	out := make([]byte, 0, want)

	i := 0
	for i < len(data) {
		b := data[i]
		switch {
		case b <= 0x7B:
			n := (int(b) + 1) * bytesPerPixel
			i++
			if i+n > len(data) {
				return nil, tvperr.New(tvperr.KindRLEDecode,
					"literal run of %d bytes exceeds stream (at offset %d, len %d)", n, i, len(data))
			}
			out = append(out, data[i:i+n]...)
			i += n

		case b >= 0x85:
			i++
			if i+bytesPerPixel > len(data) {
				return nil, tvperr.New(tvperr.KindRLEDecode,
					"repeat run pixel truncated (at offset %d, len %d)", i, len(data))
			}
			px := data[i : i+bytesPerPixel]
			count := 257 - int(b)
			for n := 0; n < count; n++ {
				out = append(out, px...)
			}
			i += bytesPerPixel

		default: // 0x7C..0x84
			if i == len(data)-1 {
				i++
				continue
			}
			return nil, tvperr.New(tvperr.KindRLEDecode,
				"reserved byte 0x%02x mid-stream at offset %d", b, i)
		}
	}

	if len(out) != want {
		return nil, tvperr.New(tvperr.KindRLEDecode,
			"expanded to %d bytes, want %d (w=%d h=%d)", len(out), want, w, h)
	}
	return out, nil
}

// Encode is a fixture encoder for tests: it is not part of the decode
// core (the format is read-only to this project) but the round-trip
// property in the testable-properties list needs a producer. It always
// emits literal runs; this keeps the encoder trivially correct at the
// cost of compression ratio, which is fine since nothing in this
// module ever writes a real .tvpp file.
func Encode(pix []byte, w, h int) ([]byte, error) {
	want := w * h * bytesPerPixel
	if len(pix) != want {
		return nil, tvperr.New(tvperr.KindRLEDecode,
			"input is %d bytes, want %d (w=%d h=%d)", len(pix), want, w, h)
	}

	var out []byte
	const maxLiteralPixels = 0x7C // b <= 0x7B => (b+1) pixels, so 0x7B+1 = 0x7C pixels max
	for off := 0; off < len(pix); {
		remainingPixels := (len(pix) - off) / bytesPerPixel
		n := remainingPixels
		if n > maxLiteralPixels {
			n = maxLiteralPixels
		}
		out = append(out, byte(n-1))
		out = append(out, pix[off:off+n*bytesPerPixel]...)
		off += n * bytesPerPixel
	}
	return out, nil
}
