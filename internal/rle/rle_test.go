package rle

import (
	"bytes"
	"testing"
)

func solidPixels(w, h int, r, g, b, a byte) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return pix
}

func TestDecodeLiteralRun(t *testing.T) {
	// b=0x00 => 1 pixel literal.
	data := []byte{0x00, 10, 20, 30, 40}
	got, err := Decode(data, 1, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []byte{10, 20, 30, 40}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeRepeatRun(t *testing.T) {
	// b=0xFF => 257-255=2 repeats.
	data := []byte{0xFF, 1, 2, 3, 4}
	got, err := Decode(data, 2, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := append(append([]byte{}, 1, 2, 3, 4), 1, 2, 3, 4)
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeReservedBandMidStreamErrors(t *testing.T) {
	data := []byte{0x7C, 0x00, 0x00, 0x00, 0x00, 0x00}
	if _, err := Decode(data, 1, 1); err == nil {
		t.Fatal("expected decode error for reserved byte mid-stream")
	}
}

func TestDecodeReservedBandAtEndStopsNormally(t *testing.T) {
	data := []byte{0x00, 1, 2, 3, 4, 0x7C}
	got, err := Decode(data, 1, 1)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("got %v", got)
	}
}

func TestDecodeWrongLengthErrors(t *testing.T) {
	data := []byte{0x00, 1, 2, 3, 4}
	if _, err := Decode(data, 2, 1); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pix  []byte
		w, h int
	}{
		{"solid red 4x4", solidPixels(4, 4, 255, 0, 0, 255), 4, 4},
		{"solid transparent 64x64", solidPixels(64, 64, 0, 0, 0, 0), 64, 64},
		{"gradient 1x256", func() []byte {
			pix := make([]byte, 256*4)
			for i := 0; i < 256; i++ {
				pix[i*4] = byte(i)
				pix[i*4+1] = byte(255 - i)
				pix[i*4+2] = 0
				pix[i*4+3] = 255
			}
			return pix
		}(), 1, 256},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded, err := Encode(c.pix, c.w, c.h)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(encoded, c.w, c.h)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(decoded, c.pix) {
				t.Errorf("round trip mismatch: got %v, want %v", decoded, c.pix)
			}
		})
	}
}
