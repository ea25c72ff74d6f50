// Package clip decodes the in-clip tagged-chunk stream (§4.5) into a
// Clip record: dimensions, background color patterns, opportunistic
// clip-intro metadata, and the ordered Layer/Image tree that
// internal/layer resolves frames against. It is a state machine over
// 8-byte ident+size chunk headers, dispatching on ident.
package clip

import "github.com/tvpio/tvpp/internal/layer"

// Clip is the fully decoded result of one clip-data payload.
type Clip struct {
	Width  int
	Height int

	Arat []byte // ARAT payload, verbatim
	BGP1 [4]byte
	BGP2 [4]byte

	// Metadata collects the remaining clip-intro chunks this package
	// does not give a first-class field to (DGBL, DPEL, BGMD, CRLR,
	// ANNO, FRAT, FILD, MARK, XSHT, TLNT): ident -> raw chunk bytes.
	Metadata map[string][]byte

	Layers []*layer.Layer
}

// BackgroundColor returns the clip's background color as (r,g,b,a),
// taken from BGP1 per §4.8.
func (c *Clip) BackgroundColor() (r, g, b, a byte) {
	return c.BGP1[0], c.BGP1[1], c.BGP1[2], c.BGP1[3]
}

// Dimensions returns the clip's (width, height).
func (c *Clip) Dimensions() (int, int) {
	return c.Width, c.Height
}
