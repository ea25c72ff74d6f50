// Package layer implements the image/tile data model (§4.6) and the
// tile-reference resolver (§4.7): a header-derived Settings struct plus
// a slice of child Image records, each owning a slice of Tile records
// that reference each other and earlier images by plain array index
// rather than pointer, so cycles can be detected with a simple
// (image index, tile index) visited set.
package layer

// TileSize is the fixed edge length of a tile in the grid TVPaint
// partitions a layer's canvas into.
const TileSize = 64

// Settings is the decoded LRHD/LRSH record: 104 bytes interpreted as
// 52 big-endian u16 words, per §3.
type Settings struct {
	NumImages    int
	StartFrame   int
	EndFrame     int
	Transparency int
	Visible      bool
	Locked       bool
	BlendMode    int
}

// Layer is one animation layer of a clip: a name, its settings, and the
// ordered sequence of Images that make up its frames. A Layer created
// from LRSR is flagged IsCtg and inherits Name/Settings from the layer
// that preceded it.
type Layer struct {
	Name     string
	IsCtg    bool
	Settings Settings
	Images   []*Image
}

// ImageKind is the tag an Image currently carries. ZCHK images
// self-mutate to DBOD or SRAW on first materialization (§3, §4.2).
type ImageKind string

const (
	KindZCHK ImageKind = "ZCHK"
	KindDBOD ImageKind = "DBOD"
	KindSRAW ImageKind = "SRAW"
)

// TileKind classifies how a Tile's pixels are ultimately produced.
type TileKind int

const (
	TileRAW TileKind = iota
	TileRLE
	TileCPY
)

// Tile is one cell of a layer's tile grid, as read from an SRAW image
// body or synthesized when splitting a DBOD raster (§4.6). Dimensions
// for SRAW tiles are filled in lazily from the layer's reference DBOD
// image (images[0]) during resolution, per §4.7 "Dimensions".
type Tile struct {
	Index  int
	Kind   TileKind
	Width  int
	Height int

	RLEBytes  []byte // valid when Kind == TileRLE
	RawPixels []byte // valid when Kind == TileRAW (materialized w*h*4 bytes)

	RefLocal    bool // valid when Kind == TileCPY: intra-image vs cross-image
	LookupIndex int  // valid when Kind == TileCPY
}
