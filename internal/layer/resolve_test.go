package layer

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tvpio/tvpp/internal/rle"
)

func solidPixels(w, h int, r, g, b, a byte) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, a
	}
	return pix
}

func mustEncodeRLE(t *testing.T, pix []byte, w, h int) []byte {
	t.Helper()
	out, err := rle.Encode(pix, w, h)
	require.NoError(t, err)
	return out
}

func dbodImage(t *testing.T, idx, w, h int, r, g, b, a byte) *Image {
	t.Helper()
	raw := mustEncodeRLE(t, solidPixels(w, h, r, g, b, a), w, h)
	return NewImage(idx, KindDBOD, raw, w, h)
}

type tileSpec struct {
	rle         []byte // non-nil => RLE tile
	refLocal    bool
	lookupIndex uint32
	cpy         bool
}

func rleTile(data []byte) tileSpec                    { return tileSpec{rle: data} }
func cpyTile(refLocal bool, lookupIndex uint32) tileSpec {
	return tileSpec{cpy: true, refLocal: refLocal, lookupIndex: lookupIndex}
}

func putU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

// buildSRAWBody encodes a SRAW payload per §4.6. firstInfo occupies the
// "tile dimension" slot (word 0) and thumbSize occupies the
// "thumbnail size" slot (word 1) — both fields double as the image's
// header words per §3, which is how first_info/second_info end up
// aliasing SRAW's own body layout.
func buildSRAWBody(firstInfo, thumbSize uint32, tiles []tileSpec) []byte {
	var buf []byte
	buf = putU32(buf, firstInfo)
	buf = putU32(buf, thumbSize)
	buf = append(buf, make([]byte, thumbSize)...)
	buf = putU32(buf, uint32(len(tiles)))
	for _, ts := range tiles {
		if ts.cpy {
			buf = putU32(buf, 0)
			word1 := uint32(1)
			if ts.refLocal {
				word1 = 0
			}
			buf = putU32(buf, word1)
			buf = putU32(buf, ts.lookupIndex)
		} else {
			buf = putU32(buf, uint32(len(ts.rle)))
			buf = append(buf, ts.rle...)
		}
	}
	return buf
}

func sravImage(idx int, firstInfo, thumbSize uint32, tiles []tileSpec, w, h int) *Image {
	return NewImage(idx, KindSRAW, buildSRAWBody(firstInfo, thumbSize, tiles), w, h)
}

// --- Scenario 1: DBOD-only, two frames, distinct solid colors. ---

func TestSeedScenario1_DBODOnlySolidColors(t *testing.T) {
	l := &Layer{
		Settings: Settings{StartFrame: 0, NumImages: 2},
		Images: []*Image{
			dbodImage(t, 0, 8, 8, 255, 0, 0, 255),
			dbodImage(t, 1, 8, 8, 0, 0, 255, 255),
		},
	}

	f0, err := l.Frame(0)
	require.NoError(t, err)
	requireSolid(t, f0, 255, 0, 0, 255)

	f1, err := l.Frame(1)
	require.NoError(t, err)
	requireSolid(t, f1, 0, 0, 255, 255)
}

func requireSolid(t *testing.T, pix []byte, r, g, b, a byte) {
	t.Helper()
	for i := 0; i < len(pix); i += 4 {
		if pix[i] != r || pix[i+1] != g || pix[i+2] != b || pix[i+3] != a {
			t.Fatalf("pixel at byte %d = %v, want (%d,%d,%d,%d)", i, pix[i:i+4], r, g, b, a)
		}
	}
}

// --- Scenario 2: SRAW delta chain, one RLE tile, rest CPY cross-image. ---
//
// image1 uses first_info=64 (the documented tile-size sentinel, §9):
// this lets it survive the top-level redirection loop (which only
// triggers on first_info ∈ {2,6}) while its own CPY tiles still resolve
// "previous image" as images[index-1], exactly like first_info=6 would.
func TestSeedScenario2_SRAWDeltaChainOneTileChanged(t *testing.T) {
	const w, h = 128, 64 // 2x1 tile grid
	img0 := dbodImage(t, 0, w, h, 10, 20, 30, 255)

	green := solidPixels(TileSize, TileSize, 0, 255, 0, 255)
	tiles := []tileSpec{
		cpyTile(false, 0), // tile 0: cross-image copy from frame 0
		rleTile(mustEncodeRLE(t, green, TileSize, TileSize)),
	}
	img1 := sravImage(1, firstInfoTileSizeSentinel, 0, tiles, w, h)

	l := &Layer{Settings: Settings{StartFrame: 0, NumImages: 2}, Images: []*Image{img0, img1}}

	f0, err := l.Frame(0)
	require.NoError(t, err)
	f1, err := l.Frame(1)
	require.NoError(t, err)

	// Tile 0 of frame 1 must equal tile 0 of frame 0.
	rowStride := w * 4
	for row := 0; row < TileSize; row++ {
		got := f1[row*rowStride : row*rowStride+TileSize*4]
		want := f0[row*rowStride : row*rowStride+TileSize*4]
		require.Equal(t, want, got, "tile 0 row %d should be copied from frame 0", row)
	}
	// Tile 1 of frame 1 must be green.
	for row := 0; row < TileSize; row++ {
		off := row*rowStride + TileSize*4
		got := f1[off : off+TileSize*4]
		requireSolid(t, got, 0, 255, 0, 255)
	}
}

// --- Scenario 3: CPY chain of depth 3, mixing local and cross-image refs. ---

func TestSeedScenario3_CPYChainDepth3(t *testing.T) {
	const w, h = 64, 128 // two stacked tiles: index 0 and index 1
	img0 := dbodImage(t, 0, w, h, 1, 2, 3, 255)
	img1 := sravImage(1, firstInfoTileSizeSentinel, 0, []tileSpec{cpyTile(false, 0), cpyTile(false, 1)}, w, h)
	img2 := sravImage(2, firstInfoTileSizeSentinel, 0, []tileSpec{cpyTile(false, 0), cpyTile(false, 1)}, w, h)
	// img3 tile 1 is a plain cross-image CPY; tile 0 is a local CPY
	// pointing at tile 1, which is itself CPY, so resolving tile 0
	// recurses into the previous image (img2) at the same lookup index.
	img3 := sravImage(3, firstInfoTileSizeSentinel, 0, []tileSpec{
		cpyTile(true, 1),
		cpyTile(false, 1),
	}, w, h)

	l := &Layer{Settings: Settings{StartFrame: 0, NumImages: 4}, Images: []*Image{img0, img1, img2, img3}}

	f0, err := l.Frame(0)
	require.NoError(t, err)
	f3, err := l.Frame(3)
	require.NoError(t, err)
	require.Equal(t, f0, f3)
}

// --- Scenario 4: image redirection via first_info=2, second_info=0. ---

func TestSeedScenario4_ImageRedirectionJumpsToIndex(t *testing.T) {
	const w, h = 16, 16
	img0 := dbodImage(t, 0, w, h, 9, 9, 9, 255)

	// img1 is a pure redirect stub: first_info=2, second_info=0. Its own
	// "tiles" are never consulted because the top-level loop redirects
	// to images[0] before any tile iteration happens.
	stub := make([]byte, 12)
	binary.BigEndian.PutUint32(stub[0:4], firstInfoJumpToSecondInfo)
	binary.BigEndian.PutUint32(stub[4:8], 0)
	img1 := NewImage(1, KindSRAW, stub, w, h)

	l := &Layer{Settings: Settings{StartFrame: 0, NumImages: 2}, Images: []*Image{img0, img1}}

	f0, err := l.Frame(0)
	require.NoError(t, err)
	f1, err := l.Frame(1)
	require.NoError(t, err)
	require.Equal(t, f0, f1)
}

// --- Invariants from §8. ---

func TestZeroFrameFallback(t *testing.T) {
	l := &Layer{Settings: Settings{StartFrame: 5, NumImages: 2}, Images: []*Image{
		dbodImage(t, 0, 4, 4, 1, 1, 1, 1),
		dbodImage(t, 1, 4, 4, 2, 2, 2, 2),
	}}

	for _, idx := range []int{0, 4, 7, 100} {
		raster, err := l.Frame(idx)
		require.NoError(t, err)
		for _, b := range raster {
			if b != 0 {
				t.Fatalf("frame(%d) is out of range but raster has a non-zero byte", idx)
			}
		}
	}
}

func TestFrameIdempotent(t *testing.T) {
	l := &Layer{Settings: Settings{StartFrame: 0, NumImages: 1}, Images: []*Image{
		dbodImage(t, 0, 8, 8, 5, 6, 7, 8),
	}}
	a, err := l.Frame(0)
	require.NoError(t, err)
	b, err := l.Frame(0)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestTileGridTotality(t *testing.T) {
	cases := []struct{ w, h int }{
		{64, 64}, {100, 50}, {128, 128}, {1, 1}, {65, 65},
	}
	for _, c := range cases {
		tilesPerRow, tilesPerCol, total := numTiles(c.w, c.h)
		if tilesPerRow*TileSize*tilesPerCol*TileSize < c.w*c.h {
			t.Errorf("w=%d h=%d: tile grid area smaller than canvas", c.w, c.h)
		}
		if total != tilesPerRow*tilesPerCol {
			t.Errorf("w=%d h=%d: total=%d != tilesPerRow*tilesPerCol=%d", c.w, c.h, total, tilesPerRow*tilesPerCol)
		}
		// Every pixel belongs to exactly one tile: walk tile bounds and
		// make sure they tile the canvas without gaps or overlaps.
		covered := make([]bool, c.w*c.h)
		for i := 0; i < total; i++ {
			w, h := tileBounds(i, tilesPerRow, c.w, c.h)
			x := (i % tilesPerRow) * TileSize
			y := (i / tilesPerRow) * TileSize
			for row := 0; row < h; row++ {
				for col := 0; col < w; col++ {
					idx := (y+row)*c.w + (x + col)
					if covered[idx] {
						t.Fatalf("w=%d h=%d: pixel (%d,%d) covered by more than one tile", c.w, c.h, x+col, y+row)
					}
					covered[idx] = true
				}
			}
		}
		for i, v := range covered {
			if !v {
				t.Fatalf("w=%d h=%d: pixel index %d not covered by any tile", c.w, c.h, i)
			}
		}
	}
}
