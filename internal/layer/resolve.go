package layer

import (
	"github.com/tvpio/tvpp/internal/rle"
	"github.com/tvpio/tvpp/internal/tvperr"
)

// firstInfoJumpToSecondInfo and firstInfoJumpToPrevious are the two
// first_info values that drive image redirection (§4.7 step 1).
const (
	firstInfoJumpToSecondInfo = 2
	firstInfoJumpToPrevious   = 6
	// firstInfoTileSizeSentinel is the ambiguous "== tile_size (64)"
	// case §9 documents as observed in one source variant and absent in
	// others; this implementation treats it as equivalent to
	// firstInfoJumpToPrevious, matching the decision recorded in
	// SPEC_FULL.md's Open Questions.
	firstInfoTileSizeSentinel = 64
)

// Frame materializes the RGBA raster for frame index f of this layer,
// per §4.7's top-level algorithm. An out-of-range index is not an
// error: it returns a zero-filled transparent raster of the layer's
// canvas size.
func (l *Layer) Frame(f int) ([]byte, error) {
	idx := f - l.Settings.StartFrame
	if idx < 0 || idx >= len(l.Images) {
		w, h := l.canvasSize()
		return make([]byte, w*h*4), nil
	}
	return l.constructImage(idx)
}

func (l *Layer) canvasSize() (int, int) {
	if len(l.Images) == 0 {
		return 0, 0
	}
	return l.Images[0].Width, l.Images[0].Height
}

// Dimensions returns the layer's canvas (width, height), taken from
// its reference DBOD image.
func (l *Layer) Dimensions() (int, int) {
	return l.canvasSize()
}

// constructImage implements §4.7 steps 1-3: follow the redirection
// chain (which ends at a DBOD image or at the first image whose
// first_info is not 2 or 6), composite every tile of that image into a
// result raster in ascending tile-index order, and memoize the result.
func (l *Layer) constructImage(idx int) ([]byte, error) {
	im := l.Images[idx]
	if im.resultBuilt {
		return im.result, nil
	}

	resolved, err := l.followRedirection(im)
	if err != nil {
		return nil, err
	}

	tiles, err := resolved.Tiles()
	if err != nil {
		return nil, err
	}

	w, h := l.canvasSize()
	result := make([]byte, w*h*4)
	tilesPerRow, _, _ := numTiles(w, h)
	rowStride := w * 4

	for _, t := range tiles {
		block, bw, bh, err := l.resolveTile(resolved, t, newVisitedSet())
		if err != nil {
			return nil, err
		}
		x := (t.Index % tilesPerRow) * TileSize
		y := (t.Index / tilesPerRow) * TileSize
		blitTile(result, rowStride, x, y, block, bw, bh)
	}

	im.result = result
	im.resultBuilt = true
	return result, nil
}

func blitTile(dst []byte, rowStride, x, y int, block []byte, bw, bh int) {
	for row := 0; row < bh; row++ {
		dstOff := (y+row)*rowStride + x*4
		srcOff := row * bw * 4
		copy(dst[dstOff:dstOff+bw*4], block[srcOff:srcOff+bw*4])
	}
}

// followRedirection walks the first_info jump chain until it reaches a
// DBOD image or first_info falls outside {2, 6}, per §4.7 step 1. The
// chain is bounded by len(l.Images) steps; a longer chain indicates a
// cycle or malformed input.
func (l *Layer) followRedirection(im *Image) (*Image, error) {
	cur := im
	for steps := 0; ; steps++ {
		if cur.Kind == KindDBOD {
			return cur, nil
		}
		firstInfo, err := cur.FirstInfo()
		if err != nil {
			return nil, err
		}
		if firstInfo != firstInfoJumpToSecondInfo && firstInfo != firstInfoJumpToPrevious {
			return cur, nil
		}
		if steps >= len(l.Images) {
			return nil, tvperr.New(tvperr.KindImageRedirectCycle,
				"image %d redirection did not terminate within %d steps", im.IndexInLayer, len(l.Images))
		}

		var nextIdx int
		if firstInfo == firstInfoJumpToSecondInfo {
			secondInfo, err := cur.SecondInfo()
			if err != nil {
				return nil, err
			}
			nextIdx = int(secondInfo)
		} else {
			nextIdx = cur.IndexInLayer - 1
		}
		if nextIdx < 0 || nextIdx >= len(l.Images) {
			return nil, tvperr.New(tvperr.KindOutOfRange,
				"image %d redirection jumped to out-of-range index %d", cur.IndexInLayer, nextIdx)
		}
		cur = l.Images[nextIdx]
	}
}

// prevImage computes the "previous image" a CPY tile's cross-image
// reference resolves against, per §4.7's resolve_tile CPY branch.
func (l *Layer) prevImage(im *Image) (*Image, error) {
	firstInfo, err := im.FirstInfo()
	if err != nil {
		return nil, err
	}
	switch {
	case firstInfo == firstInfoJumpToSecondInfo:
		secondInfo, err := im.SecondInfo()
		if err != nil {
			return nil, err
		}
		idx := int(secondInfo)
		if idx < 0 || idx >= len(l.Images) {
			return nil, tvperr.New(tvperr.KindOutOfRange, "image %d second_info %d out of range", im.IndexInLayer, idx)
		}
		return l.Images[idx], nil
	case firstInfo == firstInfoJumpToPrevious || firstInfo == firstInfoTileSizeSentinel:
		idx := im.IndexInLayer - 1
		if idx < 0 {
			return nil, tvperr.New(tvperr.KindOutOfRange, "image %d has no previous image", im.IndexInLayer)
		}
		return l.Images[idx], nil
	default:
		return nil, tvperr.New(tvperr.KindUnknownFirstInfo, "image %d first_info=%d is not 2, 6, or 64", im.IndexInLayer, firstInfo)
	}
}

// visitedKey identifies one (image, tile) pair for cycle detection
// during resolveTile recursion, per the design note in §9.
type visitedKey struct {
	imageIndex int
	tileIndex  int
}

func newVisitedSet() map[visitedKey]bool { return make(map[visitedKey]bool) }

// resolveTile resolves a single tile to its materialized RGBA block,
// per §4.7's resolve_tile. visited guards against a malformed chain
// that would otherwise recurse indefinitely.
func (l *Layer) resolveTile(im *Image, t *Tile, visited map[visitedKey]bool) ([]byte, int, int, error) {
	key := visitedKey{im.IndexInLayer, t.Index}
	if visited[key] {
		return nil, 0, 0, tvperr.New(tvperr.KindImageRedirectCycle,
			"tile %d of image %d revisited during resolution", t.Index, im.IndexInLayer)
	}
	visited[key] = true

	// Dimensions: SRAW tiles borrow geometry from the reference DBOD
	// image's same-index tile (§4.7 "Dimensions").
	w, h := t.Width, t.Height
	if im.Kind != KindDBOD {
		refTiles, err := l.Images[0].Tiles()
		if err != nil {
			return nil, 0, 0, err
		}
		if t.Index < 0 || t.Index >= len(refTiles) {
			return nil, 0, 0, tvperr.New(tvperr.KindOutOfRange, "tile %d out of range of reference image", t.Index)
		}
		w, h = refTiles[t.Index].Width, refTiles[t.Index].Height
		t.Width, t.Height = w, h
	}

	switch t.Kind {
	case TileRAW:
		return t.RawPixels, w, h, nil

	case TileRLE:
		pix, err := rle.Decode(t.RLEBytes, w, h)
		if err != nil {
			return nil, 0, 0, err
		}
		return pix, w, h, nil

	case TileCPY:
		if t.RefLocal {
			tiles, err := im.Tiles()
			if err != nil {
				return nil, 0, 0, err
			}
			j := t.LookupIndex
			if j < 0 || j >= len(tiles) {
				return nil, 0, 0, tvperr.New(tvperr.KindOutOfRange, "CPY lookup_index %d out of range in image %d", j, im.IndexInLayer)
			}
			r := tiles[j]
			if r.Kind == TileCPY {
				// r is itself a reference, so resolution recurses into the
				// previous image at the same lookup index instead of
				// reading im.result. No ordering constraint applies here:
				// a local CPY may legally point forward to a higher
				// index tile that is itself CPY.
				prev, err := l.prevImage(im)
				if err != nil {
					return nil, 0, 0, err
				}
				prevTiles, err := prev.Tiles()
				if err != nil {
					return nil, 0, 0, err
				}
				if j >= len(prevTiles) {
					return nil, 0, 0, tvperr.New(tvperr.KindOutOfRange, "lookup_index %d out of range in previous image", j)
				}
				return l.resolveTile(prev, prevTiles[j], visited)
			}
			// r is RAW/RLE: copy it out of im.result when this image has
			// already been composed, otherwise resolve r directly.
			// Composition proceeds in ascending tile index, so a local
			// reference to a RAW/RLE tile must satisfy j < t.Index; assert
			// that here (§4.7).
			if j >= t.Index {
				return nil, 0, 0, tvperr.New(tvperr.KindOutOfRange,
					"CPY local lookup_index %d must be less than tile index %d", j, t.Index)
			}
			if im.resultBuilt {
				return sliceTileFromResult(im.result, l, j), r.Width, r.Height, nil
			}
			return l.resolveTile(im, r, visited)
		}

		// Cross-image copy: recurse on the previous image's same-index tile.
		prev, err := l.prevImage(im)
		if err != nil {
			return nil, 0, 0, err
		}
		prevTiles, err := prev.Tiles()
		if err != nil {
			return nil, 0, 0, err
		}
		if t.Index >= len(prevTiles) {
			return nil, 0, 0, tvperr.New(tvperr.KindOutOfRange, "tile index %d out of range in previous image", t.Index)
		}
		return l.resolveTile(prev, prevTiles[t.Index], visited)

	default:
		return nil, 0, 0, tvperr.New(tvperr.KindIO, "tile %d has unknown kind %d", t.Index, t.Kind)
	}
}

// sliceTileFromResult extracts tile j's pixels back out of an already
// composed result raster.
func sliceTileFromResult(result []byte, l *Layer, j int) []byte {
	w, height := l.canvasSize()
	tilesPerRow, _, _ := numTiles(w, height)

	x := (j % tilesPerRow) * TileSize
	y := (j / tilesPerRow) * TileSize
	bw := TileSize
	if x+bw > w {
		bw = w - x
	}
	bh := TileSize
	if y+bh > height {
		bh = height - y
	}

	rowStride := w * 4
	out := make([]byte, bw*bh*4)
	for row := 0; row < bh; row++ {
		srcOff := (y+row)*rowStride + x*4
		dstOff := row * bw * 4
		copy(out[dstOff:dstOff+bw*4], result[srcOff:srcOff+bw*4])
	}
	return out
}
