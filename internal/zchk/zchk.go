// Package zchk decompresses the multi-block ZCHK wrapper that TVPaint
// puts around a DBOD or SRAW image payload once the clip author enables
// compression. zlib does all the actual inflating; this package only
// walks the outer block table and strips the inner chunk header that
// follows the concatenated inflated blocks.
package zchk

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/tvpio/tvpp/internal/tvperr"
)

const outerHeaderSize = 20

// Result is the decompressed ZCHK payload: the inner 4-ASCII chunk tag
// that follows the concatenated inflated blocks, and the payload bytes
// after it (the real DBOD/SRAW body).
type Result struct {
	InnerTag string
	Payload  []byte
}

// Inflate decompresses a ZCHK blob: a 20-byte outer header (num_blocks
// is a u32 BE at offset 16) followed by that many blocks, each
// {4 reserved bytes, u32 BE uncompressed_size, u32 BE compressed_size,
// compressed_size bytes of zlib data}. The concatenation of all
// inflated blocks begins with an 8-byte inner tag+size that is
// stripped and returned separately from the payload.
func Inflate(data []byte) (*Result, error) {
	if len(data) < outerHeaderSize {
		return nil, tvperr.New(tvperr.KindTruncatedChunk,
			"ZCHK outer header needs %d bytes, have %d", outerHeaderSize, len(data))
	}
	numBlocks := binary.BigEndian.Uint32(data[16:20])

	var out bytes.Buffer
	cursor := outerHeaderSize
	for b := uint32(0); b < numBlocks; b++ {
		const blockHeaderSize = 4 + 4 + 4
		if cursor+blockHeaderSize > len(data) {
			return nil, tvperr.New(tvperr.KindTruncatedChunk,
				"ZCHK block %d header at offset %d exceeds stream of %d bytes", b, cursor, len(data))
		}
		uncompressedSize := binary.BigEndian.Uint32(data[cursor+4 : cursor+8])
		compressedSize := binary.BigEndian.Uint32(data[cursor+8 : cursor+12])
		cursor += blockHeaderSize

		if cursor+int(compressedSize) > len(data) {
			return nil, tvperr.New(tvperr.KindTruncatedChunk,
				"ZCHK block %d declares %d compressed bytes but only %d remain", b, compressedSize, len(data)-cursor)
		}
		blockData := data[cursor : cursor+int(compressedSize)]
		cursor += int(compressedSize)

		zr, err := zlib.NewReader(bytes.NewReader(blockData))
		if err != nil {
			return nil, tvperr.Wrap(tvperr.KindInflate, err, "ZCHK block %d: zlib open", b)
		}
		n, err := io.Copy(&out, zr)
		zr.Close()
		if err != nil {
			return nil, tvperr.Wrap(tvperr.KindInflate, err, "ZCHK block %d: inflate", b)
		}
		if uint32(n) != uncompressedSize {
			return nil, tvperr.New(tvperr.KindInflate,
				"ZCHK block %d inflated to %d bytes, declared %d", b, n, uncompressedSize)
		}
	}

	combined := out.Bytes()
	if len(combined) < 8 {
		return nil, tvperr.New(tvperr.KindTruncatedChunk,
			"ZCHK inflated payload too short for inner tag+size (%d bytes)", len(combined))
	}
	return &Result{
		InnerTag: string(combined[0:4]),
		Payload:  combined[8:],
	}, nil
}
