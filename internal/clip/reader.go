package clip

import (
	"bytes"
	"encoding/binary"
	"log"

	"github.com/tvpio/tvpp/internal/layer"
	"github.com/tvpio/tvpp/internal/tvperr"
)

const (
	preambleSize    = 12
	chunkHeaderSize = 8
)

// Read decodes one clip-data payload per §4.5: a 12-byte form preamble
// followed by a sequence of 8-byte ident+size chunks, odd sizes
// rounded up to the next even value on cursor advance. Unknown idents
// are tolerated and logged; structural truncation is fatal.
func Read(data []byte, logger *log.Logger) (*Clip, error) {
	if logger == nil {
		logger = log.Default()
	}
	if len(data) < preambleSize {
		return nil, tvperr.New(tvperr.KindTruncatedChunk, "clip-data payload shorter than the %d-byte form preamble", preambleSize)
	}
	formSize := binary.BigEndian.Uint32(data[4:8])

	c := &Clip{Metadata: make(map[string][]byte)}
	var layers []*layer.Layer
	layerIndex := -1

	offset := uint32(preambleSize)
	for offset < formSize {
		if int(offset)+chunkHeaderSize > len(data) {
			return nil, tvperr.New(tvperr.KindTruncatedChunk, "clip chunk header truncated at offset %d", offset)
		}
		ident := string(data[offset : offset+4])
		size := binary.BigEndian.Uint32(data[offset+4 : offset+8])
		offset += chunkHeaderSize

		if int64(offset)+int64(size) > int64(len(data)) {
			return nil, tvperr.New(tvperr.KindTruncatedChunk, "clip chunk %q declares %d bytes, exceeding payload", ident, size)
		}
		body := data[offset : offset+size]
		offset += size
		if size%2 != 0 {
			offset++ // padding byte, not part of body
		}

		switch ident {
		case "DLOC":
			w, h, err := decodeDLOC(body)
			if err != nil {
				return nil, err
			}
			c.Width, c.Height = w, h
		case "BGP1":
			copy(c.BGP1[:], body)
		case "BGP2":
			copy(c.BGP2[:], body)
		case "ARAT":
			c.Arat = append([]byte(nil), body...)
		case "DGBL", "DPEL", "BGMD", "CRLR", "ANNO", "FRAT", "FILD", "MARK", "XSHT", "TLNT":
			c.Metadata[ident] = append([]byte(nil), body...)

		case "LNAM":
			layerIndex++
			name := decodeLNAM(body)
			layers = append(layers, &layer.Layer{Name: name})

		case "LRHD", "LRSH":
			if layerIndex < 0 || layerIndex >= len(layers) {
				return nil, tvperr.New(tvperr.KindIO, "%s chunk with no preceding LNAM", ident)
			}
			settings, err := decodeLRHD(body)
			if err != nil {
				return nil, err
			}
			layers[layerIndex].Settings = settings

		case "LRSR":
			if layerIndex < 0 {
				return nil, tvperr.New(tvperr.KindIO, "orphan LRSR with no preceding LNAM/LRSH")
			}
			prev := layers[layerIndex]
			layerIndex++
			layers = append(layers, &layer.Layer{
				Name:     prev.Name,
				Settings: prev.Settings,
				IsCtg:    true,
			})

		case "ZCHK", "DBOD", "SRAW":
			if layerIndex < 0 || layerIndex >= len(layers) {
				return nil, tvperr.New(tvperr.KindIO, "%s chunk with no preceding LNAM", ident)
			}
			l := layers[layerIndex]
			kind := layer.ImageKind(ident)
			img := layer.NewImage(len(l.Images), kind, append([]byte(nil), body...), c.Width, c.Height)
			l.Images = append(l.Images, img)

		case "LEXT":
			// Image-UID dictionary in the UTF-8 ini-like format that
			// dict.ParseINI reads. It is not decoded here: the raw bytes
			// are kept in the clip's Metadata under "LEXT", and a later
			// layer's LEXT replaces an earlier one's.
			if layerIndex >= 0 && layerIndex < len(layers) {
				c.Metadata["LEXT"] = append([]byte(nil), body...)
			}

		default:
			logger.Printf("clip: unknown chunk ident %q (%d bytes), skipping", ident, size)
		}
	}

	for i, l := range layers {
		if l.Settings.NumImages != len(l.Images) {
			logger.Printf("clip: layer %d (%q) LRHD declares %d image(s), found %d",
				i, l.Name, l.Settings.NumImages, len(l.Images))
		}
	}

	c.Layers = layers
	return c, nil
}

func decodeDLOC(data []byte) (width, height int, err error) {
	if len(data) < 8 {
		return 0, 0, tvperr.New(tvperr.KindTruncatedChunk, "DLOC payload shorter than 8 bytes")
	}
	width = int(binary.BigEndian.Uint16(data[0:2]))
	height = int(binary.BigEndian.Uint16(data[2:4]))
	return width, height, nil
}

func decodeLNAM(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return string(data)
}

const lrhdWordCount = 52

// decodeLRHD interprets the always-104-byte LRHD/LRSH payload as 52
// big-endian u16 words per §3.
func decodeLRHD(data []byte) (layer.Settings, error) {
	if len(data) < lrhdWordCount*2 {
		return layer.Settings{}, tvperr.New(tvperr.KindTruncatedChunk,
			"LRHD payload is %d bytes, want at least %d", len(data), lrhdWordCount*2)
	}
	word := func(n int) uint16 { return binary.BigEndian.Uint16(data[n*2 : n*2+2]) }
	w15 := word(15)
	return layer.Settings{
		NumImages:    int(word(7)),
		StartFrame:   int(word(3)),
		EndFrame:     int(word(5)),
		Transparency: int(word(9)),
		Visible:      w15&0x0001 != 0,
		Locked:       w15&0x0010 != 0,
		BlendMode:    int(word(30)),
	}, nil
}
