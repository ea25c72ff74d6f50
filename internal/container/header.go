// Package container walks the outer 24-byte-header tree that forms the
// backbone of a .tvpp file. Every node — project, scene, clip, and the
// metadata/thumbnail/sound/label/object leaves around them — begins
// with the same fixed-layout header: a plain struct decoded with an
// explicit byte layout, no reflection or struct tags.
package container

import "encoding/binary"

// HeaderSize is the fixed byte length of every node header.
const HeaderSize = 24

// Two known signatures at bytes [10..16). The second distinguishes
// newer TVPaint formats; both are accepted.
var (
	signatureV1 = [6]byte{0x00, 0x0F, 0x1F, 0x02, 0x19, 0x1B}
	signatureV2 = [6]byte{0x00, 0x10, 0x5A, 0xAF, 0xAA, 0xAB}
)

// Kind classifies a node by its magic tag.
type Kind int

const (
	KindUnknown Kind = iota
	KindProject
	KindProjectInfo
	KindThumbnail
	KindThumbnailInfo
	KindThumbnailData
	KindSoundInfo
	KindLabelInfo
	KindZeros
	KindObjectContainer
	KindObject
	KindObjectInfo
	KindScene
	KindSceneInfo
	KindClip
	KindClipInfo
	KindClipData
)

func (k Kind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindProjectInfo:
		return "project-info"
	case KindThumbnail:
		return "thumbnail"
	case KindThumbnailInfo:
		return "thumbnail-info"
	case KindThumbnailData:
		return "thumbnail-data"
	case KindSoundInfo:
		return "sound-info"
	case KindLabelInfo:
		return "label-info"
	case KindZeros:
		return "zeros"
	case KindObjectContainer:
		return "object-container"
	case KindObject:
		return "object"
	case KindObjectInfo:
		return "object-info"
	case KindScene:
		return "scene"
	case KindSceneInfo:
		return "scene-info"
	case KindClip:
		return "clip"
	case KindClipInfo:
		return "clip-info"
	case KindClipData:
		return "clip-data"
	default:
		return "unknown"
	}
}

type magicEntry struct {
	tag         [4]byte
	kind        Kind
	isContainer bool
}

// magicTable is the fixed tag -> (kind, is_container) mapping from the
// external-interfaces section of the format description. Order does
// not matter; lookups go through magicByTag below.
var magicTable = []magicEntry{
	{[4]byte{0x33, 0x84, 0x78, 0x0E}, KindProject, true},
	{[4]byte{0x33, 0x85, 0x55, 0x3A}, KindProjectInfo, false},
	{[4]byte{0x33, 0x8C, 0x4E, 0xE4}, KindThumbnail, true},
	{[4]byte{0x33, 0x8A, 0x96, 0x08}, KindThumbnailInfo, false},
	{[4]byte{0x33, 0x8B, 0x71, 0x54}, KindThumbnailData, false},
	{[4]byte{0x04, 0x56, 0x69, 0x28}, KindSoundInfo, false},
	{[4]byte{0x33, 0x8E, 0x0A, 0xEA}, KindLabelInfo, false},
	{[4]byte{0x33, 0xFB, 0x9B, 0xE6}, KindZeros, false},
	{[4]byte{0xE5, 0xC8, 0xE0, 0x7A}, KindObjectContainer, true},
	{[4]byte{0xE5, 0xCA, 0xDE, 0xAC}, KindObject, false},
	{[4]byte{0xE5, 0xCB, 0x5E, 0x68}, KindObjectInfo, false},
	{[4]byte{0x33, 0x86, 0x31, 0xB2}, KindScene, true},
	{[4]byte{0x33, 0x88, 0xDA, 0x98}, KindSceneInfo, false},
	{[4]byte{0x33, 0x89, 0xB8, 0x46}, KindClip, true},
	{[4]byte{0x33, 0x87, 0xE3, 0x4A}, KindClipInfo, false},
	{[4]byte{0x33, 0x87, 0x11, 0x54}, KindClipData, false},
}

var magicByTag = func() map[[4]byte]magicEntry {
	m := make(map[[4]byte]magicEntry, len(magicTable))
	for _, e := range magicTable {
		m[e.tag] = e
	}
	return m
}()

// header is the decoded fixed-layout node header.
type header struct {
	tag         [4]byte
	kind        Kind
	isContainer bool
	known       bool
	size        uint64
}

// decodeHeader parses a 24-byte header from buf[0:24]. It validates
// the signature at bytes [10..16) but does not require the magic tag
// to be known — unknown tags are reported via known=false so the
// caller can log-and-skip per the tolerated UnknownHeader policy.
func decodeHeader(buf []byte) (header, error) {
	if len(buf) < HeaderSize {
		return header{}, errTruncatedHeader(len(buf))
	}

	var sig [6]byte
	copy(sig[:], buf[10:16])
	if sig != signatureV1 && sig != signatureV2 {
		return header{}, errInvalidSignature(sig)
	}

	var tag [4]byte
	copy(tag[:], buf[0:4])
	size := binary.BigEndian.Uint64(buf[16:24])

	entry, ok := magicByTag[tag]
	if !ok {
		return header{tag: tag, known: false, size: size}, nil
	}
	return header{tag: tag, kind: entry.kind, isContainer: entry.isContainer, known: true, size: size}, nil
}
