package container

import (
	"log"

	"github.com/tvpio/tvpp/internal/tvperr"
)

// Node is one entry in the parsed container tree. Container nodes hold
// Children; data (leaf) nodes hold PayloadOffset/PayloadSize describing
// a byte range in the backing file that is read lazily by later
// pipeline stages (internal/clip, internal/layer) — no payload bytes
// are copied while building the tree, matching the "no payload copy"
// responsibility called out for this component.
type Node struct {
	Kind          Kind
	Tag           [4]byte
	IsContainer   bool
	PayloadOffset int64
	PayloadSize   int64
	Children      []*Node
}

// ParseTree walks data (the full backing byte source, typically an
// mmap'd file) starting at offset 0 and returns the root node plus
// every descendant. logger receives one Printf call per tolerated
// unknown header; pass nil to use log.Default().
func ParseTree(data []byte, logger *log.Logger) (*Node, error) {
	if logger == nil {
		logger = log.Default()
	}
	root, _, err := parseNode(data, 0, logger)
	return root, err
}

// parseNode decodes the header at offset, and — if it is a container —
// recursively parses its children. It returns the node and the total
// number of bytes consumed (header + payload/children), so the caller
// can advance its own cursor by exactly that amount.
func parseNode(data []byte, offset int64, logger *log.Logger) (*Node, int64, error) {
	if offset+HeaderSize > int64(len(data)) {
		return nil, 0, errTruncatedHeader(len(data) - int(offset))
	}
	hdr, err := decodeHeader(data[offset : offset+HeaderSize])
	if err != nil {
		return nil, 0, err
	}

	payloadStart := offset + HeaderSize
	if !hdr.known {
		logger.Printf("tvpp: unknown node magic % X at offset %d, skipping %d bytes", hdr.tag, offset, hdr.size)
		return nil, HeaderSize + int64(hdr.size), nil
	}
	if payloadStart+int64(hdr.size) > int64(len(data)) {
		return nil, 0, tvperr.New(tvperr.KindTruncatedChunk,
			"node %s at offset %d declares %d bytes, only %d remain", hdr.kind, offset, hdr.size, int64(len(data))-payloadStart)
	}

	node := &Node{Kind: hdr.kind, Tag: hdr.tag, IsContainer: hdr.isContainer}

	if !hdr.isContainer {
		node.PayloadOffset = payloadStart
		node.PayloadSize = int64(hdr.size)
		return node, HeaderSize + int64(hdr.size), nil
	}

	end := payloadStart + int64(hdr.size)
	cursor := payloadStart
	for cursor < end {
		child, consumed, err := parseNode(data, cursor, logger)
		if err != nil {
			return nil, 0, err
		}
		if child != nil {
			node.Children = append(node.Children, child)
		}
		cursor += consumed
	}
	return node, HeaderSize + int64(hdr.size), nil
}

// Find returns the first direct child of n with the given kind, or nil.
func (n *Node) Find(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// FindAll returns every direct child of n with the given kind.
func (n *Node) FindAll(kind Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}
