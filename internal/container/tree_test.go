package container

import (
	"bytes"
	"encoding/binary"
	"log"
	"testing"
)

// buildNode encodes a single node header followed by payload bytes
// (for a data node) or pre-built child bytes (for a container node).
func buildNode(tag [4]byte, body []byte) []byte {
	var buf bytes.Buffer
	buf.Write(tag[:])
	buf.Write(make([]byte, 6)) // reserved
	buf.Write(signatureV1[:])
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(body)))
	buf.Write(size[:])
	buf.Write(body)
	return buf.Bytes()
}

func TestParseTreeProjectWithInfoChild(t *testing.T) {
	infoPayload := []byte("fake utf16 dict bytes")
	infoNode := buildNode([4]byte{0x33, 0x85, 0x55, 0x3A}, infoPayload)
	projectNode := buildNode([4]byte{0x33, 0x84, 0x78, 0x0E}, infoNode)

	root, err := ParseTree(projectNode, nil)
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if root.Kind != KindProject {
		t.Fatalf("root.Kind = %v, want project", root.Kind)
	}
	if !root.IsContainer {
		t.Fatal("project node should be a container")
	}
	if len(root.Children) != 1 {
		t.Fatalf("children = %d, want 1", len(root.Children))
	}
	child := root.Children[0]
	if child.Kind != KindProjectInfo {
		t.Fatalf("child.Kind = %v, want project-info", child.Kind)
	}
	if child.PayloadSize != int64(len(infoPayload)) {
		t.Errorf("PayloadSize = %d, want %d", child.PayloadSize, len(infoPayload))
	}
	got := projectNode[child.PayloadOffset : child.PayloadOffset+child.PayloadSize]
	if !bytes.Equal(got, infoPayload) {
		t.Errorf("payload bytes mismatch: got %q, want %q", got, infoPayload)
	}
}

func TestParseTreeInvalidSignatureErrors(t *testing.T) {
	node := buildNode([4]byte{0x33, 0x84, 0x78, 0x0E}, nil)
	node[10] = 0xFF // corrupt the signature
	if _, err := ParseTree(node, nil); err == nil {
		t.Fatal("expected invalid signature error")
	}
}

func TestParseTreeUnknownMagicIsToleratedAndSkipped(t *testing.T) {
	unknown := buildNode([4]byte{0xAA, 0xBB, 0xCC, 0xDD}, []byte("junk"))
	known := buildNode([4]byte{0x33, 0x85, 0x55, 0x3A}, []byte("ok"))
	body := append(append([]byte{}, unknown...), known...)
	project := buildNode([4]byte{0x33, 0x84, 0x78, 0x0E}, body)

	root, err := ParseTree(project, log.Default())
	if err != nil {
		t.Fatalf("ParseTree: %v", err)
	}
	if len(root.Children) != 1 {
		t.Fatalf("children = %d, want 1 (unknown node should be skipped, not added)", len(root.Children))
	}
	if root.Children[0].Kind != KindProjectInfo {
		t.Errorf("surviving child kind = %v", root.Children[0].Kind)
	}
}

func TestParseTreeTruncatedChunkErrors(t *testing.T) {
	node := buildNode([4]byte{0x33, 0x84, 0x78, 0x0E}, nil)
	// Declare a size larger than what follows.
	binary.BigEndian.PutUint64(node[16:24], 1000)
	if _, err := ParseTree(node, nil); err == nil {
		t.Fatal("expected truncated chunk error")
	}
}
