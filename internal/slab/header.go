package slab

import (
	"encoding/binary"
	"fmt"

	"github.com/critbook/matching-engine/internal/accounttag"
)

// HeaderSize is the on-disk size of SlabHeader: tag(8) + six u32 counters/
// indices(24) + root_node(4) + leaf_count(4) = 40 bytes, already 8-aligned.
const HeaderSize = 40

// LeafSlotSize is the on-disk size of a LeafSlot: key(16) + base_quantity(8).
const LeafSlotSize = 24

// InnerSlotSize is the on-disk size of an InnerSlot: key(16) + prefix_len(8)
// + two child handles(8).
const InnerSlotSize = 32

// Header is the decoded form of a Slab's fixed preamble.
type Header struct {
	Tag               accounttag.Tag
	LeafFreeListLen   uint32
	LeafFreeListHead  uint32
	LeafBumpIndex     uint32
	InnerFreeListLen  uint32
	InnerFreeListHead uint32
	InnerBumpIndex    uint32
	RootNode          Handle
	LeafCount         uint32
}

func decodeHeader(b []byte) Header {
	return Header{
		Tag:               accounttag.Tag(binary.LittleEndian.Uint64(b[0:8])),
		LeafFreeListLen:   binary.LittleEndian.Uint32(b[8:12]),
		LeafFreeListHead:  binary.LittleEndian.Uint32(b[12:16]),
		LeafBumpIndex:     binary.LittleEndian.Uint32(b[16:20]),
		InnerFreeListLen:  binary.LittleEndian.Uint32(b[20:24]),
		InnerFreeListHead: binary.LittleEndian.Uint32(b[24:28]),
		InnerBumpIndex:    binary.LittleEndian.Uint32(b[28:32]),
		RootNode:          Handle(binary.LittleEndian.Uint32(b[32:36])),
		LeafCount:         binary.LittleEndian.Uint32(b[36:40]),
	}
}

func encodeHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(h.Tag))
	binary.LittleEndian.PutUint32(b[8:12], h.LeafFreeListLen)
	binary.LittleEndian.PutUint32(b[12:16], h.LeafFreeListHead)
	binary.LittleEndian.PutUint32(b[16:20], h.LeafBumpIndex)
	binary.LittleEndian.PutUint32(b[20:24], h.InnerFreeListLen)
	binary.LittleEndian.PutUint32(b[24:28], h.InnerFreeListHead)
	binary.LittleEndian.PutUint32(b[28:32], h.InnerBumpIndex)
	binary.LittleEndian.PutUint32(b[32:36], uint32(h.RootNode))
	binary.LittleEndian.PutUint32(b[36:40], h.LeafCount)
}

// String renders a Header for debugging, not part of the wire format.
func (h Header) String() string {
	return fmt.Sprintf("%s slab: %d leaves, root=%v", h.Tag, h.LeafCount, h.RootNode)
}
