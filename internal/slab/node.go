package slab

import (
	"encoding/binary"

	"github.com/critbook/matching-engine/internal/slabkey"
)

// LeafNode is a resting order: its 128-bit key and remaining base quantity.
// Per-leaf callback info lives in a parallel array, not in this struct — see
// Slab.CallbackInfo.
type LeafNode struct {
	Key     slabkey.Key
	BaseQty uint64
}

// InnerNode is a crit-bit branch: the shared prefix of both subtrees, how
// many bits of it matter, and the two children (left = bit 0, right = bit 1
// at position PrefixLen).
type InnerNode struct {
	Prefix    slabkey.Key
	PrefixLen uint64
	Left      Handle
	Right     Handle
}

func decodeLeaf(b []byte) LeafNode {
	return LeafNode{
		Key:     slabkey.FromBytes(b[0:16]),
		BaseQty: binary.LittleEndian.Uint64(b[16:24]),
	}
}

func encodeLeaf(b []byte, n LeafNode) {
	n.Key.PutBytes(b[0:16])
	binary.LittleEndian.PutUint64(b[16:24], n.BaseQty)
}

// leafFreeNext/encodeLeafFreeNext reuse a freed leaf slot's quantity field to
// thread the free list, the same way a freed inner node's Left child is
// reused below. Neither field means anything while the slot is free.
func leafFreeNext(b []byte) uint32 {
	return uint32(binary.LittleEndian.Uint64(b[16:24]))
}

func encodeLeafFreeNext(b []byte, next uint32) {
	binary.LittleEndian.PutUint64(b[16:24], uint64(next))
}

func decodeInner(b []byte) InnerNode {
	return InnerNode{
		Prefix:    slabkey.FromBytes(b[0:16]),
		PrefixLen: binary.LittleEndian.Uint64(b[16:24]),
		Left:      Handle(binary.LittleEndian.Uint32(b[24:28])),
		Right:     Handle(binary.LittleEndian.Uint32(b[28:32])),
	}
}

func encodeInner(b []byte, n InnerNode) {
	n.Prefix.PutBytes(b[0:16])
	binary.LittleEndian.PutUint64(b[16:24], n.PrefixLen)
	binary.LittleEndian.PutUint32(b[24:28], uint32(n.Left))
	binary.LittleEndian.PutUint32(b[28:32], uint32(n.Right))
}

// innerFreeNext/encodeInnerFreeNext reuse a freed inner slot's Left field to
// thread the free list.
func innerFreeNext(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b[24:28])
}

func encodeInnerFreeNext(b []byte, next uint32) {
	binary.LittleEndian.PutUint32(b[24:28], next)
}
