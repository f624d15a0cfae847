// Package slab implements the crit-bit tree priority index described in the
// spec: an arena-backed radix tree over 128-bit order keys, living entirely
// inside one pre-sized byte region, with no heap allocation once the region
// is handed in.
//
// This is the Go-idiomatic reading of the teacher's red-black-tree order
// book (internal/orderbook/{rbtree,pricelevel}.go in the retrieval pack): the
// same min/max-cached, ordered-index-over-a-sortable-key idea, but the
// backing store is a byte slice addressed by integer handles instead of a
// pointer-linked tree, and the thing being indexed is a single order's
// 128-bit (price, seq) key rather than a price level holding a FIFO of
// orders — one order book side is one Slab, already priced and time-ordered
// by construction of the key (see internal/slabkey).
package slab

import (
	"fmt"

	"github.com/critbook/matching-engine/internal/accounttag"
	"github.com/critbook/matching-engine/internal/slabkey"
)

// Slab is a crit-bit tree over a caller-owned byte region.
type Slab struct {
	buf   []byte
	cbLen uint64
	cap   uint32 // leaf capacity: usable leaf indices are 1..cap
}

// Capacity computes the leaf capacity a region of length bufLen can hold
// given a per-order callback info length, solving:
//
//	bufLen = HeaderSize + (cap+1)*LeafSlotSize + cap*InnerSlotSize + (cap+1)*cbLen
func Capacity(bufLen int, cbLen uint64) (uint32, error) {
	fixed := int64(HeaderSize) + int64(LeafSlotSize) + int64(cbLen)
	if int64(bufLen) < fixed {
		return 0, ErrRegionTooSmall
	}
	remaining := int64(bufLen) - fixed
	perSlot := int64(LeafSlotSize) + int64(InnerSlotSize) + int64(cbLen)
	cap := remaining / perSlot
	if cap < 1 {
		return 0, ErrRegionTooSmall
	}
	return uint32(cap), nil
}

func regionSize(cap uint32, cbLen uint64) int64 {
	return int64(HeaderSize) +
		int64(cap+1)*int64(LeafSlotSize) +
		int64(cap)*int64(InnerSlotSize) +
		int64(cap+1)*int64(cbLen)
}

// New initializes an empty slab inside buf, tagged tag (Bids or Asks).
func New(buf []byte, cbLen uint64, tag accounttag.Tag) (*Slab, error) {
	cap, err := Capacity(len(buf), cbLen)
	if err != nil {
		return nil, err
	}
	s := &Slab{buf: buf, cbLen: cbLen, cap: cap}
	s.setHeader(Header{
		Tag:              tag,
		LeafBumpIndex:    1, // index 0 is the permanent null sentinel
		InnerBumpIndex:   0,
		RootNode:         NullHandle,
	})
	return s, nil
}

// Open attaches to an already-initialized slab region.
func Open(buf []byte, cbLen uint64) (*Slab, error) {
	cap, err := Capacity(len(buf), cbLen)
	if err != nil {
		return nil, err
	}
	return &Slab{buf: buf, cbLen: cbLen, cap: cap}, nil
}

// Tag returns the region's account tag.
func (s *Slab) Tag() accounttag.Tag { return s.header().Tag }

// Capacity returns the usable leaf capacity (indices 1..Capacity()).
func (s *Slab) Capacity() uint32 { return s.cap }

// LeafCount returns the number of live leaves.
func (s *Slab) LeafCount() uint32 { return s.header().LeafCount }

// IsEmpty reports whether the tree holds no orders.
func (s *Slab) IsEmpty() bool { return s.header().RootNode.IsNull() }

// Disable marks the region's account tag Disabled, the terminal state
// CloseMarket puts an emptied Slab into (§4.4).
func (s *Slab) Disable() {
	h := s.header()
	h.Tag = accounttag.Disabled
	s.setHeader(h)
}

func (s *Slab) header() Header {
	return decodeHeader(s.buf[0:HeaderSize])
}

func (s *Slab) setHeader(h Header) {
	encodeHeader(s.buf[0:HeaderSize], h)
}

func (s *Slab) leafOffset(idx uint32) int {
	return HeaderSize + int(idx)*LeafSlotSize
}

func (s *Slab) innerOffset(idx uint32) int {
	leafArrayEnd := HeaderSize + int(s.cap+1)*LeafSlotSize
	return leafArrayEnd + int(idx)*InnerSlotSize
}

func (s *Slab) cbOffset(idx uint32) int {
	leafArrayEnd := HeaderSize + int(s.cap+1)*LeafSlotSize
	innerArrayEnd := leafArrayEnd + int(s.cap)*InnerSlotSize
	return innerArrayEnd + int(idx)*int(s.cbLen)
}

func (s *Slab) leafSlot(h Handle) []byte {
	idx := h.Index()
	off := s.leafOffset(idx)
	return s.buf[off : off+LeafSlotSize]
}

func (s *Slab) innerSlot(h Handle) []byte {
	idx := h.Index()
	off := s.innerOffset(idx)
	return s.buf[off : off+InnerSlotSize]
}

func (s *Slab) cbSlot(h Handle) []byte {
	idx := h.Index()
	off := s.cbOffset(idx)
	return s.buf[off : off+int(s.cbLen)]
}

// Leaf reads the leaf node at handle h. h must address the leaf array.
func (s *Slab) Leaf(h Handle) LeafNode {
	return decodeLeaf(s.leafSlot(h))
}

func (s *Slab) writeLeaf(h Handle, n LeafNode) {
	encodeLeaf(s.leafSlot(h), n)
}

// CallbackInfo returns the raw callback info bytes for leaf handle h. The
// returned slice aliases the slab's buffer; callers must copy it before it
// could be overwritten by a later mutation if they need to retain it.
func (s *Slab) CallbackInfo(h Handle) []byte {
	return s.cbSlot(h)
}

// SetCallbackInfo overwrites the callback info for leaf handle h.
func (s *Slab) SetCallbackInfo(h Handle, info []byte) {
	copy(s.cbSlot(h), info)
}

// SetLeafQty updates the remaining base quantity of a resting order in
// place, without touching the tree shape.
func (s *Slab) SetLeafQty(h Handle, qty uint64) {
	n := s.Leaf(h)
	n.BaseQty = qty
	s.writeLeaf(h, n)
}

func (s *Slab) readInner(h Handle) InnerNode {
	return decodeInner(s.innerSlot(h))
}

func (s *Slab) writeInner(h Handle, n InnerNode) {
	encodeInner(s.innerSlot(h), n)
}

func (s *Slab) allocLeaf() (Handle, error) {
	hdr := s.header()
	if hdr.LeafFreeListLen > 0 {
		idx := hdr.LeafFreeListHead
		next := leafFreeNext(s.buf[s.leafOffset(idx) : s.leafOffset(idx)+LeafSlotSize])
		hdr.LeafFreeListHead = next
		hdr.LeafFreeListLen--
		s.setHeader(hdr)
		return LeafHandle(idx), nil
	}
	if hdr.LeafBumpIndex > s.cap {
		return NullHandle, ErrSlabFull
	}
	idx := hdr.LeafBumpIndex
	hdr.LeafBumpIndex++
	s.setHeader(hdr)
	return LeafHandle(idx), nil
}

func (s *Slab) freeLeaf(h Handle) {
	hdr := s.header()
	idx := h.Index()
	encodeLeafFreeNext(s.leafSlot(h), hdr.LeafFreeListHead)
	hdr.LeafFreeListHead = idx
	hdr.LeafFreeListLen++
	s.setHeader(hdr)
}

func (s *Slab) allocInner() (Handle, error) {
	hdr := s.header()
	if hdr.InnerFreeListLen > 0 {
		idx := hdr.InnerFreeListHead
		next := innerFreeNext(s.buf[s.innerOffset(idx) : s.innerOffset(idx)+InnerSlotSize])
		hdr.InnerFreeListHead = next
		hdr.InnerFreeListLen--
		s.setHeader(hdr)
		return InnerHandle(idx), nil
	}
	if hdr.InnerBumpIndex >= s.cap {
		return NullHandle, ErrSlabFull
	}
	idx := hdr.InnerBumpIndex
	hdr.InnerBumpIndex++
	s.setHeader(hdr)
	return InnerHandle(idx), nil
}

func (s *Slab) freeInner(h Handle) {
	hdr := s.header()
	idx := h.Index()
	encodeInnerFreeNext(s.innerSlot(h), hdr.InnerFreeListHead)
	hdr.InnerFreeListHead = idx
	hdr.InnerFreeListLen++
	s.setHeader(hdr)
}

// descend walks from the root toward key, stopping either at the leaf whose
// key matches (matched=true), or at the node (leaf or inner) where the walk
// can go no further. parents/dirs record the inner-node path taken, in root
// to leaf order, not including stopAt itself.
func (s *Slab) descend(key slabkey.Key) (stopAt Handle, parents []Handle, dirs []bool, matched bool) {
	hdr := s.header()
	if hdr.RootNode.IsNull() {
		return NullHandle, nil, nil, false
	}
	cur := hdr.RootNode
	for !cur.IsLeaf() {
		inner := s.readInner(cur)
		if !slabkey.HasPrefix(key, inner.Prefix, inner.PrefixLen) {
			return cur, parents, dirs, false
		}
		right := key.Bit(uint(inner.PrefixLen)) == 1
		parents = append(parents, cur)
		dirs = append(dirs, right)
		if right {
			cur = inner.Right
		} else {
			cur = inner.Left
		}
	}
	leaf := s.Leaf(cur)
	return cur, parents, dirs, leaf.Key.Equal(key)
}

// Find returns the handle of the leaf with the given key, if present.
func (s *Slab) Find(key slabkey.Key) (Handle, bool) {
	h, _, _, matched := s.descend(key)
	if !matched {
		return NullHandle, false
	}
	return h, true
}

// FindMin returns the handle of the leaf with the smallest key.
func (s *Slab) FindMin() (Handle, bool) { return s.findExtreme(false) }

// FindMax returns the handle of the leaf with the largest key.
func (s *Slab) FindMax() (Handle, bool) { return s.findExtreme(true) }

func (s *Slab) findExtreme(right bool) (Handle, bool) {
	cur := s.header().RootNode
	if cur.IsNull() {
		return NullHandle, false
	}
	for !cur.IsLeaf() {
		inner := s.readInner(cur)
		if right {
			cur = inner.Right
		} else {
			cur = inner.Left
		}
	}
	return cur, true
}

// replaceChild rewires the edge leading to `at` (as recorded in parents/dirs)
// to point at `with` instead, or updates the root if `at` had no parent.
func (s *Slab) replaceChild(parents []Handle, dirs []bool, with Handle) {
	if len(parents) == 0 {
		hdr := s.header()
		hdr.RootNode = with
		s.setHeader(hdr)
		return
	}
	p := parents[len(parents)-1]
	pinner := s.readInner(p)
	if dirs[len(dirs)-1] {
		pinner.Right = with
	} else {
		pinner.Left = with
	}
	s.writeInner(p, pinner)
}

// Insert adds a new order at key, or — if key is already present — replaces
// its quantity and callback info in place with no tree mutation, reporting
// the previous values.
func (s *Slab) Insert(key slabkey.Key, qty uint64, cbInfo []byte) (handle Handle, prevQty uint64, prevCb []byte, replaced bool, err error) {
	if uint64(len(cbInfo)) != s.cbLen {
		return NullHandle, 0, nil, false, fmt.Errorf("slab: callback info length %d != %d", len(cbInfo), s.cbLen)
	}

	stopAt, parents, dirs, matched := s.descend(key)
	if matched {
		prev := s.Leaf(stopAt)
		prevCbBuf := make([]byte, s.cbLen)
		copy(prevCbBuf, s.CallbackInfo(stopAt))
		s.writeLeaf(stopAt, LeafNode{Key: key, BaseQty: qty})
		s.SetCallbackInfo(stopAt, cbInfo)
		return stopAt, prev.BaseQty, prevCbBuf, true, nil
	}

	newLeafH, err := s.allocLeaf()
	if err != nil {
		return NullHandle, 0, nil, false, err
	}
	s.writeLeaf(newLeafH, LeafNode{Key: key, BaseQty: qty})
	s.SetCallbackInfo(newLeafH, cbInfo)

	hdr := s.header()
	if stopAt.IsNull() {
		// Empty tree: the new leaf becomes the root.
		hdr.RootNode = newLeafH
		hdr.LeafCount++
		s.setHeader(hdr)
		return newLeafH, 0, nil, false, nil
	}

	var prefixLen uint64
	if stopAt.IsLeaf() {
		existing := s.Leaf(stopAt)
		prefixLen = slabkey.CommonPrefixLen(existing.Key, key)
	} else {
		existingInner := s.readInner(stopAt)
		prefixLen = slabkey.CommonPrefixLen(existingInner.Prefix, key)
	}

	newInnerH, err := s.allocInner()
	if err != nil {
		s.freeLeaf(newLeafH)
		return NullHandle, 0, nil, false, err
	}
	newInner := InnerNode{Prefix: slabkey.Mask(key, prefixLen), PrefixLen: prefixLen}
	if key.Bit(uint(prefixLen)) == 1 {
		newInner.Left = stopAt
		newInner.Right = newLeafH
	} else {
		newInner.Left = newLeafH
		newInner.Right = stopAt
	}
	s.writeInner(newInnerH, newInner)
	s.replaceChild(parents, dirs, newInnerH)

	hdr = s.header()
	hdr.LeafCount++
	s.setHeader(hdr)
	return newLeafH, 0, nil, false, nil
}

// Remove deletes the order at key, if present, and returns its last state.
func (s *Slab) Remove(key slabkey.Key) (LeafNode, []byte, bool) {
	leafH, parents, dirs, matched := s.descend(key)
	if !matched {
		return LeafNode{}, nil, false
	}
	return s.removeHandle(leafH, parents, dirs), s.copyCallback(leafH), true
}

// RemoveHandle deletes a specific leaf (used for bottom-of-book eviction,
// where the caller already holds the handle from FindMin/FindMax and does
// not want to re-walk the tree by key).
func (s *Slab) RemoveHandle(h Handle) (LeafNode, []byte) {
	leaf := s.Leaf(h)
	_, parents, dirs, matched := s.descend(leaf.Key)
	if !matched {
		panic("slab: RemoveHandle called with a handle not reachable from root")
	}
	cb := s.copyCallback(h)
	return s.removeHandle(h, parents, dirs), cb
}

func (s *Slab) copyCallback(h Handle) []byte {
	cb := make([]byte, s.cbLen)
	copy(cb, s.CallbackInfo(h))
	return cb
}

func (s *Slab) removeHandle(leafH Handle, parents []Handle, dirs []bool) LeafNode {
	leaf := s.Leaf(leafH)

	if len(parents) == 0 {
		hdr := s.header()
		hdr.RootNode = NullHandle
		hdr.LeafCount--
		s.setHeader(hdr)
		s.freeLeaf(leafH)
		return leaf
	}

	parentH := parents[len(parents)-1]
	parentInner := s.readInner(parentH)
	var sibling Handle
	if dirs[len(dirs)-1] {
		sibling = parentInner.Left
	} else {
		sibling = parentInner.Right
	}

	s.replaceChild(parents[:len(parents)-1], dirs[:len(dirs)-1], sibling)
	s.freeInner(parentH)
	s.freeLeaf(leafH)

	hdr := s.header()
	hdr.LeafCount--
	s.setHeader(hdr)
	return leaf
}

// Iterate walks every leaf in key order (ascending or descending), calling
// fn for each. fn returns false to stop early. Traversal uses an explicit
// stack rather than recursion, bounded by the 128-bit key depth.
func (s *Slab) Iterate(ascending bool, fn func(Handle) bool) {
	root := s.header().RootNode
	if root.IsNull() {
		return
	}
	stack := make([]Handle, 0, 128)
	stack = append(stack, root)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if h.IsLeaf() {
			if !fn(h) {
				return
			}
			continue
		}
		inner := s.readInner(h)
		if ascending {
			stack = append(stack, inner.Right, inner.Left)
		} else {
			stack = append(stack, inner.Left, inner.Right)
		}
	}
}
