package queue

import (
	"encoding/binary"

	"github.com/critbook/matching-engine/internal/slabkey"
)

// EventTag discriminates the tagged union stored in each ring slot.
type EventTag uint8

const (
	TagFill EventTag = 0
	TagOut  EventTag = 1
)

// bodySize is the common fixed body shared by both variants, sized to the
// larger of the two field layouts in §6.1 once the 1-byte tag is excluded:
//
//	Fill body: taker_side(1) + padding(6) + quote_size(8) + maker_order_id(16) + base_size(8) = 39
//	Out  body: side(1) + delete(1) + padding(13) + order_id(16) + base_size(8)              = 39
const bodySize = 39

// SlotSize returns the footprint of one ring slot for a given per-order
// callback info length: tag(1) + body(39) + two callback blobs.
func SlotSize(cbLen uint64) int {
	return 1 + bodySize + 2*int(cbLen)
}

// Fill records a single execution between the taker and one resting maker.
type Fill struct {
	TakerSide     uint8 // 0 = bid, 1 = ask
	QuoteSize     uint64
	MakerOrderID  slabkey.Key
	BaseSize      uint64
	MakerCallback []byte
	TakerCallback []byte
}

// Out records a resting order leaving the book (matched to dust, cancelled,
// self-trade-cancelled, or evicted).
type Out struct {
	Side         uint8
	OrderID      slabkey.Key
	BaseSize     uint64
	Delete       bool
	CallbackInfo []byte
}

func encodeFill(b []byte, f Fill, cbLen uint64) {
	b[0] = byte(TagFill)
	b[1] = f.TakerSide
	// b[2:8] padding
	binary.LittleEndian.PutUint64(b[8:16], f.QuoteSize)
	f.MakerOrderID.PutBytes(b[16:32])
	binary.LittleEndian.PutUint64(b[32:40], f.BaseSize)
	cbStart := 1 + bodySize
	copy(b[cbStart:cbStart+int(cbLen)], f.TakerCallback)
	copy(b[cbStart+int(cbLen):cbStart+2*int(cbLen)], f.MakerCallback)
}

func decodeFill(b []byte, cbLen uint64) Fill {
	cbStart := 1 + bodySize
	taker := make([]byte, cbLen)
	maker := make([]byte, cbLen)
	copy(taker, b[cbStart:cbStart+int(cbLen)])
	copy(maker, b[cbStart+int(cbLen):cbStart+2*int(cbLen)])
	return Fill{
		TakerSide:     b[1],
		QuoteSize:     binary.LittleEndian.Uint64(b[8:16]),
		MakerOrderID:  slabkey.FromBytes(b[16:32]),
		BaseSize:      binary.LittleEndian.Uint64(b[32:40]),
		TakerCallback: taker,
		MakerCallback: maker,
	}
}

func encodeOut(b []byte, o Out, cbLen uint64) {
	b[0] = byte(TagOut)
	b[1] = o.Side
	if o.Delete {
		b[2] = 1
	} else {
		b[2] = 0
	}
	// b[3:16] padding
	o.OrderID.PutBytes(b[16:32])
	binary.LittleEndian.PutUint64(b[32:40], o.BaseSize)
	cbStart := 1 + bodySize
	copy(b[cbStart:cbStart+int(cbLen)], o.CallbackInfo)
}

func decodeOut(b []byte, cbLen uint64) Out {
	cbStart := 1 + bodySize
	info := make([]byte, cbLen)
	copy(info, b[cbStart:cbStart+int(cbLen)])
	return Out{
		Side:         b[1],
		Delete:       b[2] != 0,
		OrderID:      slabkey.FromBytes(b[16:32]),
		BaseSize:     binary.LittleEndian.Uint64(b[32:40]),
		CallbackInfo: info,
	}
}

// SlotTag reads the discriminant byte of a raw slot without decoding it.
func SlotTag(b []byte) EventTag {
	return EventTag(b[0])
}
