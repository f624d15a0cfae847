package queue

import (
	"encoding/binary"

	"github.com/critbook/matching-engine/internal/slabkey"
)

// Register is the single structured value a NewOrder call hands back to the
// caller through the queue's fixed mailbox region: what (if anything) got
// posted, and how much was consumed.
type Register struct {
	Posted             bool
	PostedOrderID      slabkey.Key
	TotalBaseConsumed  uint64
	TotalQuoteConsumed uint64
	TotalBasePosted    uint64
}

func decodeRegister(b []byte) Register {
	posted := b[0] != 0
	return Register{
		Posted:             posted,
		PostedOrderID:      slabkey.FromBytes(b[8:24]),
		TotalBaseConsumed:  binary.LittleEndian.Uint64(b[24:32]),
		TotalQuoteConsumed: binary.LittleEndian.Uint64(b[32:40]),
		TotalBasePosted:    binary.LittleEndian.Uint64(b[40:48]),
	}
}

func encodeRegister(b []byte, r Register) {
	for i := range b {
		b[i] = 0
	}
	if r.Posted {
		b[0] = 1
	}
	r.PostedOrderID.PutBytes(b[8:24])
	binary.LittleEndian.PutUint64(b[24:32], r.TotalBaseConsumed)
	binary.LittleEndian.PutUint64(b[32:40], r.TotalQuoteConsumed)
	binary.LittleEndian.PutUint64(b[40:48], r.TotalBasePosted)
}
