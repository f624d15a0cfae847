package queue

import (
	"encoding/binary"
	"fmt"

	"github.com/critbook/matching-engine/internal/accounttag"
)

// HeaderSize is tag(8) + head(8) + count(8) + seq_num(8).
const HeaderSize = 32

// RegisterSize is the fixed width of the one-slot mailbox that follows the
// header. Sized to hold the NewOrder outcome register (§4.2/§4.3): an
// optional posted order id plus three u64 totals, with room to spare.
const RegisterSize = 64

// Header is the decoded EventQueueHeader.
type Header struct {
	Tag    accounttag.Tag
	Head   uint64
	Count  uint64
	SeqNum uint64
}

func decodeHeader(b []byte) Header {
	return Header{
		Tag:    accounttag.Tag(binary.LittleEndian.Uint64(b[0:8])),
		Head:   binary.LittleEndian.Uint64(b[8:16]),
		Count:  binary.LittleEndian.Uint64(b[16:24]),
		SeqNum: binary.LittleEndian.Uint64(b[24:32]),
	}
}

func encodeHeader(b []byte, h Header) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(h.Tag))
	binary.LittleEndian.PutUint64(b[8:16], h.Head)
	binary.LittleEndian.PutUint64(b[16:24], h.Count)
	binary.LittleEndian.PutUint64(b[24:32], h.SeqNum)
}

// String renders a Header for debugging, not part of the wire format.
func (h Header) String() string {
	return fmt.Sprintf("%s queue: %d events pending, seq=%d", h.Tag, h.Count, h.SeqNum)
}
