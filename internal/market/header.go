package market

import (
	"encoding/binary"

	"github.com/critbook/matching-engine/internal/accounttag"
)

// StateSize is the on-disk size of MarketState (§6.1):
// tag(8) + caller_authority(32) + event_queue(32) + bids(32) + asks(32) +
// callback_id_len(8) + callback_info_len(8) + fee_budget(8) +
// initial_lamports(8) + min_base_order_size(8) + tick_size(8) +
// cranker_reward(8) = 192 bytes.
const StateSize = 8 + 32*4 + 8*7

// State is the decoded form of MarketState. CallerAuthority, EventQueue,
// Bids, and Asks are opaque 32-byte account identities (the host's key
// type); this package never interprets them beyond byte-for-byte equality.
type State struct {
	Tag              accounttag.Tag
	CallerAuthority  [32]byte
	EventQueueKey    [32]byte
	BidsKey          [32]byte
	AsksKey          [32]byte
	CallbackIDLen    uint64
	CallbackInfoLen  uint64
	FeeBudget        uint64
	InitialLamports  uint64
	MinBaseOrderSize uint64
	TickSize         uint64
	CrankerReward    uint64
}

func decodeState(b []byte) State {
	var s State
	s.Tag = accounttag.Tag(binary.LittleEndian.Uint64(b[0:8]))
	copy(s.CallerAuthority[:], b[8:40])
	copy(s.EventQueueKey[:], b[40:72])
	copy(s.BidsKey[:], b[72:104])
	copy(s.AsksKey[:], b[104:136])
	s.CallbackIDLen = binary.LittleEndian.Uint64(b[136:144])
	s.CallbackInfoLen = binary.LittleEndian.Uint64(b[144:152])
	s.FeeBudget = binary.LittleEndian.Uint64(b[152:160])
	s.InitialLamports = binary.LittleEndian.Uint64(b[160:168])
	s.MinBaseOrderSize = binary.LittleEndian.Uint64(b[168:176])
	s.TickSize = binary.LittleEndian.Uint64(b[176:184])
	s.CrankerReward = binary.LittleEndian.Uint64(b[184:192])
	return s
}

func encodeState(b []byte, s State) {
	binary.LittleEndian.PutUint64(b[0:8], uint64(s.Tag))
	copy(b[8:40], s.CallerAuthority[:])
	copy(b[40:72], s.EventQueueKey[:])
	copy(b[72:104], s.BidsKey[:])
	copy(b[104:136], s.AsksKey[:])
	binary.LittleEndian.PutUint64(b[136:144], s.CallbackIDLen)
	binary.LittleEndian.PutUint64(b[144:152], s.CallbackInfoLen)
	binary.LittleEndian.PutUint64(b[152:160], s.FeeBudget)
	binary.LittleEndian.PutUint64(b[160:168], s.InitialLamports)
	binary.LittleEndian.PutUint64(b[168:176], s.MinBaseOrderSize)
	binary.LittleEndian.PutUint64(b[176:184], s.TickSize)
	binary.LittleEndian.PutUint64(b[184:192], s.CrankerReward)
}

// String renders a MarketState for debugging (not part of the wire format,
// never consulted by matching logic — mirrors the teacher's OrderBook.String
// ASCII dump, see internal/depth).
func (s State) String() string {
	return s.Tag.String() + " market"
}
