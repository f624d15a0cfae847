// Package market implements component D of the spec: the MarketState
// header binding the four byte regions together, and the five-instruction
// dispatch surface (§4.4, §6.3) that wires the Slab (component A), the event
// queue (component B), and the matching engine (component C) into one
// instruction handler per call.
//
// This is grounded on the teacher's cmd/server/main.go dispatch shape (one
// handler per request kind, each validating inputs before touching any
// state) and internal/settlement/clearing.go's account/region bookkeeping
// idea, trimmed down: there is no clearing house here, since settlement is
// explicitly out of scope (§1) — what's kept is the pattern of a small
// struct binding several regions together and exposing one method per
// instruction.
package market

import (
	"encoding/binary"

	"github.com/critbook/matching-engine/internal/matching"
	"github.com/critbook/matching-engine/internal/slabkey"
)

// InstructionTag is the first byte of the wire format (§6.3).
type InstructionTag uint8

const (
	TagCreateMarket InstructionTag = iota
	TagNewOrder
	TagConsumeEvents
	TagCancelOrder
	TagCloseMarket
)

// newOrderFixedSize is the fixed part of the packed LE layout of a NewOrder
// instruction body,
// following the tag byte: side(1) ‖ limit_price(8) ‖ max_base_qty(8) ‖
// max_quote_qty(8) ‖ match_limit(8) ‖ post_only(1) ‖ post_allowed(1) ‖
// self_trade_behavior(1) ‖ callback_info(callback_info_len, trailing).
const newOrderFixedSize = 1 + 8 + 8 + 8 + 8 + 1 + 1 + 1

// DecodeNewOrder parses a NewOrder instruction body. cbLen is the market's
// configured callback_info_len, needed because the trailing callback_info
// blob has no length prefix of its own.
func DecodeNewOrder(body []byte, cbLen uint64) (matching.OrderRequest, error) {
	if uint64(len(body)) != newOrderFixedSize+cbLen {
		return matching.OrderRequest{}, ErrAccountSizeMismatch
	}
	req := matching.OrderRequest{
		Side:              matching.Side(body[0]),
		LimitPrice:        binary.LittleEndian.Uint64(body[1:9]),
		MaxBaseQty:        binary.LittleEndian.Uint64(body[9:17]),
		MaxQuoteQty:       binary.LittleEndian.Uint64(body[17:25]),
		MatchLimit:        binary.LittleEndian.Uint64(body[25:33]),
		PostOnly:          body[33] != 0,
		PostAllowed:       body[34] != 0,
		SelfTradeBehavior: matching.SelfTradeBehavior(body[35]),
		CallbackInfo:      append([]byte(nil), body[newOrderFixedSize:]...),
	}
	return req, nil
}

// EncodeNewOrder is the inverse of DecodeNewOrder, used by callers to build
// an instruction payload.
func EncodeNewOrder(req matching.OrderRequest) []byte {
	body := make([]byte, newOrderFixedSize+len(req.CallbackInfo))
	body[0] = byte(req.Side)
	binary.LittleEndian.PutUint64(body[1:9], req.LimitPrice)
	binary.LittleEndian.PutUint64(body[9:17], req.MaxBaseQty)
	binary.LittleEndian.PutUint64(body[17:25], req.MaxQuoteQty)
	binary.LittleEndian.PutUint64(body[25:33], req.MatchLimit)
	if req.PostOnly {
		body[33] = 1
	}
	if req.PostAllowed {
		body[34] = 1
	}
	body[35] = byte(req.SelfTradeBehavior)
	copy(body[newOrderFixedSize:], req.CallbackInfo)
	return body
}

// DecodeCancelOrder parses a CancelOrder instruction body: side(1) ‖
// order_id(16, u128 LE).
func DecodeCancelOrder(body []byte) (matching.Side, slabkey.Key, error) {
	if len(body) != 17 {
		return 0, slabkey.Key{}, ErrAccountSizeMismatch
	}
	return matching.Side(body[0]), slabkey.FromBytes(body[1:17]), nil
}

// EncodeCancelOrder is the inverse of DecodeCancelOrder.
func EncodeCancelOrder(side matching.Side, orderID slabkey.Key) []byte {
	body := make([]byte, 17)
	body[0] = byte(side)
	orderID.PutBytes(body[1:17])
	return body
}

// DecodeConsumeEvents parses a ConsumeEvents instruction body: n(8).
func DecodeConsumeEvents(body []byte) (uint64, error) {
	if len(body) != 8 {
		return 0, ErrAccountSizeMismatch
	}
	return binary.LittleEndian.Uint64(body), nil
}

// EncodeConsumeEvents is the inverse of DecodeConsumeEvents.
func EncodeConsumeEvents(n uint64) []byte {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, n)
	return body
}

// createMarketSize is the size of the packed LE layout of a CreateMarket
// instruction body: caller_authority(32) ‖ callback_id_len(8) ‖ callback_info_len(8) ‖
// min_base_order_size(8) ‖ tick_size(8) ‖ cranker_reward(8) ‖
// initial_lamports(8).
const createMarketSize = 32 + 8*6

// DecodeCreateMarket parses a CreateMarket instruction body into CreateParams.
func DecodeCreateMarket(body []byte) (CreateParams, error) {
	if len(body) != createMarketSize {
		return CreateParams{}, ErrAccountSizeMismatch
	}
	var p CreateParams
	copy(p.CallerAuthority[:], body[0:32])
	p.CallbackIDLen = binary.LittleEndian.Uint64(body[32:40])
	p.CallbackInfoLen = binary.LittleEndian.Uint64(body[40:48])
	p.MinBaseOrderSize = binary.LittleEndian.Uint64(body[48:56])
	p.TickSize = binary.LittleEndian.Uint64(body[56:64])
	p.CrankerReward = binary.LittleEndian.Uint64(body[64:72])
	p.InitialLamports = binary.LittleEndian.Uint64(body[72:80])
	return p, nil
}

// EncodeCreateMarket is the inverse of DecodeCreateMarket.
func EncodeCreateMarket(p CreateParams) []byte {
	body := make([]byte, createMarketSize)
	copy(body[0:32], p.CallerAuthority[:])
	binary.LittleEndian.PutUint64(body[32:40], p.CallbackIDLen)
	binary.LittleEndian.PutUint64(body[40:48], p.CallbackInfoLen)
	binary.LittleEndian.PutUint64(body[48:56], p.MinBaseOrderSize)
	binary.LittleEndian.PutUint64(body[56:64], p.TickSize)
	binary.LittleEndian.PutUint64(body[64:72], p.CrankerReward)
	binary.LittleEndian.PutUint64(body[72:80], p.InitialLamports)
	return body
}
