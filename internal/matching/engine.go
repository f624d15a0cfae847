// Package matching implements the price-time priority matching algorithm
// described in the spec: given an incoming order request and the two Slabs
// that make up an order book, it walks the opposite side best-to-worst,
// emits Fill/Out events into the queue, and posts any residual.
//
// This is the teacher's RBTree-based order book (internal/orderbook/orderbook.go
// in the retrieval pack) reworked around the crit-bit Slab: where the teacher
// walks price levels and a FIFO queue per level, matching here walks the
// Slab's total key order directly (price and time are already fused into one
// 128-bit key), so there is no separate price-level layer to maintain.
package matching

import (
	"bytes"

	"github.com/critbook/matching-engine/internal/fp"
	"github.com/critbook/matching-engine/internal/queue"
	"github.com/critbook/matching-engine/internal/slab"
	"github.com/critbook/matching-engine/internal/slabkey"
)

// Book bundles the two Slabs that make up one market's order book.
type Book struct {
	Bids *slab.Slab
	Asks *slab.Slab
}

// own/opp return the taker's resting side and the side it crosses against.
func (b *Book) own(side Side) *slab.Slab {
	if side == SideBid {
		return b.Bids
	}
	return b.Asks
}

func (b *Book) opp(side Side) *slab.Slab {
	return b.own(side.Opposite())
}

// Params carries the market parameters the engine needs from MarketState
// that are not part of a single request (§3.4).
type Params struct {
	TickSize         uint64
	MinBaseOrderSize uint64
	CallbackIDLen    uint64
}

// Engine drives one NewOrder (or CancelOrder) call against a Book and Queue.
// An Engine holds no state across calls; it is a thin function object over
// the byte regions handed to it for the duration of one instruction.
type Engine struct {
	Book   *Book
	Queue  *queue.Queue
	Params Params
}

// bestOfSide returns the best (highest-priority) resting leaf on a side:
// highest price for bids, lowest price for asks (§3.1's key encoding makes
// FindMax the bid-side best and FindMin the ask-side best).
func bestOfSide(s *slab.Slab, side Side) (slab.Handle, bool) {
	if side == SideBid {
		return s.FindMax()
	}
	return s.FindMin()
}

// worstOfSide returns the worst (lowest-priority, bottom-of-book) resting
// leaf on a side: the eviction candidate when posting into a full Slab.
func worstOfSide(s *slab.Slab, side Side) (slab.Handle, bool) {
	if side == SideBid {
		return s.FindMin()
	}
	return s.FindMax()
}

// crosses reports whether a resting order at makerPrice on the opposite side
// from a taker of `side` would trade against a limit of limitPrice.
func crosses(side Side, limitPrice, makerPrice uint64) bool {
	if side == SideBid {
		return makerPrice <= limitPrice
	}
	return makerPrice >= limitPrice
}

// strictlyBetter reports whether newPrice is strictly better-priced than
// worstPrice for a resting order on `side` (higher for bids, lower for asks)
// — the condition required to evict the bottom of the book on posting.
func strictlyBetter(side Side, newPrice, worstPrice uint64) bool {
	if side == SideBid {
		return newPrice > worstPrice
	}
	return newPrice < worstPrice
}

// ascendingWalk reports which Slab.Iterate direction yields the opposite
// side in best-to-worst order for a taker of `side`: ascending (lowest
// price first) when walking asks, descending when walking bids.
func ascendingWalk(side Side) bool {
	return side == SideBid
}

func selfTrades(makerCb, takerCb []byte, idLen uint64) bool {
	n := idLen
	if uint64(len(makerCb)) < n {
		n = uint64(len(makerCb))
	}
	if uint64(len(takerCb)) < n {
		n = uint64(len(takerCb))
	}
	return bytes.Equal(makerCb[:n], takerCb[:n])
}

func min3(a, b, c uint64) uint64 {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// matchedQty computes the base/quote amounts a single fill against a maker
// at makerPrice consumes, per §4.3: base is bounded by the maker's resting
// quantity, the taker's remaining base budget, and what the taker's
// remaining quote budget can afford at makerPrice; quote is rounded up so
// the taker is never undercharged.
func matchedQty(makerBase, maxBase, maxQuote, makerPrice uint64) (base, quote uint64) {
	affordable := fp.BaseForQuote(maxQuote, makerPrice)
	base = min3(makerBase, maxBase, affordable)
	if base == 0 {
		return 0, 0
	}
	quote = fp.MulQuoteForBase(base, makerPrice)
	return base, quote
}

// NewOrder runs §4.3 end to end: preflight checks, the match walk against
// the opposite Slab, and posting any residual into the taker's own Slab.
// On error, no region has been mutated.
func (e *Engine) NewOrder(req OrderRequest) (Result, error) {
	if e.Params.TickSize != 0 && req.LimitPrice%e.Params.TickSize != 0 {
		return Result{}, ErrInvalidPrice
	}
	if req.PostAllowed && req.MaxBaseQty < e.Params.MinBaseOrderSize {
		return Result{}, ErrOrderBelowMinimum
	}

	own := e.Book.own(req.Side)
	opp := e.Book.opp(req.Side)

	// §5: validate everything that can make a later step fail before any
	// mutation begins. Two things are preflighted here: event-queue room
	// for the worst case the requested match_limit could produce, and own
	// Slab room for a residual post (including whether eviction would be
	// available), per the Open Question decisions in DESIGN.md.
	//
	// Each consumed maker can emit up to two events (a Fill, plus an Out if
	// it is exhausted), and posting the residual can emit one more (an
	// eviction Out), so the worst case the walk could produce is
	// 2*match_limit + 1, not match_limit + 1.
	needed := 2*req.MatchLimit + 1
	if e.Queue.FreeSlots() < needed {
		return Result{}, ErrEventQueueFull
	}

	var evictHandle slab.Handle
	haveEvictHandle := false
	if req.PostAllowed {
		if own.LeafCount() >= own.Capacity() {
			worstH, ok := worstOfSide(own, req.Side)
			if !ok {
				return Result{}, ErrSlabFull
			}
			worstPrice := own.Leaf(worstH).Key.Price()
			if !strictlyBetter(req.Side, req.LimitPrice, worstPrice) {
				return Result{}, ErrSlabFull
			}
			evictHandle = worstH
			haveEvictHandle = true
		}
	}

	maxBase := req.MaxBaseQty
	maxQuote := req.MaxQuoteQty
	anyEvent := false

	if req.PostOnly {
		if h, ok := bestOfSide(opp, req.Side.Opposite()); ok {
			if crosses(req.Side, req.LimitPrice, opp.Leaf(h).Key.Price()) {
				return Result{}, ErrPostOnlyCrosses
			}
		}
		// Nothing crosses: fall straight through to posting, §4.3's
		// post-only rule never triggers a match attempt in this case.
	} else {
		if req.SelfTradeBehavior == AbortTransaction {
			if err := e.planSelfTradeAbort(req, opp, maxBase, maxQuote); err != nil {
				return Result{}, err
			}
		}

		var walkErr error
		matchLimit := req.MatchLimit

		opp.Iterate(ascendingWalk(req.Side), func(h slab.Handle) bool {
			if matchLimit == 0 || maxBase == 0 || maxQuote == 0 {
				return false
			}
			leaf := opp.Leaf(h)
			if !crosses(req.Side, req.LimitPrice, leaf.Key.Price()) {
				return false
			}

			makerCb := append([]byte(nil), opp.CallbackInfo(h)...)
			matchLimit--

			if selfTrades(makerCb, req.CallbackInfo, e.Params.CallbackIDLen) {
				switch req.SelfTradeBehavior {
				case DecrementTake:
					dec := leaf.BaseQty
					if maxBase < dec {
						dec = maxBase
					}
					maxBase -= dec
					if maxQuote < dec {
						maxQuote = 0
					} else {
						maxQuote -= dec
					}
					return true
				case CancelProvide:
					opp.RemoveHandle(h)
					if _, err := e.Queue.PushOut(queue.Out{
						Side:         uint8(req.Side.Opposite()),
						OrderID:      leaf.Key,
						BaseSize:     leaf.BaseQty,
						Delete:       true,
						CallbackInfo: makerCb,
					}); err != nil {
						walkErr = err
						return false
					}
					anyEvent = true
					return true
				default:
					// planSelfTradeAbort already ran for AbortTransaction and
					// would have aborted before any mutation; reaching here
					// would mean the book changed between the two passes,
					// which §5 rules out within a single instruction.
					walkErr = ErrBrokenInvariant
					return false
				}
			}

			base, quote := matchedQty(leaf.BaseQty, maxBase, maxQuote, leaf.Key.Price())
			if base == 0 {
				return false
			}

			if _, err := e.Queue.PushFill(queue.Fill{
				TakerSide:     uint8(req.Side),
				QuoteSize:     quote,
				MakerOrderID:  leaf.Key,
				BaseSize:      base,
				MakerCallback: makerCb,
				TakerCallback: req.CallbackInfo,
			}); err != nil {
				walkErr = err
				return false
			}

			remaining := leaf.BaseQty - base
			if remaining == 0 || remaining < e.Params.MinBaseOrderSize {
				opp.RemoveHandle(h)
				if _, err := e.Queue.PushOut(queue.Out{
					Side:         uint8(req.Side.Opposite()),
					OrderID:      leaf.Key,
					BaseSize:     remaining,
					Delete:       true,
					CallbackInfo: makerCb,
				}); err != nil {
					walkErr = err
					return false
				}
			} else {
				opp.SetLeafQty(h, remaining)
			}

			maxBase -= base
			maxQuote -= quote
			anyEvent = true
			return true
		})

		if walkErr != nil {
			return Result{}, walkErr
		}
	}

	return e.finish(req, own, evictHandle, haveEvictHandle, anyEvent, req.MaxBaseQty, req.MaxQuoteQty, maxBase, maxQuote)
}

// planSelfTradeAbort performs a read-only dry run of the match walk to
// decide, before any mutation, whether an AbortTransaction self-trade
// policy would be triggered. It mirrors the real walk's crossing and budget
// logic exactly (Slab.Iterate visits leaves in the same order regardless of
// whether earlier ones are later removed), so the sequence of makers it
// inspects is identical to what the real pass will see.
func (e *Engine) planSelfTradeAbort(req OrderRequest, opp *slab.Slab, maxBase, maxQuote uint64) error {
	matchLimit := req.MatchLimit
	var found error
	opp.Iterate(ascendingWalk(req.Side), func(h slab.Handle) bool {
		if matchLimit == 0 || maxBase == 0 || maxQuote == 0 {
			return false
		}
		leaf := opp.Leaf(h)
		if !crosses(req.Side, req.LimitPrice, leaf.Key.Price()) {
			return false
		}
		matchLimit--
		makerCb := opp.CallbackInfo(h)
		if selfTrades(makerCb, req.CallbackInfo, e.Params.CallbackIDLen) {
			found = ErrWouldSelfTrade
			return false
		}
		base, _ := matchedQty(leaf.BaseQty, maxBase, maxQuote, leaf.Key.Price())
		if base == 0 {
			return false
		}
		quote := fp.MulQuoteForBase(base, leaf.Key.Price())
		maxBase -= base
		maxQuote -= quote
		return true
	})
	return found
}

// finish posts the residual (if any) into the taker's own Slab, evicting the
// bottom of the book first if the earlier preflight set that up, writes the
// outcome register, and returns the Result.
func (e *Engine) finish(req OrderRequest, own *slab.Slab, evictHandle slab.Handle, haveEvictHandle, anyEvent bool, origBase, origQuote, remainingBase, remainingQuote uint64) (Result, error) {
	baseConsumed := origBase - remainingBase
	quoteConsumed := origQuote - remainingQuote

	result := Result{
		TotalBaseConsumed:  baseConsumed,
		TotalQuoteConsumed: quoteConsumed,
	}

	posted := req.PostAllowed && remainingBase >= e.Params.MinBaseOrderSize
	if !posted {
		if !anyEvent {
			return Result{}, ErrNoOperations
		}
		e.Queue.SetRegister(queue.Register{
			Posted:             false,
			TotalBaseConsumed:  baseConsumed,
			TotalQuoteConsumed: quoteConsumed,
		})
		return result, nil
	}

	if haveEvictHandle {
		evictLeaf, evictCb := own.RemoveHandle(evictHandle)
		if _, err := e.Queue.PushOut(queue.Out{
			Side:         uint8(req.Side),
			OrderID:      evictLeaf.Key,
			BaseSize:     evictLeaf.BaseQty,
			Delete:       true,
			CallbackInfo: evictCb,
		}); err != nil {
			return Result{}, err
		}
	}

	key := slabkey.New(req.LimitPrice, e.Queue.SeqNum(), req.Side == SideBid)
	if _, _, _, _, err := own.Insert(key, remainingBase, req.CallbackInfo); err != nil {
		return Result{}, err
	}

	result.Posted = true
	result.PostedOrderID = key
	result.TotalBasePosted = remainingBase

	e.Queue.SetRegister(queue.Register{
		Posted:             true,
		PostedOrderID:      key,
		TotalBaseConsumed:  baseConsumed,
		TotalQuoteConsumed: quoteConsumed,
		TotalBasePosted:    remainingBase,
	})
	return result, nil
}

// CancelOrder removes a resting order by key from the named side and emits
// the corresponding Out event (§4.4). The other side is not searched.
func (e *Engine) CancelOrder(side Side, orderID slabkey.Key) error {
	s := e.Book.own(side)
	leaf, cb, ok := s.Remove(orderID)
	if !ok {
		return ErrOrderNotFound
	}
	_, err := e.Queue.PushOut(queue.Out{
		Side:         uint8(side),
		OrderID:      orderID,
		BaseSize:     leaf.BaseQty,
		Delete:       true,
		CallbackInfo: cb,
	})
	return err
}
