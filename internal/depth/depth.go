// Package depth builds point-in-time order book snapshots off a Book's two
// Slabs: L1 (best bid/ask and their aggregate size) and L2 (the top N
// distinct price levels per side, sizes summed across every resting order
// at that price).
//
// This is grounded on the teacher's internal/marketdata/publisher.go L1Quote
// and L2Depth/PriceLevel shapes, stripped of the pub/sub machinery: the
// teacher's Publisher pushes updates to subscriber channels from a
// long-running service goroutine, which has no analogue here — snapshots
// are read directly off a Slab on demand, inside the same call that would
// otherwise run a matching instruction, so there is nothing to subscribe to
// and nothing to run concurrently with (§5 rules out concurrent access to a
// market's regions within one instruction).
package depth

import (
	"github.com/critbook/matching-engine/internal/matching"
	"github.com/critbook/matching-engine/internal/slab"
)

// L1Quote is the best price and aggregate size on each side of the book.
// A side with no resting orders reports HasBid/HasAsk false and its other
// fields zeroed.
type L1Quote struct {
	HasBid   bool
	BidPrice uint64
	BidSize  uint64
	HasAsk   bool
	AskPrice uint64
	AskSize  uint64
}

// PriceLevel is the aggregate size resting at one distinct price, along with
// how many individual orders make it up.
type PriceLevel struct {
	Price    uint64
	Quantity uint64
	Count    int
}

// L2Depth is the top MaxLevels distinct price levels on each side, nearest
// the inside first.
type L2Depth struct {
	Bids []PriceLevel
	Asks []PriceLevel
}

func bestPrice(s *slab.Slab, side matching.Side) (uint64, bool) {
	h, ok := bestHandle(s, side)
	if !ok {
		return 0, false
	}
	return s.Leaf(h).Key.Price(), true
}

func bestHandle(s *slab.Slab, side matching.Side) (slab.Handle, bool) {
	if side == matching.SideBid {
		return s.FindMax()
	}
	return s.FindMin()
}

// ascendingFromBest is the Slab.Iterate direction that visits a side's
// leaves best-price-first: descending (richest bids first) for bids,
// ascending (cheapest asks first) for asks.
func ascendingFromBest(side matching.Side) bool {
	return side == matching.SideAsk
}

// aggregateAtBest sums base quantity and counts leaves across every resting
// order sharing the side's best price (distinct keys can still share a
// price, since only the sequence tiebreaker need differ).
func aggregateAtBest(s *slab.Slab, side matching.Side) (price, size uint64, has bool) {
	best, ok := bestPrice(s, side)
	if !ok {
		return 0, 0, false
	}
	s.Iterate(ascendingFromBest(side), func(h slab.Handle) bool {
		leaf := s.Leaf(h)
		if leaf.Key.Price() != best {
			return false
		}
		size += leaf.BaseQty
		return true
	})
	return best, size, true
}

// Snapshot1 builds an L1Quote off a Book.
func Snapshot1(b *matching.Book) L1Quote {
	var q L1Quote
	if p, size, ok := aggregateAtBest(b.Bids, matching.SideBid); ok {
		q.HasBid, q.BidPrice, q.BidSize = true, p, size
	}
	if p, size, ok := aggregateAtBest(b.Asks, matching.SideAsk); ok {
		q.HasAsk, q.AskPrice, q.AskSize = true, p, size
	}
	return q
}

// levels walks a side best-to-worst, folding consecutive leaves that share a
// price into one PriceLevel, stopping once maxLevels distinct prices have
// been collected.
func levels(s *slab.Slab, side matching.Side, maxLevels int) []PriceLevel {
	var out []PriceLevel
	s.Iterate(ascendingFromBest(side), func(h slab.Handle) bool {
		leaf := s.Leaf(h)
		if n := len(out); n > 0 && out[n-1].Price == leaf.Key.Price() {
			out[n-1].Quantity += leaf.BaseQty
			out[n-1].Count++
			return true
		}
		if len(out) == maxLevels {
			return false
		}
		out = append(out, PriceLevel{Price: leaf.Key.Price(), Quantity: leaf.BaseQty, Count: 1})
		return true
	})
	return out
}

// Snapshot2 builds an L2Depth off a Book, keeping up to maxLevels distinct
// prices per side.
func Snapshot2(b *matching.Book, maxLevels int) L2Depth {
	return L2Depth{
		Bids: levels(b.Bids, matching.SideBid, maxLevels),
		Asks: levels(b.Asks, matching.SideAsk, maxLevels),
	}
}
