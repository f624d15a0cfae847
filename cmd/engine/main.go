// Command engine is a small demo harness that drives one Market directly
// (no network, no host runtime): it lays out the four byte regions in
// process memory, dispatches a handful of instructions against them, and
// logs what happened, the same shape as a host replaying instructions
// against an account's data.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/critbook/matching-engine/internal/depth"
	"github.com/critbook/matching-engine/internal/fp"
	"github.com/critbook/matching-engine/internal/market"
	"github.com/critbook/matching-engine/internal/matching"
	"github.com/critbook/matching-engine/internal/queue"
	"github.com/critbook/matching-engine/internal/slab"
)

const (
	cbLen        = 8
	slabCapacity = 128
	queueSlots   = 64
)

func price(n uint64) uint64 { return n << fp.Shift }

func slabRegionSize(capacity uint32, cbLen uint64) int {
	return int(slab.HeaderSize) +
		int(capacity+1)*int(slab.LeafSlotSize) +
		int(capacity)*int(slab.InnerSlotSize) +
		int(capacity+1)*int(cbLen)
}

func queueRegionSize(slots uint64, cbLen uint64) int {
	return int(queue.HeaderSize) + int(queue.RegisterSize) + int(slots)*queue.SlotSize(cbLen)
}

func callback(id byte) []byte {
	b := make([]byte, cbLen)
	b[0] = id
	return b
}

func newDemoMarket(authority [32]byte) *market.Market {
	marketBuf := make([]byte, market.StateSize)
	queueBuf := make([]byte, queueRegionSize(queueSlots, cbLen))
	bidsBuf := make([]byte, slabRegionSize(slabCapacity, cbLen))
	asksBuf := make([]byte, slabRegionSize(slabCapacity, cbLen))

	m, err := market.CreateMarket(marketBuf, queueBuf, bidsBuf, asksBuf, market.CreateParams{
		CallerAuthority:  authority,
		CallbackIDLen:    cbLen,
		CallbackInfoLen:  cbLen,
		MinBaseOrderSize: 1,
		TickSize:         1,
		CrankerReward:    0,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("create market")
	}
	return m
}

// runSweep posts two maker asks at different prices, then a taker bid that
// sweeps both, logging each order's Result and how many events were cranked.
func runSweep() {
	var authority [32]byte
	authority[0] = 1
	m := newDemoMarket(authority)

	mustNewOrder := func(label string, req matching.OrderRequest) matching.Result {
		res, err := m.NewOrder(authority, req)
		if err != nil {
			log.Fatal().Err(err).Str("order", label).Msg("new order rejected")
		}
		log.Info().
			Str("order", label).
			Bool("posted", res.Posted).
			Uint64("base_consumed", res.TotalBaseConsumed).
			Uint64("quote_consumed", res.TotalQuoteConsumed).
			Uint64("base_posted", res.TotalBasePosted).
			Msg("new order accepted")
		return res
	}

	mustNewOrder("maker-ask-1", matching.OrderRequest{
		Side: matching.SideAsk, LimitPrice: price(100), MaxBaseQty: 10,
		MaxQuoteQty: ^uint64(0) >> 1, MatchLimit: 1, CallbackInfo: callback(1),
		PostAllowed: true,
	})
	mustNewOrder("maker-ask-2", matching.OrderRequest{
		Side: matching.SideAsk, LimitPrice: price(101), MaxBaseQty: 10,
		MaxQuoteQty: ^uint64(0) >> 1, MatchLimit: 1, CallbackInfo: callback(2),
		PostAllowed: true,
	})

	mustNewOrder("taker-bid", matching.OrderRequest{
		Side: matching.SideBid, LimitPrice: price(101), MaxBaseQty: 15,
		MaxQuoteQty: ^uint64(0) >> 1, MatchLimit: 10, CallbackInfo: callback(9),
		PostAllowed: true, SelfTradeBehavior: matching.DecrementTake,
	})

	popped, err := m.ConsumeEvents(10)
	if err != nil {
		log.Fatal().Err(err).Msg("consume events")
	}
	log.Info().Uint64("events_popped", popped).Msg("cranked event queue")
}

// runDepth posts a small resting book and prints L1/L2 snapshots.
func runDepth() {
	var authority [32]byte
	authority[0] = 2
	m := newDemoMarket(authority)

	place := func(side matching.Side, p, qty uint64, id byte) {
		if _, err := m.NewOrder(authority, matching.OrderRequest{
			Side: side, LimitPrice: price(p), MaxBaseQty: qty,
			MaxQuoteQty: ^uint64(0) >> 1, MatchLimit: 1, CallbackInfo: callback(id),
			PostOnly: true, PostAllowed: true,
		}); err != nil {
			log.Fatal().Err(err).Msg("place resting order")
		}
	}
	place(matching.SideBid, 99, 5, 1)
	place(matching.SideBid, 99, 7, 2)
	place(matching.SideBid, 98, 50, 3)
	place(matching.SideAsk, 101, 10, 4)

	book := m.Book()
	q1 := depth.Snapshot1(book)
	log.Info().
		Bool("has_bid", q1.HasBid).Uint64("bid_price_raw", q1.BidPrice).Uint64("bid_size", q1.BidSize).
		Bool("has_ask", q1.HasAsk).Uint64("ask_price_raw", q1.AskPrice).Uint64("ask_size", q1.AskSize).
		Msg("L1 snapshot")

	q2 := depth.Snapshot2(book, 5)
	log.Info().Int("bid_levels", len(q2.Bids)).Int("ask_levels", len(q2.Asks)).Msg("L2 snapshot")
}

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	demo := flag.String("demo", "sweep", "which demo to run: sweep, depth")
	flag.Parse()

	switch *demo {
	case "sweep":
		runSweep()
	case "depth":
		runDepth()
	default:
		log.Fatal().Str("demo", *demo).Msg("unknown demo")
	}
}
