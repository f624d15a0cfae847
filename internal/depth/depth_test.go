package depth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/critbook/matching-engine/internal/accounttag"
	"github.com/critbook/matching-engine/internal/fp"
	"github.com/critbook/matching-engine/internal/matching"
	"github.com/critbook/matching-engine/internal/slab"
	"github.com/critbook/matching-engine/internal/slabkey"
)

const testCbLen = 4

func price(n uint64) uint64 { return n << fp.Shift }

func cb(b byte) []byte { return []byte{b, b, b, b} }

func slabSize(capacity uint32, cbLen uint64) int {
	return int(slab.HeaderSize) +
		int(capacity+1)*int(slab.LeafSlotSize) +
		int(capacity)*int(slab.InnerSlotSize) +
		int(capacity+1)*int(cbLen)
}

func newTestBook(t *testing.T, capacity uint32) *matching.Book {
	t.Helper()
	bidsBuf := make([]byte, slabSize(capacity, testCbLen))
	asksBuf := make([]byte, slabSize(capacity, testCbLen))
	bids, err := slab.New(bidsBuf, testCbLen, accounttag.Bids)
	require.NoError(t, err)
	asks, err := slab.New(asksBuf, testCbLen, accounttag.Asks)
	require.NoError(t, err)
	return &matching.Book{Bids: bids, Asks: asks}
}

func post(t *testing.T, s *slab.Slab, seq, p, qty uint64, bid bool) {
	t.Helper()
	_, _, _, _, err := s.Insert(slabkey.New(p, seq, bid), qty, cb(byte(seq)))
	require.NoError(t, err)
}

// Scenario 1/2: best-price aggregation across multiple resting orders
// sharing the top price.
func TestSnapshot1_AggregatesAcrossSharedBestPrice(t *testing.T) {
	b := newTestBook(t, 16)
	post(t, b.Bids, 1, price(100), 5, true)
	post(t, b.Bids, 2, price(100), 7, true)
	post(t, b.Bids, 3, price(99), 100, true)

	q := Snapshot1(b)
	require.True(t, q.HasBid)
	require.Equal(t, price(100), q.BidPrice)
	require.Equal(t, uint64(12), q.BidSize, "5+7 at the shared best price, 99's level excluded")
	require.False(t, q.HasAsk)
}

func TestSnapshot2_FoldsSharedPricesIntoOneLevel(t *testing.T) {
	b := newTestBook(t, 16)
	post(t, b.Asks, 1, price(100), 5, false)
	post(t, b.Asks, 2, price(100), 7, false)
	post(t, b.Asks, 3, price(101), 20, false)
	post(t, b.Asks, 4, price(102), 1, false)

	d := Snapshot2(b, 2)
	require.Len(t, d.Asks, 2)
	require.Equal(t, price(100), d.Asks[0].Price)
	require.Equal(t, uint64(12), d.Asks[0].Quantity)
	require.Equal(t, 2, d.Asks[0].Count)
	require.Equal(t, price(101), d.Asks[1].Price)
	require.Equal(t, uint64(20), d.Asks[1].Quantity)
	require.Empty(t, d.Bids)
}

func TestSnapshot1EmptyBook(t *testing.T) {
	b := newTestBook(t, 16)
	q := Snapshot1(b)
	require.False(t, q.HasBid)
	require.False(t, q.HasAsk)
}
