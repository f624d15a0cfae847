package market

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/critbook/matching-engine/internal/accounttag"
	"github.com/critbook/matching-engine/internal/matching"
	"github.com/critbook/matching-engine/internal/queue"
	"github.com/critbook/matching-engine/internal/slab"
)

const testCbLen = 4

func slabSize(capacity uint32, cbLen uint64) int {
	return int(slab.HeaderSize) +
		int(capacity+1)*int(slab.LeafSlotSize) +
		int(capacity)*int(slab.InnerSlotSize) +
		int(capacity+1)*int(cbLen)
}

func queueSize(slots uint64, cbLen uint64) int {
	return int(queue.HeaderSize) + int(queue.RegisterSize) + int(slots)*queue.SlotSize(cbLen)
}

func newTestMarket(t *testing.T, authority [32]byte) *Market {
	t.Helper()
	marketBuf := make([]byte, StateSize)
	queueBuf := make([]byte, queueSize(16, testCbLen))
	bidsBuf := make([]byte, slabSize(16, testCbLen))
	asksBuf := make([]byte, slabSize(16, testCbLen))

	m, err := CreateMarket(marketBuf, queueBuf, bidsBuf, asksBuf, CreateParams{
		CallerAuthority:  authority,
		CallbackIDLen:    testCbLen,
		CallbackInfoLen:  testCbLen,
		MinBaseOrderSize: 1,
		TickSize:         1,
		CrankerReward:    2,
		InitialLamports:  100,
	})
	require.NoError(t, err)
	return m
}

func cb(b byte) []byte { return []byte{b, b, b, b} }

func TestCreateAndOpenRoundTrip(t *testing.T) {
	var authority [32]byte
	authority[0] = 7

	marketBuf := make([]byte, StateSize)
	queueBuf := make([]byte, queueSize(16, testCbLen))
	bidsBuf := make([]byte, slabSize(16, testCbLen))
	asksBuf := make([]byte, slabSize(16, testCbLen))

	_, err := CreateMarket(marketBuf, queueBuf, bidsBuf, asksBuf, CreateParams{
		CallerAuthority:  authority,
		CallbackIDLen:    testCbLen,
		CallbackInfoLen:  testCbLen,
		MinBaseOrderSize: 1,
		TickSize:         1,
		InitialLamports:  50,
	})
	require.NoError(t, err)

	m, err := Open(marketBuf, queueBuf, bidsBuf, asksBuf)
	require.NoError(t, err)
	st := m.state()
	require.Equal(t, authority, st.CallerAuthority)
	require.Equal(t, uint64(50), st.FeeBudget)
}

func TestNewOrderWrongAuthorityRejected(t *testing.T) {
	var authority, other [32]byte
	authority[0] = 1
	other[0] = 2
	m := newTestMarket(t, authority)

	_, err := m.NewOrder(other, matching.OrderRequest{
		Side:         matching.SideBid,
		LimitPrice:   10,
		MaxBaseQty:   5,
		MaxQuoteQty:  50,
		MatchLimit:   1,
		CallbackInfo: cb(1),
		PostAllowed:  true,
	})
	require.ErrorIs(t, err, ErrWrongAuthority)
}

func TestNewOrderWrongCallbackInfoLengthRejected(t *testing.T) {
	var authority [32]byte
	m := newTestMarket(t, authority)

	_, err := m.NewOrder(authority, matching.OrderRequest{
		Side:         matching.SideBid,
		LimitPrice:   10,
		MaxBaseQty:   5,
		MaxQuoteQty:  50,
		MatchLimit:   1,
		CallbackInfo: []byte{1, 2},
		PostAllowed:  true,
	})
	require.ErrorIs(t, err, ErrAccountSizeMismatch)
}

func TestNewOrderPostsThenCancel(t *testing.T) {
	var authority [32]byte
	m := newTestMarket(t, authority)

	res, err := m.NewOrder(authority, matching.OrderRequest{
		Side:         matching.SideBid,
		LimitPrice:   10,
		MaxBaseQty:   5,
		MaxQuoteQty:  50,
		MatchLimit:   1,
		CallbackInfo: cb(1),
		PostAllowed:  true,
	})
	require.NoError(t, err)
	require.True(t, res.Posted)

	err = m.CancelOrder(authority, matching.SideBid, res.PostedOrderID)
	require.NoError(t, err)
	require.True(t, m.bids.IsEmpty())
}

func TestConsumeEventsPaysDownFeeBudget(t *testing.T) {
	var authority [32]byte
	m := newTestMarket(t, authority)

	res, err := m.NewOrder(authority, matching.OrderRequest{
		Side:         matching.SideBid,
		LimitPrice:   10,
		MaxBaseQty:   5,
		MaxQuoteQty:  50,
		MatchLimit:   1,
		CallbackInfo: cb(1),
		PostAllowed:  true,
	})
	require.NoError(t, err)
	require.NoError(t, m.CancelOrder(authority, matching.SideBid, res.PostedOrderID))
	require.Equal(t, uint64(1), m.queue.Count(), "cancel emits one Out event")

	popped, err := m.ConsumeEvents(10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), popped)

	st := m.state()
	require.Equal(t, uint64(98), st.FeeBudget, "one event popped at cranker_reward=2")
}

func TestCloseMarketRequiresEmptyState(t *testing.T) {
	var authority [32]byte
	m := newTestMarket(t, authority)

	res, err := m.NewOrder(authority, matching.OrderRequest{
		Side:         matching.SideBid,
		LimitPrice:   10,
		MaxBaseQty:   5,
		MaxQuoteQty:  50,
		MatchLimit:   1,
		CallbackInfo: cb(1),
		PostAllowed:  true,
	})
	require.NoError(t, err)
	require.True(t, res.Posted)

	err = m.CloseMarket(authority)
	require.ErrorIs(t, err, ErrMarketNotEmpty, "resting order must block close")

	require.NoError(t, m.CancelOrder(authority, matching.SideBid, res.PostedOrderID))

	err = m.CloseMarket(authority)
	require.ErrorIs(t, err, ErrMarketNotEmpty, "the cancel's own Out event is still unconsumed")

	popped, err := m.ConsumeEvents(10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), popped, "posting alone emits no event; cancel emits one Out event")

	require.NoError(t, m.CloseMarket(authority))
	require.Equal(t, accounttag.Disabled, m.state().Tag)
}

func TestCloseMarketWrongAuthorityRejected(t *testing.T) {
	var authority, other [32]byte
	authority[0] = 1
	other[0] = 9
	m := newTestMarket(t, authority)
	require.ErrorIs(t, m.CloseMarket(other), ErrWrongAuthority)
}
