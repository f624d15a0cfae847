package market

import (
	"github.com/critbook/matching-engine/internal/accounttag"
	"github.com/critbook/matching-engine/internal/matching"
	"github.com/critbook/matching-engine/internal/queue"
	"github.com/critbook/matching-engine/internal/slab"
	"github.com/critbook/matching-engine/internal/slabkey"
)

// Market binds a MarketState header to its three satellite regions and
// exposes the five instructions as methods. It holds no state of its own
// beyond the four byte slices it was opened over; every method re-reads the
// header before acting, so a Market is safe to construct fresh per call.
type Market struct {
	buf   []byte
	queue *queue.Queue
	bids  *slab.Slab
	asks  *slab.Slab
}

// CreateParams carries the caller-supplied configuration for CreateMarket
// (§4.4, §6.3). InitialLamports is tracked only as the starting FeeBudget;
// this package never moves value, since settlement is out of scope (§1).
type CreateParams struct {
	CallerAuthority  [32]byte
	CallbackIDLen    uint64
	CallbackInfoLen  uint64
	MinBaseOrderSize uint64
	TickSize         uint64
	CrankerReward    uint64
	InitialLamports  uint64
}

func (m *Market) state() State     { return decodeState(m.buf[:StateSize]) }
func (m *Market) setState(s State) { encodeState(m.buf[:StateSize], s) }

// Open attaches to an already-initialized market and its three satellite
// regions. It checks the market's own tag and each satellite region's tag
// (EventQueue, Bids, Asks), returning ErrInvalidAccountTag on a mismatch.
func Open(marketBuf, queueBuf, bidsBuf, asksBuf []byte) (*Market, error) {
	if len(marketBuf) < StateSize {
		return nil, ErrAccountSizeMismatch
	}
	st := decodeState(marketBuf)
	if st.Tag != accounttag.Market {
		return nil, ErrInvalidAccountTag
	}

	q, err := queue.Open(queueBuf, st.CallbackInfoLen)
	if err != nil {
		return nil, err
	}
	if q.Tag() != accounttag.EventQueue {
		return nil, ErrInvalidAccountTag
	}

	bids, err := slab.Open(bidsBuf, st.CallbackInfoLen)
	if err != nil {
		return nil, err
	}
	if bids.Tag() != accounttag.Bids {
		return nil, ErrInvalidAccountTag
	}

	asks, err := slab.Open(asksBuf, st.CallbackInfoLen)
	if err != nil {
		return nil, err
	}
	if asks.Tag() != accounttag.Asks {
		return nil, ErrInvalidAccountTag
	}

	return &Market{buf: marketBuf, queue: q, bids: bids, asks: asks}, nil
}

// CreateMarket initializes a fresh MarketState and its three satellite
// regions in place, following the same "caller owns and pre-zeros the
// storage, we lay out a header into it" convention as slab.New and
// queue.New.
func CreateMarket(marketBuf, queueBuf, bidsBuf, asksBuf []byte, p CreateParams) (*Market, error) {
	if len(marketBuf) < StateSize {
		return nil, ErrAccountSizeMismatch
	}

	q, err := queue.New(queueBuf, p.CallbackInfoLen)
	if err != nil {
		return nil, err
	}
	bids, err := slab.New(bidsBuf, p.CallbackInfoLen, accounttag.Bids)
	if err != nil {
		return nil, err
	}
	asks, err := slab.New(asksBuf, p.CallbackInfoLen, accounttag.Asks)
	if err != nil {
		return nil, err
	}

	st := State{
		Tag:              accounttag.Market,
		CallerAuthority:  p.CallerAuthority,
		CallbackIDLen:    p.CallbackIDLen,
		CallbackInfoLen:  p.CallbackInfoLen,
		FeeBudget:        p.InitialLamports,
		InitialLamports:  p.InitialLamports,
		MinBaseOrderSize: p.MinBaseOrderSize,
		TickSize:         p.TickSize,
		CrankerReward:    p.CrankerReward,
	}
	encodeState(marketBuf, st)

	return &Market{buf: marketBuf, queue: q, bids: bids, asks: asks}, nil
}

// Book exposes the market's two Slabs for read-only inspection (depth
// snapshots, debugging) without going through an instruction.
func (m *Market) Book() *matching.Book {
	return &matching.Book{Bids: m.bids, Asks: m.asks}
}

func (m *Market) engine(st State) *matching.Engine {
	return &matching.Engine{
		Book:  &matching.Book{Bids: m.bids, Asks: m.asks},
		Queue: m.queue,
		Params: matching.Params{
			TickSize:         st.TickSize,
			MinBaseOrderSize: st.MinBaseOrderSize,
			CallbackIDLen:    st.CallbackIDLen,
		},
	}
}

// NewOrder validates the caller's authority and callback_info length, then
// hands the request to a matching.Engine built from this market's
// parameters and regions (§4.3, §4.4).
func (m *Market) NewOrder(authority [32]byte, req matching.OrderRequest) (matching.Result, error) {
	st := m.state()
	if authority != st.CallerAuthority {
		return matching.Result{}, ErrWrongAuthority
	}
	if uint64(len(req.CallbackInfo)) != st.CallbackInfoLen {
		return matching.Result{}, ErrAccountSizeMismatch
	}
	return m.engine(st).NewOrder(req)
}

// CancelOrder validates the caller's authority, then removes the named
// resting order (§4.4).
func (m *Market) CancelOrder(authority [32]byte, side matching.Side, orderID slabkey.Key) error {
	st := m.state()
	if authority != st.CallerAuthority {
		return ErrWrongAuthority
	}
	return m.engine(st).CancelOrder(side, orderID)
}

// ConsumeEvents pops up to n events and pays down fee_budget by
// cranker_reward per event popped, saturating at zero. The actual transfer
// of that reward to whoever called ConsumeEvents is a host-level concern
// this package does not model (§1 excludes settlement).
func (m *Market) ConsumeEvents(n uint64) (uint64, error) {
	popped := m.queue.Pop(n)
	if popped == 0 {
		return 0, nil
	}
	st := m.state()
	owed := st.CrankerReward * popped
	if owed > st.FeeBudget {
		st.FeeBudget = 0
	} else {
		st.FeeBudget -= owed
	}
	m.setState(st)
	return popped, nil
}

// CloseMarket validates the caller's authority and that the book and queue
// are fully drained, then disables all four regions, the terminal state of
// §4.4's lifecycle.
func (m *Market) CloseMarket(authority [32]byte) error {
	st := m.state()
	if authority != st.CallerAuthority {
		return ErrWrongAuthority
	}
	if !m.bids.IsEmpty() || !m.asks.IsEmpty() || m.queue.Count() != 0 {
		return ErrMarketNotEmpty
	}

	m.bids.Disable()
	m.asks.Disable()
	m.queue.Disable()
	st.Tag = accounttag.Disabled
	m.setState(st)
	return nil
}
