package matching

import "errors"

var (
	// ErrWouldSelfTrade is returned when self_trade_behavior is
	// AbortTransaction and the taker would cross its own resting order.
	ErrWouldSelfTrade = errors.New("matching: order would self-trade")
	// ErrPostOnlyCrosses is returned when post_only is set and the order
	// would have matched against the opposite book.
	ErrPostOnlyCrosses = errors.New("matching: post-only order crosses the book")
	// ErrSlabFull is returned when the residual cannot be posted and no
	// eviction candidate is strictly worse-priced.
	ErrSlabFull = errors.New("matching: book is full and no eviction candidate qualifies")
	// ErrEventQueueFull is returned by the preflight check when the queue
	// cannot be guaranteed to hold the events the requested match_limit
	// could produce.
	ErrEventQueueFull = errors.New("matching: event queue cannot guarantee space for this match")
	// ErrNoOperations is returned when an order neither matched anything
	// nor posted a residual.
	ErrNoOperations = errors.New("matching: no match and nothing posted")
	// ErrInvalidPrice is returned when limit_price is not a multiple of
	// the market's tick_size.
	ErrInvalidPrice = errors.New("matching: price is not a multiple of tick size")
	// ErrOrderNotFound is returned by CancelOrder when the key names no
	// resting order on the given side.
	ErrOrderNotFound = errors.New("matching: order not found")
	// ErrOrderBelowMinimum is returned when a post-allowed order's
	// max_base_qty is below min_base_order_size (§4.3 Preconditions).
	ErrOrderBelowMinimum = errors.New("matching: order size is below min_base_order_size")
	// ErrBrokenInvariant marks a state that should be unreachable; see §7.
	ErrBrokenInvariant = errors.New("matching: broken invariant")
)
