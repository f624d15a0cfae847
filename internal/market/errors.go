package market

import "errors"

// Validation errors (§7): rejected before any region is touched.
var (
	ErrInvalidAccountTag   = errors.New("market: account has the wrong tag")
	ErrWrongAuthority      = errors.New("market: caller authority does not match")
	ErrAccountSizeMismatch = errors.New("market: account region is the wrong size")
)

// Corruption / lifecycle errors.
var (
	ErrMarketNotEmpty = errors.New("market: bids, asks, and event queue must be empty to close")
)
