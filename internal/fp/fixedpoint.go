// Package fp implements FP32 fixed-point price arithmetic: all prices are
// u64 values storing floor(real_price * 2^32). There is no floating point
// anywhere in this package or anything that depends on it — the spec that
// drives this repo forbids it, since the host this engine is designed for has
// no FPU budget to spend.
//
// The one design decision worth a comment: multiplication and division both
// need a 128-bit intermediate to avoid overflow/underflow at the top of the
// u64 range, so both go through math/bits' 64x64->128 primitives rather than
// a library like shopspring/decimal — decimal's on-the-wire representation
// does not match the fixed 32.32 layout the crit-bit key depends on (see
// DESIGN.md).
package fp

import "math/bits"

// Shift is the number of fractional bits in an FP32 price.
const Shift = 32

// Mul computes floor(a * b / 2^32) without overflowing past a 128-bit
// intermediate product.
func Mul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	// (hi:lo) >> 32
	return (hi << 32) | (lo >> 32)
}

// MulRoundUp computes ceil(a * b / 2^32).
func MulRoundUp(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q := (hi << 32) | (lo >> 32)
	rem := lo & (1<<32 - 1)
	if rem != 0 {
		q++
	}
	return q
}

// Div computes floor((a << 32) / b), i.e. a / b in FP32, via a 128-bit
// dividend. Panics if b is zero (callers must have validated that; a division
// by zero at this layer is a programming error, not a runtime condition to
// recover from).
func Div(a, b uint64) uint64 {
	if b == 0 {
		panic("fp: division by zero")
	}
	hi := a >> 32
	lo := a << 32
	if hi >= b {
		// Quotient would not fit in 64 bits: saturate. Callers are expected
		// to have bounded a and b so this does not occur on the hot path;
		// this is a defensive clamp, not a silent correctness gap.
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, b)
	return q
}

// MulQuoteForBase returns the quote amount for base units b at price p,
// rounding up — used for the quantity a taker must pay (never undercharge
// the taker).
func MulQuoteForBase(b, price uint64) uint64 {
	return MulRoundUp(b, price)
}

// BaseForQuote returns the maximum base units affordable with quote budget q
// at price p: floor(q * 2^32 / p).
func BaseForQuote(q, price uint64) uint64 {
	return Div(q, price)
}
