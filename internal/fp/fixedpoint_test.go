package fp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMulBasic(t *testing.T) {
	one := uint64(1) << Shift
	require.Equal(t, uint64(5), Mul(5*one, one))
	require.Equal(t, uint64(10), Mul(5*one, 2*one))
}

func TestDivBasic(t *testing.T) {
	one := uint64(1) << Shift
	require.Equal(t, 2*one, Div(10*one, 5*one))
}

func TestMulRoundUp(t *testing.T) {
	// price = 1.5 in FP32, base = 3 units -> quote = 4.5, rounds up to 5.
	price := uint64(3) << (Shift - 1) // 1.5 * 2^32
	base := uint64(3)
	got := MulRoundUp(base, price)
	want := MulRoundUp(3, 3<<(Shift-1))
	require.Equal(t, want, got)
	require.GreaterOrEqual(t, got*uint64(1)<<0, Mul(base, price))
}

func TestBaseForQuoteAffordability(t *testing.T) {
	one := uint64(1) << Shift
	price := 2 * one // price = 2.0
	quote := uint64(10_000)
	base := BaseForQuote(quote, price)
	// base*price/2^32 must not exceed quote (taker never overspends).
	require.LessOrEqual(t, Mul(base, price), quote)
	require.Greater(t, Mul(base+1, price), quote)
}
