package slab

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/critbook/matching-engine/internal/accounttag"
	"github.com/critbook/matching-engine/internal/slabkey"
)

const cbLen = 4

func newTestSlab(t *testing.T, capacity uint32) *Slab {
	t.Helper()
	size := regionSize(capacity, cbLen)
	buf := make([]byte, size)
	s, err := New(buf, cbLen, accounttag.Bids)
	require.NoError(t, err)
	return s
}

func cb(b byte) []byte { return []byte{b, b, b, b} }

// Scenario 1: post three bids out of order, verify ascending order and max.
func TestScenario1_PostBidsOutOfOrder(t *testing.T) {
	s := newTestSlab(t, 16)

	insert := func(price uint64, qty uint64, tag byte) Handle {
		key := slabkey.New(price, uint64(price), true)
		h, _, _, replaced, err := s.Insert(key, qty, cb(tag))
		require.NoError(t, err)
		require.False(t, replaced)
		return h
	}

	insert(300, 1000, 1)
	insert(100, 2000, 2)
	insert(200, 3000, 3)

	var qtys []uint64
	var prices []uint64
	s.Iterate(true, func(h Handle) bool {
		leaf := s.Leaf(h)
		qtys = append(qtys, leaf.BaseQty)
		prices = append(prices, leaf.Key.Price())
		return true
	})

	require.Equal(t, []uint64{2000, 3000, 1000}, qtys)
	require.Equal(t, []uint64{100, 200, 300}, prices)

	maxH, ok := s.FindMax()
	require.True(t, ok)
	require.Equal(t, uint64(300), s.Leaf(maxH).Key.Price())
}

// P1 — key-order totality across a randomized insert/remove sequence.
func TestP1_KeyOrderTotality(t *testing.T) {
	s := newTestSlab(t, 256)
	present := map[uint64]bool{}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 400; i++ {
		price := uint64(rng.Intn(200))
		seq := uint64(i)
		key := slabkey.New(price, seq, false)
		if rng.Intn(3) == 0 && len(present) > 0 {
			// remove some arbitrary existing key
			for p := range present {
				s.Remove(slabkey.New(p>>32, p&0xffffffff, false))
				delete(present, p)
				break
			}
			continue
		}
		_, _, _, _, err := s.Insert(key, 1, cb(1))
		require.NoError(t, err)
		present[price<<32|seq] = true
	}

	var lastKey slabkey.Key
	first := true
	count := 0
	s.Iterate(true, func(h Handle) bool {
		k := s.Leaf(h).Key
		if !first {
			require.True(t, lastKey.Less(k), "keys must be strictly increasing")
		}
		lastKey = k
		first = false
		count++
		return true
	})
	require.Equal(t, len(present), count)
}

// P3 — insert then remove the same key leaves no leak: the leaf count and
// the iterated key set match the state before the insert.
func TestP3_NoLeakOnInsertRemove(t *testing.T) {
	s := newTestSlab(t, 16)

	insertAt := func(price uint64) {
		key := slabkey.New(price, price, false)
		_, _, _, _, err := s.Insert(key, 10, cb(1))
		require.NoError(t, err)
	}
	insertAt(10)
	insertAt(20)
	insertAt(30)

	beforeLeafCount := s.LeafCount()

	key40 := slabkey.New(40, 40, false)
	_, _, _, _, err := s.Insert(key40, 10, cb(9))
	require.NoError(t, err)
	_, _, ok := s.Remove(key40)
	require.True(t, ok)

	require.Equal(t, beforeLeafCount, s.LeafCount())

	var prices []uint64
	s.Iterate(true, func(h Handle) bool {
		prices = append(prices, s.Leaf(h).Key.Price())
		return true
	})
	require.Equal(t, []uint64{10, 20, 30}, prices)
}

func TestInsertReplaceInPlace(t *testing.T) {
	s := newTestSlab(t, 8)
	key := slabkey.New(100, 1, true)
	h1, _, _, replaced, err := s.Insert(key, 50, cb(7))
	require.NoError(t, err)
	require.False(t, replaced)

	h2, prevQty, prevCb, replaced, err := s.Insert(key, 75, cb(8))
	require.NoError(t, err)
	require.True(t, replaced)
	require.Equal(t, h1, h2)
	require.Equal(t, uint64(50), prevQty)
	require.Equal(t, cb(7), prevCb)
	require.Equal(t, uint64(1), s.LeafCount())
	require.Equal(t, uint64(75), s.Leaf(h1).BaseQty)
}

func TestSlabFullReturnsErrSlabFull(t *testing.T) {
	s := newTestSlab(t, 2)
	for i := uint64(0); i < 2; i++ {
		_, _, _, _, err := s.Insert(slabkey.New(i, i, false), 1, cb(1))
		require.NoError(t, err)
	}
	_, _, _, _, err := s.Insert(slabkey.New(99, 99, false), 1, cb(1))
	require.ErrorIs(t, err, ErrSlabFull)
}

func TestFindMinMaxEmpty(t *testing.T) {
	s := newTestSlab(t, 4)
	_, ok := s.FindMin()
	require.False(t, ok)
	_, ok = s.FindMax()
	require.False(t, ok)
	require.True(t, s.IsEmpty())
}

func TestRemoveDescendingOrientation(t *testing.T) {
	s := newTestSlab(t, 16)
	for _, price := range []uint64{500, 100, 300, 200, 400} {
		_, _, _, _, err := s.Insert(slabkey.New(price, price, true), 1, cb(1))
		require.NoError(t, err)
	}
	h, ok := s.Find(slabkey.New(300, 300, true))
	require.True(t, ok)
	_, _, ok = s.Remove(s.Leaf(h).Key)
	require.True(t, ok)

	var prices []uint64
	s.Iterate(true, func(h Handle) bool {
		prices = append(prices, s.Leaf(h).Key.Price())
		return true
	})
	require.Equal(t, []uint64{100, 200, 400, 500}, prices)
}
