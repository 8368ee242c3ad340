package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationGen_MonotonicAcrossMillis(t *testing.T) {
	g := newCorrelationGen()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := g.next(base)
	b := g.next(base.Add(time.Millisecond))
	require.NotEqual(t, a, b)
	assert.Less(t, a, b, "IDs must sort chronologically across millisecond boundaries")
}

func TestCorrelationGen_UniqueWithinSameMillis(t *testing.T) {
	g := newCorrelationGen()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.next(now)
		require.False(t, seen[id], "id %q repeated within the same millisecond", id)
		seen[id] = true
	}
}

func TestCorrelationGen_MonotonicWithinSameMillis(t *testing.T) {
	g := newCorrelationGen()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	prev := g.next(now)
	for i := 0; i < 100; i++ {
		cur := g.next(now)
		assert.Less(t, prev, cur)
		prev = cur
	}
}

func TestCorrelationGen_HandlesClockGoingBackwards(t *testing.T) {
	g := newCorrelationGen()
	now := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)
	earlier := now.Add(-time.Second)

	first := g.next(now)
	second := g.next(earlier)
	require.NotEqual(t, first, second)
	assert.Less(t, first, second, "a clock rollback must still produce a monotonically increasing id")
}

func TestIncrementBytes_CarriesAcrossByteBoundary(t *testing.T) {
	b := [10]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0xFF}
	incrementBytes(&b)
	assert.Equal(t, [10]byte{0, 0, 0, 0, 0, 0, 0, 0, 1, 0}, b)
}
