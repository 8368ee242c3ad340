package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCard_RoundTripAll52(t *testing.T) {
	t.Parallel()
	for _, c := range AllCards() {
		parsed, err := ParseCard(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, parsed, "round trip failed for %s", c)
	}
}

func TestParseCard_Variants(t *testing.T) {
	t.Parallel()
	want := NewCard(Ace, Spades)
	for _, in := range []string{"As", "AS", "aS", "A♠", "as"} {
		got, err := ParseCard(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestParseCard_Ten(t *testing.T) {
	t.Parallel()
	ten, err := ParseCard("10h")
	require.NoError(t, err)
	assert.Equal(t, NewCard(Ten, Hearts), ten)
	assert.Equal(t, "Th", ten.String())
}

func TestParseCard_Invalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"", "Zz", "1", "Ax"} {
		_, err := ParseCard(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestAllCards_Unique(t *testing.T) {
	t.Parallel()
	seen := make(map[Card]bool)
	for _, c := range AllCards() {
		assert.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}
