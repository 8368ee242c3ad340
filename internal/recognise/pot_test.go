package recognise

import (
	"testing"

	"github.com/pokertool/core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePotText_Variants(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw      string
		amount   float64
		currency string
	}{
		{"$1,234.50", 1234.50, "USD"},
		{"€500", 500, "EUR"},
		{"£12.00", 12, "GBP"},
		{"₿0.045", 0.045, "BTC"},
		{"Ξ1.2", 1.2, "ETH"},
		{"1200 CHIPS", 1200, "CHIPS"},
		{"2,500", 2500, "CHIPS"},
	}
	for _, tc := range cases {
		amount, currency, err := ParsePotText(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.InDelta(t, tc.amount, amount, 1e-9, tc.raw)
		assert.Equal(t, tc.currency, currency, tc.raw)
	}
}

func TestParsePotText_Invalid(t *testing.T) {
	t.Parallel()
	_, _, err := ParsePotText("")
	assert.Error(t, err)
	_, _, err = ParsePotText("not a number")
	assert.Error(t, err)
}

func TestPotTracker_TemporalConsensusBoost(t *testing.T) {
	t.Parallel()
	pt := NewPotTracker()
	var last model.PotAmount
	for i := 0; i < potConsensusWindow; i++ {
		res := model.Resolution{Value: "$100", Confidence: 0.80}
		pa, ok := pt.Resolve("table1.pot", res, "template_match")
		require.True(t, ok)
		last = pa
	}
	assert.InDelta(t, 0.85, last.Confidence, 1e-9, "boost capped additively at +0.05 over base 0.80")
}

func TestPotTracker_ConsensusBoostCappedAt099(t *testing.T) {
	t.Parallel()
	pt := NewPotTracker()
	var last model.PotAmount
	for i := 0; i < potConsensusWindow; i++ {
		res := model.Resolution{Value: "$100", Confidence: 0.97}
		pa, _ := pt.Resolve("table1.pot", res, "ocr")
		last = pa
	}
	assert.LessOrEqual(t, last.Confidence, potConsensusCap)
}

func TestPotTracker_DisagreementSuppressesBoost(t *testing.T) {
	t.Parallel()
	pt := NewPotTracker()
	amounts := []string{"$100", "$150", "$100", "$100", "$100"}
	var last model.PotAmount
	for _, a := range amounts {
		res := model.Resolution{Value: a, Confidence: 0.80}
		pa, _ := pt.Resolve("table1.pot", res, "ocr")
		last = pa
	}
	assert.InDelta(t, 0.80, last.Confidence, 1e-9)
}

func TestPotTracker_RangePenaltyAppliesToImplausibleAmounts(t *testing.T) {
	t.Parallel()
	pt := NewPotTracker()
	res := model.Resolution{Value: "$99999999999", Confidence: 0.9}
	pa, ok := pt.Resolve("table2.pot", res, "ocr")
	require.True(t, ok)
	assert.InDelta(t, 0.45, pa.Confidence, 1e-9)
}

func TestPotTracker_Resolve_NonParseableValueRejected(t *testing.T) {
	t.Parallel()
	pt := NewPotTracker()
	res := model.Resolution{Value: struct{}{}, Confidence: 0.9}
	_, ok := pt.Resolve("table3.pot", res, "ocr")
	assert.False(t, ok)
}
