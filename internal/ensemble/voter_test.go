package ensemble

import (
	"testing"

	"github.com/pokertool/core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(strategyID string, value any, confidence float64) model.Observation {
	return model.Observation{Kind: model.ObservationPot, StrategyID: strategyID, Value: value, Confidence: confidence}
}

func TestResolve_WeightedVotePicksHighestScore(t *testing.T) {
	t.Parallel()
	v := New(DefaultConfig())
	res := v.Resolve("pot", []model.Observation{
		obs("template", 12.5, 0.9),
		obs("ocr", 12.5, 0.8),
		obs("color", 99.0, 0.3),
	})
	assert.Equal(t, 12.5, res.Value)
	assert.Greater(t, res.Confidence, 0.5)
}

func TestResolve_HighestConfidenceMinCountOverride(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.DefaultMethod = MethodHighestConfidence
	v := New(cfg)
	res := v.Resolve("card", []model.Observation{
		obs("template", "As", 0.70),
		obs("ocr", "As", 0.65),
		obs("edge", "Ks", 0.95), // higher confidence but alone
	})
	assert.Equal(t, "As", res.Value, "two agreeing strategies should override a lone higher-confidence singleton")
}

func TestResolve_MajorityTally(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.DefaultMethod = MethodMajority
	v := New(cfg)
	res := v.Resolve("card", []model.Observation{
		obs("a", "As", 0.5),
		obs("b", "As", 0.9),
		obs("c", "Ks", 0.99),
	})
	assert.Equal(t, "As", res.Value)
	assert.InDelta(t, 2.0/3.0, res.Confidence, 1e-9)
}

func TestResolve_WeightedAverageNumeric(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.DefaultMethod = MethodAverage
	v := New(cfg)
	res := v.Resolve("pot", []model.Observation{
		obs("a", 10.0, 1.0),
		obs("b", 20.0, 1.0),
	})
	assert.InDelta(t, 15.0, res.Value.(float64), 1e-9)
}

func TestResolve_TieBreakDeterministic(t *testing.T) {
	t.Parallel()
	v := New(DefaultConfig())
	res1 := v.Resolve("card", []model.Observation{
		obs("zeta", "As", 0.5),
		obs("alpha", "Ks", 0.5),
	})
	res2 := v.Resolve("card", []model.Observation{
		obs("alpha", "Ks", 0.5),
		obs("zeta", "As", 0.5),
	})
	assert.Equal(t, res1.Value, res2.Value, "tie-break must be order-independent")
}

func TestResolve_Empty(t *testing.T) {
	t.Parallel()
	v := New(DefaultConfig())
	res := v.Resolve("pot", nil)
	require.True(t, res.LowTrust)
}

func TestResolve_DisagreeingTemplatesPickHigherConfidence(t *testing.T) {
	t.Parallel()
	v := New(DefaultConfig())
	res := v.Resolve("card", []model.Observation{
		obs("classic-deck", "As", 0.82),
		obs("large-pip-deck", "Ks", 0.88),
	})
	assert.Equal(t, "Ks", res.Value, "two templates scoring distinct hypotheses must pick the higher-confidence one")
}

func TestResolve_AgreeingTemplatesBoostConfidenceAboveFloor(t *testing.T) {
	t.Parallel()
	v := New(DefaultConfig())
	res := v.Resolve("card", []model.Observation{
		obs("classic-deck", "Ks", 0.82),
		obs("large-pip-deck", "Ks", 0.88),
	})
	assert.Equal(t, "Ks", res.Value)
	assert.Greater(t, res.Confidence, 0.90, "two templates agreeing on identity must clear the consistency floor")
}

func TestResolve_LowTrustOnHighDisagreement(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.LowTrustFloor = 0.5
	v := New(cfg)
	res := v.Resolve("card", []model.Observation{
		obs("a", "As", 0.9),
		obs("b", "Ks", 0.9),
		obs("c", "Qs", 0.9),
	})
	assert.True(t, res.LowTrust)
}
