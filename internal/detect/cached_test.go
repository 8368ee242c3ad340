package detect

import (
	"context"
	"testing"

	"github.com/pokertool/core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached_DecaysConfidenceRelativeToPrior(t *testing.T) {
	t.Parallel()
	lookup := func(region string) (model.ObservationKind, any, float64, bool) {
		return model.ObservationPot, model.PotAmount{Amount: 10}, 0.9, true
	}
	strategy := NewCached("cached", lookup)

	obs, err := strategy.Detect(context.Background(), model.Frame{}, model.RegionHint{Region: "pot"})
	require.NoError(t, err)
	require.Len(t, obs, 1)
	assert.InDelta(t, 0.9*CachedDecay, obs[0].Confidence, 1e-9)
	assert.Equal(t, 0.0, obs[0].CostMS)
}

func TestCached_NoEmissionWhenNoPriorValue(t *testing.T) {
	t.Parallel()
	lookup := func(region string) (model.ObservationKind, any, float64, bool) {
		return "", nil, 0, false
	}
	strategy := NewCached("cached", lookup)

	obs, err := strategy.Detect(context.Background(), model.Frame{}, model.RegionHint{Region: "board"})
	require.NoError(t, err)
	assert.Empty(t, obs)
}
