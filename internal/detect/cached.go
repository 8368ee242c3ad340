package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
)

// CachedDecay discounts a predictive observation's confidence relative
// to the live observation it was copied from, so a run of Cached hits
// never outweighs genuine fresh detections in the ensemble vote.
const CachedDecay = 0.9

// PriorLookup returns the previous frame's resolved value for a slot,
// as last seen by the dispatcher.
type PriorLookup func(region string) (kind model.ObservationKind, value any, confidence float64, ok bool)

// NewCached builds the Cached strategy: a near-zero-cost prediction
// carried forward from the previous frame's resolved state, used to
// keep a slot populated when every live strategy misses it this frame.
func NewCached(id string, lookup PriorLookup) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		kind, value, confidence, ok := lookup(hint.Region)
		if !ok {
			return nil, nil
		}
		return []model.Observation{{
			Kind:       kind,
			Slot:       hint.Region,
			Value:      value,
			Confidence: confidence * CachedDecay,
			StrategyID: id,
			CostMS:     0,
		}}, nil
	})
}
