package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
)

// DomBridgeConfidence is the fixed confidence assigned to every
// observation sourced from the DOM fast path: a browser poker client
// delivering structured data directly is treated as ground truth.
const DomBridgeConfidence = 0.99

// DomPoll reads the current structured state from an in-browser poker
// client for the region named by hint.Region, if that client exposes
// one. ok=false means the bridge has nothing for this region this frame.
type DomPoll func(region string) (kind model.ObservationKind, value any, ok bool)

// NewDomBridge builds the DomBridge strategy: when available, it
// supersedes pixel-based strategies for the same slot at a fixed 0.99
// confidence.
func NewDomBridge(id string, poll DomPoll) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		kind, value, ok := poll(hint.Region)
		if !ok {
			return nil, nil
		}
		return []model.Observation{{
			Kind:       kind,
			Slot:       hint.Region,
			Value:      value,
			Confidence: DomBridgeConfidence,
			StrategyID: id,
		}}, nil
	})
}
