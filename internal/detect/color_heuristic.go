package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
)

// Classifier labels a region's pixel buffer, e.g. "highlighted" or
// "idle" for an active-turn heuristic based on border color.
type Classifier func(pixels []byte, w, h int) (label string, confidence float64)

// NewColorHeuristic builds a ColorHeuristic strategy that classifies a
// region and emits an ActiveTurn observation when the label matches
// activeLabel.
func NewColorHeuristic(id string, classify Classifier, activeLabel string) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		sample := cropOrFull(frame, hint.ROI)
		if len(sample) == 0 {
			return nil, nil
		}
		label, conf := classify(sample, hint.ROI.W, hint.ROI.H)
		if label != activeLabel {
			return nil, nil
		}
		return []model.Observation{{
			Kind:       model.ObservationActiveTurn,
			Slot:       hint.Region,
			Value:      true,
			Confidence: conf,
			StrategyID: id,
			Location:   &hint.ROI,
		}}, nil
	})
}
