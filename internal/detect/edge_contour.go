package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
)

// ContourFinder locates the dealer button within a region's pixel
// buffer and reports which seat it currently sits at.
type ContourFinder func(pixels []byte, w, h int) (seat int, confidence float64, found bool)

// NewEdgeContour builds an EdgeContour strategy that locates the
// dealer button via find and emits a Button observation for the
// dealer_button slot, carrying the seat number it reports as its value.
func NewEdgeContour(id string, find ContourFinder) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		sample := cropOrFull(frame, hint.ROI)
		if len(sample) == 0 {
			return nil, nil
		}
		seat, conf, found := find(sample, hint.ROI.W, hint.ROI.H)
		if !found {
			return nil, nil
		}
		return []model.Observation{{
			Kind:       model.ObservationButton,
			Slot:       hint.Region,
			Value:      seat,
			Confidence: conf,
			StrategyID: id,
			Location:   &hint.ROI,
		}}, nil
	})
}
