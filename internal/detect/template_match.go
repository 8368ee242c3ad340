package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/internal/recognise"
	"github.com/pokertool/core/poker"
)

// NewTemplateMatch builds the TemplateMatch strategy: it scores every
// card registered in lib for the given deck style against the frame's
// (cropped) pixel buffer by byte-agreement ratio, and emits an
// Observation for the best match above minConfidence.
func NewTemplateMatch(id string, lib *recognise.TemplateLibrary, style recognise.DeckStyle, minConfidence float64) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		sample := cropOrFull(frame, hint.ROI)
		if lib == nil || len(sample) == 0 {
			return nil, nil
		}

		var (
			bestCard  poker.Card
			bestScore float64
			found     bool
		)
		for _, c := range poker.AllCards() {
			tpl, ok := lib.Lookup(style, c)
			if !ok {
				continue
			}
			score := byteAgreement(sample, tpl)
			if score > bestScore {
				bestScore = score
				bestCard = c
				found = true
			}
		}
		if !found || bestScore < minConfidence {
			return nil, nil
		}
		return []model.Observation{{
			Kind:       model.ObservationCard,
			Slot:       hint.Region,
			Value:      bestCard,
			Confidence: bestScore,
			StrategyID: id,
			Location:   &hint.ROI,
		}}, nil
	})
}

// byteAgreement returns the fraction of overlapping bytes that match
// between a and b, over the shorter of the two lengths. Zero-length
// inputs score zero.
func byteAgreement(a, b []byte) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	return float64(matches) / float64(n)
}
