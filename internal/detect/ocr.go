package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/internal/recognise"
)

// Engine reads text out of a region's pixel buffer. No OCR library is
// part of this module's dependency surface; production builds inject a
// real engine (a bound OCR binary, a remote recognizer) here.
type Engine func(ctx context.Context, pixels []byte, w, h int) (text string, confidence float64, err error)

// NewOCRPot builds an OCR strategy that reads a pot-size region and
// parses it via recognise.ParsePotText.
func NewOCRPot(id string, engine Engine) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		sample := cropOrFull(frame, hint.ROI)
		text, conf, err := engine(ctx, sample, hint.ROI.W, hint.ROI.H)
		if err != nil {
			return nil, err
		}
		amount, currency, err := recognise.ParsePotText(text)
		if err != nil {
			return nil, nil // unparseable text is not a strategy failure, just no observation
		}
		return []model.Observation{{
			Kind: model.ObservationPot,
			Slot: hint.Region,
			Value: model.PotAmount{
				Amount:   amount,
				Currency: currency,
				RawText:  text,
				Method:   id,
			},
			Confidence: conf,
			StrategyID: id,
			Location:   &hint.ROI,
		}}, nil
	})
}

// NewOCRSeat builds an OCR strategy that reads a seat-name region and
// filters it via recognise.NormalisePlayerName.
func NewOCRSeat(id string, engine Engine) Strategy {
	return NewStrategy(id, func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
		sample := cropOrFull(frame, hint.ROI)
		text, conf, err := engine(ctx, sample, hint.ROI.W, hint.ROI.H)
		if err != nil {
			return nil, err
		}
		name := recognise.NormalisePlayerName(text)
		if name == "" {
			return nil, nil
		}
		return []model.Observation{{
			Kind:       model.ObservationSeat,
			Slot:       hint.Region,
			Value:      name,
			Confidence: conf,
			StrategyID: id,
			Location:   &hint.ROI,
		}}, nil
	})
}
