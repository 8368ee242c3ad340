// Package detect turns a captured Frame into typed Observations. Every
// strategy is a pure function of (Frame, RegionHint); strategies never
// share mutable state, and a strategy that errors contributes zero
// observations rather than failing the frame.
package detect

import (
	"context"

	"github.com/pokertool/core/internal/model"
)

// Strategy transforms a Frame into zero or more Observations for the
// region named by hint.
type Strategy interface {
	ID() string
	Detect(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error)
}

// DetectFunc is the pluggable core of a Strategy.
type DetectFunc func(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error)

type funcStrategy struct {
	id string
	fn DetectFunc
}

func (s *funcStrategy) ID() string { return s.id }

func (s *funcStrategy) Detect(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
	return s.fn(ctx, frame, hint)
}

// NewStrategy wraps fn as a Strategy identified by id.
func NewStrategy(id string, fn DetectFunc) Strategy {
	return &funcStrategy{id: id, fn: fn}
}

// cropOrFull returns frame.Pixels narrowed to hint.ROI when one is
// given and fits within the frame, else the full frame buffer. Real
// backends would crop width/height-aware; strategies here only need a
// stable, deterministic byte slice to operate on.
func cropOrFull(frame model.Frame, roi model.ROI) []byte {
	if roi.W <= 0 || roi.H <= 0 {
		return frame.Pixels
	}
	n := roi.W * roi.H * 4
	if n <= 0 || n > len(frame.Pixels) {
		return frame.Pixels
	}
	return frame.Pixels[:n]
}
