package model

import "github.com/pokertool/core/poker"

// ObservationKind identifies the semantic slot an Observation claims a
// value for.
type ObservationKind string

const (
	ObservationCard       ObservationKind = "Card"
	ObservationPot        ObservationKind = "Pot"
	ObservationSeat       ObservationKind = "Seat"
	ObservationBoard      ObservationKind = "Board"
	ObservationButton     ObservationKind = "Button"
	ObservationHero       ObservationKind = "HeroCards"
	ObservationAction     ObservationKind = "Action"
	ObservationSidePot    ObservationKind = "SidePot"
	ObservationActiveTurn ObservationKind = "ActiveTurn"
)

// RegionHint narrows a strategy's search to one semantic region of the
// table.
type RegionHint struct {
	Region string // e.g. "board[0]", "hero_cards[1]", "pot", "seat[3]", "dealer_button"
	ROI    ROI
}

// ROI is a rectangular pixel region expected to contain a semantic element.
type ROI struct {
	X, Y, W, H int
}

// Observation is one strategy's claim about one semantic slot. Strategies
// never mutate shared state; Observation values are immutable once
// produced.
type Observation struct {
	Kind       ObservationKind
	Slot       string // disambiguates multiple slots of the same Kind, e.g. seat number
	Value      any
	Confidence float64 // [0,1]
	StrategyID string
	CostMS     float64
	Location   *ROI
	LowTrust   bool // set by the ensemble when disagreement is high
}

// CardValue extracts a poker.Card from an Observation whose Kind is
// ObservationCard, reporting ok=false if the value is not a card.
func (o Observation) CardValue() (poker.Card, bool) {
	c, ok := o.Value.(poker.Card)
	return c, ok
}

// PotAmount describes a detected pot value with currency, as produced by
// the pot recogniser.
type PotAmount struct {
	Amount     float64
	Currency   string
	RawText    string
	Method     string
	Confidence float64
}

// Resolution is the output of the ensemble voter resolving one slot's
// conflicting observations.
type Resolution struct {
	Value        any
	Confidence   float64
	Method       string
	Contributors []string // contributing strategy IDs
	Disagreement float64  // 1 - winner_votes/total_votes
	LowTrust     bool
}
