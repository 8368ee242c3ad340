package model

import (
	"fmt"

	"github.com/pokertool/core/poker"
)

// Stage is a betting street, implied by the number of board cards.
type Stage string

const (
	StagePreflop  Stage = "preflop"
	StageFlop     Stage = "flop"
	StageTurn     Stage = "turn"
	StageRiver    Stage = "river"
	StageShowdown Stage = "showdown"
)

// StageForBoardLength maps a board-card count to its implied stage
//. A
// 5-card board is reported as river; showdown is only reached through an
// explicit showdown signal, never inferred from board length alone.
func StageForBoardLength(n int) (Stage, bool) {
	switch n {
	case 0:
		return StagePreflop, true
	case 3:
		return StageFlop, true
	case 4:
		return StageTurn, true
	case 5:
		return StageRiver, true
	default:
		return "", false
	}
}

// DataSource reports the provenance of an emitted TableState.
type DataSource string

const (
	DataSourceLive           DataSource = "live"
	DataSourceLiveCached     DataSource = "live_cached"
	DataSourceCachedLowConf  DataSource = "cached (low confidence)"
	DataSourceCachedStale    DataSource = "cached (stale)"
)

// SidePot is observational data only: it is reported as detected, never
// reconciled against seat bets.
type SidePot struct {
	Amount   float64
	Eligible []int // seat numbers eligible for this pot
}

// TableState is the authoritative snapshot owned exclusively by the
// dispatcher. Consumers receive immutable copies.
type TableState struct {
	Site               string
	TableID            string
	HandID             string
	Stage              Stage
	BoardCards         []poker.Card
	HeroCards          []poker.Card
	HeroSeat           *int
	PotSize            float64
	SidePots           []SidePot
	SmallBlind         float64
	BigBlind           float64
	Ante               float64
	DealerSeat         *int
	ActiveTurnSeat     *int
	Seats              []Seat
	ActivePlayers      int
	DetectionConfidence float64
	TournamentName     string
	ExtractionMethod   string
	ExtractionTimeMS   float64

	DataSource      DataSource
	DataAgeSeconds  float64
}

// Validate checks the invariants a TableState must satisfy before it may
// be emitted. A non-nil error means the dispatcher must not emit this
// state; it should log a validation error instead.
func (t TableState) Validate() error {
	if _, ok := validBoardLengths[len(t.BoardCards)]; !ok {
		return NewError(KindValidation, "TableState.Validate",
			fmt.Sprintf("board_cards length %d not in {0,3,4,5}", len(t.BoardCards)), nil)
	}
	if expected, ok := StageForBoardLength(len(t.BoardCards)); ok {
		if t.Stage != expected && t.Stage != StageShowdown {
			return NewError(KindValidation, "TableState.Validate",
				fmt.Sprintf("stage %q inconsistent with board length %d (expected %q)", t.Stage, len(t.BoardCards), expected), nil)
		}
	}
	if len(t.HeroCards) > 2 {
		return NewError(KindValidation, "TableState.Validate", "hero_cards exceeds 2", nil)
	}

	dealerCount, sbCount, bbCount, heroCount, activeTurnCount := 0, 0, 0, 0, 0
	for _, s := range t.Seats {
		if len(s.HoleCards) > 2 {
			return NewError(KindValidation, "TableState.Validate",
				fmt.Sprintf("seat %d hole_cards exceeds 2", s.SeatNumber), nil)
		}
		if s.IsDealer {
			dealerCount++
		}
		if s.IsSmallBlind {
			sbCount++
		}
		if s.IsBigBlind {
			bbCount++
		}
		if s.IsHero {
			heroCount++
		}
		if s.IsActiveTurn {
			activeTurnCount++
		}
	}
	if dealerCount > 1 || sbCount > 1 || bbCount > 1 || heroCount > 1 || activeTurnCount > 1 {
		return NewError(KindValidation, "TableState.Validate",
			"at most one seat may hold each of dealer/small_blind/big_blind/hero/active_turn", nil)
	}
	return nil
}

var validBoardLengths = map[int]struct{}{0: {}, 3: {}, 4: {}, 5: {}}

// Clone returns a deep copy suitable for handing to consumers as an
// immutable snapshot.
func (t TableState) Clone() TableState {
	clone := t
	clone.BoardCards = append([]poker.Card(nil), t.BoardCards...)
	clone.HeroCards = append([]poker.Card(nil), t.HeroCards...)
	clone.SidePots = append([]SidePot(nil), t.SidePots...)
	clone.Seats = make([]Seat, len(t.Seats))
	for i, s := range t.Seats {
		clone.Seats[i] = s.Clone()
	}
	if t.HeroSeat != nil {
		v := *t.HeroSeat
		clone.HeroSeat = &v
	}
	if t.DealerSeat != nil {
		v := *t.DealerSeat
		clone.DealerSeat = &v
	}
	if t.ActiveTurnSeat != nil {
		v := *t.ActiveTurnSeat
		clone.ActiveTurnSeat = &v
	}
	return clone
}

// Seat returns the seat with the given number, if present.
func (t TableState) Seat(number int) (Seat, bool) {
	for _, s := range t.Seats {
		if s.SeatNumber == number {
			return s, true
		}
	}
	return Seat{}, false
}
