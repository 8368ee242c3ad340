package model

import "github.com/pokertool/core/poker"

// HandSnapshot is one append-only record in a hand's lifetime, captured
// once per frame while a hand is being recorded.
type HandSnapshot struct {
	TMonoNS       int64
	Stage         Stage
	PotSize       float64
	BoardCards    []poker.Card
	ActivePlayers int
	HeroCards     []poker.Card
	Seats         []Seat // deep copy
}

// SnapshotFrom builds a HandSnapshot from the dispatcher's current
// TableState, deep-copying mutable fields: the resulting snapshot
// sequence is owned exclusively by the recorder once appended, and must
// never alias the dispatcher's live Seats slice.
func SnapshotFrom(t TableState, tMonoNS int64) HandSnapshot {
	seats := make([]Seat, len(t.Seats))
	for i, s := range t.Seats {
		seats[i] = s.Clone()
	}
	return HandSnapshot{
		TMonoNS:       tMonoNS,
		Stage:         t.Stage,
		PotSize:       t.PotSize,
		BoardCards:    append([]poker.Card(nil), t.BoardCards...),
		ActivePlayers: t.ActivePlayers,
		HeroCards:     append([]poker.Card(nil), t.HeroCards...),
		Seats:         seats,
	}
}

// SeatByNumber finds a seat within the snapshot by seat number.
func (h HandSnapshot) SeatByNumber(n int) (Seat, bool) {
	for _, s := range h.Seats {
		if s.SeatNumber == n {
			return s, true
		}
	}
	return Seat{}, false
}
