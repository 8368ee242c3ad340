package model

import (
	"testing"

	"github.com/pokertool/core/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_BoardLength(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		board   []poker.Card
		stage   Stage
		wantErr bool
	}{
		{"preflop empty ok", nil, StagePreflop, false},
		{"flop three ok", []poker.Card{0, 1, 2}, StageFlop, false},
		{"turn four ok", []poker.Card{0, 1, 2, 3}, StageTurn, false},
		{"river five ok", []poker.Card{0, 1, 2, 3, 4}, StageRiver, false},
		{"invalid one card", []poker.Card{0}, StagePreflop, true},
		{"invalid two cards", []poker.Card{0, 1}, StagePreflop, true},
		{"stage mismatch", []poker.Card{0, 1, 2}, StageTurn, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := TableState{BoardCards: tc.board, Stage: tc.stage}
			err := ts.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_SingletonFlags(t *testing.T) {
	t.Parallel()
	ts := TableState{
		Stage: StagePreflop,
		Seats: []Seat{
			{SeatNumber: 1, IsDealer: true},
			{SeatNumber: 2, IsDealer: true},
		},
	}
	assert.Error(t, ts.Validate())
}

func TestClone_DeepCopiesSeats(t *testing.T) {
	t.Parallel()
	ts := TableState{
		Stage: StagePreflop,
		Seats: []Seat{{SeatNumber: 1, HoleCards: []poker.Card{0, 1}}},
	}
	clone := ts.Clone()
	clone.Seats[0].HoleCards[0] = 5
	assert.NotEqual(t, ts.Seats[0].HoleCards[0], clone.Seats[0].HoleCards[0])
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()
	a := NewFingerprint("equity", map[string]string{"hero": "AsKs", "board": ""})
	b := NewFingerprint("equity", map[string]string{"board": "", "hero": "AsKs"})
	assert.Equal(t, a, b)

	c := NewFingerprint("equity", map[string]string{"hero": "AsKs", "board": "2h3h4h"})
	assert.NotEqual(t, a, c)
	require.Equal(t, "equity", a.Pattern())
}
