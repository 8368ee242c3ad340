package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/compliance"
	"github.com/pokertool/core/internal/detect"
	"github.com/pokertool/core/internal/dispatch"
	"github.com/pokertool/core/internal/ensemble"
	"github.com/pokertool/core/internal/eventbus"
	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/internal/persistence"
	"github.com/pokertool/core/internal/recorder"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mutableStrategy lets a test script a different set of per-slot
// observations for each RunFrame call, modelling a live table rather
// than a fixed fixtureStrategy.
type mutableStrategy struct {
	id     string
	values map[string]model.Observation
}

func (m *mutableStrategy) ID() string { return m.id }

func (m *mutableStrategy) Detect(ctx context.Context, frame model.Frame, hint model.RegionHint) ([]model.Observation, error) {
	obs, ok := m.values[hint.Region]
	if !ok {
		return nil, nil
	}
	obs.Slot = hint.Region
	obs.StrategyID = m.id
	return []model.Observation{obs}, nil
}

func newScenarioPipeline(t *testing.T, storage persistence.Adapter, rec *recorder.Recorder) (*Pipeline, *mutableStrategy, chan model.DetectionEvent) {
	t.Helper()
	mockClock := quartz.NewMock(t)
	mockClock.Set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	strat := &mutableStrategy{id: "fixture", values: map[string]model.Observation{}}
	registry := detect.NewRegistry()
	registry.Register(strat)

	events := make(chan model.DetectionEvent, 64)
	bus := eventbus.New(zerolog.Nop(), mockClock)
	for _, kind := range []model.EventKind{
		model.EventPot, model.EventCard, model.EventStreet, model.EventHeroCards,
		model.EventHandStart, model.EventHandEnd, model.EventPlayer, model.EventAction,
	} {
		kind := kind
		bus.Subscribe(kind, func(e model.DetectionEvent) { events <- e }, eventbus.SubscribeOptions{})
	}

	d := dispatch.New("generic", "table-1", bus, compliance.New(nil), mockClock, zerolog.Nop())
	voter := ensemble.New(ensemble.DefaultConfig())
	p := New(Config{StrategyTimeout: 50 * time.Millisecond, SeatCount: 2}, fixtureSource{}, registry, voter, d, rec, storage, nil, mockClock, zerolog.Nop())
	return p, strat, events
}

// drainEventKinds collects every event already queued on the channel
// without blocking: the dispatcher publishes synchronously inside
// RunFrame, so by the time RunFrame returns, every event it emitted is
// already sitting in the buffered channel.
func drainEventKinds(events chan model.DetectionEvent) []model.EventKind {
	var kinds []model.EventKind
	for {
		select {
		case e := <-events:
			kinds = append(kinds, e.EventKind)
		default:
			return kinds
		}
	}
}

func containsKind(kinds []model.EventKind, want model.EventKind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Preflop cbet line, single opponent: hero sees Ah Kh with an empty
// board and a building pot, the flop lands, the pot grows again on
// the same street, and the completed hand shows one positive action
// apiece for hero and villain.
func TestScenario_PreflopCbetSingleOpponent(t *testing.T) {
	storage := persistence.NewMemoryAdapter()
	rec := recorder.New(recorder.Config{Site: "generic", Table: "table-1", HeroName: "Hero", SmallBlind: 1, BigBlind: 2, Enabled: true},
		quartz.NewMock(t), zerolog.Nop())
	p, strat, events := newScenarioPipeline(t, storage, rec)

	strat.values = map[string]model.Observation{
		"hero_cards[0]": {Kind: model.ObservationCard, Value: card(t, "Ah"), Confidence: 0.95},
		"hero_cards[1]": {Kind: model.ObservationCard, Value: card(t, "Kh"), Confidence: 0.95},
		"pot":           {Kind: model.ObservationPot, Value: 1.5, Confidence: 0.95},
		"seat[1]":       {Kind: model.ObservationSeat, Value: 100.0, Confidence: 0.9},
		"seat[2]":       {Kind: model.ObservationSeat, Value: 100.0, Confidence: 0.9},
	}
	state, err := p.RunFrame(context.Background(), model.WindowHandle{ID: "w1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StagePreflop, state.Stage)
	assert.Equal(t, 1.5, state.PotSize)

	kinds := drainEventKinds(events)
	assert.True(t, containsKind(kinds, model.EventHandStart), "first sight of hero cards must start the hand")
	assert.True(t, containsKind(kinds, model.EventPot))

	strat.values["board[0]"] = model.Observation{Kind: model.ObservationCard, Value: card(t, "Qs"), Confidence: 0.9}
	strat.values["board[1]"] = model.Observation{Kind: model.ObservationCard, Value: card(t, "7d"), Confidence: 0.9}
	strat.values["board[2]"] = model.Observation{Kind: model.ObservationCard, Value: card(t, "2c"), Confidence: 0.9}
	strat.values["pot"] = model.Observation{Kind: model.ObservationPot, Value: 3.0, Confidence: 0.95}
	strat.values["seat[1]"] = model.Observation{Kind: model.ObservationSeat, Value: 97.0, Confidence: 0.9}
	state, err = p.RunFrame(context.Background(), model.WindowHandle{ID: "w1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StageFlop, state.Stage)
	assert.Equal(t, 3.0, state.PotSize)

	kinds = drainEventKinds(events)
	assert.True(t, containsKind(kinds, model.EventStreet), "board reaching 3 cards must emit a street transition")

	strat.values["pot"] = model.Observation{Kind: model.ObservationPot, Value: 9.0, Confidence: 0.95}
	strat.values["seat[2]"] = model.Observation{Kind: model.ObservationSeat, Value: 94.0, Confidence: 0.9}
	state, err = p.RunFrame(context.Background(), model.WindowHandle{ID: "w1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StageFlop, state.Stage, "pot moving within a street must not change stage")
	assert.Equal(t, 9.0, state.PotSize)

	// hero cards disappear: the hand is over.
	delete(strat.values, "hero_cards[0]")
	delete(strat.values, "hero_cards[1]")
	strat.values["pot"] = model.Observation{Kind: model.ObservationPot, Value: 0.0, Confidence: 0.9}
	_, err = p.RunFrame(context.Background(), model.WindowHandle{ID: "w1"}, nil)
	require.NoError(t, err)
	require.Equal(t, recorder.StateCompleted, rec.State())

	require.Eventually(t, func() bool { return len(storage.Hands()) == 1 }, time.Second, time.Millisecond)
	hand := storage.Hands()[0]
	assert.Equal(t, model.StageFlop, hand.FinalStage)
	assert.Equal(t, 9.0, hand.PotSize)

	var heroActions, villainActions int
	for _, a := range hand.Actions {
		assert.Greater(t, a.Amount, 0.0)
		switch a.SeatNumber {
		case 1:
			heroActions++
		case 2:
			villainActions++
		}
	}
	assert.Positive(t, heroActions)
	assert.Positive(t, villainActions)
}

// Low-confidence detection followed by recovery: a pot reading the
// ensemble can't agree on must not overwrite the last trusted value,
// and the dispatcher must report it as served from the cache rather
// than live.
func TestScenario_LowConfidenceDetectionThenRecovery(t *testing.T) {
	mockClock := quartz.NewMock(t)
	mockClock.Set(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	registry := detect.NewRegistry()
	a := &mutableStrategy{id: "a", values: map[string]model.Observation{
		"pot": {Kind: model.ObservationPot, Value: 12.5, Confidence: 0.97},
	}}
	b := &mutableStrategy{id: "b", values: map[string]model.Observation{}}
	c := &mutableStrategy{id: "c", values: map[string]model.Observation{}}
	registry.Register(a)
	registry.Register(b)
	registry.Register(c)

	bus := eventbus.New(zerolog.Nop(), mockClock)
	d := dispatch.New("generic", "table-1", bus, compliance.New(nil), mockClock, zerolog.Nop())
	voter := ensemble.New(ensemble.DefaultConfig())
	p := New(Config{StrategyTimeout: 50 * time.Millisecond, SeatCount: 1}, fixtureSource{}, registry, voter, d, nil, nil, nil, mockClock, zerolog.Nop())

	state, err := p.RunFrame(context.Background(), model.WindowHandle{ID: "w1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, state.PotSize)
	assert.Equal(t, model.DataSourceLive, state.DataSource)

	// Frame N: the three strategies now disagree three ways on the pot
	// reading, pushing ensemble disagreement above the low-trust floor.
	a.values["pot"] = model.Observation{Kind: model.ObservationPot, Value: 12.5, Confidence: 0.9}
	b.values["pot"] = model.Observation{Kind: model.ObservationPot, Value: 55.0, Confidence: 0.4}
	c.values["pot"] = model.Observation{Kind: model.ObservationPot, Value: 60.0, Confidence: 0.4}
	state, err = p.RunFrame(context.Background(), model.WindowHandle{ID: "w1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 12.5, state.PotSize, "a low-trust reading must not clobber the last trusted pot size")
	assert.Equal(t, model.DataSourceCachedLowConf, state.DataSource)
	assert.GreaterOrEqual(t, state.DataAgeSeconds, 0.0)
}
