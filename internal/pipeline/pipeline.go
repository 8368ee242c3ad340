// Package pipeline wires capture, detection, ensemble resolution,
// recognition and dispatch into the frame loop: the single task
// allowed to drive TableState mutation. Strategy execution fans out
// across a bounded worker pool; everything else in one frame runs
// sequentially on the caller's goroutine.
package pipeline

import (
	"context"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/capture"
	"github.com/pokertool/core/internal/detect"
	"github.com/pokertool/core/internal/dispatch"
	"github.com/pokertool/core/internal/ensemble"
	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/internal/persistence"
	"github.com/pokertool/core/internal/recognise"
	"github.com/pokertool/core/internal/recorder"
	"github.com/pokertool/core/internal/telemetry"
	"github.com/pokertool/core/poker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxStrategyWorkers bounds the strategy fan-out pool, independent of
// how many strategies are registered.
const maxStrategyWorkers = 8

// maxBoardCards and maxHeroCards bound how many per-position slots are
// probed for the board and hero hole cards each frame. A slot with
// nothing detected this frame (e.g. the turn/river before they're dealt)
// simply contributes no observation and is skipped when assembling the
// final ordered card slice.
const (
	maxBoardCards = 5
	maxHeroCards  = 2
)

// buildRegions lists the semantic slots a frame is probed for, each
// handed to every registered strategy in turn. A slot is the smallest
// unit a strategy votes on, so the board and hero hole cards are split
// into one per-position slot apiece rather than one slot for the whole
// set, matching how individual seats are probed.
func buildRegions(seatCount int) []model.RegionHint {
	var hints []model.RegionHint
	for i := 0; i < maxHeroCards; i++ {
		hints = append(hints, model.RegionHint{Region: heroCardSlot(i)})
	}
	for i := 0; i < maxBoardCards; i++ {
		hints = append(hints, model.RegionHint{Region: boardCardSlot(i)})
	}
	hints = append(hints, model.RegionHint{Region: "pot"}, model.RegionHint{Region: "dealer_button"})
	for seat := 1; seat <= seatCount; seat++ {
		hints = append(hints, model.RegionHint{Region: seatSlot(seat)})
	}
	return hints
}

// Config configures a Pipeline. StrategyTimeout bounds how long a
// single strategy may run before its result is dropped for the frame;
// it is not cancelled, only ignored (spec'd laggard-drop, not
// laggard-kill, since a strategy may be a blocking OCR call a context
// cancellation cannot interrupt mid-syscall).
type Config struct {
	StrategyTimeout time.Duration // default 50ms
	SeatCount       int           // number of seats to probe per frame, default 9
}

// DefaultConfig returns the documented pipeline defaults.
func DefaultConfig() Config {
	return Config{StrategyTimeout: 50 * time.Millisecond, SeatCount: 9}
}

// Pipeline runs the frame loop for one table.
type Pipeline struct {
	cfg Config

	source     capture.Source
	registry   *detect.Registry
	voter      *ensemble.Voter
	dispatcher *dispatch.Dispatcher
	recorder   *recorder.Recorder
	storage    persistence.Adapter
	telem      *telemetry.Recorder
	pots       *recognise.PotTracker

	clock quartz.Clock
	log   zerolog.Logger

	regions []model.RegionHint
	saves   chan model.HandHistory
}

// New builds a Pipeline. storage may be nil, in which case completed
// hands are derived but never persisted.
func New(cfg Config, source capture.Source, registry *detect.Registry, voter *ensemble.Voter,
	dispatcher *dispatch.Dispatcher, rec *recorder.Recorder, storage persistence.Adapter,
	telem *telemetry.Recorder, clock quartz.Clock, log zerolog.Logger) *Pipeline {
	if cfg.StrategyTimeout <= 0 {
		cfg.StrategyTimeout = 50 * time.Millisecond
	}
	if cfg.SeatCount <= 0 {
		cfg.SeatCount = 9
	}
	if clock == nil {
		clock = quartz.NewReal()
	}

	p := &Pipeline{
		cfg:        cfg,
		source:     source,
		registry:   registry,
		voter:      voter,
		dispatcher: dispatcher,
		recorder:   rec,
		storage:    storage,
		telem:      telem,
		pots:       recognise.NewPotTracker(),
		clock:      clock,
		log:        log,
		regions:    buildRegions(cfg.SeatCount),
		saves:      make(chan model.HandHistory, 64),
	}
	if storage != nil {
		go p.runSaveWorker()
	}
	return p
}

// RunFrame executes one iteration of begin_frame → capture → strategy
// fan-out → voter → recogniser → dispatcher.update_* →
// dispatcher.end_frame, returning the resulting snapshot.
func (p *Pipeline) RunFrame(ctx context.Context, handle model.WindowHandle, roi *model.ROI) (model.TableState, error) {
	var stop func(string)
	if p.telem != nil {
		stop = p.telem.Start("pipeline.frame")
	}
	correlationID := p.dispatcher.BeginFrame()
	defer func() {
		if stop != nil {
			stop(correlationID)
		}
	}()
	defer p.dispatcher.EndFrame()

	frame, err := p.source.Capture(ctx, handle, roi)
	if err != nil {
		return p.dispatcher.GetState(), err
	}

	observations := p.runStrategies(ctx, frame)
	p.applyObservations(observations)

	state := p.dispatcher.GetState()
	if p.recorder != nil {
		p.recorder.Observe(state)
		p.drainCompletedHands()
	}
	return state, nil
}

// runStrategies fans every registered strategy out across a bounded
// worker pool for every region, collecting observations that arrive
// within cfg.StrategyTimeout. A strategy exceeding its deadline
// contributes nothing to this frame; its goroutine is not interrupted,
// only its result discarded, since detection strategies here may wrap
// a blocking OCR/vision call with no cooperative cancellation point.
func (p *Pipeline) runStrategies(ctx context.Context, frame model.Frame) []model.Observation {
	strategies := p.registry.All()
	if len(strategies) == 0 {
		return nil
	}

	type job struct {
		strategy detect.Strategy
		hint     model.RegionHint
	}
	var jobs []job
	for _, hint := range p.regions {
		for _, s := range strategies {
			jobs = append(jobs, job{strategy: s, hint: hint})
		}
	}

	results := make(chan []model.Observation, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit())

	for _, j := range jobs {
		j := j
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, p.cfg.StrategyTimeout)
			defer cancel()

			obs, err := j.strategy.Detect(callCtx, frame, j.hint)
			if err != nil {
				if p.log.GetLevel() <= zerolog.DebugLevel {
					p.log.Debug().Err(err).Str("strategy", j.strategy.ID()).Str("region", j.hint.Region).Msg("pipeline: strategy contributed nothing")
				}
				return nil
			}
			if callCtx.Err() != nil {
				return nil // deadline passed; drop this laggard's result
			}
			results <- obs
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	var all []model.Observation
	for obs := range results {
		all = append(all, obs...)
	}
	return all
}

func workerLimit() int {
	n := runtime.NumCPU()
	if n > maxStrategyWorkers {
		return maxStrategyWorkers
	}
	if n < 1 {
		return 1
	}
	return n
}

// applyObservations groups observations by slot, resolves each group
// through the ensemble voter, and turns the result into the matching
// dispatcher update call, in the documented emission order
// (pot → board cards → hero cards → player(*)).
func (p *Pipeline) applyObservations(observations []model.Observation) {
	bySlot := make(map[string][]model.Observation)
	for _, o := range observations {
		bySlot[o.Slot] = append(bySlot[o.Slot], o)
	}

	if obs, ok := bySlot["pot"]; ok {
		p.applyPot(obs)
	}
	p.applyBoard(bySlot)
	p.applyHeroCards(bySlot)
	if obs, ok := bySlot["dealer_button"]; ok {
		p.applyDealerButton(obs)
	}
	for slot, obs := range bySlot {
		if seat, ok := slotIndex("seat[", slot); ok {
			p.applySeat(seat, obs)
		}
	}
}

// applyDealerButton moves the is_dealer flag to the reported seat,
// clearing it from wherever it previously sat. The button seat itself
// lives on each Seat, not as a bare TableState field, so moving it
// costs up to two UpdatePlayer calls.
func (p *Pipeline) applyDealerButton(obs []model.Observation) {
	res := p.voter.Resolve("dealer_button", obs)
	seat, ok := res.Value.(int)
	if !ok {
		return
	}

	state := p.dispatcher.GetState()
	if state.DealerSeat != nil && *state.DealerSeat == seat {
		return
	}

	falseVal, trueVal := false, true
	if state.DealerSeat != nil {
		p.dispatcher.UpdatePlayer(*state.DealerSeat, dispatch.PlayerUpdate{
			IsDealer: &falseVal, Confidence: res.Confidence, LowTrust: res.LowTrust,
		})
	}
	p.dispatcher.UpdatePlayer(seat, dispatch.PlayerUpdate{
		IsDealer: &trueVal, Confidence: res.Confidence, LowTrust: res.LowTrust,
	})
}

func (p *Pipeline) applyPot(obs []model.Observation) {
	res := p.voter.Resolve("pot", obs)
	amount, ok := p.pots.Resolve("pot", res, string(res.Method))
	if !ok {
		return
	}
	p.dispatcher.UpdatePot(amount.Amount, nil, amount.Confidence, res.LowTrust)
}

func (p *Pipeline) applyBoard(bySlot map[string][]model.Observation) {
	cards, conf, lowTrust, ok := p.resolveCardSlots(bySlot, "board[")
	if !ok {
		return
	}
	p.dispatcher.UpdateBoardCards(cards, conf, lowTrust)
}

func (p *Pipeline) applyHeroCards(bySlot map[string][]model.Observation) {
	cards, conf, lowTrust, ok := p.resolveCardSlots(bySlot, "hero_cards[")
	if !ok {
		// No hole-card slot was observed at all this frame: the hero's
		// cards have left the table, so they are cleared (the recorder
		// reads that transition as the end of the hand). A slot that was
		// observed but did not resolve keeps the previous cards.
		for slot := range bySlot {
			if _, isHero := slotIndex("hero_cards[", slot); isHero {
				return
			}
		}
		if len(p.dispatcher.GetState().HeroCards) > 0 {
			p.dispatcher.UpdateHeroCards(nil, 0, false)
		}
		return
	}
	p.dispatcher.UpdateHeroCards(cards, conf, lowTrust)
}

// resolveCardSlots resolves every per-position slot under prefix (e.g.
// "board[0]", "board[1]", ...) through the ensemble voter and the card
// recogniser's confidence floor, then assembles the survivors into an
// ordered card slice. A position nothing was detected for this frame
// (the turn/river before they're dealt, a still-concealed hole card)
// simply contributes no observation and is left out, rather than
// forcing every position to resolve before any update is applied.
// Reported confidence is the minimum across resolved positions and
// low_trust is sticky: one low-trust position taints the whole update,
// since the dispatcher tracks trust per slot, not per card.
func (p *Pipeline) resolveCardSlots(bySlot map[string][]model.Observation, prefix string) ([]poker.Card, float64, bool, bool) {
	type found struct {
		index int
		card  poker.Card
	}
	var hits []found
	minConf := 1.0
	lowTrust := false

	for slot, obs := range bySlot {
		index, ok := slotIndex(prefix, slot)
		if !ok {
			continue
		}
		res := p.voter.Resolve(slot, obs)
		c, ok := recognise.ResolveCard(res)
		if !ok {
			continue
		}
		hits = append(hits, found{index: index, card: c})
		if res.Confidence < minConf {
			minConf = res.Confidence
		}
		if res.LowTrust {
			lowTrust = true
		}
	}
	if len(hits) == 0 {
		return nil, 0, false, false
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })
	cards := make([]poker.Card, len(hits))
	for i, h := range hits {
		cards[i] = h.card
	}
	return cards, minConf, lowTrust, true
}

func (p *Pipeline) applySeat(seat int, obs []model.Observation) {
	res := p.voter.Resolve(seatSlot(seat), obs)
	upd := dispatch.PlayerUpdate{Confidence: res.Confidence, LowTrust: res.LowTrust}

	switch v := res.Value.(type) {
	case string:
		name := recognise.NormalisePlayerName(v)
		if name == "" {
			return
		}
		upd.Name = &name
	case poker.Card:
		upd.HoleCards = []poker.Card{v}
	case float64:
		upd.Stack = &v
	}
	p.dispatcher.UpdatePlayer(seat, upd)
}

func (p *Pipeline) drainCompletedHands() {
	for {
		select {
		case h := <-p.recorder.Emitted():
			select {
			case p.saves <- h:
			default:
				p.log.Warn().Str("hand_id", h.HandID).Msg("pipeline: save queue full, dropping oldest")
				select {
				case <-p.saves:
				default:
				}
				p.saves <- h
			}
		default:
			return
		}
	}
}

// runSaveWorker is the single background writer that keeps a slow
// persistence adapter from ever blocking the frame loop. A failed save
// is retried up to saveRetries times with doubling backoff, after which
// the hand is dropped and the failure logged.
func (p *Pipeline) runSaveWorker() {
	const (
		saveRetries      = 3
		saveRetryBackoff = 100 * time.Millisecond
	)
	for h := range p.saves {
		var err error
		backoff := saveRetryBackoff
		for attempt := 0; attempt <= saveRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(backoff)
				backoff *= 2
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = p.storage.SaveHand(ctx, h)
			cancel()
			if err == nil {
				break
			}
		}
		if err != nil {
			p.log.Error().Err(err).Str("hand_id", h.HandID).Msg("pipeline: failed to persist hand")
		}
	}
}

func seatSlot(seat int) string {
	return "seat[" + strconv.Itoa(seat) + "]"
}

func heroCardSlot(index int) string {
	return "hero_cards[" + strconv.Itoa(index) + "]"
}

func boardCardSlot(index int) string {
	return "board[" + strconv.Itoa(index) + "]"
}

// slotIndex parses the bracketed integer out of a "prefix[N]"-shaped
// slot name, e.g. slotIndex("seat[", "seat[3]") == (3, true). Used for
// every per-position slot family: seats, board cards, hole cards.
func slotIndex(prefix, slot string) (int, bool) {
	if len(slot) < len(prefix)+2 || slot[:len(prefix)] != prefix || slot[len(slot)-1] != ']' {
		return 0, false
	}
	n, err := strconv.Atoi(slot[len(prefix) : len(slot)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
