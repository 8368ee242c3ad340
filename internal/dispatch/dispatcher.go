// Package dispatch owns the authoritative TableState: it diffs
// resolved observations against the current snapshot, applies the
// documented change-detection rules, and emits DetectionEvents for
// every state transition. Single-owner, single-threaded within a
// frame; concurrency is by message passing, not shared mutation.
package dispatch

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/compliance"
	"github.com/pokertool/core/internal/eventbus"
	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/poker"
	"github.com/rs/zerolog"
)

// staleStateCutoff is the age past which a low-trust slot is treated
// as genuinely stale rather than served from the cached-fallback path.
const staleStateCutoff = 30 * time.Second

// potChangeFloor and potChangeFraction bound the minimum pot delta
// that counts as a change, per max(0.005, 0.005*old).
const (
	potChangeFloor    = 0.005
	potChangeFraction = 0.005
)

// stackChangeEpsilon is the minimum stack delta that counts as a
// player change.
const stackChangeEpsilon = 0.01

// performanceChangeFraction is the minimum relative change in fps or
// latency that forces a performance event outside the 1s heartbeat.
const performanceChangeFraction = 0.05

// PlayerUpdate is the compound per-seat update accepted by UpdatePlayer.
// Nil fields are left unchanged.
type PlayerUpdate struct {
	Name         *string
	Stack        *float64
	CurrentBet   *float64
	Position     *model.Position
	IsDealer     *bool
	IsSmallBlind *bool
	IsBigBlind   *bool
	IsHero       *bool
	IsActive     *bool
	IsActiveTurn *bool
	HoleCards    []poker.Card
	VPIP         *float64 // tracking-only; suppressed when compliance disallows tracking
	AF           *float64 // tracking-only; suppressed when compliance disallows tracking
	Confidence   float64
	LowTrust     bool
}

type perfSnapshot struct {
	fps, latencyMS float64
	memory, cpu    *float64
	at             time.Time
}

// Dispatcher owns one table's TableState.
type Dispatcher struct {
	mu sync.Mutex

	state         model.TableState
	correlationID string
	lastUpdate    map[string]time.Time // slot -> last time a live (non-fallback) update landed
	lastPerf      perfSnapshot
	lastPerfSet   bool

	clock      quartz.Clock
	bus        *eventbus.Bus
	compliance *compliance.Matrix
	log        zerolog.Logger
	corr       *correlationGen
}

// New builds a Dispatcher for one table. bus and compliance may be nil
// (events are dropped, tracking is permissively allowed).
func New(site, tableID string, bus *eventbus.Bus, matrix *compliance.Matrix, clock quartz.Clock, log zerolog.Logger) *Dispatcher {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Dispatcher{
		state: model.TableState{
			Site:       site,
			TableID:    tableID,
			Stage:      model.StagePreflop,
			DataSource: model.DataSourceLive,
		},
		lastUpdate: make(map[string]time.Time),
		clock:      clock,
		bus:        bus,
		compliance: matrix,
		log:        log,
		corr:       newCorrelationGen(),
	}
}

// BeginFrame starts a new frame and returns its correlation ID, which
// is attached to every event emitted until EndFrame.
func (d *Dispatcher) BeginFrame() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.correlationID = d.corr.next(d.clock.Now())
	return d.correlationID
}

// EndFrame clears the current frame's correlation ID.
func (d *Dispatcher) EndFrame() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.correlationID = ""
}

// trustGate decides whether an update to slot may proceed this frame,
// recording the TableState-level DataSource/DataAgeSeconds fields a
// caller should expect on GetState. A low-trust observation is applied
// once (first sight) and thereafter served from cache, stale_state
// after 30s.
func (d *Dispatcher) trustGate(slot string, lowTrust bool) bool {
	now := d.clock.Now()
	if !lowTrust {
		d.lastUpdate[slot] = now
		d.state.DataSource = model.DataSourceLive
		d.state.DataAgeSeconds = 0
		return true
	}
	last, seen := d.lastUpdate[slot]
	if !seen {
		d.lastUpdate[slot] = now
		d.state.DataSource = model.DataSourceLive
		d.state.DataAgeSeconds = 0
		return true
	}
	age := now.Sub(last)
	if age < staleStateCutoff {
		d.state.DataSource = model.DataSourceCachedLowConf
		d.state.DataAgeSeconds = age.Seconds()
		return false
	}
	delete(d.lastUpdate, slot)
	d.state.DataSource = model.DataSourceCachedStale
	d.state.DataAgeSeconds = age.Seconds()
	d.emitEvent(model.EventError, nil, nil, 0, map[string]any{"error_kind": "stale_state", "slot": slot})
	return false
}

// UpdatePot applies a resolved pot observation, reporting whether the
// stored pot changed.
func (d *Dispatcher) UpdatePot(amount float64, sidePots []model.SidePot, confidence float64, lowTrust bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trustGate("pot", lowTrust) {
		return false
	}

	old := d.state.PotSize
	changed := math.Abs(amount-old) > math.Max(potChangeFloor, potChangeFraction*old) || !samePots(d.state.SidePots, sidePots)
	if !changed {
		return false
	}
	d.state.PotSize = amount
	d.state.SidePots = append([]model.SidePot(nil), sidePots...)
	d.state.DetectionConfidence = confidence
	d.emitEvent(model.EventPot, old, amount, confidence, nil)
	return true
}

// UpdateBoardCards applies a resolved board observation. A board
// length change to 3/4/5 emits an additional street event; a length
// decrease is never inferred as a new hand here (only ResetHand does
// that).
func (d *Dispatcher) UpdateBoardCards(cards []poker.Card, confidence float64, lowTrust bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trustGate("board", lowTrust) {
		return false
	}

	old := d.state.BoardCards
	if sameCardSet(old, cards) {
		return false
	}
	d.state.BoardCards = append([]poker.Card(nil), cards...)
	d.state.DetectionConfidence = confidence

	d.emitEvent(model.EventCard, old, d.state.BoardCards, confidence, map[string]any{"slot": "board"})

	if stage, ok := model.StageForBoardLength(len(cards)); ok && stage != d.state.Stage {
		prevStage := d.state.Stage
		d.state.Stage = stage
		d.emitEvent(model.EventStreet, prevStage, stage, confidence, map[string]any{"board_len": len(cards)})
	}
	return true
}

// UpdateHeroCards applies a resolved hero hole-card observation. A
// transition from empty to non-empty additionally emits hand_start.
func (d *Dispatcher) UpdateHeroCards(cards []poker.Card, confidence float64, lowTrust bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.trustGate("hero", lowTrust) {
		return false
	}

	old := d.state.HeroCards
	if sameCardSet(old, cards) {
		return false
	}
	wasEmpty := len(old) == 0
	d.state.HeroCards = append([]poker.Card(nil), cards...)
	d.state.DetectionConfidence = confidence

	if wasEmpty && len(cards) > 0 {
		d.emitEvent(model.EventHandStart, nil, d.state.HeroCards, confidence, nil)
	}
	d.emitEvent(model.EventHeroCards, old, d.state.HeroCards, confidence, nil)
	return true
}

// UpdatePlayer applies upd to seat, creating the seat if it does not
// yet exist. Tracking-only fields (VPIP, AF) are dropped when the
// table's site disallows tracking.
func (d *Dispatcher) UpdatePlayer(seat int, upd PlayerUpdate) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot := seatSlot(seat)
	if !d.trustGate(slot, upd.LowTrust) {
		return false
	}

	idx := d.seatIndex(seat)
	if idx < 0 {
		d.state.Seats = append(d.state.Seats, model.Seat{SeatNumber: seat})
		idx = len(d.state.Seats) - 1
	}
	before := d.state.Seats[idx]
	after := before

	if upd.Name != nil {
		after.PlayerName = *upd.Name
	}
	if upd.Stack != nil {
		after.Stack = *upd.Stack
	}
	if upd.CurrentBet != nil {
		after.CurrentBet = *upd.CurrentBet
	}
	if upd.Position != nil {
		after.Position = *upd.Position
	}
	if upd.IsDealer != nil {
		after.IsDealer = *upd.IsDealer
		if *upd.IsDealer {
			d.state.DealerSeat = intPtr(seat)
		} else if d.state.DealerSeat != nil && *d.state.DealerSeat == seat {
			d.state.DealerSeat = nil
		}
	}
	if upd.IsSmallBlind != nil {
		after.IsSmallBlind = *upd.IsSmallBlind
	}
	if upd.IsBigBlind != nil {
		after.IsBigBlind = *upd.IsBigBlind
	}
	if upd.IsHero != nil {
		after.IsHero = *upd.IsHero
		if *upd.IsHero {
			d.state.HeroSeat = intPtr(seat)
		} else if d.state.HeroSeat != nil && *d.state.HeroSeat == seat {
			d.state.HeroSeat = nil
		}
	}
	if upd.IsActive != nil {
		after.IsActive = *upd.IsActive
	}
	if upd.IsActiveTurn != nil {
		after.IsActiveTurn = *upd.IsActiveTurn
		if *upd.IsActiveTurn {
			d.state.ActiveTurnSeat = intPtr(seat)
		} else if d.state.ActiveTurnSeat != nil && *d.state.ActiveTurnSeat == seat {
			d.state.ActiveTurnSeat = nil
		}
	}
	if upd.HoleCards != nil {
		after.HoleCards = append([]poker.Card(nil), upd.HoleCards...)
	}
	if d.compliance.TrackingAllowed(d.state.Site) {
		if upd.VPIP != nil {
			after.VPIP = upd.VPIP
		}
		if upd.AF != nil {
			after.AF = upd.AF
		}
	}

	if !playerChanged(before, after) {
		return false
	}
	d.state.Seats[idx] = after
	d.recountActivePlayers()
	d.emitEvent(model.EventPlayer, before, after, upd.Confidence, map[string]any{"seat": seat})
	return true
}

// EmitPlayerAction records a detected action for seat within the
// current frame.
func (d *Dispatcher) EmitPlayerAction(seat int, kind model.ActionKind, amount *float64, confidence float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data := map[string]any{"seat": seat, "kind": kind}
	if amount != nil {
		data["amount"] = *amount
	}
	d.emitEvent(model.EventAction, nil, nil, confidence, data)
}

// UpdatePerformance records the latest capture/detection performance
// sample, emitting only when fps or latency moved by more than 5% or
// more than a second has elapsed since the last emission.
func (d *Dispatcher) UpdatePerformance(fps, latencyMS float64, memory, cpu *float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if d.lastPerfSet {
		fpsChange := relativeChange(d.lastPerf.fps, fps)
		latencyChange := relativeChange(d.lastPerf.latencyMS, latencyMS)
		if fpsChange <= performanceChangeFraction && latencyChange <= performanceChangeFraction && now.Sub(d.lastPerf.at) < time.Second {
			return false
		}
	}
	d.lastPerf = perfSnapshot{fps: fps, latencyMS: latencyMS, memory: memory, cpu: cpu, at: now}
	d.lastPerfSet = true
	d.emitEvent(model.EventPerformance, nil, nil, 0, map[string]any{
		"fps": fps, "latency_ms": latencyMS, "memory": memory, "cpu": cpu,
	})
	return true
}

// ResetHand clears transient hand state, assigns a new hand ID, and
// emits hand_end with the last known pot/board.
func (d *Dispatcher) ResetHand() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.emitEvent(model.EventHandEnd, nil, nil, 0, map[string]any{
		"pot":   d.state.PotSize,
		"board": append([]poker.Card(nil), d.state.BoardCards...),
	})

	newID := d.corr.next(d.clock.Now())
	d.state.HandID = newID
	d.state.BoardCards = nil
	d.state.HeroCards = nil
	d.state.PotSize = 0
	d.state.SidePots = nil
	d.state.Stage = model.StagePreflop
	d.state.ActiveTurnSeat = nil
	d.state.DealerSeat = nil
	for i := range d.state.Seats {
		d.state.Seats[i].HoleCards = nil
		d.state.Seats[i].CurrentBet = 0
		d.state.Seats[i].IsActiveTurn = false
		d.state.Seats[i].IsDealer = false
		d.state.Seats[i].IsSmallBlind = false
		d.state.Seats[i].IsBigBlind = false
	}
	d.lastUpdate = make(map[string]time.Time)
	return newID
}

// GetState returns an immutable copy of the current TableState.
func (d *Dispatcher) GetState() model.TableState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

func (d *Dispatcher) seatIndex(seat int) int {
	for i, s := range d.state.Seats {
		if s.SeatNumber == seat {
			return i
		}
	}
	return -1
}

func (d *Dispatcher) recountActivePlayers() {
	count := 0
	for _, s := range d.state.Seats {
		if s.IsActive {
			count++
		}
	}
	d.state.ActivePlayers = count
}

func (d *Dispatcher) emitEvent(kind model.EventKind, previous, current any, confidence float64, data map[string]any) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(model.DetectionEvent{
		EventKind:     kind,
		CorrelationID: d.correlationID,
		TMonoNS:       d.clock.Now().UnixNano(),
		Previous:      previous,
		Current:       current,
		Confidence:    confidence,
		Data:          data,
	})
}

func seatSlot(seat int) string {
	return "player:" + strconv.Itoa(seat)
}

func relativeChange(oldV, newV float64) float64 {
	if oldV == 0 {
		if newV == 0 {
			return 0
		}
		return 1
	}
	return math.Abs(newV-oldV) / math.Abs(oldV)
}

func playerChanged(a, b model.Seat) bool {
	if a.PlayerName != b.PlayerName {
		return true
	}
	if math.Abs(a.Stack-b.Stack) > stackChangeEpsilon {
		return true
	}
	if a.Position != b.Position {
		return true
	}
	if a.IsDealer != b.IsDealer || a.IsSmallBlind != b.IsSmallBlind || a.IsBigBlind != b.IsBigBlind ||
		a.IsHero != b.IsHero || a.IsActive != b.IsActive || a.IsActiveTurn != b.IsActiveTurn {
		return true
	}
	if !sameCardSet(a.HoleCards, b.HoleCards) {
		return true
	}
	return false
}

func sameCardSet(a, b []poker.Card) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[poker.Card]int, len(a))
	for _, c := range a {
		seen[c]++
	}
	for _, c := range b {
		seen[c]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}

func samePots(a, b []model.SidePot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].Amount-b[i].Amount) > potChangeFloor {
			return false
		}
		if len(a[i].Eligible) != len(b[i].Eligible) {
			return false
		}
		for j := range a[i].Eligible {
			if a[i].Eligible[j] != b[i].Eligible[j] {
				return false
			}
		}
	}
	return true
}

func intPtr(v int) *int { return &v }
