// Package recorder builds HandHistory records from a live sequence of
// HandSnapshots, tracking hand boundaries through an Idle/Recording/
// Completed state machine.
package recorder

import (
	"math"
	"sort"

	"github.com/coder/quartz"
	"github.com/pokertool/core/internal/compliance"
	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/poker"
	"github.com/rs/zerolog"
)

// stackDeltaEpsilon is the minimum chip movement treated as a genuine
// action or result, not rounding noise.
const stackDeltaEpsilon = 0.01

// State is the recorder's current phase.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateCompleted State = "completed"
)

// Recorder consumes TableStates, keeping a HandSnapshot of each while a
// hand is recording, and emits HandHistory records on hand completion. One Recorder serves one table; it is not
// safe for concurrent use from multiple goroutines without external
// synchronization (the frame loop is its only caller).
type Recorder struct {
	clock      quartz.Clock
	log        zerolog.Logger
	compliance *compliance.Matrix
	enabled    bool

	state         State
	handID        string
	handStartNS   int64
	snapshots     []model.HandSnapshot
	prevStage     model.Stage
	prevPotSize   float64
	prevHeroCards []poker.Card
	initialSeats  map[int]model.Seat
	heroSeat      *int
	heroName      string
	site, table   string
	smallBlind    float64
	bigBlind      float64

	emitted chan model.HandHistory
}

// Config seeds the static fields a completed HandHistory carries, plus
// the compliance gate the recorder consults before observing a frame.
type Config struct {
	Site       string
	Table      string
	HeroName   string
	SmallBlind float64
	BigBlind   float64

	// Compliance is consulted on every Observe call against the
	// current site; a nil Matrix is permissive (tracking allowed
	// everywhere), matching dispatch.Dispatcher's own use of it.
	Compliance *compliance.Matrix
	// Enabled mirrors the resolved recorder.enabled configuration
	// option (config.Recorder.IsEnabled()). false disables recording
	// outright regardless of site compliance.
	Enabled bool
}

// New builds a Recorder in the Idle state.
func New(cfg Config, clock quartz.Clock, log zerolog.Logger) *Recorder {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Recorder{
		clock:      clock,
		log:        log,
		compliance: cfg.Compliance,
		enabled:    cfg.Enabled,
		state:      StateIdle,
		site:       cfg.Site,
		table:      cfg.Table,
		heroName:   cfg.HeroName,
		smallBlind: cfg.SmallBlind,
		bigBlind:   cfg.BigBlind,
		emitted:    make(chan model.HandHistory, 16),
	}
}

// Emitted returns the channel HandHistory records are published on.
// Completion never blocks waiting for a reader: a full channel drops
// the oldest buffered entry's delivery and logs the overflow, since a
// recorder must never stall the frame loop it is observed from.
func (r *Recorder) Emitted() <-chan model.HandHistory {
	return r.emitted
}

// State reports the recorder's current phase.
func (r *Recorder) State() State {
	return r.state
}

// Observe feeds one TableState into the recorder, advancing the state
// machine and appending a snapshot while recording. If Enabled is false
// or the table's site has tracking_enabled=false in the compliance
// matrix, Observe is a no-op: the recorder never starts, extends, or
// completes a hand for a site where tracking is not permitted.
func (r *Recorder) Observe(state model.TableState) {
	site := state.Site
	if site == "" {
		site = r.site
	}
	if !r.enabled || !r.compliance.TrackingAllowed(site) {
		return
	}

	if r.shouldStartNewHand(state) {
		r.startNewHand(state)
	}

	if r.state == StateRecording {
		snapshot := model.SnapshotFrom(state, r.clock.Now().UnixNano())
		r.snapshots = append(r.snapshots, snapshot)

		if r.isHandComplete(state) {
			r.complete(snapshot)
		}
	}

	r.prevStage = state.Stage
	r.prevPotSize = state.PotSize
	r.prevHeroCards = append([]poker.Card(nil), state.HeroCards...)
}

func (r *Recorder) shouldStartNewHand(state model.TableState) bool {
	switch r.state {
	case StateIdle:
		return state.PotSize > 0 && len(state.HeroCards) > 0
	case StateCompleted:
		return len(state.HeroCards) > 0 && !sameCardSet(state.HeroCards, r.prevHeroCards)
	default:
		return false
	}
}

func (r *Recorder) startNewHand(state model.TableState) {
	r.state = StateRecording
	r.handID = state.HandID
	r.handStartNS = r.clock.Now().UnixNano()
	r.snapshots = nil

	if state.Site != "" {
		r.site = state.Site
	}
	if state.TableID != "" {
		r.table = state.TableID
	}
	if state.SmallBlind > 0 {
		r.smallBlind = state.SmallBlind
	}
	if state.BigBlind > 0 {
		r.bigBlind = state.BigBlind
	}
	r.heroSeat = state.HeroSeat

	r.initialSeats = make(map[int]model.Seat, len(state.Seats))
	for _, s := range state.Seats {
		r.initialSeats[s.SeatNumber] = s.Clone()
	}
	r.prevHeroCards = append([]poker.Card(nil), state.HeroCards...)
}

func (r *Recorder) isHandComplete(state model.TableState) bool {
	if len(r.snapshots) < 2 {
		return false
	}

	if len(state.HeroCards) == 0 && len(r.prevHeroCards) > 0 {
		return true
	}

	if state.PotSize == 0 && r.prevPotSize > 0 && len(r.snapshots) > 3 {
		return true
	}

	if state.Stage == model.StagePreflop &&
		(r.prevStage == model.StageFlop || r.prevStage == model.StageTurn || r.prevStage == model.StageRiver) &&
		len(state.HeroCards) > 0 && !sameCardSet(state.HeroCards, r.prevHeroCards) {
		return true
	}

	return false
}

// complete derives a HandHistory from the recorded snapshot sequence.
// It always leaves the recorder in StateCompleted, emitting a
// best-effort HandHistory even if derivation partially fails: a
// recorder must never get stuck mid-hand on bad data.
func (r *Recorder) complete(final model.HandSnapshot) {
	defer func() {
		r.state = StateCompleted
		r.snapshots = nil
		if rec := recover(); rec != nil {
			r.log.Error().Interface("panic", rec).Str("hand_id", r.handID).Msg("recorder: recovered during completion, emitting best effort")
		}
	}()

	if len(r.snapshots) == 0 {
		return
	}

	initial := r.snapshots[0]
	finalStage := highestStage(r.snapshots)
	maxPot := maxPotSize(r.snapshots)
	players := r.buildPlayers(initial, final)
	actions := r.extractActions()
	winners := winningSeats(players)
	heroResult, heroNet := r.heroOutcome(players)

	history := model.HandHistory{
		HandID:     r.handID,
		StartTMono: r.handStartNS,
		Site:       r.site,
		Table:      r.table,
		SmallBlind: r.smallBlind,
		BigBlind:   r.bigBlind,
		HeroName:   r.heroName,
		HeroCards:  append([]poker.Card(nil), final.HeroCards...),
		BoardCards: append([]poker.Card(nil), final.BoardCards...),
		Players:    players,
		Actions:    actions,
		PotSize:    maxPot,
		Winners:    winners,
		HeroResult: heroResult,
		HeroNet:    heroNet,
		FinalStage: finalStage,
		DurationS:  float64(r.clock.Now().UnixNano()-r.handStartNS) / 1e9,
	}

	select {
	case r.emitted <- history:
	default:
		r.log.Warn().Str("hand_id", r.handID).Msg("recorder: emitted channel full, dropping oldest")
		select {
		case <-r.emitted:
		default:
		}
		r.emitted <- history
	}
}

func (r *Recorder) buildPlayers(initial, final model.HandSnapshot) []model.HandPlayer {
	initialMap := seatsByNumber(initial.Seats)
	finalMap := seatsByNumber(final.Seats)
	for num, seat := range r.initialSeats {
		if _, ok := initialMap[num]; !ok {
			initialMap[num] = seat
		}
	}

	numbers := make(map[int]struct{})
	for n := range initialMap {
		numbers[n] = struct{}{}
	}
	for n := range finalMap {
		numbers[n] = struct{}{}
	}
	sorted := make([]int, 0, len(numbers))
	for n := range numbers {
		sorted = append(sorted, n)
	}
	sort.Ints(sorted)

	players := make([]model.HandPlayer, 0, len(sorted))
	for _, num := range sorted {
		initSeat, hasInit := initialMap[num]
		finSeat, hasFinal := finalMap[num]
		reference := finSeat
		if !hasFinal {
			reference = initSeat
		}
		if !hasInit && !hasFinal {
			continue
		}

		name := reference.PlayerName
		starting := initSeat.Stack
		if !hasInit {
			starting = reference.Stack
		}
		ending := starting
		if hasFinal {
			ending = finSeat.Stack
		}

		players = append(players, model.HandPlayer{
			SeatNumber:    num,
			Name:          name,
			StartingStack: starting,
			EndingStack:   ending,
			Position:      reference.Position,
			IsHero:        reference.IsHero,
			Cards:         append([]poker.Card(nil), reference.HoleCards...),
			WonAmount:     math.Max(ending-starting, 0),
		})
	}
	return players
}

func (r *Recorder) extractActions() []model.HandAction {
	if len(r.snapshots) < 2 {
		return nil
	}

	var actions []model.HandAction
	previous := r.snapshots[0]
	for _, snapshot := range r.snapshots[1:] {
		if snapshot.PotSize+stackDeltaEpsilon < previous.PotSize {
			previous = snapshot
			continue
		}

		prevSeats := seatsByNumber(previous.Seats)
		currSeats := seatsByNumber(snapshot.Seats)
		for num, curr := range currSeats {
			prev, ok := prevSeats[num]
			if !ok {
				continue
			}
			delta := prev.Stack - curr.Stack
			if delta <= stackDeltaEpsilon {
				continue
			}
			kind := model.ActionBet
			if curr.Stack <= stackDeltaEpsilon {
				kind = model.ActionAllIn
			}
			actions = append(actions, model.HandAction{
				SeatNumber: num,
				Kind:       kind,
				Amount:     math.Round(delta*100) / 100,
				Stage:      snapshot.Stage,
				TMonoNS:    snapshot.TMonoNS,
			})
		}
		previous = snapshot
	}
	return actions
}

func (r *Recorder) heroOutcome(players []model.HandPlayer) (model.HeroResult, float64) {
	var hero *model.HandPlayer
	for i := range players {
		if players[i].IsHero {
			hero = &players[i]
			break
		}
	}
	if hero == nil && r.heroName != "" {
		for i := range players {
			if players[i].Name == r.heroName {
				hero = &players[i]
				break
			}
		}
	}
	if hero == nil && r.heroSeat != nil {
		initial, hasInit := r.initialSeats[*r.heroSeat]
		latest, hasLatest := r.latestStackForSeat(*r.heroSeat)
		startStack := 0.0
		if hasInit {
			startStack = initial.Stack
		}
		endStack := startStack
		if hasLatest {
			endStack = latest
		}
		net := endStack - startStack
		return resultFromNet(net), net
	}
	if hero == nil {
		return model.HeroUnknown, 0
	}
	net := hero.EndingStack - hero.StartingStack
	return resultFromNet(net), net
}

func (r *Recorder) latestStackForSeat(seat int) (float64, bool) {
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		if s, ok := r.snapshots[i].SeatByNumber(seat); ok {
			return s.Stack, true
		}
	}
	return 0, false
}

func resultFromNet(net float64) model.HeroResult {
	switch {
	case net > stackDeltaEpsilon:
		return model.HeroWon
	case net < -stackDeltaEpsilon:
		return model.HeroLost
	default:
		return model.HeroPushed
	}
}

func winningSeats(players []model.HandPlayer) []int {
	var winners []int
	for _, p := range players {
		if p.EndingStack-p.StartingStack > stackDeltaEpsilon {
			winners = append(winners, p.SeatNumber)
		}
	}
	return winners
}

func highestStage(snapshots []model.HandSnapshot) model.Stage {
	rank := map[model.Stage]int{
		model.StagePreflop:  0,
		model.StageFlop:     1,
		model.StageTurn:     2,
		model.StageRiver:    3,
		model.StageShowdown: 4,
	}
	best := model.StagePreflop
	for _, s := range snapshots {
		if rank[s.Stage] > rank[best] {
			best = s.Stage
		}
	}
	return best
}

func maxPotSize(snapshots []model.HandSnapshot) float64 {
	var max float64
	for _, s := range snapshots {
		if s.PotSize > max {
			max = s.PotSize
		}
	}
	return max
}

func seatsByNumber(seats []model.Seat) map[int]model.Seat {
	m := make(map[int]model.Seat, len(seats))
	for _, s := range seats {
		m[s.SeatNumber] = s
	}
	return m
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

// Reset clears the recorder back to Idle, discarding any in-progress
// snapshot sequence without emitting a HandHistory.
func (r *Recorder) Reset() {
	r.state = StateIdle
	r.handID = ""
	r.handStartNS = 0
	r.snapshots = nil
	r.prevStage = ""
	r.prevPotSize = 0
	r.prevHeroCards = nil
	r.initialSeats = nil
	r.heroSeat = nil
}
