// Package ensemble resolves conflicting detection strategy Observations
// into a single Resolution per semantic slot.
package ensemble

import (
	"fmt"
	"sort"

	"github.com/pokertool/core/internal/model"
)

// Method names the resolution strategy applied to a slot.
type Method string

const (
	MethodWeightedVote      Method = "weighted_vote"
	MethodHighestConfidence Method = "highest_confidence"
	MethodMajority          Method = "majority"
	MethodAverage           Method = "average"
)

// Config configures a Voter.
type Config struct {
	DefaultMethod  Method
	MethodBySlot   map[string]Method
	LearningRate   float64 // η, default 0.1
	MinWeight      float64 // default 0.01
	LowTrustFloor  float64 // agreement (1 - disagreement) below which a result is low_trust
}

// DefaultConfig returns the documented ensemble defaults.
func DefaultConfig() Config {
	return Config{
		DefaultMethod: MethodWeightedVote,
		MethodBySlot:  map[string]Method{},
		LearningRate:  0.1,
		MinWeight:     0.01,
		LowTrustFloor: 0.5,
	}
}

// Voter combines strategy outputs by weighted voting, highest confidence,
// majority, or weighted average, and adapts strategy weights online from
// per-strategy reward feedback.
type Voter struct {
	cfg   Config
	store *weightStore
}

// New builds a Voter from the given configuration.
func New(cfg Config) *Voter {
	if cfg.MethodBySlot == nil {
		cfg.MethodBySlot = map[string]Method{}
	}
	return &Voter{cfg: cfg, store: newWeightStore()}
}

// UpdateWeights applies online adaptation for one strategy.
func (v *Voter) UpdateWeights(strategyID string, reward float64) {
	v.store.update(strategyID, reward, v.cfg.LearningRate, v.cfg.MinWeight)
}

// Weights returns a snapshot of the current per-strategy weights.
func (v *Voter) Weights() map[string]float64 {
	table := v.store.load()
	out := make(map[string]float64, len(table.weights))
	for k, val := range table.weights {
		out[k] = val
	}
	return out
}

func (v *Voter) methodFor(slot string) Method {
	if m, ok := v.cfg.MethodBySlot[slot]; ok {
		return m
	}
	if v.cfg.DefaultMethod == "" {
		return MethodWeightedVote
	}
	return v.cfg.DefaultMethod
}

// Resolve combines observations for a single slot into one Resolution.
func (v *Voter) Resolve(slot string, observations []model.Observation) model.Resolution {
	if len(observations) == 0 {
		return model.Resolution{LowTrust: true}
	}

	ids := make([]string, 0, len(observations))
	for _, o := range observations {
		ids = append(ids, o.StrategyID)
	}
	table := v.store.ensure(ids, v.cfg.MinWeight)

	var res model.Resolution
	switch v.methodFor(slot) {
	case MethodHighestConfidence:
		res = resolveHighestConfidence(observations, table, v.cfg.MinWeight)
	case MethodMajority:
		res = resolveMajority(observations)
	case MethodAverage:
		res = resolveWeightedAverage(observations, table, v.cfg.MinWeight)
	default:
		res = resolveWeightedVote(observations, table, v.cfg.MinWeight)
	}
	res.LowTrust = res.Disagreement > (1 - v.cfg.LowTrustFloor)
	return res
}

func valueKey(val any) string {
	if c, ok := val.(fmt.Stringer); ok {
		return c.String()
	}
	return fmt.Sprintf("%v", val)
}

type group struct {
	key          string
	value        any
	score        float64
	votes        int
	contributors []string
}

func groupByValue(observations []model.Observation, table *WeightTable, minWeight float64) []group {
	groups := map[string]*group{}
	order := make([]string, 0)
	for _, o := range observations {
		key := valueKey(o.Value)
		g, ok := groups[key]
		if !ok {
			g = &group{key: key, value: o.Value}
			groups[key] = g
			order = append(order, key)
		}
		w := table.Weight(o.StrategyID, minWeight)
		g.score += w * o.Confidence
		g.votes++
		g.contributors = append(g.contributors, o.StrategyID)
	}
	out := make([]group, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out
}

func totalScore(groups []group) float64 {
	var sum float64
	for _, g := range groups {
		sum += g.score
	}
	return sum
}

// pickWinner returns the index of the highest-scoring group, tie-breaking
// by the lexicographically earliest contributing strategy ID for
// determinism.
func pickWinner(groups []group) int {
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].score > groups[best].score {
			best = i
			continue
		}
		if groups[i].score == groups[best].score {
			if earliestID(groups[i].contributors) < earliestID(groups[best].contributors) {
				best = i
			}
		}
	}
	return best
}

func earliestID(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0]
}

func resolveWeightedVote(observations []model.Observation, table *WeightTable, minWeight float64) model.Resolution {
	groups := groupByValue(observations, table, minWeight)
	total := totalScore(groups)
	winner := pickWinner(groups)

	var confidence float64
	if total > 0 {
		confidence = groups[winner].score / total
	}
	return model.Resolution{
		Value:        groups[winner].value,
		Confidence:   confidence,
		Method:       string(MethodWeightedVote),
		Contributors: groups[winner].contributors,
		Disagreement: disagreement(groups, winner),
	}
}

func resolveMajority(observations []model.Observation) model.Resolution {
	groups := groupByValue(observations, nil, 0)
	// majority uses plain counts, not weighted scores
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].votes > groups[best].votes {
			best = i
		} else if groups[i].votes == groups[best].votes && earliestID(groups[i].contributors) < earliestID(groups[best].contributors) {
			best = i
		}
	}
	total := 0
	for _, g := range groups {
		total += g.votes
	}
	var confidence float64
	if total > 0 {
		confidence = float64(groups[best].votes) / float64(total)
	}
	return model.Resolution{
		Value:        groups[best].value,
		Confidence:   confidence,
		Method:       string(MethodMajority),
		Contributors: groups[best].contributors,
		Disagreement: 1 - confidence,
	}
}

func resolveHighestConfidence(observations []model.Observation, table *WeightTable, minWeight float64) model.Resolution {
	groups := groupByValue(observations, table, minWeight)
	// Minimum-count override: if any value is agreed by >=2 strategies,
	// prefer it over a lone higher-confidence singleton.
	agreed := make([]group, 0)
	for _, g := range groups {
		if g.votes >= 2 {
			agreed = append(agreed, g)
		}
	}
	if len(agreed) > 0 {
		best := 0
		for i := 1; i < len(agreed); i++ {
			if agreed[i].score > agreed[best].score {
				best = i
			}
		}
		total := totalScore(groups)
		var confidence float64
		if total > 0 {
			confidence = agreed[best].score / total
		}
		return model.Resolution{
			Value:        agreed[best].value,
			Confidence:   confidence,
			Method:       string(MethodHighestConfidence),
			Contributors: agreed[best].contributors,
			Disagreement: disagreement(groups, indexOf(groups, agreed[best].key)),
		}
	}

	// No agreement: pick the single highest-confidence observation.
	bestObs := observations[0]
	for _, o := range observations[1:] {
		if o.Confidence > bestObs.Confidence {
			bestObs = o
		}
	}
	winnerIdx := indexOf(groups, valueKey(bestObs.Value))
	return model.Resolution{
		Value:        bestObs.Value,
		Confidence:   bestObs.Confidence,
		Method:       string(MethodHighestConfidence),
		Contributors: []string{bestObs.StrategyID},
		Disagreement: disagreement(groups, winnerIdx),
	}
}

func indexOf(groups []group, key string) int {
	for i, g := range groups {
		if g.key == key {
			return i
		}
	}
	return 0
}

func resolveWeightedAverage(observations []model.Observation, table *WeightTable, minWeight float64) model.Resolution {
	var numerator, denominator float64
	contributors := make([]string, 0, len(observations))
	for _, o := range observations {
		val, ok := toFloat(o.Value)
		if !ok {
			continue
		}
		w := table.Weight(o.StrategyID, minWeight)
		weight := w * o.Confidence
		numerator += weight * val
		denominator += weight
		contributors = append(contributors, o.StrategyID)
	}
	var value float64
	var confidence float64
	if denominator > 0 {
		value = numerator / denominator
		confidence = denominator / float64(len(observations))
		if confidence > 1 {
			confidence = 1
		}
	}
	groups := groupByValue(observations, table, minWeight)
	return model.Resolution{
		Value:        value,
		Confidence:   confidence,
		Method:       string(MethodAverage),
		Contributors: contributors,
		Disagreement: disagreement(groups, pickWinner(groups)),
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// disagreement computes 1 - winner_votes/total_votes.
func disagreement(groups []group, winner int) float64 {
	total := 0
	for _, g := range groups {
		total += g.votes
	}
	if total == 0 {
		return 1
	}
	return 1 - float64(groups[winner].votes)/float64(total)
}
