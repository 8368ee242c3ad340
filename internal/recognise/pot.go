// Package recognise implements the typed, slot-specific recognisers
// that sit between the ensemble voter and the dispatcher: Pot, Card and
// Seat/Player. Each applies validation the voter itself does not know
// about (currency parsing, confidence floors, name filtering) to the
// voter's raw Resolution before it becomes a dispatcher update.
package recognise

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pokertool/core/internal/model"
)

// currencySymbols maps a recognised currency code to the glyph(s) a
// strategy's raw OCR text may use in place of the code itself.
var currencySymbols = map[string]string{
	"USD":   "$",
	"EUR":   "€",
	"GBP":   "£",
	"BTC":   "₿",
	"ETH":   "Ξ",
	"CHIPS": "",
}

// potRangeMin and potRangeMax bound the plausible pot size; amounts
// outside this range are still emitted but with a confidence penalty,
// since a screen-scrape glitch often produces an implausible value
// rather than an absent one.
const (
	potRangeMin = 0.01
	potRangeMax = 10_000_000.0

	potConsensusWindow = 5
	potConsensusEps    = 0.01
	potConsensusBoost  = 0.05
	potConsensusCap    = 0.99
)

// PotTracker maintains the last potConsensusWindow resolved pot amounts
// per table slot, applying the temporal consensus confidence boost:
// when they agree within potConsensusEps, the emitted confidence is
// boosted by potConsensusBoost, capped at potConsensusCap.
type PotTracker struct {
	history map[string][]float64 // slot -> ring of recent amounts, oldest first
}

// NewPotTracker builds an empty PotTracker.
func NewPotTracker() *PotTracker {
	return &PotTracker{history: make(map[string][]float64)}
}

// Resolve turns a raw pot Resolution into a validated PotAmount,
// applying range penalty and temporal consensus. ok=false means the
// amount could not be parsed and nothing should be emitted. res.Value
// holds either the raw OCR text (e.g. "$1,234.50") or an
// already-numeric float64 from a non-OCR strategy.
func (pt *PotTracker) Resolve(slot string, res model.Resolution, method string) (model.PotAmount, bool) {
	if f, isFloat := res.Value.(float64); isFloat {
		pa := model.PotAmount{Amount: f, Currency: "CHIPS", Method: method}
		pa.Confidence = pt.consensusConfidence(slot, f, res.Confidence*rangePenalty(f))
		return pa, true
	}

	raw, ok := res.Value.(string)
	if !ok {
		return model.PotAmount{}, false
	}

	amount, currency, parseErr := ParsePotText(raw)
	if parseErr != nil {
		return model.PotAmount{}, false
	}

	conf := res.Confidence * rangePenalty(amount)
	conf = pt.consensusConfidence(slot, amount, conf)

	return model.PotAmount{
		Amount:     amount,
		Currency:   currency,
		RawText:    raw,
		Method:     method,
		Confidence: conf,
	}, true
}

// consensusConfidence records amount in the slot's history and returns
// the boosted confidence if the last potConsensusWindow values agree
// within potConsensusEps.
func (pt *PotTracker) consensusConfidence(slot string, amount, confidence float64) float64 {
	hist := pt.history[slot]
	hist = append(hist, amount)
	if len(hist) > potConsensusWindow {
		hist = hist[len(hist)-potConsensusWindow:]
	}
	pt.history[slot] = hist

	if len(hist) < potConsensusWindow {
		return confidence
	}
	first := hist[0]
	for _, v := range hist[1:] {
		if abs(v-first) > potConsensusEps {
			return confidence
		}
	}
	boosted := confidence + potConsensusBoost
	if boosted > potConsensusCap {
		boosted = potConsensusCap
	}
	return boosted
}

// rangePenalty reduces confidence for amounts outside the plausible pot
// range; in-range amounts are unaffected.
func rangePenalty(amount float64) float64 {
	if amount < potRangeMin || amount > potRangeMax {
		return 0.5
	}
	return 1.0
}

// ParsePotText extracts a numeric amount and currency code from raw OCR
// text such as "$1,234.50", "€500", "1200 CHIPS" or "Ξ0.45".
func ParsePotText(raw string) (float64, string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, "", fmt.Errorf("recognise: empty pot text")
	}

	currency := "CHIPS"
	body := trimmed
	for code, symbol := range currencySymbols {
		if symbol != "" && strings.Contains(body, symbol) {
			currency = code
			body = strings.ReplaceAll(body, symbol, "")
			break
		}
	}
	upper := strings.ToUpper(body)
	for _, code := range []string{"USD", "EUR", "GBP", "BTC", "ETH", "CHIPS"} {
		if strings.Contains(upper, code) {
			currency = code
			body = stripCaseInsensitive(body, code)
			break
		}
	}

	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, ",", "")
	body = strings.ReplaceAll(body, " ", "")
	if body == "" {
		return 0, "", fmt.Errorf("recognise: no numeric content in %q", raw)
	}

	amount, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return 0, "", fmt.Errorf("recognise: cannot parse pot amount from %q: %w", raw, err)
	}
	return amount, currency, nil
}

func stripCaseInsensitive(s, substr string) string {
	idx := strings.Index(strings.ToUpper(s), strings.ToUpper(substr))
	if idx < 0 {
		return s
	}
	return s[:idx] + s[idx+len(substr):]
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
