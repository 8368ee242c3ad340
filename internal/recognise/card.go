package recognise

import (
	"github.com/opencoff/go-chd"
	"github.com/pokertool/core/internal/model"
	"github.com/pokertool/core/poker"
)

// CardConfidenceFloor is the minimum ensemble confidence required before
// a card observation is emitted. Below the floor, the recogniser
// reports unknown and lets the dispatcher keep the previous value.
const CardConfidenceFloor = 0.85

// DeckStyle names a template set a table renderer uses for its card
// faces (e.g. four-color decks, different corner-index fonts).
type DeckStyle string

// templateKey identifies one (deck style, card) template pair.
type templateKey struct {
	Style DeckStyle
	Card  poker.Card
}

func (k templateKey) bytes() []byte {
	return []byte(string(k.Style) + ":" + k.Card.String())
}

// TemplateLibrary is a minimal-perfect-hash index over every (deck
// style, card) template pair a table-matching strategy may need to look
// up. The key set is fixed and closed (N deck styles times 52 cards),
// which is exactly the case go-chd's CHD construction is built for:
// O(1) lookup with no collision chaining and a compact serialized form.
//
// A minimal perfect hash only guarantees collision-free buckets for the
// keys it was built from; querying a key outside that set still returns
// some bucket index. Lookup guards against this by keeping the bucket's
// original key alongside its template and rejecting a query whose key
// doesn't match what's stored there.
type TemplateLibrary struct {
	index     *chd.CHD
	bucketKey []templateKey // bucketKey[bucket] is the key that owns that bucket
	templates [][]byte      // template image bytes, indexed by the CHD bucket
}

// BuildTemplateLibrary constructs a TemplateLibrary from a set of deck
// styles, generating the full 52-card key space for each and
// associating it with the supplied template bytes. templatesByKey must
// contain an entry for every (style, card) pair; a missing entry is an
// empty template, treated as "not available" by Lookup.
func BuildTemplateLibrary(styles []DeckStyle, templatesByKey map[string][]byte) (*TemplateLibrary, error) {
	var keys []templateKey
	var keyBytes [][]byte
	for _, style := range styles {
		for _, c := range poker.AllCards() {
			k := templateKey{Style: style, Card: c}
			keys = append(keys, k)
			keyBytes = append(keyBytes, k.bytes())
		}
	}

	index, err := chd.New(keyBytes)
	if err != nil {
		return nil, model.NewError(model.KindValidation, "recognise.BuildTemplateLibrary", "chd construction failed", err)
	}

	bucketKey := make([]templateKey, len(keys))
	templates := make([][]byte, len(keys))
	for _, k := range keys {
		bucket := index.Find(k.bytes())
		bucketKey[bucket] = k
		templates[bucket] = templatesByKey[string(k.Style)+":"+k.Card.String()]
	}

	return &TemplateLibrary{index: index, bucketKey: bucketKey, templates: templates}, nil
}

// Lookup returns the template bytes for style/card, or ok=false if none
// were registered for that pair.
func (t *TemplateLibrary) Lookup(style DeckStyle, c poker.Card) ([]byte, bool) {
	if t == nil || t.index == nil {
		return nil, false
	}
	k := templateKey{Style: style, Card: c}
	bucket := t.index.Find(k.bytes())
	if bucket >= uint32(len(t.templates)) || t.bucketKey[bucket] != k {
		return nil, false
	}
	tpl := t.templates[bucket]
	if len(tpl) == 0 {
		return nil, false
	}
	return tpl, true
}

// ResolveCard applies the card recogniser's confidence floor to an
// ensemble Resolution. ok=false means the card should be reported as
// unknown and the dispatcher should keep its previous value for the slot.
func ResolveCard(res model.Resolution) (poker.Card, bool) {
	if res.Confidence < CardConfidenceFloor {
		return 0, false
	}
	c, ok := res.Value.(poker.Card)
	if !ok {
		return 0, false
	}
	return c, true
}
