package recognise

import "strings"

// invalidSeatNames is the OCR invalid-name filter: any of these values
// (case-insensitively) are treated as "no name detected" rather than a
// real player name.
var invalidSeatNames = map[string]struct{}{
	"you":    {},
	"player": {},
	"empty":  {},
	"seat":   {},
	"-":      {},
	"?":      {},
	"n/a":    {},
}

// NormalisePlayerName applies the invalid-name filter to raw OCR text,
// returning "" when the text is not a plausible player name: one of the
// fixed invalid strings, or a single character that is not a digit (a
// common OCR artifact from a seat-number badge bleeding into the name
// region).
func NormalisePlayerName(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if _, bad := invalidSeatNames[strings.ToLower(trimmed)]; bad {
		return ""
	}
	if len(trimmed) == 1 && !isDigit(trimmed[0]) {
		return ""
	}
	return trimmed
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
