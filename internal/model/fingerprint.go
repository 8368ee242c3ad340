package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint is a deterministic hash of (game_state subset, query_type,
// parameters); two queries with identical fingerprints map to the same
// cache entry.
type Fingerprint string

// NewFingerprint builds a deterministic Fingerprint from a query type and
// a set of named parameters. Parameter iteration order never affects the
// result: keys are sorted before hashing.
func NewFingerprint(queryType string, params map[string]string) Fingerprint {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(queryType)
	for _, k := range keys {
		b.WriteByte('\x00')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Fingerprint(fmt.Sprintf("%s:%s", queryType, hex.EncodeToString(sum[:16])))
}

// Pattern returns the fingerprint's query-type prefix, used by the
// latency optimiser to group fingerprints that share a shape.
func (f Fingerprint) Pattern() string {
	s := string(f)
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}
